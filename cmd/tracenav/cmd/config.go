package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Environment variables that provide the default values of the flags.
const (
	envHTTP        = "TRACENAV_HTTP"
	envSQLite      = "TRACENAV_SQLITE"
	envServer      = "TRACENAV_SERVER"
	envLogLevel    = "TRACENAV_LOG_LEVEL"
	envOpenBrowser = "TRACENAV_OPEN_BROWSER"
)

type config struct {
	HTTPAddr    string
	SQLiteFile  string
	ServerURL   string
	LogLevel    string
	OpenBrowser bool
}

func defaultConfig() config {
	return config{
		HTTPAddr:  "localhost:3001",
		ServerURL: "http://localhost:3001",
		LogLevel:  "info",
	}
}

// loadConfig reads the environment after loading the given .env files, or
// ".env" in the working directory if no file is given. Variables that are
// already set are not overridden by the files. Missing files are ignored.
func loadConfig(envFiles ...string) (config, error) {
	err := godotenv.Load(envFiles...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(), err
	}

	return configFromEnv(os.LookupEnv)
}

func configFromEnv(lookup func(string) (string, bool)) (config, error) {
	c := defaultConfig()

	if v, ok := lookup(envHTTP); ok && v != "" {
		c.HTTPAddr = v
	}

	if v, ok := lookup(envSQLite); ok {
		c.SQLiteFile = v
	}

	if v, ok := lookup(envServer); ok && v != "" {
		c.ServerURL = v
	}

	if v, ok := lookup(envLogLevel); ok && v != "" {
		_, err := logrus.ParseLevel(v)
		if err != nil {
			return c, fmt.Errorf("%s: %w", envLogLevel, err)
		}

		c.LogLevel = v
	}

	if v, ok := lookup(envOpenBrowser); ok && v != "" {
		open, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("%s: %w", envOpenBrowser, err)
		}

		c.OpenBrowser = open
	}

	return c, nil
}

func mustLoadConfig() config {
	c, err := loadConfig()
	if err != nil {
		logrus.WithError(err).Warn("Ignoring invalid configuration")
	}

	return c
}
