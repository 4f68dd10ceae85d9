// Package web holds the index page served next to the trace API.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// DevModeEnv names the environment variable that makes the server read the
// pages from the source tree instead of the binary.
const DevModeEnv = "TRACENAV_WEB_DEV"

//go:embed dist/*
var pages embed.FS

// GetAssets returns the pages to serve.
func GetAssets() http.FileSystem {
	if devMode() {
		_, thisFile, _, ok := runtime.Caller(0)
		if !ok {
			panic("cannot locate the page directory")
		}

		dir := path.Join(path.Dir(thisFile), "dist")
		logrus.WithField("dir", dir).Info("Serving pages from the source tree")

		return http.Dir(dir)
	}

	dist, err := fs.Sub(pages, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(dist)
}

func devMode() bool {
	v := strings.ToLower(os.Getenv(DevModeEnv))

	return v == "true" || v == "1"
}
