package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/tracenav/server"
	"github.com/sarchlab/tracenav/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a trace database over HTTP.",
	Long: `serve exposes a trace database through the overview, trace, and ` +
		`span APIs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr, _ := cmd.Flags().GetString("http")
		filename, _ := cmd.Flags().GetString("sqlite")
		open, _ := cmd.Flags().GetBool("open")

		if filename == "" {
			return errors.New("a trace database is required, use --sqlite")
		}

		store, err := tracing.OpenSQLiteTraceStore(filename)
		if err != nil {
			return err
		}
		defer store.Close()

		s := server.New(store).WithAddress(addr)

		url, err := s.Start()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Serving %s at %s\n", filename, url)

		if open {
			err = browser.OpenURL(url)
			if err != nil {
				logrus.WithError(err).Warn("Failed to open the browser")
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(),
			os.Interrupt, syscall.SIGTERM)
		defer stop()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), 5*time.Second)
		defer cancel()

		return s.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("http", cfg.HTTPAddr,
		"HTTP service address. Env: "+envHTTP)
	serveCmd.Flags().String("sqlite", cfg.SQLiteFile,
		"Trace database to serve. Env: "+envSQLite)
	serveCmd.Flags().Bool("open", cfg.OpenBrowser,
		"Open the server in a browser. Env: "+envOpenBrowser)
}
