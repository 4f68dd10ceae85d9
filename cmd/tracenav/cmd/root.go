// Package cmd provides the command-line interface of tracenav.
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var cfg = mustLoadConfig()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tracenav",
	Short: "Explore the instruction traces of a simulated GPU.",
	Long: `tracenav imports instruction traces into SQLite databases, ` +
		`serves them over HTTP, and prints the detailed view of a time ` +
		`range. It also keeps register debugging sessions, where register ` +
		`snapshots are tagged and validated page by page.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		levelName, _ := cmd.Flags().GetString("log-level")

		level, err := logrus.ParseLevel(levelName)
		if err != nil {
			return err
		}

		logrus.SetLevel(level)
		logrus.SetOutput(cmd.ErrOrStderr())

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Exit handlers, such as the flushing of trace databases, run
// before the process exits.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func init() {
	rootCmd.PersistentFlags().String("log-level", cfg.LogLevel,
		"Log level (trace, debug, info, warn, error). Env: "+envLogLevel)
	rootCmd.SetErr(os.Stderr)
}
