package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/tracenav/tracing"
)

var importCmd = &cobra.Command{
	Use:   "import TRACE.json",
	Short: "Import a JSON instruction trace into a new trace database.",
	Long: `import reads a JSON array of instructions, or a stream of ` +
		`instruction objects, and writes them into a new SQLite database. ` +
		`A unique database name is generated if --sqlite is not given. ` +
		`Nothing is left on disk if the trace cannot be imported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("sqlite")

		in, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		store, err := tracing.CreateSQLiteTraceStore(name)
		if err != nil {
			return err
		}

		n, err := tracing.Import(in, store)
		if err != nil {
			err = fmt.Errorf("importing %s: %w", args[0], err)
		}

		err = closeOrDiscard(store, err)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Imported %d instructions into %s\n",
			n, store.Filename())

		return nil
	},
}

// closeOrDiscard keeps the database if err is nil. Otherwise, the database is
// removed and err is returned.
func closeOrDiscard(store *tracing.SQLiteTraceStore, err error) error {
	if err == nil {
		return store.Close()
	}

	discardErr := store.Discard()
	if discardErr != nil {
		logrus.WithError(discardErr).
			WithField("file", store.Filename()).
			Warn("Failed to remove incomplete trace database")
	}

	return err
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("sqlite", cfg.SQLiteFile,
		"Name of the database to create. Env: "+envSQLite)
}
