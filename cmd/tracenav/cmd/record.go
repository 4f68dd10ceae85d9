package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/tracenav/tracing"
)

var recordCmd = &cobra.Command{
	Use:   "record TRANSITIONS.json",
	Short: "Record a stage transition log into a new trace database.",
	Long: `record replays a stream of JSON stage transitions, as written by ` +
		`a simulator, and stores every instruction that ends. Each ` +
		`transition has a kind (start, step, or end), an instruction id, a ` +
		`time, and a stage. Start transitions also carry the instruction ` +
		`metadata. With --start or --end, only the instructions that ` +
		`overlap the window are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("sqlite")
		start, _ := cmd.Flags().GetFloat64("start")
		end, _ := cmd.Flags().GetFloat64("end")

		in, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		store, err := tracing.CreateSQLiteTraceStore(name)
		if err != nil {
			return err
		}

		recorder := tracing.NewRecorder(store)
		recorder.SetTimeRange(start, end)

		n, err := tracing.Replay(in, recorder)
		if err != nil {
			err = fmt.Errorf("recording %s: %w", args[0], err)
		}

		err = closeOrDiscard(store, err)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(),
			"Recorded %d instructions from %d transitions into %s\n",
			recorder.Written(), n, store.Filename())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().String("sqlite", cfg.SQLiteFile,
		"Name of the database to create. Env: "+envSQLite)
	recordCmd.Flags().Float64("start", 0,
		"Drop the instructions that end before this time")
	recordCmd.Flags().Float64("end", 0,
		"Drop the instructions that start after this time")
}
