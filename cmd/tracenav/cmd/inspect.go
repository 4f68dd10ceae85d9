package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/tracenav/navigation"
	"github.com/sarchlab/tracenav/rendering"
	"github.com/sarchlab/tracenav/tracing"
)

const overviewLines = 8

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the overview and the detailed view of a time range.",
	Long: `inspect loads the overview of a trace, selects a time range, and ` +
		`prints the instructions of the range with one row per instruction. ` +
		`--start and --end must be given together. Without them, the default selection near the start of ` +
		`the trace is shown. The trace is read from the database given by ` +
		`--sqlite, or from the trace server given by --server otherwise.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		columns, _ := cmd.Flags().GetInt("width")
		if columns < 2*navigation.PixelsPerSample {
			return fmt.Errorf("width %d is too small", columns)
		}

		reader, closeReader, err := openTraceReader(cmd)
		if err != nil {
			return err
		}
		defer closeReader()

		ctx := cmd.Context()
		width := float64(columns)

		minimap := navigation.NewMinimap(reader, width, overviewLines)

		err = minimap.Resize(ctx, width, overviewLines)
		if err != nil {
			return fmt.Errorf("loading overview: %w", err)
		}

		surface := newTextSurface(columns)
		renderer := rendering.NewRenderer(surface)
		selector := navigation.NewRangeSelector(minimap, reader, renderer)

		if cmd.Flags().Changed("start") && cmd.Flags().Changed("end") {
			start, _ := cmd.Flags().GetFloat64("start")
			end, _ := cmd.Flags().GetFloat64("end")
			selector.Select(ctx, tracing.NewTimeRange(start, end))
		} else {
			selector.SelectDefault(ctx)
		}

		err = selector.Wait()
		if err != nil {
			return fmt.Errorf("loading details: %w", err)
		}

		out := cmd.OutOrStdout()
		fprintOverview(out, minimap)
		fmt.Fprintln(out)

		surface.Fprint(out, renderer.Rows(), func(id uint64) string {
			tooltip, err := renderer.Hover(id, 0)
			if err != nil {
				return ""
			}

			return fmt.Sprintf("wg %d wf %d simd %d  %s",
				tooltip.WorkgroupID, tooltip.WavefrontID, tooltip.SIMDID,
				tooltip.Asm)
		})
		fprintLegend(out)

		return nil
	},
}

func openTraceReader(cmd *cobra.Command) (tracing.TraceReader, func(), error) {
	filename, _ := cmd.Flags().GetString("sqlite")
	serverURL, _ := cmd.Flags().GetString("server")

	if filename != "" {
		store, err := tracing.OpenSQLiteTraceStore(filename)
		if err != nil {
			return nil, nil, err
		}

		return store, func() { store.Close() }, nil
	}

	return tracing.NewHTTPClient(serverURL), func() {}, nil
}

// fprintOverview draws the overview bars as a histogram.
func fprintOverview(w io.Writer, minimap *navigation.Minimap) {
	bars := minimap.Bars()
	width, height := minimap.Size()
	span := minimap.Span()

	for line := 0; line < int(height); line++ {
		threshold := height - float64(line) - 0.5
		row := []byte(strings.Repeat(" ", int(width)))

		for _, bar := range bars {
			if bar.Height < threshold {
				continue
			}

			for x := int(bar.X); x < int(bar.X+bar.Width) && x < len(row); x++ {
				row[x] = '#'
			}
		}

		fmt.Fprintln(w, string(row))
	}

	fmt.Fprintf(w, "%-*g%g  (max %d events per bucket)\n",
		int(width)-1, span.Start, span.End, minimap.MaxCount())
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().String("sqlite", cfg.SQLiteFile,
		"Trace database to read. Env: "+envSQLite)
	inspectCmd.Flags().String("server", cfg.ServerURL,
		"Trace server to read from. Env: "+envServer)
	inspectCmd.Flags().Int("width", 80, "Number of columns of the views")
	inspectCmd.Flags().Float64("start", 0, "Start of the time range")
	inspectCmd.Flags().Float64("end", 0, "End of the time range")
	inspectCmd.MarkFlagsRequiredTogether("start", "end")
}
