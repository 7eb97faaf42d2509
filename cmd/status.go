package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/pipeline"
	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/watermark"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watermark and recent runs",
	Long:  "Displays the current watermark state and the most recent transform runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		limit, _ := cmd.Flags().GetInt("limit")

		state, found, err := watermark.NewStore(cfg.Pipeline.StatePath).Load()
		if err != nil {
			return eris.Wrap(err, "status: load watermark")
		}
		printWatermark(os.Stdout, state, found)

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		entries, err := pipeline.NewRunLog(pool).Recent(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "status: list runs")
		}
		if len(entries) == 0 {
			fmt.Println("No runs recorded, run 'transform' to start")
			return nil
		}
		formatRunEntries(os.Stdout, entries)
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("limit", 10, "number of recent runs to show")
	rootCmd.AddCommand(statusCmd)
}

func printWatermark(out io.Writer, state watermark.State, found bool) {
	if !found {
		fmt.Fprintln(out, "Watermark: none (first run will use the full rolling window)")
		return
	}
	fileDate := "-"
	if state.LastFileDate != nil {
		fileDate = state.LastFileDate.Format("2006-01-02 15:04:05")
	}
	lastRun := "-"
	if state.LastRunUTC != nil {
		lastRun = state.LastRunUTC.Format("2006-01-02 15:04:05")
	}
	fmt.Fprintf(out, "Watermark: last_file_date=%s last_run_utc=%s\n", fileDate, lastRun)
}

// formatRunEntries writes a tabular representation of run entries to w.
func formatRunEntries(out io.Writer, entries []pipeline.RunEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tDURATION\tEXTRACTED\tSTAGED\tERROR")
	_, _ = fmt.Fprintln(w, "--\t------\t-------\t--------\t---------\t------\t-----")

	for _, e := range entries {
		dur := "-"
		if e.CompletedAt != nil {
			dur = e.CompletedAt.Sub(e.StartedAt).Round(time.Second).String()
		}

		errMsg := ""
		if e.Error != "" {
			errMsg = truncate(e.Error, 60)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			e.ID,
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			e.RowsExtracted,
			e.RowsStaged,
			errMsg,
		)
	}
	_ = w.Flush()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
