package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/meridian-legal/casebook-cli/internal/model"
	"github.com/meridian-legal/casebook-cli/internal/pipeline"
	"github.com/meridian-legal/casebook-cli/internal/store"
)

var (
	statusLimit int
	statusState string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show checkpoint position and recent runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		printCheckpoint(os.Stdout)

		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Run store unavailable; no history to show.")
			return nil
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		runs, err := st.ListRuns(ctx, store.RunFilter{
			State: model.RunState(statusState),
			Limit: statusLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list runs")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs recorded.")
			return nil
		}

		formatRuns(os.Stdout, runs)
		return nil
	},
}

// printCheckpoint shows where an interrupted run would resume. A missing
// checkpoint just means no run is in flight.
func printCheckpoint(out io.Writer) {
	cp, err := pipeline.LoadCheckpoint(cfg.Pipeline.CheckpointPath)
	if err != nil {
		fmt.Fprintf(out, "Checkpoint: none (%s)\n\n", cfg.Pipeline.CheckpointPath)
		return
	}
	sec := int64(cp.Timestamp)
	nsec := int64((cp.Timestamp - float64(sec)) * 1e9)
	fmt.Fprintf(out, "Checkpoint: unit %d, %d cases, %d duplicates, written %s\n\n",
		cp.LastUnitProcessed,
		cp.CaseCount,
		cp.DuplicateCount,
		time.Unix(sec, nsec).UTC().Format("2006-01-02 15:04:05"),
	)
}

// formatRuns writes a tabular list of runs to w.
func formatRuns(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tSTATE\tSTARTED\tDURATION\tUNITS\tCASES\tDUPES\tERRORS")
	_, _ = fmt.Fprintln(w, "--\t------\t-----\t-------\t--------\t-----\t-----\t-----\t------")

	for _, r := range runs {
		dur := ""
		if r.CompletedAt != nil {
			dur = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
		}

		src := r.Source
		if len(src) > 30 {
			src = src[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			truncateID(r.ID),
			src,
			r.State,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
			r.UnitsProcessed,
			r.CaseCount,
			r.DuplicateCount,
			r.ErrorCount,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "max number of runs to display")
	statusCmd.Flags().StringVar(&statusState, "state", "", "filter by run state (running, completed, failed)")
	rootCmd.AddCommand(statusCmd)
}
