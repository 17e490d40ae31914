package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/camera-db/internal/model"
	"github.com/sells-group/camera-db/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect build run history",
	Long:  "Commands for listing and viewing recorded build runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List build runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		scope, _ := cmd.Flags().GetString("scope")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{Status: status, Scope: scope, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}

		attempts, err := st.ListAttempts(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		formatRunDetail(os.Stdout, run, attempts)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (ok, failed)")
	runsListCmd.Flags().String("scope", "", "filter by scope (e.g. US, US-CA)")
	runsListCmd.Flags().Int("limit", 20, "max number of runs to display")

	runsShowCmd.Flags().Bool("json", false, "print the full run result as JSON")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSCOPE\tCATEGORIES\tSTATUS\tWRITTEN\tRECORDS\tSTARTED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t-----\t----------\t------\t-------\t-------\t-------\t--------")

	for _, r := range runs {
		dur := (time.Duration(r.DurationMs) * time.Millisecond).Round(time.Second).String()
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%d\t%s\t%s\n",
			truncateID(r.ID),
			r.Scope,
			r.Categories,
			r.Status,
			r.Written,
			r.Written+r.Failed,
			r.Records,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunDetail writes a run header followed by its attempts in order.
func formatRunDetail(out io.Writer, run *model.RunResult, attempts []store.AttemptRow) {
	_, _ = fmt.Fprintf(out, "Run %s (%s) started %s\n\n", run.ID, run.Scope, run.StartedAt.Format(time.RFC3339))
	formatBuildSummary(out, run)

	if len(attempts) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\t#\tSOURCE\tOUTCOME\tRECORDS\tSKIPPED\tDURATION\tREASON")
	for _, a := range attempts {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
			a.Category,
			a.Seq,
			a.Source,
			a.Outcome,
			a.Records,
			a.Skipped,
			time.Duration(a.DurationMs)*time.Millisecond,
			a.Reason,
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
