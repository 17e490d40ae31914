package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/camera-db/internal/config"
	"github.com/sells-group/camera-db/internal/model"
	"github.com/sells-group/camera-db/internal/monitoring"
	"github.com/sells-group/camera-db/internal/pipeline"
	"github.com/sells-group/camera-db/internal/query"
)

// buildFlags holds the build command's flags.
type buildFlags struct {
	Type     string
	State    string
	Output   string
	Combined string
	Meta     bool
	Plan     string
}

var buildOpts buildFlags

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build camera databases",
	Long: "Queries each requested category's sources in plan order, deduplicates the records " +
		"and writes one NDJSON database per category. Exits non-zero when no category was written.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runBuild(ctx, cfg, buildOpts, os.Stdout)
	},
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&buildOpts.Type, "type", "all", "category to build (all, alpr, redlight, speed)")
	f.StringVar(&buildOpts.State, "state", "", "limit the build to one state or region code (e.g. CA)")
	f.StringVar(&buildOpts.Output, "output", "", "output directory (default output.dir)")
	f.StringVar(&buildOpts.Combined, "combined", "", "also write every written category into this single file")
	f.BoolVar(&buildOpts.Meta, "meta", false, "prefix each database with a _meta line")
	f.StringVar(&buildOpts.Plan, "plan", "", "source plan YAML file (default pipeline.plan_file)")
	rootCmd.AddCommand(buildCmd)
}

// runBuild executes one build and prints its summary to out.
func runBuild(ctx context.Context, c *config.Config, flags buildFlags, out io.Writer) error {
	log := zap.L().With(zap.String("component", "build"))

	if err := c.Validate(); err != nil {
		return err
	}
	cats, err := model.ParseSelector(flags.Type)
	if err != nil {
		return err
	}
	scope, err := query.ResolveScope(c.Pipeline.Country, flags.State)
	if err != nil {
		return err
	}

	planPath := flags.Plan
	if planPath == "" {
		planPath = c.Pipeline.PlanFile
	}
	plan, err := loadPlan(planPath)
	if err != nil {
		return err
	}

	outDir := flags.Output
	if outDir == "" {
		outDir = c.Output.Dir
	}

	opts := []pipeline.Option{
		pipeline.WithPacer(pipeline.NewPacer(time.Duration(c.Pipeline.PacingMs) * time.Millisecond)),
		pipeline.WithMaxConcurrent(c.Pipeline.MaxConcurrentCategories),
	}

	if c.History.Path != "" {
		st, err := initStore(ctx, c)
		if err != nil {
			log.Warn("run history unavailable", zap.Error(err))
		} else {
			defer st.Close() //nolint:errcheck
			opts = append(opts, pipeline.WithRecorder(st))
		}
	}

	var collector *monitoring.Collector
	if c.Monitoring.TextfilePath != "" {
		collector = monitoring.NewCollector()
		opts = append(opts, pipeline.WithObserver(collector))
	}

	orch := pipeline.New(newRegistry(c, newFetcher(c)), plan, opts...)
	run, runErr := orch.Run(ctx, pipeline.RunOpts{
		Categories:   cats,
		Scope:        scope,
		OutputDir:    outDir,
		Meta:         flags.Meta || c.Output.Meta,
		CombinedPath: flags.Combined,
	})
	if run == nil {
		return runErr
	}

	formatBuildSummary(out, run)

	if collector != nil {
		if err := collector.WriteTextfile(c.Monitoring.TextfilePath); err != nil {
			log.Warn("metrics textfile not written", zap.Error(err))
		}
	}
	if c.Monitoring.WebhookURL != "" {
		alerter := monitoring.NewAlerter(monitoring.AlerterConfig{
			WebhookURL:      c.Monitoring.WebhookURL,
			AlertOnFallback: c.Monitoring.AlertOnFallback,
		})
		sent := alerter.SendAlerts(context.WithoutCancel(ctx), alerter.Evaluate(run))
		log.Debug("alerts sent", zap.Int("count", sent))
	}

	if runErr != nil {
		return eris.Wrap(runErr, "build")
	}
	if !run.OK() {
		return eris.Errorf("build: no category written for %s", run.Scope)
	}
	return nil
}

// formatBuildSummary writes a per-category table and the overall verdict.
func formatBuildSummary(out io.Writer, run *model.RunResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\tSTATE\tRECORDS\tDUPES\tBYTES\tTYPES\tDETAIL")
	_, _ = fmt.Fprintln(w, "--------\t-----\t-------\t-----\t-----\t-----\t------")

	for _, cr := range run.Categories {
		detail := cr.Path
		if cr.State != model.StateWritten {
			detail = cr.Reason()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			cr.Category,
			cr.State,
			cr.Records,
			cr.Duplicates,
			cr.Bytes,
			formatByFlags(cr.ByFlags),
			detail,
		)
	}
	if cb := run.Combined; cb != nil {
		detail := cb.Path
		if cb.Error != "" {
			detail = cb.Error
		}
		_, _ = fmt.Fprintf(w, "combined\t\t%d\t\t%d\t\t%s\n", cb.Records, cb.Bytes, detail)
	}
	_ = w.Flush()

	verdict := "OK"
	if !run.OK() {
		verdict = "FAILED"
	}
	_, _ = fmt.Fprintf(out, "\n%s: %d of %d categories written (%s, run %s)\n",
		verdict, run.Written(), len(run.Categories), run.Scope, truncateID(run.ID))
}

// formatByFlags renders per-type counts in a stable order.
func formatByFlags(by map[model.Flags]int) string {
	order := []model.Flags{model.FlagALPR, model.FlagRedLight, model.FlagRedLightSpeed, model.FlagSpeed}
	var parts []string
	seen := make(map[model.Flags]bool, len(order))
	for _, f := range order {
		seen[f] = true
		if n := by[f]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", f, n))
		}
	}
	other := 0
	for f, n := range by {
		if !seen[f] {
			other += n
		}
	}
	if other > 0 {
		parts = append(parts, fmt.Sprintf("other=%d", other))
	}
	return strings.Join(parts, " ")
}
