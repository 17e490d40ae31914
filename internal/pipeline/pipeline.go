// Package pipeline runs one category pipeline per requested camera type:
// an ordered source chain with fallback, deduplication and an atomic write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/camera-db/internal/dbfile"
	"github.com/sells-group/camera-db/internal/dedup"
	"github.com/sells-group/camera-db/internal/fetcher"
	"github.com/sells-group/camera-db/internal/model"
	"github.com/sells-group/camera-db/internal/query"
	"github.com/sells-group/camera-db/internal/source"
)

// DefaultMaxConcurrent bounds concurrently running categories.
const DefaultMaxConcurrent = 3

// Recorder persists run history.
type Recorder interface {
	SaveRun(ctx context.Context, run *model.RunResult) error
}

// Observer receives every completed run, e.g. a metrics collector.
type Observer interface {
	ObserveRun(run *model.RunResult)
}

// Orchestrator runs category pipelines.
type Orchestrator struct {
	reg           *source.Registry
	plan          *Plan
	pacer         *Pacer
	recorder      Recorder
	observers     []Observer
	maxConcurrent int
	now           func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPacer sets the shared provider pacer.
func WithPacer(p *Pacer) Option { return func(o *Orchestrator) { o.pacer = p } }

// WithRecorder sets the run history recorder.
func WithRecorder(r Recorder) Option { return func(o *Orchestrator) { o.recorder = r } }

// WithObserver adds a run observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

// WithMaxConcurrent bounds concurrently running categories.
func WithMaxConcurrent(n int) Option { return func(o *Orchestrator) { o.maxConcurrent = n } }

// WithClock sets the time source for timestamps and _meta dates.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// New creates an orchestrator over the registered sources. A nil plan uses
// DefaultPlan.
func New(reg *source.Registry, plan *Plan, opts ...Option) *Orchestrator {
	if plan == nil {
		plan = DefaultPlan()
	}
	o := &Orchestrator{
		reg:           reg,
		plan:          plan,
		pacer:         NewPacer(DefaultPacing),
		maxConcurrent: DefaultMaxConcurrent,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.maxConcurrent <= 0 {
		o.maxConcurrent = DefaultMaxConcurrent
	}
	return o
}

// RunOpts configures a build run.
type RunOpts struct {
	Categories   []model.Category
	Scope        query.Scope
	OutputDir    string
	Meta         bool
	CombinedPath string // union of written categories; empty disables
}

// categoryOutput carries a written category's records to the combined file.
type categoryOutput struct {
	records []model.Camera
	sources []string
}

// Run executes every requested category and returns the per-category
// results. The error is non-nil only for invalid input, an illegal state
// transition or cancellation; source and write failures are reported in the
// result.
func (o *Orchestrator) Run(ctx context.Context, opts RunOpts) (*model.RunResult, error) {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("scope", opts.Scope.String()))

	cats := uniqueCategories(opts.Categories)
	if len(cats) == 0 {
		return nil, eris.New("pipeline: no categories requested")
	}
	known := func(name string) bool {
		_, err := o.reg.Get(name)
		return err == nil
	}
	if err := o.plan.Validate(cats, known); err != nil {
		return nil, err
	}

	run := &model.RunResult{
		ID:         uuid.New().String(),
		Scope:      opts.Scope.String(),
		StartedAt:  o.now().UTC(),
		Categories: make([]model.CategoryResult, len(cats)),
	}
	log = log.With(zap.String("run_id", run.ID))
	log.Info("build started", zap.Int("categories", len(cats)))

	outputs := make([]*categoryOutput, len(cats))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrent)
	for i, cat := range cats {
		g.Go(func() error {
			res, out, err := o.runCategory(gctx, cat, opts)
			mu.Lock()
			run.Categories[i] = res
			outputs[i] = out
			mu.Unlock()
			return err
		})
	}
	runErr := g.Wait()

	if runErr == nil && opts.CombinedPath != "" {
		run.Combined = o.writeCombined(opts, cats, outputs)
	}

	run.FinishedAt = o.now().UTC()
	o.finish(ctx, run)

	log.Info("build complete",
		zap.Int("written", run.Written()),
		zap.Int("failed", len(cats)-run.Written()),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)),
	)
	return run, runErr
}

// finish hands the run to the recorder and observers. Recording failures
// never fail the build.
func (o *Orchestrator) finish(ctx context.Context, run *model.RunResult) {
	if o.recorder != nil {
		if err := o.recorder.SaveRun(context.WithoutCancel(ctx), run); err != nil {
			zap.L().Warn("pipeline: failed to record run", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
	for _, obs := range o.observers {
		obs.ObserveRun(run)
	}
}

// runCategory drives one category through its state machine.
func (o *Orchestrator) runCategory(ctx context.Context, cat model.Category, opts RunOpts) (model.CategoryResult, *categoryOutput, error) {
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("category", string(cat)),
		zap.String("scope", opts.Scope.String()),
	)
	start := time.Now()
	res := model.CategoryResult{Category: cat, State: model.StatePending}
	cp, _ := o.plan.For(cat)
	m := newMachine()

	fail := func(msg string) (model.CategoryResult, *categoryOutput, error) {
		if err := m.to(model.StateFailed); err != nil {
			return res, nil, err
		}
		res.State = m.state
		res.Error = msg
		res.DurationMs = time.Since(start).Milliseconds()
		log.Warn("category failed", zap.String("reason", res.Reason()))
		return res, nil, nil
	}

	var (
		candidates []model.Camera
		used       []string
	)
	for i, name := range cp.Sources {
		if err := m.fetch(i); err != nil {
			return res, nil, err
		}
		res.State = m.state

		src, _ := o.reg.Get(name)
		att, recs := o.attempt(ctx, src, cat, opts.Scope)
		res.Attempts = append(res.Attempts, att)
		if ctx.Err() != nil {
			r, out, _ := fail("canceled")
			return r, out, ctx.Err()
		}
		if att.Outcome != model.OutcomeOK {
			continue
		}
		candidates = append(candidates, recs...)
		used = append(used, name)
		if cp.Mode == ModeFallback {
			break
		}
	}

	if len(candidates) == 0 {
		return fail("all sources exhausted")
	}

	if err := m.to(model.StateNormalizing); err != nil {
		return res, nil, err
	}
	res.State = m.state
	valid := make([]model.Camera, 0, len(candidates))
	for _, c := range candidates {
		if c.Valid() {
			valid = append(valid, c)
		}
	}

	if err := m.to(model.StateMerged); err != nil {
		return res, nil, err
	}
	res.State = m.state
	records, dst := dedup.Dedupe(valid, dedup.Options{})
	res.Duplicates = dst.Dropped

	path := filepath.Join(opts.OutputDir, cp.Output)
	sum, err := dbfile.Write(path, records, o.dbOptions(opts, []model.Category{cat}, used))
	if err != nil {
		return fail(err.Error())
	}
	if err := m.to(model.StateWritten); err != nil {
		return res, nil, err
	}
	res.State = m.state
	res.Path = sum.Path
	res.Records = sum.Records
	res.ByFlags = sum.ByFlags
	res.Bytes = sum.Bytes
	res.DurationMs = time.Since(start).Milliseconds()

	log.Info("category written",
		zap.String("path", sum.Path),
		zap.Int("records", sum.Records),
		zap.Int("duplicates", dst.Dropped),
		zap.Strings("sources", used),
	)
	return res, &categoryOutput{records: records, sources: used}, nil
}

// attempt runs one paced source call and classifies its outcome.
func (o *Orchestrator) attempt(ctx context.Context, src source.Source, cat model.Category, scope query.Scope) (model.Attempt, []model.Camera) {
	att := model.Attempt{Source: src.Name()}
	if !src.Supports(cat, scope) {
		att.Outcome = model.OutcomeSkipped
		att.Reason = fmt.Sprintf("%s not supported for scope %s", cat, scope)
		return att, nil
	}

	release, err := o.pacer.Acquire(ctx, src.Provider())
	if err != nil {
		att.Outcome = model.OutcomeFailed
		att.Reason = err.Error()
		return att, nil
	}

	start := time.Now()
	recs, st, err := src.Collect(ctx, cat, scope)
	release()
	att.DurationMs = time.Since(start).Milliseconds()
	att.Skipped = st.Skipped()

	switch {
	case err != nil:
		att.Outcome = model.OutcomeFailed
		att.Reason = err.Error()
		att.ErrorKind = errorKind(err)
		zap.L().Warn("source attempt failed",
			zap.String("component", "pipeline"),
			zap.String("category", string(cat)),
			zap.String("source", src.Name()),
			zap.String("kind", att.ErrorKind),
			zap.Error(err),
		)
		return att, nil
	case len(recs) == 0:
		att.Outcome = model.OutcomeEmpty
		att.Reason = fmt.Sprintf("no usable records (%d elements, %d skipped)", st.Elements, st.Skipped())
		return att, nil
	default:
		att.Outcome = model.OutcomeOK
		att.Records = len(recs)
		return att, recs
	}
}

// errorKind labels a failure for reports and metrics.
func errorKind(err error) string {
	var fe *fetcher.FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "payload"
}

// writeCombined writes the union of every written category, keyed with the
// flags so co-located cameras of different types survive.
func (o *Orchestrator) writeCombined(opts RunOpts, cats []model.Category, outputs []*categoryOutput) *model.CombinedResult {
	var (
		all      []model.Camera
		included []model.Category
		sources  []string
	)
	for i, out := range outputs {
		if out == nil {
			continue
		}
		all = append(all, out.records...)
		included = append(included, cats[i])
		for _, s := range out.sources {
			sources = appendUnique(sources, s)
		}
	}

	res := &model.CombinedResult{Path: opts.CombinedPath}
	records, _ := dedup.Dedupe(all, dedup.Options{ByFlags: true})
	sum, err := dbfile.Write(opts.CombinedPath, records, o.dbOptions(opts, included, sources))
	if err != nil {
		res.Error = err.Error()
		zap.L().Warn("combined output failed", zap.String("path", opts.CombinedPath), zap.Error(err))
		return res
	}
	res.Records = sum.Records
	res.Bytes = sum.Bytes
	return res
}

// dbOptions builds the writer options, naming the _meta line after the
// categories and area, e.g. "Red Light/Speed cameras (California)".
func (o *Orchestrator) dbOptions(opts RunOpts, cats []model.Category, sources []string) dbfile.Options {
	labels := make([]string, 0, len(cats))
	for _, c := range cats {
		labels = append(labels, c.Label())
	}
	area := opts.Scope.Name
	if area == "" {
		area = opts.Scope.String()
	}
	return dbfile.Options{
		Meta:   opts.Meta,
		Name:   fmt.Sprintf("%s cameras (%s)", strings.Join(labels, "/"), area),
		Source: strings.Join(sources, ", "),
		Now:    o.now,
	}
}

// uniqueCategories returns cats in canonical order without duplicates.
func uniqueCategories(cats []model.Category) []model.Category {
	want := make(map[model.Category]bool, len(cats))
	for _, c := range cats {
		want[c] = true
	}
	var out []model.Category
	for _, c := range model.All() {
		if want[c] {
			out = append(out, c)
		}
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
