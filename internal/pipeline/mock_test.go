package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sells-group/camera-db/internal/model"
	"github.com/sells-group/camera-db/internal/normalize"
	"github.com/sells-group/camera-db/internal/query"
)

// fakeSource is a scripted source.
type fakeSource struct {
	name     string
	provider string
	regional bool // supports regional scopes
	records  map[model.Category][]model.Camera
	err      error
	calls    atomic.Int32
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Provider() string {
	if f.provider != "" {
		return f.provider
	}
	return f.name
}

func (f *fakeSource) Supports(_ model.Category, scope query.Scope) bool {
	return f.regional || !scope.IsRegional()
}

func (f *fakeSource) Collect(ctx context.Context, cat model.Category, _ query.Scope) ([]model.Camera, normalize.Stats, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, normalize.Stats{}, err
	}
	if f.err != nil {
		return nil, normalize.Stats{}, f.err
	}
	recs := f.records[cat]
	out := make([]model.Camera, len(recs))
	for i, c := range recs {
		c.Provenance = f.name
		out[i] = c
	}
	return out, normalize.Stats{Elements: len(recs), Accepted: len(recs)}, nil
}

// memRecorder keeps saved runs in memory.
type memRecorder struct {
	mu   sync.Mutex
	runs []*model.RunResult
}

func (m *memRecorder) SaveRun(_ context.Context, run *model.RunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

type countObserver struct{ n atomic.Int32 }

func (c *countObserver) ObserveRun(*model.RunResult) { c.n.Add(1) }

func cams(n int, flags model.Flags) []model.Camera {
	out := make([]model.Camera, n)
	for i := range out {
		out[i] = model.Camera{Lat: 30 + float64(i)*0.01, Lon: -97, Flags: flags}
	}
	return out
}

// slowSource holds each call for hold and records call spans.
type slowSource struct {
	fakeSource
	hold time.Duration

	inFlight atomic.Int32
	maxSeen  atomic.Int32
	mu       sync.Mutex
	spans    [][2]time.Time
}

func (s *slowSource) Collect(ctx context.Context, cat model.Category, scope query.Scope) ([]model.Camera, normalize.Stats, error) {
	begin := time.Now()
	n := s.inFlight.Add(1)
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(s.hold)
	s.inFlight.Add(-1)
	end := time.Now()

	s.mu.Lock()
	s.spans = append(s.spans, [2]time.Time{begin, end})
	s.mu.Unlock()
	return s.fakeSource.Collect(ctx, cat, scope)
}
