package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/camera-db/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleRun(id string, started time.Time, ok bool) *model.RunResult {
	speed := model.CategoryResult{
		Category: model.CategorySpeed,
		State:    model.StateFailed,
		Attempts: []model.Attempt{
			{Source: "overpass", Outcome: model.OutcomeFailed, Reason: "timeout fetching x", ErrorKind: "timeout"},
			{Source: "poi_factory", Outcome: model.OutcomeFailed, Reason: "http 503", ErrorKind: "http"},
		},
		Error: "all sources exhausted",
	}
	if ok {
		speed.State = model.StateWritten
		speed.Records = 12
		speed.Attempts[1] = model.Attempt{Source: "poi_factory", Outcome: model.OutcomeOK, Records: 12, DurationMs: 40}
	}
	return &model.RunResult{
		ID:         id,
		Scope:      "US",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Categories: []model.CategoryResult{
			{
				Category: model.CategoryALPR,
				State:    model.StateFailed,
				Attempts: []model.Attempt{{Source: "overpass", Outcome: model.OutcomeEmpty, Reason: "no usable records"}},
			},
			speed,
		},
	}
}

func TestSQLite_SaveAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	start := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

	require.NoError(t, st.SaveRun(ctx, sampleRun("7d3f1c2a-0000-4000-8000-000000000001", start, true)))

	got, err := st.GetRun(ctx, "7d3f1c2a-0000-4000-8000-000000000001")
	require.NoError(t, err)
	assert.Equal(t, "US", got.Scope)
	require.Len(t, got.Categories, 2)
	assert.Equal(t, model.StateWritten, got.Categories[1].State)
	assert.Equal(t, 12, got.Categories[1].Records)
	assert.True(t, got.StartedAt.Equal(start))

	byPrefix, err := st.GetRun(ctx, "7d3f1c2a")
	require.NoError(t, err)
	assert.Equal(t, got.ID, byPrefix.ID)
}

func TestSQLite_GetRunErrors(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	start := time.Now().UTC()

	require.NoError(t, st.SaveRun(ctx, sampleRun("aaaa0001", start, true)))
	require.NoError(t, st.SaveRun(ctx, sampleRun("aaaa0002", start.Add(time.Minute), false)))

	_, err := st.GetRun(ctx, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")

	_, err = st.GetRun(ctx, "aaaa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")

	_, err = st.GetRun(ctx, "")
	require.Error(t, err)
}

func TestSQLite_SaveRunDuplicate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := sampleRun("dup", time.Now().UTC(), true)
	require.NoError(t, st.SaveRun(ctx, run))
	require.Error(t, st.SaveRun(ctx, run))

	attempts, err := st.ListAttempts(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, attempts, 3, "failed save must roll back")
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, st.SaveRun(ctx, sampleRun("r1", base, true)))
	require.NoError(t, st.SaveRun(ctx, sampleRun("r2", base.Add(time.Hour), false)))
	ca := sampleRun("r3", base.Add(2*time.Hour), true)
	ca.Scope = "US-CA"
	require.NoError(t, st.SaveRun(ctx, ca))

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "alpr,speed", runs[0].Categories)
	assert.Equal(t, StatusOK, runs[0].Status)
	assert.Equal(t, 1, runs[0].Written)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Equal(t, 12, runs[0].Records)
	assert.Equal(t, int64(1500), runs[0].DurationMs)

	failed, err := st.ListRuns(ctx, RunFilter{Status: StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "r2", failed[0].ID)

	scoped, err := st.ListRuns(ctx, RunFilter{Scope: "us-ca"})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "r3", scoped[0].ID)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "r2", page[0].ID)
}

func TestSQLite_ListAttempts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveRun(ctx, sampleRun("r1", time.Now().UTC(), false)))

	attempts, err := st.ListAttempts(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, attempts, 3)

	assert.Equal(t, model.CategoryALPR, attempts[0].Category)
	assert.Equal(t, model.OutcomeEmpty, attempts[0].Outcome)
	assert.Equal(t, model.CategorySpeed, attempts[1].Category)
	assert.Equal(t, 0, attempts[1].Seq)
	assert.Equal(t, "timeout", attempts[1].ErrorKind)
	assert.Equal(t, "poi_factory", attempts[2].Source)
	assert.Equal(t, 1, attempts[2].Seq)

	none, err := st.ListAttempts(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}
