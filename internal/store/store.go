// Package store persists build run history so operators can see which
// sources failed and when each database was last regenerated.
package store

import (
	"context"

	"github.com/sells-group/camera-db/internal/model"
)

// Run statuses.
const (
	StatusOK     = "ok"     // at least one category written
	StatusFailed = "failed" // nothing written
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status string `json:"status,omitempty"`
	Scope  string `json:"scope,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// AttemptRow is one persisted source attempt.
type AttemptRow struct {
	RunID    string         `json:"run_id"`
	Category model.Category `json:"category"`
	Seq      int            `json:"seq"`
	model.Attempt
}

// Store defines the run history interface.
type Store interface {
	SaveRun(ctx context.Context, run *model.RunResult) error
	GetRun(ctx context.Context, idOrPrefix string) (*model.RunResult, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	ListAttempts(ctx context.Context, runID string) ([]AttemptRow, error)

	Migrate(ctx context.Context) error
	Close() error
}
