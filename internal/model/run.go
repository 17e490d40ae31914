package model

import (
	"strings"
	"time"
)

// State is a category pipeline's position in its state machine.
type State string

const (
	StatePending     State = "pending"
	StateFetching    State = "fetching"
	StateNormalizing State = "normalizing"
	StateMerged      State = "merged"
	StateWritten     State = "written"
	StateFailed      State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateWritten || s == StateFailed
}

// Outcome is the result of one source attempt.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeEmpty   Outcome = "empty"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Attempt records one source attempt for a category.
type Attempt struct {
	Source     string  `json:"source"`
	Outcome    Outcome `json:"outcome"`
	Reason     string  `json:"reason,omitempty"`
	ErrorKind  string  `json:"error_kind,omitempty"`
	Records    int     `json:"records"`
	Skipped    int     `json:"skipped"`
	DurationMs int64   `json:"duration_ms"`
}

// CategoryResult is the outcome of one category pipeline.
type CategoryResult struct {
	Category   Category      `json:"category"`
	State      State         `json:"state"`
	Path       string        `json:"path,omitempty"`
	Records    int           `json:"records"`
	Duplicates int           `json:"duplicates"`
	ByFlags    map[Flags]int `json:"by_flags,omitempty"`
	Bytes      int64         `json:"bytes"`
	Attempts   []Attempt     `json:"attempts"`
	Error      string        `json:"error,omitempty"`
	DurationMs int64         `json:"duration_ms"`
}

// Reason joins the failed and empty attempt reasons in order, e.g.
// "overpass: timeout ...; poi_factory: http 503 ...".
func (c CategoryResult) Reason() string {
	var parts []string
	for _, a := range c.Attempts {
		if a.Outcome == OutcomeOK || a.Reason == "" {
			continue
		}
		parts = append(parts, a.Source+": "+a.Reason)
	}
	if c.Error != "" {
		parts = append(parts, c.Error)
	}
	return strings.Join(parts, "; ")
}

// CombinedResult describes the optional single-file union output.
type CombinedResult struct {
	Path    string `json:"path"`
	Records int    `json:"records"`
	Bytes   int64  `json:"bytes"`
	Error   string `json:"error,omitempty"`
}

// RunResult holds the final outcome of a build run.
type RunResult struct {
	ID         string           `json:"id"`
	Scope      string           `json:"scope"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Categories []CategoryResult `json:"categories"`
	Combined   *CombinedResult  `json:"combined,omitempty"`
}

// Written returns the number of categories that produced a file.
func (r *RunResult) Written() int {
	n := 0
	for _, c := range r.Categories {
		if c.State == StateWritten {
			n++
		}
	}
	return n
}

// OK reports whether at least one requested category was written.
func (r *RunResult) OK() bool {
	return r != nil && r.Written() > 0
}

// Run is a persisted run summary as listed by the history store.
type Run struct {
	ID         string    `json:"id"`
	Scope      string    `json:"scope"`
	Categories string    `json:"categories"`
	Status     string    `json:"status"`
	Written    int       `json:"written"`
	Failed     int       `json:"failed"`
	Records    int       `json:"records"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}
