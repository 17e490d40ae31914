package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/camera-db/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	scope       TEXT NOT NULL,
	categories  TEXT NOT NULL,
	status      TEXT NOT NULL,
	written     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	records     INTEGER NOT NULL DEFAULT 0,
	result      TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_attempts (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	category    TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	source      TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	reason      TEXT,
	error_kind  TEXT,
	records     INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_attempts_run_id ON run_attempts(run_id);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun stores a completed run and its attempts in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.RunResult) error {
	resultJSON, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run")
	}

	cats := make([]string, 0, len(run.Categories))
	records := 0
	for _, c := range run.Categories {
		cats = append(cats, string(c.Category))
		records += c.Records
	}
	status := StatusFailed
	if run.OK() {
		status = StatusOK
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, scope, categories, status, written, failed, records, result, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Scope, strings.Join(cats, ","), status,
		run.Written(), len(run.Categories)-run.Written(), records,
		string(resultJSON), run.StartedAt.UTC(), run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	for _, c := range run.Categories {
		for seq, a := range c.Attempts {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO run_attempts (id, run_id, category, seq, source, outcome, reason, error_kind, records, skipped, duration_ms)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				uuid.New().String(), run.ID, string(c.Category), seq, a.Source, string(a.Outcome),
				a.Reason, a.ErrorKind, a.Records, a.Skipped, a.DurationMs,
			)
			if err != nil {
				return eris.Wrapf(err, "sqlite: insert attempt for run %s", run.ID)
			}
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

// GetRun returns the full result of a run. A unique ID prefix is accepted,
// matching the truncated IDs shown by ListRuns.
func (s *SQLiteStore) GetRun(ctx context.Context, idOrPrefix string) (*model.RunResult, error) {
	if idOrPrefix == "" {
		return nil, eris.New("sqlite: empty run id")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT result FROM runs WHERE id LIKE ? || '%' ORDER BY started_at DESC LIMIT 2`,
		idOrPrefix,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	defer rows.Close() //nolint:errcheck

	var results []string
	for rows.Next() {
		var js string
		if err := rows.Scan(&js); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		results = append(results, js)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: get run iterate")
	}

	switch len(results) {
	case 0:
		return nil, eris.Errorf("run not found: %s", idOrPrefix)
	case 1:
	default:
		return nil, eris.Errorf("run id prefix %q is ambiguous", idOrPrefix)
	}

	var run model.RunResult
	if err := json.Unmarshal([]byte(results[0]), &run); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal run")
	}
	return &run, nil
}

// ListRuns returns run summaries, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, scope, categories, status, written, failed, records, started_at, duration_ms FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Scope != "" {
		query += ` AND scope = ?`
		args = append(args, strings.ToUpper(filter.Scope))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.ID, &r.Scope, &r.Categories, &r.Status, &r.Written, &r.Failed,
			&r.Records, &r.StartedAt, &r.DurationMs); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// ListAttempts returns a run's source attempts in execution order.
func (s *SQLiteStore) ListAttempts(ctx context.Context, runID string) ([]AttemptRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, category, seq, source, outcome, COALESCE(reason, ''), COALESCE(error_kind, ''),
		        records, skipped, duration_ms
		 FROM run_attempts WHERE run_id = ? ORDER BY category, seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list attempts %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []AttemptRow
	for rows.Next() {
		var a AttemptRow
		var outcome string
		if err := rows.Scan(&a.RunID, &a.Category, &a.Seq, &a.Source, &outcome, &a.Reason, &a.ErrorKind,
			&a.Records, &a.Skipped, &a.DurationMs); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan attempt")
		}
		a.Outcome = model.Outcome(outcome)
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list attempts iterate")
}
