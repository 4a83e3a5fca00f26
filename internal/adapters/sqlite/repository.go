// Package sqlite persists firing outcomes in an embedded SQLite database,
// serving the run history behind the status API.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/manthysbr/llmsender/internal/core/domain"
	"github.com/manthysbr/llmsender/internal/core/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS task_runs (
	firing_id    TEXT PRIMARY KEY,
	task_name    TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	stage        TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	attempted    INTEGER NOT NULL DEFAULT 0,
	succeeded    INTEGER NOT NULL DEFAULT 0,
	started_at   TIMESTAMP NOT NULL,
	duration_ms  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_task_runs_task ON task_runs (task_name, started_at DESC);
`

type Repository struct {
	db *sql.DB
}

var _ ports.RunRepository = (*Repository)(nil)

// NewRepository opens (or creates) the database at path and ensures the
// schema exists.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent firings.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) SaveRun(ctx context.Context, run domain.ExecutionResult) error {
	query := `
	INSERT INTO task_runs (firing_id, task_name, outcome, stage, error, attempted, succeeded, started_at, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		string(run.FiringID), run.TaskName, string(run.Outcome), string(run.Stage), run.Error,
		run.NotificationsAttempted, run.NotificationsSucceeded,
		run.StartedAt.UTC(), run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.FiringID, err)
	}
	return nil
}

func (r *Repository) ListRuns(ctx context.Context, taskName string, limit int) ([]domain.ExecutionResult, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT firing_id, task_name, outcome, stage, error, attempted, succeeded, started_at, duration_ms FROM task_runs`
	args := []any{}
	if taskName != "" {
		query += ` WHERE task_name = ?`
		args = append(args, taskName)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.ExecutionResult
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(rows *sql.Rows) (domain.ExecutionResult, error) {
	var run domain.ExecutionResult
	var firingID, outcome, stage string
	var durationMS int64

	err := rows.Scan(
		&firingID, &run.TaskName, &outcome, &stage, &run.Error,
		&run.NotificationsAttempted, &run.NotificationsSucceeded,
		&run.StartedAt, &durationMS,
	)
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	run.FiringID = domain.FiringID(firingID)
	run.Outcome = domain.Outcome(outcome)
	run.Stage = domain.Stage(stage)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return run, nil
}
