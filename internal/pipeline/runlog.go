package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/adrsub22/transitapp-enterprise-gis-pipeline/internal/db"
)

// RunEntry represents a row in mobility.pipeline_runs.
type RunEntry struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Boundary      *time.Time `json:"boundary,omitempty"`
	RowsExtracted int64      `json:"rows_extracted"`
	RowsStaged    int64      `json:"rows_staged"`
	Error         string     `json:"error,omitempty"`
}

// RunLog records pipeline run outcomes in mobility.pipeline_runs.
// Entries are written outside the merge transaction so a failed run
// still leaves a trace.
type RunLog struct {
	pool db.Pool
}

// NewRunLog creates a RunLog backed by the given connection pool.
func NewRunLog(pool db.Pool) *RunLog {
	return &RunLog{pool: pool}
}

// Start records the beginning of a run and returns its ID.
func (r *RunLog) Start(ctx context.Context, boundary time.Time) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO mobility.pipeline_runs (id, status, started_at, boundary)
		 VALUES ($1, 'running', now(), $2)`,
		id, boundary,
	)
	if err != nil {
		return "", eris.Wrap(err, "runlog: start run")
	}
	return id, nil
}

// Complete marks a run as successfully completed.
func (r *RunLog) Complete(ctx context.Context, runID string, extracted, staged int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE mobility.pipeline_runs
		 SET status = 'complete', completed_at = now(), rows_extracted = $1, rows_staged = $2
		 WHERE id = $3`,
		extracted, staged, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %s", runID)
	}
	return nil
}

// Fail marks a run as failed with an error message.
func (r *RunLog) Fail(ctx context.Context, runID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE mobility.pipeline_runs
		 SET status = 'failed', completed_at = now(), error = $1
		 WHERE id = $2`,
		errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %s", runID)
	}
	return nil
}

// Recent returns the most recent run entries, newest first.
func (r *RunLog) Recent(ctx context.Context, limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, status, started_at, completed_at, boundary, rows_extracted, rows_staged, error
		 FROM mobility.pipeline_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list runs")
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var errStr *string
		if err := rows.Scan(&e.ID, &e.Status, &e.StartedAt, &e.CompletedAt, &e.Boundary, &e.RowsExtracted, &e.RowsStaged, &errStr); err != nil {
			return nil, eris.Wrap(err, "runlog: scan run entry")
		}
		if errStr != nil {
			e.Error = *errStr
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
