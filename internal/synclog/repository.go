// Package synclog persists upline walk outcomes in the operations database.
package synclog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"command_center_backend/internal/uplinesync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ListFilter narrows ListRuns. Empty fields match everything.
type ListFilter struct {
	Status uplinesync.RunStatus
	Origin string
	Limit  int
}

// Repository is the sync_runs ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a ledger repository on pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordRun implements uplinesync.Ledger.
func (r *Repository) RecordRun(ctx context.Context, run uplinesync.Run) error {
	failures, err := json.Marshal(nonNilFailures(run.Failures))
	if err != nil {
		return fmt.Errorf("encode failures: %w", err)
	}
	reached := run.Reached
	if reached == nil {
		reached = []string{}
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO sync_runs (id, table_name, origin, record_id, status, reached, failures, attempt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, run.ID, run.Table, run.Origin, run.RecordID, string(run.Status), reached, failures, run.Attempt, run.CreatedAt)
	return err
}

// ListRuns returns the most recent runs first.
func (r *Repository) ListRuns(ctx context.Context, filter ListFilter) ([]uplinesync.Run, error) {
	limit := clampLimit(filter.Limit)

	rows, err := r.pool.Query(ctx, `
		SELECT id, table_name, origin, record_id, status, reached, failures, attempt, created_at
		FROM sync_runs
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR origin = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, string(filter.Status), filter.Origin, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]uplinesync.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteBefore removes synced runs older than syncedBefore and incomplete
// runs older than incompleteBefore.
func (r *Repository) DeleteBefore(ctx context.Context, syncedBefore, incompleteBefore time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM sync_runs
		WHERE (status = 'synced' AND created_at < $1)
		   OR (status <> 'synced' AND created_at < $2)
	`, syncedBefore, incompleteBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanRun(row pgx.Row) (uplinesync.Run, error) {
	var (
		run      uplinesync.Run
		status   string
		failures []byte
	)
	if err := row.Scan(
		&run.ID, &run.Table, &run.Origin, &run.RecordID, &status,
		&run.Reached, &failures, &run.Attempt, &run.CreatedAt,
	); err != nil {
		return uplinesync.Run{}, err
	}
	run.Status = uplinesync.RunStatus(status)
	if len(failures) > 0 {
		if err := json.Unmarshal(failures, &run.Failures); err != nil {
			return uplinesync.Run{}, fmt.Errorf("decode failures: %w", err)
		}
	}
	return run, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

func nonNilFailures(f []uplinesync.HopFailure) []uplinesync.HopFailure {
	if f == nil {
		return []uplinesync.HopFailure{}
	}
	return f
}

var _ uplinesync.Ledger = (*Repository)(nil)
