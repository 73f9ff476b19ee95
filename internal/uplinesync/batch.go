package uplinesync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"command_center_backend/internal/postgrest"
	"command_center_backend/platform/apperr"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchLimit caps a backfill when the caller gives no limit.
const DefaultBatchLimit = 1000

// BatchOptions selects the local rows to re-sync.
type BatchOptions struct {
	Since time.Time
	Limit int
}

// BatchError describes one record whose walk did not complete.
type BatchError struct {
	RecordID string `json:"recordId"`
	DB       string `json:"db"`
	Error    string `json:"error"`
}

// BatchResult accumulates per-record outcomes of a backfill.
type BatchResult struct {
	Total  int          `json:"total"`
	Synced int          `json:"synced"`
	Failed int          `json:"failed"`
	Errors []BatchError `json:"errors"`
}

// BatchSyncUpline re-runs the walk for every local row of table created at or
// after opts.Since, oldest first, up to opts.Limit rows. Walks run with
// bounded concurrency and are independent of each other; the upsert key
// keeps already-synced rows from duplicating.
func (w *Walker) BatchSyncUpline(ctx context.Context, table, origin string, opts BatchOptions) (BatchResult, error) {
	const op = "uplinesync.BatchSyncUpline"

	if !IsSyncTable(table) {
		return BatchResult{}, apperr.Validation(fmt.Sprintf("table %q is not synced", table)).WithOp(op)
	}
	if _, ok := w.reg.Lookup(origin); !ok {
		return BatchResult{}, apperr.Configuration(fmt.Sprintf("source database %s not configured", origin)).WithOp(op)
	}

	local := w.stores.Store(origin, false)
	if local == nil {
		return BatchResult{}, apperr.Configuration(fmt.Sprintf("source database %s not configured", origin)).WithOp(op)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultBatchLimit
	}

	rows, err := local.Select(ctx, table, postgrest.SelectQuery{Since: opts.Since, Limit: limit})
	if err != nil {
		return BatchResult{}, apperr.Persistence("failed to fetch local rows", err).WithOp(op)
	}

	w.log.Info("batch sync started", "table", table, "origin", origin, "rows", len(rows))

	result := BatchResult{Total: len(rows), Errors: []BatchError{}}
	var mu sync.Mutex

	// A failed walk never cancels its siblings; only the caller's
	// cancellation stops the batch.
	var g errgroup.Group
	g.SetLimit(w.batchConcurrency)
	for _, row := range rows {
		row := row
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := w.Run(ctx, Job{Table: table, Origin: origin, Record: row, Attempt: 1})

			mu.Lock()
			defer mu.Unlock()
			if res.OK() {
				result.Synced++
				return nil
			}
			result.Failed++
			for _, f := range res.Failed {
				result.Errors = append(result.Errors, BatchError{RecordID: row.IDString(), DB: f.DB, Error: f.Error})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		w.log.Warn("batch sync interrupted", "table", table, "origin", origin, "synced", result.Synced, "failed", result.Failed, "error", err)
		return result, apperr.Wrap(apperr.KindInternal, "batch sync interrupted", err).WithOp(op)
	}

	w.log.Info("batch sync finished", "table", table, "origin", origin, "total", result.Total, "synced", result.Synced, "failed", result.Failed)
	return result, nil
}
