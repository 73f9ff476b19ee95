package uplinesync

import (
	"context"
	"errors"
	"time"

	"command_center_backend/internal/postgrest"
	"command_center_backend/internal/registry"
	"command_center_backend/platform/logger"

	"github.com/google/uuid"
)

const errNotConfigured = "not configured"

// HopSuccess is a parent database that accepted the row.
type HopSuccess struct {
	DB   string          `json:"db"`
	Data []postgrest.Row `json:"data"`
}

// HopFailure is the parent database where the walk stopped.
type HopFailure struct {
	DB    string `json:"db"`
	Error string `json:"error"`
}

// Result is the outcome of one walk.
type Result struct {
	Success []HopSuccess `json:"success"`
	Failed  []HopFailure `json:"failed"`
}

// OK reports whether every hop of the walk succeeded.
func (r Result) OK() bool {
	return len(r.Failed) == 0
}

// Reached lists the databases that accepted the row, nearest first.
func (r Result) Reached() []string {
	out := make([]string, 0, len(r.Success))
	for _, s := range r.Success {
		out = append(out, s.DB)
	}
	return out
}

// RunStatus classifies a walk for the ledger.
type RunStatus string

const (
	RunSynced  RunStatus = "synced"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// Status derives the ledger status of a walk.
func (r Result) Status() RunStatus {
	switch {
	case r.OK():
		return RunSynced
	case len(r.Success) > 0:
		return RunPartial
	default:
		return RunFailed
	}
}

// Run is a ledger entry for one walk.
type Run struct {
	ID        uuid.UUID
	Table     string
	Origin    string
	RecordID  string
	Status    RunStatus
	Reached   []string
	Failures  []HopFailure
	Attempt   int
	CreatedAt time.Time
}

// Ledger persists walk outcomes for back-office visibility.
type Ledger interface {
	RecordRun(ctx context.Context, run Run) error
}

// Job is a unit of upline work handed off by capture.
type Job struct {
	Table   string        `json:"table"`
	Origin  string        `json:"origin"`
	Record  postgrest.Row `json:"record"`
	Attempt int           `json:"attempt"`
}

// Walker walks the registry chain from a record's origin to the master.
type Walker struct {
	reg              *registry.Registry
	stores           postgrest.Provider
	ledger           Ledger
	log              *logger.Logger
	now              func() time.Time
	stampOrigin      bool
	batchConcurrency int
}

// NewWalker creates a walker over reg using stores for client lookups.
func NewWalker(reg *registry.Registry, stores postgrest.Provider, log *logger.Logger) *Walker {
	return &Walker{
		reg:              reg,
		stores:           stores,
		log:              log,
		now:              time.Now,
		batchConcurrency: 4,
	}
}

// SetLedger enables recording of every Run outcome.
func (w *Walker) SetLedger(ledger Ledger) {
	w.ledger = ledger
}

// SetStampOrigin enables marking the origin row synced_to_master once a walk
// reaches the master.
func (w *Walker) SetStampOrigin(enabled bool) {
	w.stampOrigin = enabled
}

// SetBatchConcurrency bounds the number of concurrent walks in a batch.
func (w *Walker) SetBatchConcurrency(n int) {
	if n > 0 {
		w.batchConcurrency = n
	}
}

// SyncUpline writes a lineage copy of record into every ancestor of origin,
// nearest first. The walk stops at the first parent that has no client or
// rejects the write; later ancestors are never attempted in the same pass.
// Failures are reported in the result, never returned as errors.
func (w *Walker) SyncUpline(ctx context.Context, table string, record postgrest.Row, origin string) Result {
	result := Result{Success: []HopSuccess{}, Failed: []HopFailure{}}

	current := origin
	rec := record
	for {
		parent, ok := w.reg.Parent(current)
		if !ok {
			break
		}

		store := w.stores.Store(parent.Key, true)
		if store == nil {
			result.Failed = append(result.Failed, HopFailure{DB: parent.Key, Error: errNotConfigured})
			w.log.SyncHopFailed(table, current, parent.Key, errNotConfigured)
			break
		}

		if !hasID(rec) {
			result.Failed = append(result.Failed, HopFailure{DB: parent.Key, Error: "record has no identifier"})
			w.log.SyncHopFailed(table, current, parent.Key, "record has no identifier")
			break
		}

		rows, err := store.Upsert(ctx, table, lineageCopy(rec, current, origin, w.now()), ConflictTarget)
		if err == nil && len(rows) == 0 {
			err = postgrest.ErrEmptyResult
		}
		if err != nil {
			result.Failed = append(result.Failed, HopFailure{DB: parent.Key, Error: err.Error()})
			w.log.SyncHopFailed(table, current, parent.Key, err.Error())
			break
		}

		result.Success = append(result.Success, HopSuccess{DB: parent.Key, Data: rows})
		w.log.SyncHop(table, current, parent.Key)

		rec = rows[0]
		current = parent.Key
	}

	if w.stampOrigin && result.OK() && len(result.Success) > 0 {
		w.stampSyncedToMaster(ctx, table, record, origin)
	}

	return result
}

// Run executes a Job and records its outcome in the ledger.
func (w *Walker) Run(ctx context.Context, job Job) Result {
	result := w.SyncUpline(ctx, job.Table, job.Record, job.Origin)
	w.record(ctx, job, result)
	return result
}

func (w *Walker) record(ctx context.Context, job Job, result Result) {
	if w.ledger == nil {
		return
	}

	attempt := job.Attempt
	if attempt < 1 {
		attempt = 1
	}

	run := Run{
		ID:        uuid.New(),
		Table:     job.Table,
		Origin:    job.Origin,
		RecordID:  job.Record.IDString(),
		Status:    result.Status(),
		Reached:   result.Reached(),
		Failures:  result.Failed,
		Attempt:   attempt,
		CreatedAt: w.now().UTC(),
	}

	// Ledger writes are bounded and outlive request cancellation.
	ledgerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.ledger.RecordRun(ledgerCtx, run); err != nil {
		w.log.DatabaseError("record sync run", err)
	}
}

func (w *Walker) stampSyncedToMaster(ctx context.Context, table string, record postgrest.Row, origin string) {
	store := w.stores.Store(origin, true)
	if store == nil {
		return
	}
	err := store.Update(ctx, table, ColID, record.ID(), postgrest.Row{ColSyncedToMaster: true})
	if err != nil {
		var apiErr *postgrest.Error
		if errors.As(err, &apiErr) {
			w.log.Warn("failed to stamp origin row", "table", table, "origin", origin, "status", apiErr.Status, "error", apiErr.Message)
			return
		}
		w.log.Warn("failed to stamp origin row", "table", table, "origin", origin, "error", err)
	}
}
