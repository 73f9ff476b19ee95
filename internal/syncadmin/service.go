package syncadmin

import (
	"context"
	"fmt"

	"command_center_backend/internal/registry"
	"command_center_backend/internal/synclog"
	"command_center_backend/internal/uplinesync"
	"command_center_backend/platform/apperr"
	"command_center_backend/platform/logger"

	"github.com/google/uuid"
)

// Syncer is the part of the upline walker the admin surface drives.
type Syncer interface {
	BatchSyncUpline(ctx context.Context, table, origin string, opts uplinesync.BatchOptions) (uplinesync.BatchResult, error)
	Run(ctx context.Context, job uplinesync.Job) uplinesync.Result
}

// RunLister reads the sync ledger.
type RunLister interface {
	ListRuns(ctx context.Context, filter synclog.ListFilter) ([]uplinesync.Run, error)
}

// Service runs operator-triggered sync work.
type Service struct {
	reg    *registry.Registry
	syncer Syncer
	runs   RunLister
	log    *logger.Logger
}

// NewService creates the admin sync service. runs may be nil when no ledger
// database is configured.
func NewService(reg *registry.Registry, syncer Syncer, runs RunLister, log *logger.Logger) *Service {
	return &Service{reg: reg, syncer: syncer, runs: runs, log: log}
}

// Backfill re-syncs tenant's local rows.
func (s *Service) Backfill(ctx context.Context, tenant string, req BackfillRequest, actor uuid.UUID) (uplinesync.BatchResult, error) {
	opts := uplinesync.BatchOptions{Limit: req.Limit}
	if req.Since != nil {
		opts.Since = *req.Since
	}

	s.log.WithContext(ctx).Info("backfill requested", "tenant", tenant, "table", req.Table, "since", opts.Since, "limit", opts.Limit, "actor", actor)
	result, err := s.syncer.BatchSyncUpline(ctx, req.Table, tenant, opts)
	if err != nil {
		return uplinesync.BatchResult{}, err
	}
	s.log.WithContext(ctx).Info("backfill finished", "tenant", tenant, "table", req.Table, "total", result.Total, "synced", result.Synced, "failed", result.Failed)
	return result, nil
}

// Replay walks one record from tenant and waits for the outcome.
func (s *Service) Replay(ctx context.Context, tenant string, req ReplayRequest, actor uuid.UUID) (uplinesync.Result, error) {
	const op = "syncadmin.Replay"

	if _, ok := s.reg.Lookup(tenant); !ok {
		return uplinesync.Result{}, apperr.Configuration(fmt.Sprintf("source database %s not configured", tenant)).WithOp(op)
	}
	if !uplinesync.IsSyncTable(req.Table) {
		return uplinesync.Result{}, apperr.Validation(fmt.Sprintf("table %q is not synced", req.Table)).WithOp(op)
	}
	if req.Record.ID() == nil {
		return uplinesync.Result{}, apperr.Validation("record has no id").WithOp(op)
	}

	s.log.WithContext(ctx).Info("replay requested", "tenant", tenant, "table", req.Table, "id", req.Record.IDString(), "actor", actor)
	return s.syncer.Run(ctx, uplinesync.Job{Table: req.Table, Origin: tenant, Record: req.Record, Attempt: 1}), nil
}

// ListRuns returns ledger rows, newest first.
func (s *Service) ListRuns(ctx context.Context, status, origin string, limit int) ([]RunResponse, error) {
	const op = "syncadmin.ListRuns"

	if s.runs == nil {
		return nil, apperr.Configuration("sync ledger not configured").WithOp(op)
	}

	switch uplinesync.RunStatus(status) {
	case "", uplinesync.RunSynced, uplinesync.RunPartial, uplinesync.RunFailed:
	default:
		return nil, apperr.Validation(fmt.Sprintf("unknown status %q", status)).WithOp(op)
	}

	runs, err := s.runs.ListRuns(ctx, synclog.ListFilter{Status: uplinesync.RunStatus(status), Origin: origin, Limit: limit})
	if err != nil {
		return nil, apperr.Persistence("failed to list sync runs", err).WithOp(op)
	}

	out := make([]RunResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, toRunResponse(r))
	}
	return out, nil
}

// Registry lists every registered database with its chain to the master.
func (s *Service) Registry() []RegistryEntry {
	keys := s.reg.Keys()
	out := make([]RegistryEntry, 0, len(keys))
	for _, key := range keys {
		entry, _ := s.reg.Lookup(key)
		upline := []string{}
		for _, u := range s.reg.Upline(key) {
			upline = append(upline, u.Key)
		}
		out = append(out, RegistryEntry{
			Key:      entry.Key,
			Name:     entry.DisplayName,
			IsMaster: entry.IsMaster,
			SyncTo:   entry.SyncTo,
			Upline:   upline,
		})
	}
	return out
}
