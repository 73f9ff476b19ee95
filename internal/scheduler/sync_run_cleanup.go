package scheduler

import (
	"context"
	"time"

	"command_center_backend/platform/logger"
)

const (
	defaultSyncRunCleanupInterval = time.Hour
	defaultSyncedRunRetention     = 14 * 24 * time.Hour
	defaultIncompleteRunRetention = 30 * 24 * time.Hour
)

// SyncRunPruner deletes old ledger rows.
type SyncRunPruner interface {
	DeleteBefore(ctx context.Context, syncedBefore, incompleteBefore time.Time) (int64, error)
}

// SyncRunCleanup periodically removes old sync ledger entries.
type SyncRunCleanup struct {
	repo                SyncRunPruner
	log                 *logger.Logger
	interval            time.Duration
	syncedRetention     time.Duration
	incompleteRetention time.Duration
	now                 func() time.Time
}

func NewSyncRunCleanup(repo SyncRunPruner, log *logger.Logger, interval, syncedRetention, incompleteRetention time.Duration) *SyncRunCleanup {
	if interval <= 0 {
		interval = defaultSyncRunCleanupInterval
	}
	if syncedRetention <= 0 {
		syncedRetention = defaultSyncedRunRetention
	}
	if incompleteRetention <= 0 {
		incompleteRetention = defaultIncompleteRunRetention
	}

	return &SyncRunCleanup{
		repo:                repo,
		log:                 log,
		interval:            interval,
		syncedRetention:     syncedRetention,
		incompleteRetention: incompleteRetention,
		now:                 time.Now,
	}
}

func (c *SyncRunCleanup) Run(ctx context.Context) {
	if c == nil || c.repo == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *SyncRunCleanup) cleanup(ctx context.Context) {
	now := c.now()
	deleted, err := c.repo.DeleteBefore(ctx, now.Add(-c.syncedRetention), now.Add(-c.incompleteRetention))
	if err != nil {
		c.log.Warn("sync run cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		c.log.Info("sync run cleanup deleted old runs", "deleted", deleted)
	}
}
