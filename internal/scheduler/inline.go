package scheduler

import (
	"context"
	"sync"

	"command_center_backend/internal/uplinesync"
	"command_center_backend/platform/logger"
)

// InlineDispatcher walks in a goroutine of the current process. It is used
// when no redis is configured; failed walks are logged and not retried.
type InlineDispatcher struct {
	walker *uplinesync.Walker
	log    *logger.Logger
	wg     sync.WaitGroup
}

func NewInlineDispatcher(walker *uplinesync.Walker, log *logger.Logger) *InlineDispatcher {
	return &InlineDispatcher{walker: walker, log: log}
}

// DispatchSync starts the walk and returns immediately.
func (d *InlineDispatcher) DispatchSync(ctx context.Context, job uplinesync.Job) error {
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("upline sync panicked", "table", job.Table, "origin", job.Origin, "panic", r)
			}
		}()

		res := d.walker.Run(detached, job)
		if !res.OK() {
			d.log.Warn("upline sync incomplete",
				"table", job.Table,
				"origin", job.Origin,
				"id", job.Record.IDString(),
				"reached", res.Reached(),
				"failed", res.Failed,
			)
		}
	}()
	return nil
}

// Wait blocks until every started walk has returned.
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}
