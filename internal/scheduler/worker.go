package scheduler

import (
	"context"
	"fmt"

	"command_center_backend/internal/uplinesync"
	"command_center_backend/platform/config"
	"command_center_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// SyncRunner executes one upline walk.
type SyncRunner interface {
	Run(ctx context.Context, job uplinesync.Job) uplinesync.Result
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner SyncRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner SyncRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
		Logger: asynqLogger{log},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		runner: runner,
		log:    log,
	}

	mux.HandleFunc(TaskSyncUpline, w.handleSyncUpline)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleSyncUpline walks once per delivery. An incomplete walk returns an
// error so asynq schedules a retry; the upsert key keeps re-walks idempotent.
func (w *Worker) handleSyncUpline(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSyncUplinePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if !uplinesync.IsSyncTable(payload.Table) {
		return fmt.Errorf("%w: table %q is not synced", asynq.SkipRetry, payload.Table)
	}

	attempt := 1
	if retried, ok := asynq.GetRetryCount(ctx); ok {
		attempt = retried + 1
	}

	res := w.runner.Run(ctx, payload.job(attempt))
	if res.OK() {
		return nil
	}

	last := res.Failed[len(res.Failed)-1]
	return fmt.Errorf("upline sync stopped at %s: %s", last.DB, last.Error)
}

// asynqLogger routes asynq's internal logging through the app logger.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
