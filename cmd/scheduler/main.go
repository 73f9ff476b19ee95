package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"command_center_backend/internal/postgrest"
	"command_center_backend/internal/registry"
	"command_center_backend/internal/scheduler"
	"command_center_backend/internal/synclog"
	"command_center_backend/internal/uplinesync"
	"command_center_backend/platform/config"
	"command_center_backend/platform/db"
	"command_center_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tenants, err := config.LoadTenants(cfg.GetTenantsFile())
	if err != nil {
		log.Error("failed to load tenants file", "error", err, "path", cfg.GetTenantsFile())
		panic("failed to load tenants file: " + err.Error())
	}
	reg, err := registry.FromConfig(tenants)
	if err != nil {
		log.Error("invalid database registry", "error", err)
		panic("invalid database registry: " + err.Error())
	}

	walker := uplinesync.NewWalker(reg, postgrest.NewFactory(reg, cfg.GetSyncHopTimeout(), log), log)
	walker.SetStampOrigin(cfg.GetSyncStampOrigin())

	if cfg.IsLedgerEnabled() {
		var pool *pgxpool.Pool
		if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
			p, err := db.NewPool(ctx, cfg)
			if err != nil {
				return err
			}
			pool = p
			return nil
		}); err != nil {
			log.Error("failed to connect to database", "error", err)
			panic("failed to connect to database: " + err.Error())
		}
		defer pool.Close()
		walker.SetLedger(synclog.New(pool))
	}

	worker, err := scheduler.NewWorker(cfg, walker, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
