package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"command_center_backend/internal/capture"
	captureservice "command_center_backend/internal/capture/service"
	"command_center_backend/internal/events"
	apphttp "command_center_backend/internal/http"
	"command_center_backend/internal/http/router"
	"command_center_backend/internal/postgrest"
	"command_center_backend/internal/registry"
	"command_center_backend/internal/routing"
	"command_center_backend/internal/scheduler"
	"command_center_backend/internal/syncadmin"
	"command_center_backend/internal/synclog"
	"command_center_backend/internal/uplinesync"
	"command_center_backend/internal/webhook"
	"command_center_backend/platform/config"
	"command_center_backend/platform/db"
	"command_center_backend/platform/logger"
	"command_center_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if err := cfg.ValidateAPI(); err != nil {
		panic("invalid config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database registry loaded", "databases", len(reg.Keys()), "master", reg.Master().Key)

	pool := connectLedger(ctx, cfg, log)
	if pool != nil {
		defer pool.Close()
	}

	stores := postgrest.NewFactory(reg, cfg.GetSyncHopTimeout(), log)
	walker := uplinesync.NewWalker(reg, stores, log)
	walker.SetStampOrigin(cfg.GetSyncStampOrigin())
	walker.SetBatchConcurrency(cfg.GetSyncBatchConcurrency())

	var runs syncadmin.RunLister
	if pool != nil {
		repo := synclog.New(pool)
		walker.SetLedger(repo)
		runs = repo
		go scheduler.NewSyncRunCleanup(repo, log, 0, 0, 0).Run(ctx)
	}

	dispatcher, closeDispatcher := initDispatcher(cfg, walker, log)
	defer closeDispatcher()

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Lead routing subscribes to domain events (not HTTP-facing)
	leadRouter := routing.NewRouter(routing.NewScorer(routing.ProfilesFromConfig(tenants)), initCRMClient(cfg, log), log)
	routing.NewEventHandler(leadRouter, log).Subscribe(eventBus)

	deduper, closeDeduper := initDeduper(cfg, log)
	defer closeDeduper()

	captureModule := capture.NewModule(reg, stores, dispatcher, eventBus, val, log)
	webhookModule := webhook.NewModule(eventBus, deduper, cfg, val, log)
	syncAdminModule := syncadmin.NewModule(reg, walker, runs, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			captureModule,
			webhookModule,
			syncAdminModule,
		},
	}
	if pool != nil {
		app.Health = db.NewPoolAdapter(pool)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// connectLedger migrates and opens the sync ledger database. It returns nil
// when DATABASE_URL is not set.
func connectLedger(ctx context.Context, cfg *config.Config, log *logger.Logger) *pgxpool.Pool {
	if !cfg.IsLedgerEnabled() {
		log.Warn("DATABASE_URL not configured; sync ledger disabled")
		return nil
	}

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, cfg.MigrationsDir)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")
	return pool
}

// initDispatcher enqueues sync walks on asynq when redis is configured and
// walks in-process otherwise.
func initDispatcher(cfg config.SchedulerConfig, walker *uplinesync.Walker, log *logger.Logger) (captureservice.SyncDispatcher, func()) {
	inline := scheduler.NewInlineDispatcher(walker, log)
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; upline sync runs in-process without retries")
		return inline, inline.Wait
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize sync queue client; falling back to in-process sync", "error", err)
		return inline, inline.Wait
	}

	return client, func() {
		_ = client.Close()
	}
}

func initCRMClient(cfg config.CRMConfig, log *logger.Logger) routing.CRMClient {
	if !cfg.IsCRMEnabled() {
		log.Warn("CRM_API_URL not configured; qualified leads are logged, not sent")
		return routing.NewDryRunClient(log)
	}
	return routing.NewHTTPClient(cfg.GetCRMAPIURL(), cfg.GetCRMAPIKey(), cfg.GetCRMRateLimitPerSec(), cfg.GetCRMTimeout(), log)
}

func initDeduper(cfg *config.Config, log *logger.Logger) (webhook.Deduper, func()) {
	if cfg.GetRedisURL() == "" {
		return webhook.NewMemoryDeduper(cfg.GetWebhookDedupeTTL()), func() {}
	}

	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; webhook dedupe falls back to memory", "error", err)
		return webhook.NewMemoryDeduper(cfg.GetWebhookDedupeTTL()), func() {}
	}
	if opts.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	rdb := redis.NewClient(opts)
	return webhook.NewRedisDeduper(rdb, cfg.GetWebhookDedupeTTL()), func() {
		_ = rdb.Close()
	}
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
