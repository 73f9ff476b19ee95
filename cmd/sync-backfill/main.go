package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"command_center_backend/internal/postgrest"
	"command_center_backend/internal/registry"
	"command_center_backend/internal/synclog"
	"command_center_backend/internal/uplinesync"
	"command_center_backend/platform/config"
	"command_center_backend/platform/db"
	"command_center_backend/platform/logger"
)

func main() {
	tenant := flag.String("tenant", "", "registry key of the source database")
	table := flag.String("table", uplinesync.TableLeads, "table to re-sync (crm_leads or bookings)")
	since := flag.String("since", "", "only rows created at or after this RFC3339 time or YYYY-MM-DD date")
	limit := flag.Int("limit", uplinesync.DefaultBatchLimit, "maximum rows to re-sync")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	if *tenant == "" {
		log.Error("missing -tenant")
		os.Exit(2)
	}
	sinceTime, err := parseSince(*since)
	if err != nil {
		log.Error("invalid -since", "value", *since, "error", err)
		os.Exit(2)
	}
	log.Info("starting upline backfill", "tenant", *tenant, "table", *table, "since", sinceTime, "limit", *limit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tenants, err := config.LoadTenants(cfg.GetTenantsFile())
	if err != nil {
		log.Error("failed to load tenants file", "error", err)
		panic("failed to load tenants file: " + err.Error())
	}
	reg, err := registry.FromConfig(tenants)
	if err != nil {
		log.Error("invalid database registry", "error", err)
		panic("invalid database registry: " + err.Error())
	}

	walker := uplinesync.NewWalker(reg, postgrest.NewFactory(reg, cfg.GetSyncHopTimeout(), log), log)
	walker.SetStampOrigin(cfg.GetSyncStampOrigin())
	walker.SetBatchConcurrency(cfg.GetSyncBatchConcurrency())

	if cfg.IsLedgerEnabled() {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			panic("failed to connect to database: " + err.Error())
		}
		defer pool.Close()
		walker.SetLedger(synclog.New(pool))
	}

	result, err := walker.BatchSyncUpline(ctx, *table, *tenant, uplinesync.BatchOptions{Since: sinceTime, Limit: *limit})
	if err != nil {
		log.Error("backfill failed", "error", err)
		os.Exit(1)
	}

	log.Info("backfill complete", "total", result.Total, "synced", result.Synced, "failed", result.Failed)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)

	if result.Failed > 0 {
		os.Exit(1)
	}
}

func parseSince(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}
