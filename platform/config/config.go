// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides settings for the command center's own ledger database.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq sync queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSyncMaxRetry() int
}

// SyncConfig provides settings for the upline sync walker.
type SyncConfig interface {
	GetSyncHopTimeout() time.Duration
	GetSyncBatchConcurrency() int
	GetSyncStampOrigin() bool
	GetTenantsFile() string
}

// CRMConfig provides settings for the external marketing CRM.
type CRMConfig interface {
	GetCRMAPIURL() string
	GetCRMAPIKey() string
	GetCRMRateLimitPerSec() float64
	GetCRMTimeout() time.Duration
	IsCRMEnabled() bool
}

// WebhookConfig provides settings for inbound ModCRM webhooks.
type WebhookConfig interface {
	GetModCRMWebhookSecret() string
	GetWebhookDedupeTTL() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                  string
	HTTPAddr             string
	DatabaseURL          string
	MigrationsDir        string
	JWTAccessSecret      string
	CORSAllowAll         bool
	CORSOrigins          []string
	CORSAllowCreds       bool
	RedisURL             string
	RedisTLSInsecure     bool
	AsynqQueueName       string
	AsynqConcurrency     int
	SyncMaxRetry         int
	SyncHopTimeout       time.Duration
	SyncBatchConcurrency int
	SyncStampOrigin      bool
	TenantsFile          string
	CRMAPIURL            string
	CRMAPIKey            string
	CRMRateLimitPerSec   float64
	CRMTimeout           time.Duration
	ModCRMWebhookSecret  string
	WebhookDedupeTTL     time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) GetSyncMaxRetry() int      { return c.SyncMaxRetry }

// SyncConfig implementation
func (c *Config) GetSyncHopTimeout() time.Duration { return c.SyncHopTimeout }
func (c *Config) GetSyncBatchConcurrency() int     { return c.SyncBatchConcurrency }
func (c *Config) GetSyncStampOrigin() bool         { return c.SyncStampOrigin }
func (c *Config) GetTenantsFile() string           { return c.TenantsFile }

// CRMConfig implementation
func (c *Config) GetCRMAPIURL() string           { return c.CRMAPIURL }
func (c *Config) GetCRMAPIKey() string           { return c.CRMAPIKey }
func (c *Config) GetCRMRateLimitPerSec() float64 { return c.CRMRateLimitPerSec }
func (c *Config) GetCRMTimeout() time.Duration   { return c.CRMTimeout }
func (c *Config) IsCRMEnabled() bool             { return c.CRMAPIURL != "" }

// WebhookConfig implementation
func (c *Config) GetModCRMWebhookSecret() string     { return c.ModCRMWebhookSecret }
func (c *Config) GetWebhookDedupeTTL() time.Duration { return c.WebhookDedupeTTL }

// ValidateAPI checks the settings only the HTTP API needs.
func (c *Config) ValidateAPI() error {
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	return nil
}

// IsLedgerEnabled reports whether a ledger database is configured.
func (c *Config) IsLedgerEnabled() bool { return c.DatabaseURL != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		MigrationsDir:        getEnv("MIGRATIONS_DIR", "migrations"),
		JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		CORSAllowCreds:       strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:       getEnv("ASYNQ_QUEUE", "sync"),
		AsynqConcurrency:     mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SyncMaxRetry:         mustInt(getEnv("SYNC_MAX_RETRY", "8")),
		SyncHopTimeout:       mustDuration(getEnv("SYNC_HOP_TIMEOUT", "10s")),
		SyncBatchConcurrency: mustInt(getEnv("SYNC_BATCH_CONCURRENCY", "4")),
		SyncStampOrigin:      strings.EqualFold(getEnv("SYNC_STAMP_ORIGIN", "false"), "true"),
		TenantsFile:          getEnv("TENANTS_FILE", "config/tenants.yaml"),
		CRMAPIURL:            strings.TrimRight(getEnv("CRM_API_URL", ""), "/"),
		CRMAPIKey:            getEnv("CRM_API_KEY", ""),
		CRMRateLimitPerSec:   mustFloat(getEnv("CRM_RATE_LIMIT_PER_SEC", "5")),
		CRMTimeout:           mustDuration(getEnv("CRM_TIMEOUT", "10s")),
		ModCRMWebhookSecret:  getEnv("MODCRM_WEBHOOK_SECRET", ""),
		WebhookDedupeTTL:     mustDuration(getEnv("WEBHOOK_DEDUPE_TTL", "24h")),
	}

	if cfg.TenantsFile == "" {
		return nil, fmt.Errorf("TENANTS_FILE is required")
	}
	if cfg.SyncHopTimeout <= 0 {
		return nil, fmt.Errorf("SYNC_HOP_TIMEOUT must be a positive duration")
	}
	if cfg.CRMAPIURL != "" && cfg.CRMAPIKey == "" {
		return nil, fmt.Errorf("CRM_API_KEY is required when CRM_API_URL is set")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
