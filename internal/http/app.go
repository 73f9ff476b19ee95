// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"command_center_backend/internal/events"
	"command_center_backend/platform/config"
	"command_center_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration (HTTP and JWT settings only).
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health backs /api/ready. May be nil when no sync ledger is configured.
	Health HealthChecker
	// EventBus is the domain event bus shared by capture, webhook and routing.
	EventBus events.Bus
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
