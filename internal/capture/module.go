// Package capture provides the public lead and booking capture module.
package capture

import (
	"command_center_backend/internal/capture/handler"
	"command_center_backend/internal/capture/service"
	"command_center_backend/internal/events"
	apphttp "command_center_backend/internal/http"
	"command_center_backend/internal/postgrest"
	"command_center_backend/internal/registry"
	"command_center_backend/platform/httpkit"
	"command_center_backend/platform/logger"
	"command_center_backend/platform/validator"

	"golang.org/x/time/rate"
)

// Public submissions per client IP.
const (
	captureRate  = rate.Limit(1)
	captureBurst = 10
)

// Module is the capture module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	limiter *httpkit.IPRateLimiter
}

// NewModule wires the capture service and its public handler.
func NewModule(
	reg *registry.Registry,
	stores postgrest.Provider,
	dispatcher service.SyncDispatcher,
	eventBus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	svc := service.New(reg, stores, dispatcher, eventBus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		limiter: httpkit.NewIPRateLimiter(captureRate, captureBurst, log),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "capture"
}

// Service returns the capture service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the public capture routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	tenants := ctx.V1.Group("/tenants", m.limiter.RateLimit(), httpkit.TenantScope())
	m.handler.RegisterRoutes(tenants)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
