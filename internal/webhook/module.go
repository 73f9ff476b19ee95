// Package webhook receives ModCRM event deliveries and republishes them as
// domain events.
package webhook

import (
	"command_center_backend/internal/events"
	apphttp "command_center_backend/internal/http"
	"command_center_backend/platform/config"
	"command_center_backend/platform/logger"
	"command_center_backend/platform/validator"
)

// Module is the webhook module implementing http.Module.
type Module struct {
	handler *Handler
	secret  string
}

// NewModule wires the ModCRM webhook. When deduper is nil deliveries are
// de-duplicated in process memory.
func NewModule(bus events.Bus, deduper Deduper, cfg config.WebhookConfig, val *validator.Validator, log *logger.Logger) *Module {
	if deduper == nil {
		deduper = NewMemoryDeduper(cfg.GetWebhookDedupeTTL())
	}
	if cfg.GetModCRMWebhookSecret() == "" {
		log.Warn("MODCRM_WEBHOOK_SECRET not set; webhook signatures are not verified")
	}
	return &Module{
		handler: NewHandler(NewService(bus, deduper, log), val),
		secret:  cfg.GetModCRMWebhookSecret(),
	}
}

func (m *Module) Name() string {
	return "webhook"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	hooks := ctx.V1.Group("/webhooks")
	hooks.POST("/modcrm", SignatureMiddleware(m.secret), m.handler.HandleModCRM)
}

var _ apphttp.Module = (*Module)(nil)
