// Package syncadmin exposes operator endpoints for the upline sync: backfills,
// single-record replays, the run ledger and the registry tree.
package syncadmin

import (
	apphttp "command_center_backend/internal/http"
	"command_center_backend/internal/registry"
	"command_center_backend/platform/logger"
	"command_center_backend/platform/validator"
)

// Module is the admin sync module implementing http.Module.
type Module struct {
	handler *Handler
}

func NewModule(reg *registry.Registry, syncer Syncer, runs RunLister, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(NewService(reg, syncer, runs, log), val)}
}

func (m *Module) Name() string {
	return "syncadmin"
}

// RegisterRoutes mounts the routes on the admin group (JWT + admin role).
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)
