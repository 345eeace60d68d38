// Package phones provides the phone-number lifecycle module.
package phones

import (
	"callops_backend/internal/events"
	apphttp "callops_backend/internal/http"
	"callops_backend/internal/phones/handler"
	"callops_backend/internal/phones/repository"
	"callops_backend/internal/phones/service"
	"callops_backend/platform/logger"
	"callops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the phones domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new phones module with all dependencies wired.
// orphans may be nil when the process runs without a background scheduler.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, telephony service.Telephony, platform service.VoicePlatform, bus events.Bus, orphans service.OrphanScheduler, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, telephony, platform, bus, orphans, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "phones"
}

// RegisterRoutes registers the module's routes under /api/phones
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	phones := ctx.Protected.Group("/phones")
	m.handler.RegisterRoutes(phones)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
