// Package campaigns provides the campaign and call orchestration module.
package campaigns

import (
	"callops_backend/internal/campaigns/handler"
	"callops_backend/internal/campaigns/repository"
	"callops_backend/internal/campaigns/service"
	"callops_backend/internal/events"
	apphttp "callops_backend/internal/http"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
	"callops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the campaigns domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new campaigns module with all dependencies wired.
// refresh may be nil when the process runs without a background scheduler.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, platform service.VoicePlatform, bus events.Bus, refresh service.RefreshScheduler, cfg config.DispatchConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, platform, bus, refresh, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "campaigns"
}

// RegisterRoutes registers the module's routes under /api/campaigns and /api/calls
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterCampaignRoutes(ctx.Protected.Group("/campaigns"))
	m.handler.RegisterCallRoutes(ctx.Protected.Group("/calls"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
