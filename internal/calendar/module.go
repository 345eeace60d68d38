// Package calendar provides the calendar availability module.
package calendar

import (
	"callops_backend/internal/calendar/handler"
	"callops_backend/internal/calendar/repository"
	"callops_backend/internal/calendar/service"
	apphttp "callops_backend/internal/http"
	"callops_backend/platform/logger"
	"callops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the calendar domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new calendar module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator, provider service.Provider, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, provider, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "calendar"
}

// RegisterRoutes registers operator routes under /api/calendar and the
// tool-call routes, invoked by the voice platform mid-conversation, under
// the public /api/tools group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/calendar"))
	m.handler.RegisterToolRoutes(ctx.Public.Group("/tools"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
