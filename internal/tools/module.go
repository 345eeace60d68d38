// Package tools exposes the operator tool endpoints the voice agent can call
// mid-conversation: email delivery and a placeholder SMS surface.
package tools

import (
	"context"
	"net/http"

	apphttp "callops_backend/internal/http"
	"callops_backend/platform/apperr"
	"callops_backend/platform/config"
	"callops_backend/platform/httpkit"
	"callops_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Sender delivers an email on behalf of a tool call.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, body string) error
}

// Module represents the tools module
type Module struct {
	sender  Sender
	enabled bool
	val     *validator.Validator
}

// NewModule creates a new tools module. When email is not configured the
// send-email endpoint reports that instead of dialing a blank host.
func NewModule(cfg config.EmailConfig, val *validator.Validator) *Module {
	return &Module{
		sender:  NewEmailSender(cfg),
		enabled: cfg.IsEmailEnabled(),
		val:     val,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "tools"
}

// RegisterRoutes registers the tool routes under the public /api/tools group;
// tool calls arrive from the voice platform, not the dashboard session.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	tools := ctx.Public.Group("/tools")
	tools.POST("/send-email", m.SendEmail)
	tools.POST("/send-sms", m.SendSMS)
}

// SendEmailRequest is the send-email tool payload.
type SendEmailRequest struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
}

// SendEmail handles POST /api/tools/send-email
func (m *Module) SendEmail(c *gin.Context) {
	var req SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := m.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	if !m.enabled {
		httpkit.HandleError(c, apperr.Internal("email delivery is not configured"))
		return
	}

	if err := m.sender.Send(c.Request.Context(), req.To, req.Subject, req.Body); err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to send email", err))
		return
	}

	httpkit.OK(c, gin.H{"success": true})
}

// SendSMS handles POST /api/tools/send-sms. SMS delivery has no upstream yet.
func (m *Module) SendSMS(c *gin.Context) {
	httpkit.Error(c, http.StatusNotImplemented, "SMS delivery is not implemented", nil)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
