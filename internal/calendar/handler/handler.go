package handler

import (
	"net/http"

	"callops_backend/internal/calendar/service"
	"callops_backend/internal/calendar/transport"
	"callops_backend/platform/httpkit"
	"callops_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for the calendar module.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new calendar handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the operator-facing calendar routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/tokens", h.SaveTokens)
	rg.GET("/events", h.ListEvents)
}

// RegisterToolRoutes registers the tool-call routes the voice agent invokes
// mid-conversation.
func (h *Handler) RegisterToolRoutes(rg *gin.RouterGroup) {
	rg.POST("/check-calendar-availability", h.CheckAvailability)
	rg.POST("/book-meeting", h.BookMeeting)
}

// SaveTokens handles POST /api/calendar/tokens
func (h *Handler) SaveTokens(c *gin.Context) {
	var req transport.SaveTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.SaveTokens(c.Request.Context(), req); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"message": "calendar connected"})
}

// ListEvents handles GET /api/calendar/events
func (h *Handler) ListEvents(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		httpkit.Error(c, http.StatusBadRequest, "email is required", nil)
		return
	}

	result, err := h.svc.ListEvents(c.Request.Context(), email)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// CheckAvailability handles POST /api/tools/check-calendar-availability
func (h *Handler) CheckAvailability(c *gin.Context) {
	var req transport.CheckAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.CheckAvailability(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// BookMeeting handles POST /api/tools/book-meeting
func (h *Handler) BookMeeting(c *gin.Context) {
	var req transport.BookMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.BookMeeting(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
