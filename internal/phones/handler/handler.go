package handler

import (
	"net/http"

	"callops_backend/internal/phones/service"
	"callops_backend/internal/phones/transport"
	"callops_backend/platform/httpkit"
	"callops_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for phone numbers.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new phones handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the phone routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/available", h.Available)
	rg.GET("/existing", h.Existing)
	rg.POST("", h.Attach)
	rg.POST("/purchase", h.Purchase)
	rg.POST("/import", h.Import)
	rg.DELETE("/:phoneId", h.Delete)
	rg.PATCH("/:phoneId/inbound", h.UpdateInbound)
}

// List handles GET /api/phones
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.List(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Available handles GET /api/phones/available
func (h *Handler) Available(c *gin.Context) {
	result, err := h.svc.Available(c.Request.Context(), c.Query("country"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Existing handles GET /api/phones/existing
func (h *Handler) Existing(c *gin.Context) {
	result, err := h.svc.Existing(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Attach handles POST /api/phones
func (h *Handler) Attach(c *gin.Context) {
	var req transport.AttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Attach(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// Purchase handles POST /api/phones/purchase
func (h *Handler) Purchase(c *gin.Context) {
	var req transport.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Purchase(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// Import handles POST /api/phones/import
func (h *Handler) Import(c *gin.Context) {
	var req transport.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ImportExisting(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// Delete handles DELETE /api/phones/:phoneId
func (h *Handler) Delete(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Delete(c.Request.Context(), identity.UserID(), c.Param("phoneId"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// UpdateInbound handles PATCH /api/phones/:phoneId/inbound
func (h *Handler) UpdateInbound(c *gin.Context) {
	var req transport.UpdateInboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.UpdateInboundSettings(c.Request.Context(), identity.UserID(), c.Param("phoneId"), req); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"message": "inbound settings updated"})
}
