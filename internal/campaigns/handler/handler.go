package handler

import (
	"net/http"
	"strconv"

	"callops_backend/internal/campaigns/leadset"
	"callops_backend/internal/campaigns/service"
	"callops_backend/internal/campaigns/transport"
	"callops_backend/platform/httpkit"
	"callops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for campaigns and calls.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new campaigns handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterCampaignRoutes registers the campaign routes.
func (h *Handler) RegisterCampaignRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.CreateCampaign)
	rg.GET("", h.ListCampaigns)
	rg.GET("/:id", h.GetCampaign)
}

// RegisterCallRoutes registers the call routes.
func (h *Handler) RegisterCallRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.CreateCall)
	rg.GET("", h.ListCalls)
	rg.POST("/upload", h.UploadLeads)
}

// CreateCampaign handles POST /api/campaigns
func (h *Handler) CreateCampaign(c *gin.Context) {
	var req transport.CreateCampaignRequest
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

	result, err := h.svc.CreateCampaign(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// ListCampaigns handles GET /api/campaigns
func (h *Handler) ListCampaigns(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ListCampaigns(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GetCampaign handles GET /api/campaigns/:id
func (h *Handler) GetCampaign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.GetCampaign(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// CreateCall handles POST /api/calls
func (h *Handler) CreateCall(c *gin.Context) {
	var req transport.CreateCallRequest
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

	result, err := h.svc.CreateOutboundCall(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// ListCalls handles GET /api/calls
func (h *Handler) ListCalls(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ListCalls(c.Request.Context(), identity.UserID(), c.Query("assistantId"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// UploadLeads handles POST /api/calls/upload. The multipart body carries a
// CSV lead file plus the dispatch parameters as form fields; every valid lead
// gets its own call through the bounded dispatch pool.
func (h *Handler) UploadLeads(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "lead file is required", nil)
		return
	}

	src, err := file.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "could not read lead file", nil)
		return
	}
	defer func() {
		_ = src.Close()
	}()

	rows, err := leadset.ParseCSV(src)
	if httpkit.HandleError(c, err) {
		return
	}
	leads, err := leadset.Build(rows)
	if httpkit.HandleError(c, err) {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	summary, err := h.svc.DispatchLeads(c.Request.Context(), identity.UserID(), service.DispatchInput{
		AssistantID:   c.PostForm("assistantId"),
		WorkflowID:    c.PostForm("workflowId"),
		PhoneNumberID: c.PostForm("phoneNumberId"),
		Leads:         leads,
		Schedule:      scheduleFromForm(c),
	})
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if summary.Status == transport.StatusPartialSuccess {
		status = http.StatusMultiStatus
	}
	httpkit.JSON(c, status, summary)
}

// scheduleFromForm reads the optional wall-clock schedule fields off a
// multipart upload.
func scheduleFromForm(c *gin.Context) *transport.ScheduleInput {
	date := c.PostForm("date")
	if date == "" {
		return nil
	}

	hour, _ := strconv.Atoi(c.PostForm("hour"))
	minute, _ := strconv.Atoi(c.PostForm("minute"))
	return &transport.ScheduleInput{
		Date:     date,
		Hour:     hour,
		Minute:   minute,
		Meridiem: c.PostForm("meridiem"),
		Timezone: c.PostForm("timezone"),
	}
}
