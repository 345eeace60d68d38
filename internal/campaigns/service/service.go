// Package service implements campaign orchestration: platform-native bulk
// campaigns, client-side lead fan-out, and local call records.
package service

import (
	"context"
	"time"

	"callops_backend/internal/campaigns/leadset"
	"callops_backend/internal/campaigns/repository"
	"callops_backend/internal/campaigns/schedule"
	"callops_backend/internal/campaigns/transport"
	"callops_backend/internal/events"
	"callops_backend/internal/vapi"
	"callops_backend/platform/apperr"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface the service needs.
type Store interface {
	InsertCall(ctx context.Context, call *repository.Call) error
	ListCalls(ctx context.Context, userID uuid.UUID, assistantID string) ([]repository.Call, error)
	UpdateCallStatus(ctx context.Context, providerCallID, status string) error
	InsertCampaign(ctx context.Context, campaign *repository.Campaign) error
	GetCampaign(ctx context.Context, id, userID uuid.UUID) (*repository.Campaign, error)
	GetCampaignByID(ctx context.Context, id uuid.UUID) (*repository.Campaign, error)
	ListCampaigns(ctx context.Context, userID uuid.UUID) ([]repository.Campaign, error)
	UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status string) error
}

// VoicePlatform is the slice of the voice platform client the service uses.
type VoicePlatform interface {
	CreateCall(ctx context.Context, req vapi.CallRequest) (*vapi.Call, error)
	CreateCampaign(ctx context.Context, req vapi.CampaignRequest) (*vapi.Campaign, error)
	GetCampaign(ctx context.Context, campaignID string) (*vapi.Campaign, error)
	ListCalls(ctx context.Context, assistantID string) ([]vapi.Call, error)
}

// RefreshScheduler enqueues a deferred campaign status pull.
type RefreshScheduler interface {
	ScheduleCampaignRefresh(ctx context.Context, campaignID uuid.UUID, at time.Time) error
}

// Service orchestrates campaign and call operations.
type Service struct {
	repo     Store
	platform VoicePlatform
	bus      events.Bus
	refresh  RefreshScheduler
	cfg      config.DispatchConfig
	log      *logger.Logger
}

// New creates a new campaigns service. refresh may be nil when no background
// scheduler is wired (status refresh then only happens on read).
func New(repo Store, platform VoicePlatform, bus events.Bus, refresh RefreshScheduler, cfg config.DispatchConfig, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		platform: platform,
		bus:      bus,
		refresh:  refresh,
		cfg:      cfg,
		log:      log,
	}
}

// CreateCampaign submits a platform-native bulk campaign: the voice platform
// itself fans out to every lead, and the local record is built from its
// response.
func (s *Service) CreateCampaign(ctx context.Context, userID uuid.UUID, req transport.CreateCampaignRequest) (*transport.CampaignResponse, error) {
	if err := validateTarget(req.AssistantID, req.WorkflowID); err != nil {
		return nil, err
	}

	rows := make([]leadset.RawRow, len(req.Leads))
	for i, lead := range req.Leads {
		rows[i] = leadset.RawRow{Name: lead.Name, Phone: lead.Phone, Email: lead.Email}
	}
	leads, err := leadset.Build(rows)
	if err != nil {
		return nil, err
	}

	window, err := resolveWindow(req.Schedule, time.Now())
	if err != nil {
		return nil, err
	}

	customers := make([]vapi.Customer, len(leads))
	for i, lead := range leads {
		customers[i] = vapi.Customer{Number: lead.PhoneE164, Name: lead.Name}
	}

	created, err := s.platform.CreateCampaign(ctx, vapi.CampaignRequest{
		Name:          req.Name,
		PhoneNumberID: req.PhoneNumberID,
		AssistantID:   req.AssistantID,
		WorkflowID:    req.WorkflowID,
		Customers:     customers,
		SchedulePlan:  schedulePlan(window),
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	campaign := &repository.Campaign{
		ID:             uuid.New(),
		UserID:         userID,
		VapiCampaignID: created.ID,
		Name:           req.Name,
		PhoneNumberID:  req.PhoneNumberID,
		AssistantID:    optional(req.AssistantID),
		WorkflowID:     optional(req.WorkflowID),
		Status:         statusOrDefault(created.Status),
		TotalLeads:     len(leads),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if window != nil {
		campaign.EarliestAt = &window.EarliestAt
		campaign.LatestAt = &window.LatestAt
	}
	if err := s.repo.InsertCampaign(ctx, campaign); err != nil {
		s.log.DatabaseError("insert_campaign", err)
		return nil, apperr.Internal("failed to record campaign")
	}

	for callID, call := range created.Calls {
		record := &repository.Call{
			ID:          uuid.New(),
			UserID:      userID,
			AssistantID: optional(req.AssistantID),
			CallID:      callID,
			CampaignID:  &campaign.ID,
			Status:      statusOrDefault(call.Status),
			CreatedAt:   now,
		}
		if err := s.repo.InsertCall(ctx, record); err != nil {
			s.log.DatabaseError("insert_campaign_call", err)
		}
	}

	s.scheduleRefresh(ctx, campaign.ID, window)

	s.bus.Publish(ctx, events.CampaignDispatched{
		BaseEvent:  events.NewBaseEvent(),
		CampaignID: campaign.ID,
		UserID:     userID,
		Name:       campaign.Name,
		TotalLeads: campaign.TotalLeads,
		Status:     campaign.Status,
	})

	resp := campaign.ToResponse()
	return &resp, nil
}

// CreateOutboundCall places a single call, or a platform-side fan-out when
// the request carries a customers list.
func (s *Service) CreateOutboundCall(ctx context.Context, userID uuid.UUID, req transport.CreateCallRequest) (*vapi.Call, error) {
	if err := validateTarget(req.AssistantID, req.WorkflowID); err != nil {
		return nil, err
	}
	if req.Customer == nil && len(req.Customers) == 0 {
		return nil, apperr.Validation("customer or customers is required")
	}

	window, err := resolveWindow(req.Schedule, time.Now())
	if err != nil {
		return nil, err
	}

	callReq := vapi.CallRequest{
		AssistantID:   req.AssistantID,
		WorkflowID:    req.WorkflowID,
		PhoneNumberID: req.PhoneNumberID,
		SchedulePlan:  schedulePlan(window),
	}
	if req.Customer != nil {
		callReq.Customer = &vapi.Customer{Number: req.Customer.Number, Name: req.Customer.Name}
	} else {
		callReq.Customers = make([]vapi.Customer, len(req.Customers))
		for i, cust := range req.Customers {
			callReq.Customers[i] = vapi.Customer{Number: cust.Number, Name: cust.Name}
		}
	}

	call, err := s.platform.CreateCall(ctx, callReq)
	if err != nil {
		return nil, err
	}

	if req.Customer != nil && call.ID != "" {
		record := &repository.Call{
			ID:          uuid.New(),
			UserID:      userID,
			AssistantID: optional(req.AssistantID),
			CallID:      call.ID,
			Name:        optional(req.Customer.Name),
			Phone:       optional(req.Customer.Number),
			Status:      statusOrDefault(call.Status),
			Cost:        call.Cost,
			CreatedAt:   time.Now(),
		}
		if err := s.repo.InsertCall(ctx, record); err != nil {
			s.log.DatabaseError("insert_call", err)
		}
	}

	return call, nil
}

// RefreshCampaignStatus pulls the campaign from the voice platform and folds
// its status and per-call outcomes into the local records. Invoked by the
// background worker once the schedule window has closed.
func (s *Service) RefreshCampaignStatus(ctx context.Context, campaignID uuid.UUID) error {
	campaign, err := s.repo.GetCampaignByID(ctx, campaignID)
	if err != nil {
		return err
	}

	remote, err := s.platform.GetCampaign(ctx, campaign.VapiCampaignID)
	if err != nil {
		return err
	}

	newStatus := deriveRefreshedStatus(remote)
	for callID, call := range remote.Calls {
		if call.Status == "" {
			continue
		}
		if err := s.repo.UpdateCallStatus(ctx, callID, call.Status); err != nil {
			s.log.DatabaseError("update_call_status", err)
		}
	}

	if newStatus != "" && newStatus != campaign.Status {
		if err := s.repo.UpdateCampaignStatus(ctx, campaignID, newStatus); err != nil {
			return err
		}
		s.bus.Publish(ctx, events.CampaignStatusRefreshed{
			BaseEvent:  events.NewBaseEvent(),
			CampaignID: campaignID,
			UserID:     campaign.UserID,
			OldStatus:  campaign.Status,
			NewStatus:  newStatus,
		})
	}

	return nil
}

// GetCampaign returns a campaign, merging in the provider's live status when
// reachable. A provider outage degrades to the locally stored status.
func (s *Service) GetCampaign(ctx context.Context, id, userID uuid.UUID) (*transport.CampaignResponse, error) {
	campaign, err := s.repo.GetCampaign(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	resp := campaign.ToResponse()
	if remote, err := s.platform.GetCampaign(ctx, campaign.VapiCampaignID); err == nil {
		if live := deriveRefreshedStatus(remote); live != "" && live != resp.Status {
			resp.Status = live
			if err := s.repo.UpdateCampaignStatus(ctx, id, live); err != nil {
				s.log.DatabaseError("update_campaign_status", err)
			}
		}
	}

	return &resp, nil
}

// ListCampaigns returns all campaigns owned by the user, local status only.
func (s *Service) ListCampaigns(ctx context.Context, userID uuid.UUID) ([]transport.CampaignResponse, error) {
	campaigns, err := s.repo.ListCampaigns(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]transport.CampaignResponse, len(campaigns))
	for i := range campaigns {
		items[i] = campaigns[i].ToResponse()
	}
	return items, nil
}

// ListCalls returns the user's locally recorded calls, optionally filtered by
// assistant. Live status and cost from the voice platform are merged in per
// call; a provider outage degrades to the locally stored records.
func (s *Service) ListCalls(ctx context.Context, userID uuid.UUID, assistantID string) ([]transport.CallResponse, error) {
	calls, err := s.repo.ListCalls(ctx, userID, assistantID)
	if err != nil {
		return nil, err
	}

	items := make([]transport.CallResponse, len(calls))
	for i := range calls {
		items[i] = calls[i].ToResponse()
	}
	if len(items) == 0 {
		return items, nil
	}

	remote, err := s.platform.ListCalls(ctx, assistantID)
	if err != nil {
		s.log.Warn("live call listing unavailable, serving local records", "error", err.Error())
		return items, nil
	}

	live := make(map[string]vapi.Call, len(remote))
	for _, call := range remote {
		live[call.ID] = call
	}
	for i := range items {
		call, ok := live[items[i].CallID]
		if !ok {
			continue
		}
		if call.Status != "" {
			items[i].Status = call.Status
		}
		if call.Cost > 0 {
			items[i].Cost = call.Cost
		}
	}
	return items, nil
}

func (s *Service) scheduleRefresh(ctx context.Context, campaignID uuid.UUID, window *schedule.Window) {
	if s.refresh == nil {
		return
	}

	at := time.Now().Add(schedule.MaxWindow)
	if window != nil {
		at = window.LatestAt
	}
	if err := s.refresh.ScheduleCampaignRefresh(ctx, campaignID, at); err != nil {
		s.log.Error("failed to schedule campaign refresh", "campaign_id", campaignID.String(), "error", err.Error())
	}
}

// resolveWindow turns the schedule input into a UTC window. A prebuilt
// earliestAt wins over the wall-clock fields.
func resolveWindow(in *transport.ScheduleInput, now time.Time) (*schedule.Window, error) {
	if in == nil {
		return nil, nil
	}

	if in.EarliestAt != nil {
		w, err := schedule.FromEarliest(*in.EarliestAt, now)
		if err != nil {
			return nil, err
		}
		return &w, nil
	}

	if in.Date == "" {
		return nil, nil
	}
	w, err := schedule.ComputeWindow(in.Date, in.Hour, in.Minute, in.Meridiem, in.Timezone, now)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func schedulePlan(window *schedule.Window) *vapi.SchedulePlan {
	if window == nil {
		return nil
	}
	latest := window.LatestAt
	return &vapi.SchedulePlan{EarliestAt: window.EarliestAt, LatestAt: &latest}
}

// deriveRefreshedStatus maps a provider campaign onto the local aggregate
// status. Terminal provider states are re-derived from the call map so the
// partial_success distinction survives the refresh.
func deriveRefreshedStatus(remote *vapi.Campaign) string {
	switch remote.Status {
	case "ended", "completed":
		if len(remote.Calls) == 0 {
			return transport.StatusSuccess
		}
		failed := 0
		for _, call := range remote.Calls {
			if call.Status == "failed" {
				failed++
			}
		}
		return aggregateStatus(len(remote.Calls)-failed, failed)
	default:
		return remote.Status
	}
}

// aggregateStatus implements the campaign status truth table: success only
// with zero failures, failed only with zero successes, partial otherwise.
func aggregateStatus(called, failed int) string {
	switch {
	case failed == 0:
		return transport.StatusSuccess
	case called == 0:
		return transport.StatusFailed
	default:
		return transport.StatusPartialSuccess
	}
}

func validateTarget(assistantID, workflowID string) error {
	if assistantID == "" && workflowID == "" {
		return apperr.Validation("assistantId or workflowId is required")
	}
	if assistantID != "" && workflowID != "" {
		return apperr.Validation("assistantId and workflowId are mutually exclusive")
	}
	return nil
}

func statusOrDefault(status string) string {
	if status == "" {
		return "scheduled"
	}
	return status
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
