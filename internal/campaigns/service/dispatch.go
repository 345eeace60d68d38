package service

import (
	"context"
	"time"

	"callops_backend/internal/campaigns/leadset"
	"callops_backend/internal/campaigns/repository"
	"callops_backend/internal/campaigns/transport"
	"callops_backend/internal/events"
	"callops_backend/internal/vapi"
	"callops_backend/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DispatchInput is a client-side fan-out request: the service places one call
// per lead instead of handing the whole list to the platform.
type DispatchInput struct {
	AssistantID   string
	WorkflowID    string
	PhoneNumberID string
	Leads         []leadset.Lead
	Schedule      *transport.ScheduleInput
}

// DispatchLeads places one call per lead through a bounded worker pool. A
// shared rate limiter paces requests under the platform's per-minute ceiling.
// Per-lead failures never abort the run: every lead gets exactly one result,
// results keep the input order, and each successful call is persisted the
// moment it is placed so a crash mid-run leaves a usable partial record.
func (s *Service) DispatchLeads(ctx context.Context, userID uuid.UUID, in DispatchInput) (*transport.DispatchSummary, error) {
	if err := validateTarget(in.AssistantID, in.WorkflowID); err != nil {
		return nil, err
	}
	if len(in.Leads) == 0 {
		return nil, apperr.Validation("lead set is empty")
	}

	window, err := resolveWindow(in.Schedule, time.Now())
	if err != nil {
		return nil, err
	}

	concurrency := s.cfg.GetDispatchConcurrency()
	if concurrency < 1 {
		concurrency = 1
	}
	callsPerMinute := s.cfg.GetDispatchCallsPerMinute()
	if callsPerMinute < 1 {
		callsPerMinute = 1
	}
	limiter := rate.NewLimiter(rate.Limit(float64(callsPerMinute)/60.0), 1)

	plan := schedulePlan(window)
	results := make([]transport.DispatchResult, len(in.Leads))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, lead := range in.Leads {
		g.Go(func() error {
			results[i] = s.dispatchOne(ctx, userID, in, lead, plan, limiter)
			return nil
		})
	}
	_ = g.Wait()

	called, failed := 0, 0
	for _, result := range results {
		if result.Outcome == transport.OutcomeCalled {
			called++
		} else {
			failed++
		}
	}

	summary := &transport.DispatchSummary{
		Status:     aggregateStatus(called, failed),
		TotalLeads: len(in.Leads),
		Called:     called,
		Failed:     failed,
		Results:    results,
	}

	s.bus.Publish(ctx, events.CampaignDispatched{
		BaseEvent:  events.NewBaseEvent(),
		UserID:     userID,
		TotalLeads: summary.TotalLeads,
		Called:     called,
		Failed:     failed,
		Status:     summary.Status,
	})

	return summary, nil
}

func (s *Service) dispatchOne(ctx context.Context, userID uuid.UUID, in DispatchInput, lead leadset.Lead, plan *vapi.SchedulePlan, limiter *rate.Limiter) transport.DispatchResult {
	result := transport.DispatchResult{Name: lead.Name, Phone: lead.PhoneE164}

	if err := limiter.Wait(ctx); err != nil {
		result.Outcome = transport.OutcomeFailed
		result.Error = "dispatch cancelled before this lead was reached"
		return result
	}

	call, err := s.platform.CreateCall(ctx, vapi.CallRequest{
		AssistantID:   in.AssistantID,
		WorkflowID:    in.WorkflowID,
		PhoneNumberID: in.PhoneNumberID,
		Customer:      &vapi.Customer{Number: lead.PhoneE164, Name: lead.Name},
		SchedulePlan:  plan,
	})
	if err != nil {
		result.Outcome = transport.OutcomeFailed
		result.Error = upstreamErrorDetail(err)
		return result
	}

	result.Outcome = transport.OutcomeCalled
	result.CallID = call.ID
	result.Cost = call.Cost

	record := &repository.Call{
		ID:          uuid.New(),
		UserID:      userID,
		AssistantID: optional(in.AssistantID),
		CallID:      call.ID,
		Name:        optional(lead.Name),
		Phone:       optional(lead.PhoneE164),
		Email:       optional(lead.Email),
		Status:      statusOrDefault(call.Status),
		Cost:        call.Cost,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.InsertCall(ctx, record); err != nil {
		// The provider call already happened; losing the local record is a
		// logging matter, not grounds to report the lead as failed.
		s.log.DatabaseError("insert_dispatched_call", err)
	}

	return result
}

// upstreamErrorDetail shapes a dispatch failure so the operator sees the
// provider's own status and diagnostic body for that lead.
func upstreamErrorDetail(err error) interface{} {
	if ue, ok := err.(*apperr.Error); ok && ue.Kind == apperr.KindUpstream {
		detail := map[string]interface{}{
			"status":  ue.UpstreamStatus,
			"message": ue.Message,
		}
		if ue.UpstreamBody != "" {
			detail["body"] = ue.UpstreamBody
		}
		return detail
	}
	return err.Error()
}
