// Package service implements the calendar availability engine: credential
// storage, free/busy checks, and meeting booking against the provider.
package service

import (
	"context"
	"time"

	"callops_backend/internal/calendar/repository"
	"callops_backend/internal/calendar/transport"
	"callops_backend/internal/gcal"
	"callops_backend/platform/apperr"
	"callops_backend/platform/logger"

	"github.com/google/uuid"
)

const providerGoogle = "google"

// Store is the persistence surface the service needs.
type Store interface {
	Upsert(ctx context.Context, account *repository.Account) error
	GetByEmail(ctx context.Context, email, provider string) (*repository.Account, error)
}

// Provider is the slice of the calendar client the service uses.
type Provider interface {
	FreeBusy(ctx context.Context, accessToken string, timeMin, timeMax time.Time) ([]gcal.BusyInterval, error)
	InsertEvent(ctx context.Context, accessToken, summary string, start, end time.Time) (string, error)
	ListUpcomingEvents(ctx context.Context, accessToken string, from time.Time, maxResults int) ([]gcal.Event, error)
}

// Service answers availability checks and books meetings.
type Service struct {
	repo     Store
	provider Provider
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new calendar service.
func New(repo Store, provider Provider, log *logger.Logger) *Service {
	return &Service{repo: repo, provider: provider, log: log, now: time.Now}
}

// SaveTokens upserts a connected account's credential. Expiry is computed
// from the provider's expires_in at save time.
func (s *Service) SaveTokens(ctx context.Context, req transport.SaveTokensRequest) error {
	now := s.now()
	tokenType := req.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return s.repo.Upsert(ctx, &repository.Account{
		ID:          uuid.New(),
		Email:       req.Email,
		Provider:    providerGoogle,
		AccessToken: req.AccessToken,
		TokenType:   tokenType,
		Expiry:      now.Add(time.Duration(req.ExpiresIn) * time.Second),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// CheckAvailability finds the earliest free 30-minute slot inside the
// candidate ranges. Busy intervals are fetched fresh from the provider on
// every call, never cached.
func (s *Service) CheckAvailability(ctx context.Context, req transport.CheckAvailabilityRequest) (*transport.AvailabilityResponse, error) {
	account, err := s.credential(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	ranges := parseRanges(req.AvailableSlots)
	if len(ranges) == 0 {
		return nil, apperr.Validation("no valid time ranges supplied")
	}

	timeMin, timeMax := boundingWindow(ranges)
	busyRaw, err := s.provider.FreeBusy(ctx, account.AccessToken, timeMin, timeMax)
	if err != nil {
		return nil, err
	}

	busy := make([]Interval, len(busyRaw))
	for i, b := range busyRaw {
		busy[i] = Interval{Start: b.Start, End: b.End}
	}

	resp := &transport.AvailabilityResponse{
		BusySlots: toSlotOutputs(busy),
	}
	if slot := FindEarliestSlot(ranges, busy, SlotDuration); slot != nil {
		resp.Available = true
		resp.Slot = &transport.SlotOutput{Start: slot.Start, End: slot.End}
	}
	return resp, nil
}

// BookMeeting creates a calendar event for a confirmed slot. The stored
// credential's expiry is re-checked immediately before the booking call.
func (s *Service) BookMeeting(ctx context.Context, req transport.BookMeetingRequest) (*transport.BookMeetingResponse, error) {
	account, err := s.credential(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, apperr.Validation("invalid startTime, expected RFC 3339")
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return nil, apperr.Validation("invalid endTime, expected RFC 3339")
	}
	if !start.Before(end) {
		return nil, apperr.Validation("startTime must be before endTime")
	}

	summary := req.Summary
	if summary == "" {
		summary = "Meeting"
	}

	eventID, err := s.provider.InsertEvent(ctx, account.AccessToken, summary, start, end)
	if err != nil {
		return nil, err
	}

	return &transport.BookMeetingResponse{Success: true, EventID: eventID}, nil
}

// ListEvents returns upcoming events for a connected account.
func (s *Service) ListEvents(ctx context.Context, email string) ([]transport.EventResponse, error) {
	account, err := s.credential(ctx, email)
	if err != nil {
		return nil, err
	}

	events, err := s.provider.ListUpcomingEvents(ctx, account.AccessToken, s.now(), 20)
	if err != nil {
		return nil, err
	}

	items := make([]transport.EventResponse, len(events))
	for i, event := range events {
		items[i] = transport.EventResponse{
			ID:      event.ID,
			Summary: event.Summary,
			Start:   event.Start.DateTime,
			End:     event.End.DateTime,
		}
	}
	return items, nil
}

// credential loads a stored credential and rejects expired ones so the
// operator is prompted to reconnect instead of seeing opaque provider 401s.
func (s *Service) credential(ctx context.Context, email string) (*repository.Account, error) {
	account, err := s.repo.GetByEmail(ctx, email, providerGoogle)
	if err != nil {
		return nil, err
	}
	if account.Expiry.Before(s.now()) {
		return nil, apperr.Unauthorized("calendar credential expired, please reconnect the account")
	}
	return account, nil
}

// parseRanges keeps candidate ranges that parse and run forward; everything
// else is dropped silently.
func parseRanges(slots []transport.SlotInput) []Interval {
	ranges := make([]Interval, 0, len(slots))
	for _, slot := range slots {
		start, err := time.Parse(time.RFC3339, slot.StartTime)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, slot.EndTime)
		if err != nil {
			continue
		}
		if !start.Before(end) {
			continue
		}
		ranges = append(ranges, Interval{Start: start.UTC(), End: end.UTC()})
	}
	return ranges
}

func boundingWindow(ranges []Interval) (time.Time, time.Time) {
	timeMin, timeMax := ranges[0].Start, ranges[0].End
	for _, r := range ranges[1:] {
		if r.Start.Before(timeMin) {
			timeMin = r.Start
		}
		if r.End.After(timeMax) {
			timeMax = r.End
		}
	}
	return timeMin, timeMax
}

func toSlotOutputs(intervals []Interval) []transport.SlotOutput {
	outputs := make([]transport.SlotOutput, len(intervals))
	for i, interval := range intervals {
		outputs[i] = transport.SlotOutput{Start: interval.Start, End: interval.End}
	}
	return outputs
}
