// Package service implements the phone-number lifecycle across its three
// systems of record: the local database, the telephony provisioning provider,
// and the voice platform. Step order within an operation is fixed because
// each step depends on an id the previous one produced.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"callops_backend/internal/events"
	"callops_backend/internal/phones/repository"
	"callops_backend/internal/phones/transport"
	"callops_backend/internal/twilio"
	"callops_backend/internal/vapi"
	"callops_backend/platform/apperr"
	"callops_backend/platform/logger"
	"callops_backend/platform/phone"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const liveDetailConcurrency = 5

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, phone *repository.PhoneNumber) error
	GetByVapiID(ctx context.Context, userID uuid.UUID, vapiPhoneID string) (*repository.PhoneNumber, error)
	List(ctx context.Context, userID uuid.UUID) ([]repository.PhoneNumber, error)
	UpsertFallbackNumber(ctx context.Context, userID uuid.UUID, vapiPhoneID, fallbackNumber string) error
	Delete(ctx context.Context, userID uuid.UUID, vapiPhoneID string) (bool, error)
	InsertOrphan(ctx context.Context, orphan *repository.Orphan) error
	GetOrphan(ctx context.Context, id uuid.UUID) (*repository.Orphan, error)
	MarkOrphanReleased(ctx context.Context, id uuid.UUID) error
}

// Telephony is the slice of the provisioning provider client the service uses.
type Telephony interface {
	AvailableNumbers(ctx context.Context, country string) ([]twilio.AvailableNumber, error)
	IncomingNumbers(ctx context.Context) ([]twilio.IncomingNumber, error)
	ProvisionNumber(ctx context.Context, e164 string) (*twilio.IncomingNumber, error)
	ReleaseNumber(ctx context.Context, sid string) error
	AccountSID() string
	AuthToken() string
}

// VoicePlatform is the slice of the voice platform client the service uses.
type VoicePlatform interface {
	GetPhoneNumber(ctx context.Context, phoneID string) (*vapi.PhoneNumber, error)
	ImportPhoneNumber(ctx context.Context, req vapi.ImportPhoneRequest) (*vapi.PhoneNumber, error)
	UpdatePhoneNumber(ctx context.Context, phoneID string, req vapi.PhoneNumberUpdate) (*vapi.PhoneNumber, error)
	DeletePhoneNumber(ctx context.Context, phoneID string) error
}

// OrphanScheduler enqueues a deferred release of an orphaned provider number.
type OrphanScheduler interface {
	EnqueueOrphanRelease(ctx context.Context, orphanID uuid.UUID) error
}

// Service coordinates phone-number state across the three systems of record.
type Service struct {
	repo      Store
	telephony Telephony
	platform  VoicePlatform
	bus       events.Bus
	orphans   OrphanScheduler
	log       *logger.Logger

	locks keyedMutex
}

// New creates a new phones service. orphans may be nil when no background
// scheduler is wired; orphan records are still persisted for manual cleanup.
func New(repo Store, telephony Telephony, platform VoicePlatform, bus events.Bus, orphans OrphanScheduler, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		telephony: telephony,
		platform:  platform,
		bus:       bus,
		orphans:   orphans,
		log:       log,
	}
}

// Purchase leases a number, imports it into the voice platform, and records
// the linked ids locally, in that fixed order. A failure after the lease
// succeeded leaves an orphaned provider resource: it is recorded durably,
// queued for release, and surfaced on the returned error instead of being
// silently lost.
func (s *Service) Purchase(ctx context.Context, userID uuid.UUID, req transport.PurchaseRequest) (*transport.PhoneResponse, error) {
	if !phone.IsValidE164(req.Number) {
		return nil, apperr.Validation("invalid phone number")
	}
	number := phone.NormalizeE164(req.Number)

	unlock := s.locks.lock(number)
	defer unlock()

	leased, err := s.telephony.ProvisionNumber(ctx, number)
	if err != nil {
		if appErr, ok := err.(*apperr.Error); ok {
			return nil, appErr.WithOp("provision")
		}
		return nil, err
	}

	imported, err := s.platform.ImportPhoneNumber(ctx, vapi.ImportPhoneRequest{
		Provider:         "twilio",
		Number:           number,
		TwilioAccountSID: s.telephony.AccountSID(),
		TwilioAuthToken:  s.telephony.AuthToken(),
		AssistantID:      req.AssistantID,
	})
	if err != nil {
		s.recordOrphan(ctx, userID, leased.SID, number, "voice platform import failed")
		if appErr, ok := err.(*apperr.Error); ok {
			return nil, appErr.WithOp("import").WithDetails(map[string]interface{}{
				"step":        "import",
				"orphanedSid": leased.SID,
				"warning":     "number was leased but not imported; release has been queued",
			})
		}
		return nil, err
	}

	now := time.Now()
	record := &repository.PhoneNumber{
		ID:          uuid.New(),
		UserID:      userID,
		VapiPhoneID: imported.ID,
		TwilioSID:   &leased.SID,
		Number:      number,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		// Both remote systems now hold the number but ownership was never
		// recorded. The local store is the system of record, so this is fatal.
		s.log.DatabaseError("insert_phone_number", err)
		s.recordOrphan(ctx, userID, leased.SID, number, "local persist failed after import")
		return nil, apperr.Internal("failed to record phone number")
	}

	s.bus.Publish(ctx, events.PhoneNumberPurchased{
		BaseEvent:   events.NewBaseEvent(),
		UserID:      userID,
		PhoneID:     imported.ID,
		ProviderSID: leased.SID,
		Number:      number,
	})

	return s.toResponse(record, imported), nil
}

// ImportExisting registers a number already leased at the provisioning
// provider with the voice platform and records it locally.
func (s *Service) ImportExisting(ctx context.Context, userID uuid.UUID, req transport.ImportRequest) (*transport.PhoneResponse, error) {
	if !phone.IsValidE164(req.Number) {
		return nil, apperr.Validation("invalid phone number")
	}
	number := phone.NormalizeE164(req.Number)

	unlock := s.locks.lock(number)
	defer unlock()

	imported, err := s.platform.ImportPhoneNumber(ctx, vapi.ImportPhoneRequest{
		Provider:         "twilio",
		Number:           number,
		TwilioAccountSID: s.telephony.AccountSID(),
		TwilioAuthToken:  s.telephony.AuthToken(),
		AssistantID:      req.AssistantID,
	})
	if err != nil {
		if appErr, ok := err.(*apperr.Error); ok {
			return nil, appErr.WithOp("import")
		}
		return nil, err
	}

	now := time.Now()
	record := &repository.PhoneNumber{
		ID:          uuid.New(),
		UserID:      userID,
		VapiPhoneID: imported.ID,
		Number:      number,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		s.log.DatabaseError("insert_phone_number", err)
		return nil, apperr.Internal("failed to record phone number")
	}

	return s.toResponse(record, imported), nil
}

// Attach links an existing voice-platform phone resource to the operator's
// inventory without touching the provisioning provider.
func (s *Service) Attach(ctx context.Context, userID uuid.UUID, req transport.AttachRequest) (*transport.PhoneResponse, error) {
	remote, err := s.platform.GetPhoneNumber(ctx, req.PhoneID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record := &repository.PhoneNumber{
		ID:          uuid.New(),
		UserID:      userID,
		VapiPhoneID: remote.ID,
		Number:      phone.NormalizeE164(remote.Number),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		s.log.DatabaseError("insert_phone_number", err)
		return nil, apperr.Internal("failed to record phone number")
	}

	return s.toResponse(record, remote), nil
}

// Delete removes a phone from the operator's inventory. The voice-platform
// delete is attempted first; the local delete happens unconditionally so an
// upstream outage can never pin a number in the operator's list. A failed
// upstream cleanup is reported in the result, not as an error.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, vapiPhoneID string) (*transport.DeleteResult, error) {
	unlock := s.locks.lock(vapiPhoneID)
	defer unlock()

	vapiDeleted := true
	if err := s.platform.DeletePhoneNumber(ctx, vapiPhoneID); err != nil {
		vapiDeleted = false
		s.log.ReconciliationWarning(vapiPhoneID, "vapi_delete", err.Error())
	}

	deleted, err := s.repo.Delete(ctx, userID, vapiPhoneID)
	if err != nil {
		s.log.DatabaseError("delete_phone_number", err)
		return nil, apperr.Internal("failed to delete phone number")
	}
	if !deleted {
		return nil, apperr.NotFound("phone number not found")
	}

	s.bus.Publish(ctx, events.PhoneNumberDeleted{
		BaseEvent:   events.NewBaseEvent(),
		UserID:      userID,
		PhoneID:     vapiPhoneID,
		VapiDeleted: vapiDeleted,
	})

	return &transport.DeleteResult{Deleted: deleted, VapiDeleted: vapiDeleted}, nil
}

// UpdateInboundSettings pushes inbound routing changes to the voice platform
// and persists the fallback number locally only once that push succeeded.
// Ownership is checked first; a platform rejection maps to 400 with the
// provider's detail.
func (s *Service) UpdateInboundSettings(ctx context.Context, userID uuid.UUID, vapiPhoneID string, req transport.UpdateInboundRequest) error {
	if _, err := s.repo.GetByVapiID(ctx, userID, vapiPhoneID); err != nil {
		return err
	}

	if req.AssistantID == "" && req.WorkflowID == "" && req.FallbackNumber == "" {
		return apperr.BadRequest("nothing to update")
	}

	fallback := ""
	if req.FallbackNumber != "" {
		if !phone.IsValidE164(req.FallbackNumber) {
			return apperr.Validation("invalid fallback number")
		}
		fallback = phone.NormalizeE164(req.FallbackNumber)
	}

	update := vapi.PhoneNumberUpdate{
		AssistantID: req.AssistantID,
		WorkflowID:  req.WorkflowID,
	}
	if fallback != "" {
		update.FallbackDestination = &vapi.FallbackDestination{Type: "number", Number: fallback}
	}

	if _, err := s.platform.UpdatePhoneNumber(ctx, vapiPhoneID, update); err != nil {
		detail := interface{}(nil)
		if appErr, ok := err.(*apperr.Error); ok {
			detail = appErr.UpstreamBody
		}
		return apperr.BadRequest("voice platform rejected the inbound settings update").WithDetails(detail)
	}

	if fallback != "" {
		if err := s.repo.UpsertFallbackNumber(ctx, userID, vapiPhoneID, fallback); err != nil {
			s.log.DatabaseError("upsert_fallback_number", err)
			return apperr.Internal("failed to persist fallback number")
		}
	}

	return nil
}

// List returns the operator's inventory. Local rows are authoritative;
// live platform details are merged in per row with bounded fan-out, and a
// failed fetch degrades that row to status "unknown" rather than hiding it.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]transport.PhoneResponse, error) {
	records, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]transport.PhoneResponse, len(records))

	var g errgroup.Group
	g.SetLimit(liveDetailConcurrency)
	for i := range records {
		g.Go(func() error {
			record := &records[i]
			remote, err := s.platform.GetPhoneNumber(ctx, record.VapiPhoneID)
			if err != nil {
				s.log.UpstreamError("vapi", "get phone "+record.VapiPhoneID, 0, err)
				items[i] = *s.toResponse(record, nil)
				return nil
			}
			items[i] = *s.toResponse(record, remote)
			return nil
		})
	}
	_ = g.Wait()

	return items, nil
}

// Available lists numbers that can be leased in the given country.
func (s *Service) Available(ctx context.Context, country string) ([]twilio.AvailableNumber, error) {
	return s.telephony.AvailableNumbers(ctx, country)
}

// Existing lists numbers already leased on the provisioning account.
func (s *Service) Existing(ctx context.Context) ([]twilio.IncomingNumber, error) {
	return s.telephony.IncomingNumbers(ctx)
}

// ReleaseOrphan returns an orphaned provider number to the provider. Invoked
// by the background worker; retried by the task queue on failure.
func (s *Service) ReleaseOrphan(ctx context.Context, orphanID uuid.UUID) error {
	orphan, err := s.repo.GetOrphan(ctx, orphanID)
	if err != nil {
		return err
	}
	if orphan.Released {
		return nil
	}

	if err := s.telephony.ReleaseNumber(ctx, orphan.ProviderSID); err != nil {
		return fmt.Errorf("release orphaned number %s: %w", orphan.ProviderSID, err)
	}

	return s.repo.MarkOrphanReleased(ctx, orphanID)
}

func (s *Service) recordOrphan(ctx context.Context, userID uuid.UUID, providerSID, number, reason string) {
	orphan := &repository.Orphan{
		ID:          uuid.New(),
		UserID:      userID,
		ProviderSID: providerSID,
		Number:      number,
		Reason:      reason,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.InsertOrphan(ctx, orphan); err != nil {
		s.log.DatabaseError("insert_phone_orphan", err)
	}

	if s.orphans != nil {
		if err := s.orphans.EnqueueOrphanRelease(ctx, orphan.ID); err != nil {
			s.log.Error("failed to enqueue orphan release", "orphan_id", orphan.ID.String(), "error", err.Error())
		}
	}

	s.log.ReconciliationWarning(number, "purchase", reason)
	s.bus.Publish(ctx, events.ReconciliationWarning{
		BaseEvent:   events.NewBaseEvent(),
		UserID:      userID,
		Step:        "purchase",
		Number:      number,
		ProviderSID: providerSID,
		Detail:      reason,
		OccurredOn:  time.Now(),
	})
}

func (s *Service) toResponse(record *repository.PhoneNumber, remote *vapi.PhoneNumber) *transport.PhoneResponse {
	resp := &transport.PhoneResponse{
		ID:        record.ID,
		PhoneID:   record.VapiPhoneID,
		Number:    record.Number,
		Status:    "unknown",
		CreatedAt: record.CreatedAt,
	}
	if record.FallbackNumber != nil {
		resp.FallbackNumber = *record.FallbackNumber
	}
	if remote != nil {
		if remote.Status != "" {
			resp.Status = remote.Status
		}
		resp.AssistantID = remote.AssistantID
		resp.WorkflowID = remote.WorkflowID
		if remote.Number != "" {
			resp.Number = phone.NormalizeE164(remote.Number)
		}
	}
	return resp
}

// keyedMutex serializes the multi-store sequences per phone number so two
// concurrent operators cannot interleave steps on the same entity.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entityLock
}

type entityLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*entityLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &entityLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
