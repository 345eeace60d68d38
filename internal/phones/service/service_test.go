package service

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"callops_backend/internal/phones/repository"
	"callops_backend/internal/phones/transport"
	"callops_backend/internal/twilio"
	"callops_backend/internal/vapi"
	"callops_backend/platform/apperr"
	"callops_backend/platform/events"
	"callops_backend/platform/logger"

	"github.com/google/uuid"
)

type stubStore struct {
	mu      sync.Mutex
	rows    map[string]*repository.PhoneNumber
	orphans []*repository.Orphan

	insertErr error
}

func newStubStore() *stubStore {
	return &stubStore{rows: make(map[string]*repository.PhoneNumber)}
}

func (s *stubStore) Insert(_ context.Context, p *repository.PhoneNumber) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.rows[p.VapiPhoneID] = p
	return nil
}

func (s *stubStore) GetByVapiID(_ context.Context, _ uuid.UUID, vapiPhoneID string) (*repository.PhoneNumber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[vapiPhoneID]
	if !ok {
		return nil, apperr.NotFound("phone number not found")
	}
	return row, nil
}

func (s *stubStore) List(context.Context, uuid.UUID) ([]repository.PhoneNumber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []repository.PhoneNumber
	for _, row := range s.rows {
		items = append(items, *row)
	}
	return items, nil
}

func (s *stubStore) UpsertFallbackNumber(_ context.Context, _ uuid.UUID, vapiPhoneID, fallback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[vapiPhoneID]
	if !ok {
		return apperr.NotFound("phone number not found")
	}
	row.FallbackNumber = &fallback
	return nil
}

func (s *stubStore) Delete(_ context.Context, _ uuid.UUID, vapiPhoneID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[vapiPhoneID]; !ok {
		return false, nil
	}
	delete(s.rows, vapiPhoneID)
	return true, nil
}

func (s *stubStore) InsertOrphan(_ context.Context, orphan *repository.Orphan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orphans = append(s.orphans, orphan)
	return nil
}

func (s *stubStore) GetOrphan(_ context.Context, id uuid.UUID) (*repository.Orphan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, orphan := range s.orphans {
		if orphan.ID == id {
			return orphan, nil
		}
	}
	return nil, apperr.NotFound("orphan record not found")
}

func (s *stubStore) MarkOrphanReleased(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, orphan := range s.orphans {
		if orphan.ID == id {
			orphan.Released = true
		}
	}
	return nil
}

type stubTelephony struct {
	provisionErr error
	released     []string
	releaseErr   error
}

func (t *stubTelephony) AvailableNumbers(context.Context, string) ([]twilio.AvailableNumber, error) {
	return nil, nil
}
func (t *stubTelephony) IncomingNumbers(context.Context) ([]twilio.IncomingNumber, error) {
	return nil, nil
}
func (t *stubTelephony) ProvisionNumber(_ context.Context, e164 string) (*twilio.IncomingNumber, error) {
	if t.provisionErr != nil {
		return nil, t.provisionErr
	}
	return &twilio.IncomingNumber{SID: "PN123", PhoneNumber: e164}, nil
}
func (t *stubTelephony) ReleaseNumber(_ context.Context, sid string) error {
	if t.releaseErr != nil {
		return t.releaseErr
	}
	t.released = append(t.released, sid)
	return nil
}
func (t *stubTelephony) AccountSID() string { return "AC123" }
func (t *stubTelephony) AuthToken() string  { return "token" }

type stubPlatform struct {
	importErr error
	updateErr error
	deleteErr error
	getErr    error
	getResult *vapi.PhoneNumber
}

func (p *stubPlatform) GetPhoneNumber(_ context.Context, phoneID string) (*vapi.PhoneNumber, error) {
	if p.getErr != nil {
		return nil, p.getErr
	}
	if p.getResult != nil {
		return p.getResult, nil
	}
	return &vapi.PhoneNumber{ID: phoneID, Status: "active"}, nil
}

func (p *stubPlatform) ImportPhoneNumber(_ context.Context, req vapi.ImportPhoneRequest) (*vapi.PhoneNumber, error) {
	if p.importErr != nil {
		return nil, p.importErr
	}
	return &vapi.PhoneNumber{ID: "vapi-1", Number: req.Number, Status: "active"}, nil
}

func (p *stubPlatform) UpdatePhoneNumber(_ context.Context, phoneID string, _ vapi.PhoneNumberUpdate) (*vapi.PhoneNumber, error) {
	if p.updateErr != nil {
		return nil, p.updateErr
	}
	return &vapi.PhoneNumber{ID: phoneID}, nil
}

func (p *stubPlatform) DeletePhoneNumber(context.Context, string) error { return p.deleteErr }

func newTestService(store *stubStore, telephony *stubTelephony, platform *stubPlatform) *Service {
	log := logger.New("development")
	return New(store, telephony, platform, events.NewInMemoryBus(log), nil, log)
}

func seedPhone(store *stubStore, userID uuid.UUID, vapiPhoneID string) {
	store.rows[vapiPhoneID] = &repository.PhoneNumber{
		ID:          uuid.New(),
		UserID:      userID,
		VapiPhoneID: vapiPhoneID,
		Number:      "+15551234567",
	}
}

func TestPurchaseLinksAllThreeSystems(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, &stubTelephony{}, &stubPlatform{})

	resp, err := svc.Purchase(context.Background(), uuid.New(), transport.PurchaseRequest{Number: "+15551234567"})
	if err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}

	row, ok := store.rows[resp.PhoneID]
	if !ok {
		t.Fatal("no local row persisted")
	}
	if row.TwilioSID == nil || *row.TwilioSID != "PN123" {
		t.Fatalf("local row missing provider SID: %+v", row)
	}
	if row.Number != "+15551234567" {
		t.Fatalf("local row number = %q", row.Number)
	}
}

func TestPurchaseImportFailureRecordsOrphan(t *testing.T) {
	store := newStubStore()
	platform := &stubPlatform{
		importErr: apperr.Upstream(http.StatusForbidden, `{"message":"billing"}`, "voice platform rejected the request"),
	}
	svc := newTestService(store, &stubTelephony{}, platform)

	_, err := svc.Purchase(context.Background(), uuid.New(), transport.PurchaseRequest{Number: "+15551234567"})
	if err == nil {
		t.Fatal("expected import error")
	}

	appErr, ok := err.(*apperr.Error)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	if appErr.Op != "import" {
		t.Fatalf("error op = %q, want import", appErr.Op)
	}
	detail, ok := appErr.Details.(map[string]interface{})
	if !ok || detail["orphanedSid"] != "PN123" {
		t.Fatalf("error detail does not surface the orphaned SID: %#v", appErr.Details)
	}

	if len(store.orphans) != 1 {
		t.Fatalf("expected 1 orphan record, got %d", len(store.orphans))
	}
	if store.orphans[0].ProviderSID != "PN123" {
		t.Fatalf("orphan SID = %q", store.orphans[0].ProviderSID)
	}
	if len(store.rows) != 0 {
		t.Fatal("no local phone row should exist after a failed import")
	}
}

func TestPurchaseRejectsInvalidNumber(t *testing.T) {
	svc := newTestService(newStubStore(), &stubTelephony{}, &stubPlatform{})

	if _, err := svc.Purchase(context.Background(), uuid.New(), transport.PurchaseRequest{Number: "not-a-number"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDeleteSurvivesUpstreamFailure(t *testing.T) {
	userID := uuid.New()
	store := newStubStore()
	seedPhone(store, userID, "vapi-1")
	platform := &stubPlatform{
		deleteErr: apperr.Upstream(http.StatusBadGateway, "", "voice platform rejected the request"),
	}
	svc := newTestService(store, &stubTelephony{}, platform)

	result, err := svc.Delete(context.Background(), userID, "vapi-1")
	if err != nil {
		t.Fatalf("Delete() error = %v, want partial success, not an error", err)
	}
	if !result.Deleted || result.VapiDeleted {
		t.Fatalf("result = %+v, want {Deleted:true VapiDeleted:false}", result)
	}
	if _, ok := store.rows["vapi-1"]; ok {
		t.Fatal("local row still present after delete")
	}
}

func TestDeleteBothSystems(t *testing.T) {
	userID := uuid.New()
	store := newStubStore()
	seedPhone(store, userID, "vapi-1")
	svc := newTestService(store, &stubTelephony{}, &stubPlatform{})

	result, err := svc.Delete(context.Background(), userID, "vapi-1")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !result.Deleted || !result.VapiDeleted {
		t.Fatalf("result = %+v, want both true", result)
	}
}

func TestDeleteUnknownPhone(t *testing.T) {
	svc := newTestService(newStubStore(), &stubTelephony{}, &stubPlatform{})

	_, err := svc.Delete(context.Background(), uuid.New(), "vapi-missing")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateInboundSettings(t *testing.T) {
	userID := uuid.New()

	t.Run("unknown phone", func(t *testing.T) {
		svc := newTestService(newStubStore(), &stubTelephony{}, &stubPlatform{})
		err := svc.UpdateInboundSettings(context.Background(), userID, "vapi-1", transport.UpdateInboundRequest{AssistantID: "a"})
		if !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("nothing to update", func(t *testing.T) {
		store := newStubStore()
		seedPhone(store, userID, "vapi-1")
		svc := newTestService(store, &stubTelephony{}, &stubPlatform{})
		err := svc.UpdateInboundSettings(context.Background(), userID, "vapi-1", transport.UpdateInboundRequest{})
		if !apperr.Is(err, apperr.KindBadRequest) {
			t.Fatalf("expected bad request, got %v", err)
		}
	})

	t.Run("platform rejection maps to 400", func(t *testing.T) {
		store := newStubStore()
		seedPhone(store, userID, "vapi-1")
		platform := &stubPlatform{
			updateErr: apperr.Upstream(http.StatusUnprocessableEntity, `{"message":"bad assistant"}`, "voice platform rejected the request"),
		}
		svc := newTestService(store, &stubTelephony{}, platform)
		err := svc.UpdateInboundSettings(context.Background(), userID, "vapi-1", transport.UpdateInboundRequest{AssistantID: "a"})
		if !apperr.Is(err, apperr.KindBadRequest) {
			t.Fatalf("expected bad request, got %v", err)
		}
		if store.rows["vapi-1"].FallbackNumber != nil {
			t.Fatal("fallback must not persist when the platform push failed")
		}
	})

	t.Run("fallback persisted after successful push", func(t *testing.T) {
		store := newStubStore()
		seedPhone(store, userID, "vapi-1")
		svc := newTestService(store, &stubTelephony{}, &stubPlatform{})
		err := svc.UpdateInboundSettings(context.Background(), userID, "vapi-1", transport.UpdateInboundRequest{FallbackNumber: "+15557654321"})
		if err != nil {
			t.Fatalf("UpdateInboundSettings() error = %v", err)
		}
		row := store.rows["vapi-1"]
		if row.FallbackNumber == nil || *row.FallbackNumber != "+15557654321" {
			t.Fatalf("fallback not persisted: %+v", row)
		}
	})
}

func TestListDegradesToUnknownStatus(t *testing.T) {
	userID := uuid.New()
	store := newStubStore()
	seedPhone(store, userID, "vapi-1")
	platform := &stubPlatform{
		getErr: apperr.Upstream(http.StatusServiceUnavailable, "", "voice platform rejected the request"),
	}
	svc := newTestService(store, &stubTelephony{}, platform)

	items, err := svc.List(context.Background(), userID)
	if err != nil {
		t.Fatalf("List() error = %v, upstream outage must not hide inventory", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Status != "unknown" {
		t.Fatalf("status = %q, want unknown", items[0].Status)
	}
}

func TestReleaseOrphan(t *testing.T) {
	store := newStubStore()
	telephony := &stubTelephony{}
	svc := newTestService(store, telephony, &stubPlatform{})

	orphan := &repository.Orphan{ID: uuid.New(), ProviderSID: "PN999", Number: "+15551234567"}
	if err := store.InsertOrphan(context.Background(), orphan); err != nil {
		t.Fatalf("InsertOrphan() error = %v", err)
	}

	if err := svc.ReleaseOrphan(context.Background(), orphan.ID); err != nil {
		t.Fatalf("ReleaseOrphan() error = %v", err)
	}
	if len(telephony.released) != 1 || telephony.released[0] != "PN999" {
		t.Fatalf("provider release not called: %v", telephony.released)
	}
	if !store.orphans[0].Released {
		t.Fatal("orphan not marked released")
	}

	// Already released: must not call the provider again.
	if err := svc.ReleaseOrphan(context.Background(), orphan.ID); err != nil {
		t.Fatalf("ReleaseOrphan() second call error = %v", err)
	}
	if len(telephony.released) != 1 {
		t.Fatalf("release called %d times, want 1", len(telephony.released))
	}
}
