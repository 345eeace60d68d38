package service

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"callops_backend/internal/campaigns/leadset"
	"callops_backend/internal/campaigns/repository"
	"callops_backend/internal/campaigns/transport"
	"callops_backend/internal/vapi"
	"callops_backend/platform/apperr"
	"callops_backend/platform/events"
	"callops_backend/platform/logger"

	"github.com/google/uuid"
)

type stubStore struct {
	mu         sync.Mutex
	calls      []*repository.Call
	listResult []repository.Call
}

func (s *stubStore) InsertCall(_ context.Context, call *repository.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return nil
}

func (s *stubStore) ListCalls(context.Context, uuid.UUID, string) ([]repository.Call, error) {
	return s.listResult, nil
}
func (s *stubStore) UpdateCallStatus(context.Context, string, string) error     { return nil }
func (s *stubStore) InsertCampaign(context.Context, *repository.Campaign) error { return nil }
func (s *stubStore) GetCampaign(context.Context, uuid.UUID, uuid.UUID) (*repository.Campaign, error) {
	return nil, apperr.NotFound("campaign not found")
}
func (s *stubStore) GetCampaignByID(context.Context, uuid.UUID) (*repository.Campaign, error) {
	return nil, apperr.NotFound("campaign not found")
}
func (s *stubStore) ListCampaigns(context.Context, uuid.UUID) ([]repository.Campaign, error) {
	return nil, nil
}
func (s *stubStore) UpdateCampaignStatus(context.Context, uuid.UUID, string) error { return nil }

type stubPlatform struct {
	createCall func(ctx context.Context, req vapi.CallRequest) (*vapi.Call, error)
	listCalls  func(ctx context.Context, assistantID string) ([]vapi.Call, error)
}

func (p *stubPlatform) CreateCall(ctx context.Context, req vapi.CallRequest) (*vapi.Call, error) {
	return p.createCall(ctx, req)
}
func (p *stubPlatform) CreateCampaign(context.Context, vapi.CampaignRequest) (*vapi.Campaign, error) {
	return nil, apperr.Internal("not implemented")
}
func (p *stubPlatform) GetCampaign(context.Context, string) (*vapi.Campaign, error) {
	return nil, apperr.Internal("not implemented")
}
func (p *stubPlatform) ListCalls(ctx context.Context, assistantID string) ([]vapi.Call, error) {
	if p.listCalls == nil {
		return nil, nil
	}
	return p.listCalls(ctx, assistantID)
}

type dispatchCfg struct {
	concurrency    int
	callsPerMinute int
}

func (c dispatchCfg) GetDispatchConcurrency() int    { return c.concurrency }
func (c dispatchCfg) GetDispatchCallsPerMinute() int { return c.callsPerMinute }

func newTestService(store *stubStore, platform *stubPlatform) *Service {
	log := logger.New("development")
	return New(
		store,
		platform,
		events.NewInMemoryBus(log),
		nil,
		dispatchCfg{concurrency: 3, callsPerMinute: 60000},
		log,
	)
}

func leadsFor(t *testing.T, rows []leadset.RawRow) []leadset.Lead {
	t.Helper()
	leads, err := leadset.Build(rows)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return leads
}

func TestDispatchLeadsAggregateStatus(t *testing.T) {
	tests := []struct {
		name       string
		failFor    map[string]bool
		wantStatus string
		wantCalled int
		wantFailed int
	}{
		{
			name:       "all succeed",
			failFor:    map[string]bool{},
			wantStatus: transport.StatusSuccess,
			wantCalled: 3, wantFailed: 0,
		},
		{
			name:       "all fail",
			failFor:    map[string]bool{"+15550000001": true, "+15550000002": true, "+15550000003": true},
			wantStatus: transport.StatusFailed,
			wantCalled: 0, wantFailed: 3,
		},
		{
			name:       "mixed outcomes",
			failFor:    map[string]bool{"+15550000002": true},
			wantStatus: transport.StatusPartialSuccess,
			wantCalled: 2, wantFailed: 1,
		},
	}

	leads := []leadset.Lead{
		{Name: "A", PhoneE164: "+15550000001"},
		{Name: "B", PhoneE164: "+15550000002"},
		{Name: "C", PhoneE164: "+15550000003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{}
			platform := &stubPlatform{
				createCall: func(_ context.Context, req vapi.CallRequest) (*vapi.Call, error) {
					if tt.failFor[req.Customer.Number] {
						return nil, apperr.Upstream(http.StatusBadRequest, `{"message":"rejected"}`, "voice platform rejected the request")
					}
					return &vapi.Call{ID: "call-" + req.Customer.Number, Status: "queued"}, nil
				},
			}

			summary, err := newTestService(store, platform).DispatchLeads(context.Background(), uuid.New(), DispatchInput{
				AssistantID:   "asst-1",
				PhoneNumberID: "phone-1",
				Leads:         leads,
			})
			if err != nil {
				t.Fatalf("DispatchLeads() error = %v", err)
			}

			if summary.Status != tt.wantStatus {
				t.Fatalf("Status = %q, want %q", summary.Status, tt.wantStatus)
			}
			if summary.Called != tt.wantCalled || summary.Failed != tt.wantFailed {
				t.Fatalf("Called/Failed = %d/%d, want %d/%d", summary.Called, summary.Failed, tt.wantCalled, tt.wantFailed)
			}
			if summary.Called+summary.Failed != len(leads) {
				t.Fatalf("called+failed = %d, want %d", summary.Called+summary.Failed, len(leads))
			}
			if len(summary.Results) != len(leads) {
				t.Fatalf("len(Results) = %d, want %d", len(summary.Results), len(leads))
			}
		})
	}
}

func TestDispatchLeadsPreservesOrder(t *testing.T) {
	leads := []leadset.Lead{
		{Name: "A", PhoneE164: "+15550000001"},
		{Name: "B", PhoneE164: "+15550000002"},
		{Name: "C", PhoneE164: "+15550000003"},
		{Name: "D", PhoneE164: "+15550000004"},
	}

	store := &stubStore{}
	platform := &stubPlatform{
		createCall: func(_ context.Context, req vapi.CallRequest) (*vapi.Call, error) {
			return &vapi.Call{ID: "call-" + req.Customer.Number}, nil
		},
	}

	summary, err := newTestService(store, platform).DispatchLeads(context.Background(), uuid.New(), DispatchInput{
		AssistantID:   "asst-1",
		PhoneNumberID: "phone-1",
		Leads:         leads,
	})
	if err != nil {
		t.Fatalf("DispatchLeads() error = %v", err)
	}

	for i, lead := range leads {
		if summary.Results[i].Phone != lead.PhoneE164 {
			t.Fatalf("Results[%d].Phone = %q, want %q", i, summary.Results[i].Phone, lead.PhoneE164)
		}
	}
}

func TestDispatchLeadsPersistsEachSuccess(t *testing.T) {
	leads := []leadset.Lead{
		{Name: "A", PhoneE164: "+15550000001"},
		{Name: "B", PhoneE164: "+15550000002"},
	}

	store := &stubStore{}
	platform := &stubPlatform{
		createCall: func(_ context.Context, req vapi.CallRequest) (*vapi.Call, error) {
			if req.Customer.Number == "+15550000002" {
				return nil, apperr.Upstream(http.StatusPaymentRequired, "", "voice platform rejected the request")
			}
			return &vapi.Call{ID: "call-1", Status: "queued", Cost: 0.12}, nil
		},
	}

	_, err := newTestService(store, platform).DispatchLeads(context.Background(), uuid.New(), DispatchInput{
		AssistantID:   "asst-1",
		PhoneNumberID: "phone-1",
		Leads:         leads,
	})
	if err != nil {
		t.Fatalf("DispatchLeads() error = %v", err)
	}

	if len(store.calls) != 1 {
		t.Fatalf("persisted %d calls, want 1 (successes only)", len(store.calls))
	}
	if store.calls[0].CallID != "call-1" {
		t.Fatalf("persisted call id = %q, want call-1", store.calls[0].CallID)
	}
}

// One invalid lead dropped at build time, one provider rejection at dispatch
// time: the run reports partial_success over the two leads that survived.
func TestDispatchPartialSuccessScenario(t *testing.T) {
	leads := leadsFor(t, []leadset.RawRow{
		{Name: "Ana", Phone: "+15551234567", Email: "a@x.com"},
		{Name: "Bo", Phone: "bad-phone", Email: "b@x.com"},
		{Name: "Cy", Phone: "+15557654321", Email: "c@x.com"},
	})
	if len(leads) != 2 {
		t.Fatalf("expected 2 leads after build, got %d", len(leads))
	}

	store := &stubStore{}
	platform := &stubPlatform{
		createCall: func(_ context.Context, req vapi.CallRequest) (*vapi.Call, error) {
			if req.Customer.Number == "+15557654321" {
				return nil, apperr.Upstream(http.StatusBadRequest, `{"message":"number unreachable"}`, "voice platform rejected the request")
			}
			return &vapi.Call{ID: "call-ana", Status: "queued"}, nil
		},
	}

	summary, err := newTestService(store, platform).DispatchLeads(context.Background(), uuid.New(), DispatchInput{
		AssistantID:   "asst-1",
		PhoneNumberID: "phone-1",
		Leads:         leads,
	})
	if err != nil {
		t.Fatalf("DispatchLeads() error = %v", err)
	}

	if summary.Status != transport.StatusPartialSuccess {
		t.Fatalf("Status = %q, want partial_success", summary.Status)
	}
	if summary.TotalLeads != 2 || summary.Called != 1 || summary.Failed != 1 {
		t.Fatalf("TotalLeads/Called/Failed = %d/%d/%d, want 2/1/1", summary.TotalLeads, summary.Called, summary.Failed)
	}

	detail, ok := summary.Results[1].Error.(map[string]interface{})
	if !ok {
		t.Fatalf("failed result carries no structured error: %#v", summary.Results[1].Error)
	}
	if detail["status"] != http.StatusBadRequest {
		t.Fatalf("error status = %v, want 400", detail["status"])
	}
}

func TestDispatchLeadsValidation(t *testing.T) {
	svc := newTestService(&stubStore{}, &stubPlatform{})

	if _, err := svc.DispatchLeads(context.Background(), uuid.New(), DispatchInput{PhoneNumberID: "p"}); err == nil {
		t.Fatal("expected error when neither assistant nor workflow is set")
	}
	if _, err := svc.DispatchLeads(context.Background(), uuid.New(), DispatchInput{
		AssistantID: "a", WorkflowID: "w", PhoneNumberID: "p",
		Leads: []leadset.Lead{{PhoneE164: "+15550000001"}},
	}); err == nil {
		t.Fatal("expected error when assistant and workflow are both set")
	}
	if _, err := svc.DispatchLeads(context.Background(), uuid.New(), DispatchInput{
		AssistantID: "a", PhoneNumberID: "p",
	}); err == nil {
		t.Fatal("expected error for empty lead set")
	}
}

func TestListCallsMergesLiveStatus(t *testing.T) {
	userID := uuid.New()
	store := &stubStore{
		listResult: []repository.Call{
			{ID: uuid.New(), UserID: userID, CallID: "c1", Status: "queued"},
			{ID: uuid.New(), UserID: userID, CallID: "c2", Status: "queued"},
		},
	}
	platform := &stubPlatform{
		listCalls: func(_ context.Context, assistantID string) ([]vapi.Call, error) {
			if assistantID != "asst-1" {
				t.Fatalf("assistant filter = %q, want asst-1", assistantID)
			}
			return []vapi.Call{
				{ID: "c1", Status: "ended", Cost: 0.42},
				{ID: "unrelated", Status: "ended"},
			}, nil
		},
	}

	items, err := newTestService(store, platform).ListCalls(context.Background(), userID, "asst-1")
	if err != nil {
		t.Fatalf("ListCalls() error = %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].Status != "ended" || items[0].Cost != 0.42 {
		t.Fatalf("items[0] = %q/%v, want ended/0.42", items[0].Status, items[0].Cost)
	}
	if items[1].Status != "queued" {
		t.Fatalf("items[1].Status = %q, want queued (no live record)", items[1].Status)
	}
}

func TestListCallsDegradesWhenProviderUnavailable(t *testing.T) {
	userID := uuid.New()
	store := &stubStore{
		listResult: []repository.Call{
			{ID: uuid.New(), UserID: userID, CallID: "c1", Status: "queued", Cost: 0.1},
		},
	}
	platform := &stubPlatform{
		listCalls: func(context.Context, string) ([]vapi.Call, error) {
			return nil, apperr.Upstream(http.StatusServiceUnavailable, "", "voice platform rejected the request")
		},
	}

	items, err := newTestService(store, platform).ListCalls(context.Background(), userID, "")
	if err != nil {
		t.Fatalf("ListCalls() error = %v, want local records on provider outage", err)
	}
	if len(items) != 1 || items[0].Status != "queued" || items[0].Cost != 0.1 {
		t.Fatalf("local record altered on provider outage: %+v", items)
	}
}

func TestDeriveRefreshedStatus(t *testing.T) {
	tests := []struct {
		name   string
		remote vapi.Campaign
		want   string
	}{
		{
			name:   "in progress passes through",
			remote: vapi.Campaign{Status: "in-progress"},
			want:   "in-progress",
		},
		{
			name: "ended with no failures",
			remote: vapi.Campaign{Status: "ended", Calls: map[string]vapi.CampaignCall{
				"c1": {Status: "ended"}, "c2": {Status: "ended"},
			}},
			want: transport.StatusSuccess,
		},
		{
			name: "ended with all failures",
			remote: vapi.Campaign{Status: "ended", Calls: map[string]vapi.CampaignCall{
				"c1": {Status: "failed"}, "c2": {Status: "failed"},
			}},
			want: transport.StatusFailed,
		},
		{
			name: "ended with mixed outcomes",
			remote: vapi.Campaign{Status: "completed", Calls: map[string]vapi.CampaignCall{
				"c1": {Status: "ended"}, "c2": {Status: "failed"},
			}},
			want: transport.StatusPartialSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveRefreshedStatus(&tt.remote); got != tt.want {
				t.Fatalf("deriveRefreshedStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}
