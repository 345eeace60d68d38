package twilio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"callops_backend/platform/apperr"
	"callops_backend/platform/logger"
)

type testCfg struct{ baseURL string }

func (c testCfg) GetTwilioBaseURL() string    { return c.baseURL }
func (c testCfg) GetTwilioAccountSID() string { return "AC123" }
func (c testCfg) GetTwilioAuthToken() string  { return "token" }

func newTestClient(baseURL string) *Client {
	return NewClient(testCfg{baseURL: baseURL}, logger.New("development"))
}

func TestProvisionNumberPassesProviderErrorThrough(t *testing.T) {
	const providerBody = `{"code":21422,"message":"phone number is unavailable"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, token, ok := r.BasicAuth()
		if !ok || sid != "AC123" || token != "token" {
			t.Errorf("basic auth = %q/%q/%v, want AC123/token", sid, token, ok)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(providerBody))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ProvisionNumber(context.Background(), "+15551234567")

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("error = %v, want *apperr.Error", err)
	}
	if appErr.Kind != apperr.KindUpstream {
		t.Fatalf("Kind = %v, want KindUpstream", appErr.Kind)
	}
	if appErr.UpstreamStatus != http.StatusBadRequest {
		t.Fatalf("UpstreamStatus = %d, want 400", appErr.UpstreamStatus)
	}
	if appErr.UpstreamBody != providerBody {
		t.Fatalf("UpstreamBody = %q, want provider body verbatim", appErr.UpstreamBody)
	}
}

func TestProvisionNumberTimeoutMapsToGatewayTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv.URL).ProvisionNumber(ctx, "+15551234567")

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("error = %v, want *apperr.Error", err)
	}
	if appErr.UpstreamStatus != http.StatusGatewayTimeout {
		t.Fatalf("UpstreamStatus = %d, want 504", appErr.UpstreamStatus)
	}
}

func TestProvisionNumberRejectsMissingSID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"phone_number":"+15551234567"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ProvisionNumber(context.Background(), "+15551234567")

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("error = %v, want *apperr.Error", err)
	}
	if appErr.UpstreamStatus != http.StatusBadGateway {
		t.Fatalf("UpstreamStatus = %d, want 502 for a response without a resource id", appErr.UpstreamStatus)
	}
}

func TestProvisionNumberDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if got := r.PostFormValue("PhoneNumber"); got != "+15551234567" {
			t.Errorf("PhoneNumber = %q, want +15551234567", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sid":"PN999","phone_number":"+15551234567"}`))
	}))
	defer srv.Close()

	number, err := newTestClient(srv.URL).ProvisionNumber(context.Background(), "+15551234567")
	if err != nil {
		t.Fatalf("ProvisionNumber() error = %v", err)
	}
	if number.SID != "PN999" || number.PhoneNumber != "+15551234567" {
		t.Fatalf("number = %+v", number)
	}
}
