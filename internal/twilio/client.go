// Package twilio is the boundary client for the telephony provisioning
// provider. It speaks the provider's form-encoded REST API and translates
// responses into the core's own types at this boundary.
package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"callops_backend/platform/apperr"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
)

// AvailableNumber is a number that can be leased.
type AvailableNumber struct {
	PhoneNumber  string `json:"phone_number"`
	FriendlyName string `json:"friendly_name"`
	Region       string `json:"region,omitempty"`
	ISOCountry   string `json:"iso_country,omitempty"`
}

// IncomingNumber is a number already leased on the account.
type IncomingNumber struct {
	SID          string `json:"sid"`
	PhoneNumber  string `json:"phone_number"`
	FriendlyName string `json:"friendly_name"`
	Status       string `json:"status,omitempty"`
}

// Client talks to the telephony provider's account-scoped API.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	http       *http.Client
	log        *logger.Logger
}

// NewClient creates a provisioning client.
func NewClient(cfg config.TwilioConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.GetTwilioBaseURL(), "/"),
		accountSID: cfg.GetTwilioAccountSID(),
		authToken:  cfg.GetTwilioAuthToken(),
		http:       &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

// AccountSID returns the configured account identifier. The voice platform
// needs it to import numbers leased on this account.
func (c *Client) AccountSID() string { return c.accountSID }

// AuthToken returns the account auth token for the same import flow.
func (c *Client) AuthToken() string { return c.authToken }

// AvailableNumbers lists local numbers available for lease in a country.
func (c *Client) AvailableNumbers(ctx context.Context, country string) ([]AvailableNumber, error) {
	if country == "" {
		country = "US"
	}

	var out struct {
		AvailablePhoneNumbers []AvailableNumber `json:"available_phone_numbers"`
	}
	path := fmt.Sprintf("/2010-04-01/Accounts/%s/AvailablePhoneNumbers/%s/Local.json", c.accountSID, url.PathEscape(country))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.AvailablePhoneNumbers, nil
}

// IncomingNumbers lists numbers already leased on the account.
func (c *Client) IncomingNumbers(ctx context.Context) ([]IncomingNumber, error) {
	var out struct {
		IncomingPhoneNumbers []IncomingNumber `json:"incoming_phone_numbers"`
	}
	path := fmt.Sprintf("/2010-04-01/Accounts/%s/IncomingPhoneNumbers.json", c.accountSID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.IncomingPhoneNumbers, nil
}

// ProvisionNumber leases an E.164 number on the account and returns the
// provider's record, including the SID later steps depend on.
func (c *Client) ProvisionNumber(ctx context.Context, e164 string) (*IncomingNumber, error) {
	form := url.Values{}
	form.Set("PhoneNumber", e164)

	var out IncomingNumber
	path := fmt.Sprintf("/2010-04-01/Accounts/%s/IncomingPhoneNumbers.json", c.accountSID)
	if err := c.do(ctx, http.MethodPost, path, form, &out); err != nil {
		return nil, err
	}
	if out.SID == "" {
		return nil, apperr.Upstream(http.StatusBadGateway, "", "provisioning provider returned no resource id")
	}
	return &out, nil
}

// ReleaseNumber returns a leased number to the provider. Used to clean up
// orphans left behind when the voice-platform import step fails.
func (c *Client) ReleaseNumber(ctx context.Context, sid string) error {
	path := fmt.Sprintf("/2010-04-01/Accounts/%s/IncomingPhoneNumbers/%s.json", c.accountSID, url.PathEscape(sid))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.log.UpstreamError("twilio", method+" "+path, http.StatusGatewayTimeout, err)
			return apperr.Upstream(http.StatusGatewayTimeout, "", "provisioning provider request timed out")
		}
		c.log.UpstreamError("twilio", method+" "+path, 0, err)
		return apperr.Wrap(apperr.KindUpstream, "provisioning provider unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read twilio response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.log.UpstreamError("twilio", method+" "+path, resp.StatusCode, errors.New(strings.TrimSpace(string(data))))
		return apperr.Upstream(resp.StatusCode, string(data), "provisioning provider rejected the request")
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode twilio response: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
