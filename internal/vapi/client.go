// Package vapi is the boundary client for the voice-call platform. Provider
// payloads are decoded into the typed structs in types.go here and nowhere
// else; the rest of the application never sees raw provider JSON.
package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"callops_backend/platform/apperr"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
)

// Client talks to the voice-call platform REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

// NewClient creates a platform client. Every request carries the configured
// bearer key and is bounded by the configured timeout so a hung provider call
// can never stall a campaign indefinitely.
func NewClient(cfg config.VapiConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GetVapiBaseURL(), "/"),
		apiKey:  cfg.GetVapiAPIKey(),
		http:    &http.Client{Timeout: cfg.GetVapiTimeout()},
		log:     log,
	}
}

// CreateCall places a single outbound call (or lets the platform fan out when
// Customers is set). POST /call.
func (c *Client) CreateCall(ctx context.Context, req CallRequest) (*Call, error) {
	var out Call
	if err := c.do(ctx, http.MethodPost, "/call", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCampaign submits a platform-native bulk campaign. POST /campaign.
func (c *Client) CreateCampaign(ctx context.Context, req CampaignRequest) (*Campaign, error) {
	var out Campaign
	if err := c.do(ctx, http.MethodPost, "/campaign", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCampaign fetches a campaign with its current status and call map.
func (c *Client) GetCampaign(ctx context.Context, campaignID string) (*Campaign, error) {
	var out Campaign
	if err := c.do(ctx, http.MethodGet, "/campaign/"+url.PathEscape(campaignID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCalls fetches call records for an assistant.
func (c *Client) ListCalls(ctx context.Context, assistantID string) ([]Call, error) {
	path := "/call"
	if assistantID != "" {
		path += "?assistantId=" + url.QueryEscape(assistantID)
	}
	var out []Call
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPhoneNumber fetches the platform's view of a phone resource.
func (c *Client) GetPhoneNumber(ctx context.Context, phoneID string) (*PhoneNumber, error) {
	var out PhoneNumber
	if err := c.do(ctx, http.MethodGet, "/phone-number/"+url.PathEscape(phoneID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportPhoneNumber registers an already-provisioned number with the platform.
func (c *Client) ImportPhoneNumber(ctx context.Context, req ImportPhoneRequest) (*PhoneNumber, error) {
	var out PhoneNumber
	if err := c.do(ctx, http.MethodPost, "/phone-number", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePhoneNumber patches inbound routing settings on a phone resource.
func (c *Client) UpdatePhoneNumber(ctx context.Context, phoneID string, req PhoneNumberUpdate) (*PhoneNumber, error) {
	var out PhoneNumber
	if err := c.do(ctx, http.MethodPatch, "/phone-number/"+url.PathEscape(phoneID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePhoneNumber removes a phone resource from the platform.
func (c *Client) DeletePhoneNumber(ctx context.Context, phoneID string) error {
	return c.do(ctx, http.MethodDelete, "/phone-number/"+url.PathEscape(phoneID), nil, nil)
}

// do performs one request. Non-2xx responses become apperr.Upstream with the
// provider's status and body verbatim; timeouts map to 504 so a hung provider
// is distinguishable from a rejection.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal vapi payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.log.UpstreamError("vapi", method+" "+path, http.StatusGatewayTimeout, err)
			return apperr.Upstream(http.StatusGatewayTimeout, "", "voice platform request timed out")
		}
		c.log.UpstreamError("vapi", method+" "+path, 0, err)
		return apperr.Wrap(apperr.KindUpstream, "voice platform unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read vapi response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.log.UpstreamError("vapi", method+" "+path, resp.StatusCode, errors.New(strings.TrimSpace(string(data))))
		return apperr.Upstream(resp.StatusCode, string(data), "voice platform rejected the request")
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode vapi response: %w", err)
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
