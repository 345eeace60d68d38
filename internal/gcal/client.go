// Package gcal is the boundary client for the calendar provider's free/busy
// and event-creation APIs. The caller supplies the access token per request;
// credential storage and expiry belong to the calendar domain module.
package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"callops_backend/platform/apperr"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
)

// BusyInterval is one committed block on the primary calendar.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Event is a calendar event reduced to the fields the core reads.
type Event struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Start   struct {
		DateTime string `json:"dateTime"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
	} `json:"end"`
}

// Client talks to the calendar provider.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// NewClient creates a calendar client.
func NewClient(cfg config.CalendarConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GetCalendarBaseURL(), "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

type freeBusyRequest struct {
	TimeMin time.Time          `json:"timeMin"`
	TimeMax time.Time          `json:"timeMax"`
	Items   []freeBusyCalendar `json:"items"`
}

type freeBusyCalendar struct {
	ID string `json:"id"`
}

type freeBusyResponse struct {
	Calendars map[string]struct {
		Busy []struct {
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
		} `json:"busy"`
	} `json:"calendars"`
}

// FreeBusy queries the primary calendar's busy intervals between timeMin and
// timeMax. Intervals are requested fresh on every call, never cached.
func (c *Client) FreeBusy(ctx context.Context, accessToken string, timeMin, timeMax time.Time) ([]BusyInterval, error) {
	req := freeBusyRequest{
		TimeMin: timeMin,
		TimeMax: timeMax,
		Items:   []freeBusyCalendar{{ID: "primary"}},
	}

	var out freeBusyResponse
	if err := c.do(ctx, accessToken, http.MethodPost, "/freeBusy", req, &out); err != nil {
		return nil, err
	}

	primary, ok := out.Calendars["primary"]
	if !ok {
		return nil, nil
	}

	busy := make([]BusyInterval, 0, len(primary.Busy))
	for _, interval := range primary.Busy {
		busy = append(busy, BusyInterval{Start: interval.Start, End: interval.End})
	}
	return busy, nil
}

type insertEventRequest struct {
	Summary string        `json:"summary"`
	Start   eventDateTime `json:"start"`
	End     eventDateTime `json:"end"`
}

type eventDateTime struct {
	DateTime string `json:"dateTime"`
}

// InsertEvent books an event on the primary calendar and returns its id.
func (c *Client) InsertEvent(ctx context.Context, accessToken, summary string, start, end time.Time) (string, error) {
	req := insertEventRequest{
		Summary: summary,
		Start:   eventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     eventDateTime{DateTime: end.Format(time.RFC3339)},
	}

	var out Event
	if err := c.do(ctx, accessToken, http.MethodPost, "/calendars/primary/events", req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// ListUpcomingEvents returns the next events on the primary calendar.
func (c *Client) ListUpcomingEvents(ctx context.Context, accessToken string, from time.Time, maxResults int) ([]Event, error) {
	path := fmt.Sprintf("/calendars/primary/events?timeMin=%s&maxResults=%d&singleEvents=true&orderBy=startTime",
		from.UTC().Format("2006-01-02T15:04:05Z"), maxResults)

	var out struct {
		Items []Event `json:"items"`
	}
	if err := c.do(ctx, accessToken, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) do(ctx context.Context, accessToken, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal calendar payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.log.UpstreamError("calendar", method+" "+path, http.StatusGatewayTimeout, err)
			return apperr.Upstream(http.StatusGatewayTimeout, "", "calendar provider request timed out")
		}
		c.log.UpstreamError("calendar", method+" "+path, 0, err)
		return apperr.Wrap(apperr.KindUpstream, "calendar provider unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read calendar response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.log.UpstreamError("calendar", method+" "+path, resp.StatusCode, errors.New(strings.TrimSpace(string(data))))
		return apperr.Upstream(resp.StatusCode, string(data), "calendar provider rejected the request")
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode calendar response: %w", err)
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
