// Package schedule converts an operator's local wall-clock choice into the
// UTC window the voice platform accepts for deferred calls.
package schedule

import (
	"strings"
	"time"

	"callops_backend/platform/apperr"
)

// MaxWindow is the widest earliest/latest gap the voice platform accepts.
const MaxWindow = time.Hour

// Window bounds when a scheduled call may start. LatestAt is always exactly
// MaxWindow after EarliestAt.
type Window struct {
	EarliestAt time.Time
	LatestAt   time.Time
}

// ComputeWindow composes a 12-hour wall-clock input in the given IANA zone,
// converts it to UTC, and pins LatestAt one hour after EarliestAt. The zone
// database does the UTC conversion, so inputs on either side of a DST switch
// come out correct without offset arithmetic. Fails when the resulting start
// is not strictly after now.
func ComputeWindow(date string, hour12, minute int, meridiem, tz string, now time.Time) (Window, error) {
	if hour12 < 1 || hour12 > 12 {
		return Window{}, apperr.Validation("hour must be between 1 and 12")
	}
	if minute < 0 || minute > 59 {
		return Window{}, apperr.Validation("minute must be between 0 and 59")
	}

	hour24 := hour12 % 12
	switch strings.ToUpper(strings.TrimSpace(meridiem)) {
	case "AM":
	case "PM":
		hour24 += 12
	default:
		return Window{}, apperr.Validation("meridiem must be AM or PM")
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Window{}, apperr.Validation("unknown timezone: " + tz)
	}

	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), loc)
	if err != nil {
		return Window{}, apperr.Validation("invalid date, expected YYYY-MM-DD")
	}

	local := time.Date(day.Year(), day.Month(), day.Day(), hour24, minute, 0, 0, loc)
	earliest := local.UTC()
	if !earliest.After(now) {
		return Window{}, apperr.Validation("scheduled time must be in the future")
	}

	return Window{EarliestAt: earliest, LatestAt: earliest.Add(MaxWindow)}, nil
}

// FromEarliest builds a window from an already-resolved UTC start, applying
// the same future check and one-hour gap.
func FromEarliest(earliestAt, now time.Time) (Window, error) {
	earliest := earliestAt.UTC()
	if !earliest.After(now) {
		return Window{}, apperr.Validation("scheduled time must be in the future")
	}
	return Window{EarliestAt: earliest, LatestAt: earliest.Add(MaxWindow)}, nil
}
