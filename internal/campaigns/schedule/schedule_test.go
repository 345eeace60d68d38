package schedule

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestComputeWindowConvertsToUTC(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		hour     int
		minute   int
		meridiem string
		tz       string
		want     time.Time
	}{
		{
			name: "eastern standard time", date: "2026-01-15", hour: 2, minute: 30, meridiem: "PM",
			tz:   "America/New_York",
			want: time.Date(2026, 1, 15, 19, 30, 0, 0, time.UTC),
		},
		{
			name: "eastern daylight time", date: "2026-06-15", hour: 2, minute: 30, meridiem: "PM",
			tz:   "America/New_York",
			want: time.Date(2026, 6, 15, 18, 30, 0, 0, time.UTC),
		},
		{
			name: "midnight is 12 AM", date: "2026-03-01", hour: 12, minute: 0, meridiem: "AM",
			tz:   "UTC",
			want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "noon is 12 PM", date: "2026-03-01", hour: 12, minute: 0, meridiem: "PM",
			tz:   "UTC",
			want: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "lowercase meridiem accepted", date: "2026-03-01", hour: 9, minute: 15, meridiem: "am",
			tz:   "Europe/Amsterdam",
			want: time.Date(2026, 3, 1, 8, 15, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ComputeWindow(tt.date, tt.hour, tt.minute, tt.meridiem, tt.tz, testNow)
			if err != nil {
				t.Fatalf("ComputeWindow() error = %v", err)
			}
			if !w.EarliestAt.Equal(tt.want) {
				t.Fatalf("EarliestAt = %v, want %v", w.EarliestAt, tt.want)
			}
		})
	}
}

func TestComputeWindowGapIsExactlyOneHour(t *testing.T) {
	w, err := ComputeWindow("2026-06-15", 9, 0, "AM", "America/Chicago", testNow)
	if err != nil {
		t.Fatalf("ComputeWindow() error = %v", err)
	}
	if got := w.LatestAt.Sub(w.EarliestAt); got != time.Hour {
		t.Fatalf("window gap = %v, want exactly 1h", got)
	}
}

func TestComputeWindowRejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		hour     int
		minute   int
		meridiem string
		tz       string
	}{
		{name: "past time", date: "2020-01-01", hour: 9, minute: 0, meridiem: "AM", tz: "UTC"},
		{name: "hour zero", date: "2026-06-15", hour: 0, minute: 0, meridiem: "AM", tz: "UTC"},
		{name: "hour thirteen", date: "2026-06-15", hour: 13, minute: 0, meridiem: "AM", tz: "UTC"},
		{name: "minute sixty", date: "2026-06-15", hour: 9, minute: 60, meridiem: "AM", tz: "UTC"},
		{name: "bad meridiem", date: "2026-06-15", hour: 9, minute: 0, meridiem: "XM", tz: "UTC"},
		{name: "bad timezone", date: "2026-06-15", hour: 9, minute: 0, meridiem: "AM", tz: "Mars/Olympus"},
		{name: "bad date", date: "15-06-2026", hour: 9, minute: 0, meridiem: "AM", tz: "UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ComputeWindow(tt.date, tt.hour, tt.minute, tt.meridiem, tt.tz, testNow); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestFromEarliest(t *testing.T) {
	earliest := testNow.Add(48 * time.Hour)

	w, err := FromEarliest(earliest, testNow)
	if err != nil {
		t.Fatalf("FromEarliest() error = %v", err)
	}
	if !w.LatestAt.Equal(earliest.Add(time.Hour)) {
		t.Fatalf("LatestAt = %v, want %v", w.LatestAt, earliest.Add(time.Hour))
	}

	if _, err := FromEarliest(testNow, testNow); err == nil {
		t.Fatal("expected error for start not strictly in the future")
	}
}
