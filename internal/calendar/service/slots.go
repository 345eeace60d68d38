package service

import "time"

// SlotDuration is the fixed length of a bookable meeting slot.
const SlotDuration = 30 * time.Minute

// Interval is a half-open-agnostic time range used for candidate ranges,
// busy blocks, and result slots alike.
type Interval struct {
	Start time.Time
	End   time.Time
}

// overlaps uses strict open-interval overlap: slots that merely touch a busy
// block at an endpoint do not conflict.
func (i Interval) overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// FindEarliestSlot tiles each candidate range into contiguous slots of the
// given duration and returns the first tile, in range order then
// chronological order, that overlaps no busy interval. A nil result means
// every tile was busy; that is an expected outcome, not an error.
func FindEarliestSlot(ranges, busy []Interval, duration time.Duration) *Interval {
	for _, r := range ranges {
		for start := r.Start; !start.Add(duration).After(r.End); start = start.Add(duration) {
			slot := Interval{Start: start, End: start.Add(duration)}
			if slotIsFree(slot, busy) {
				return &slot
			}
		}
	}
	return nil
}

func slotIsFree(slot Interval, busy []Interval) bool {
	for _, b := range busy {
		if slot.overlaps(b) {
			return false
		}
	}
	return true
}
