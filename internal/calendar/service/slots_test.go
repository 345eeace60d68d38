package service

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 6, 15, hour, minute, 0, 0, time.UTC)
}

func TestFindEarliestSlotSkipsLeadingBusyBlock(t *testing.T) {
	ranges := []Interval{{Start: at(10, 0), End: at(11, 0)}}
	busy := []Interval{{Start: at(10, 0), End: at(10, 30)}}

	slot := FindEarliestSlot(ranges, busy, SlotDuration)
	if slot == nil {
		t.Fatal("expected a slot")
	}
	if !slot.Start.Equal(at(10, 30)) || !slot.End.Equal(at(11, 0)) {
		t.Fatalf("slot = %v-%v, want 10:30-11:00", slot.Start, slot.End)
	}
}

func TestFindEarliestSlotFullyBusyReturnsNil(t *testing.T) {
	ranges := []Interval{{Start: at(10, 0), End: at(11, 0)}}
	busy := []Interval{{Start: at(9, 0), End: at(12, 0)}}

	if slot := FindEarliestSlot(ranges, busy, SlotDuration); slot != nil {
		t.Fatalf("expected no slot, got %v-%v", slot.Start, slot.End)
	}
}

func TestFindEarliestSlotNoBusyIntervals(t *testing.T) {
	ranges := []Interval{{Start: at(9, 0), End: at(10, 0)}}

	slot := FindEarliestSlot(ranges, nil, SlotDuration)
	if slot == nil {
		t.Fatal("expected a slot")
	}
	if !slot.Start.Equal(at(9, 0)) {
		t.Fatalf("slot starts at %v, want 09:00", slot.Start)
	}
}

func TestFindEarliestSlotTouchingEndpointsDoNotConflict(t *testing.T) {
	// Busy block ends exactly when the candidate range starts.
	ranges := []Interval{{Start: at(10, 0), End: at(10, 30)}}
	busy := []Interval{{Start: at(9, 0), End: at(10, 0)}, {Start: at(10, 30), End: at(11, 0)}}

	slot := FindEarliestSlot(ranges, busy, SlotDuration)
	if slot == nil {
		t.Fatal("expected the 10:00-10:30 slot, endpoints only touch")
	}
}

func TestFindEarliestSlotHonorsRangeOrder(t *testing.T) {
	// The second range is earlier in the day but listed second; range order
	// wins over chronology.
	ranges := []Interval{
		{Start: at(14, 0), End: at(15, 0)},
		{Start: at(9, 0), End: at(10, 0)},
	}

	slot := FindEarliestSlot(ranges, nil, SlotDuration)
	if slot == nil {
		t.Fatal("expected a slot")
	}
	if !slot.Start.Equal(at(14, 0)) {
		t.Fatalf("slot starts at %v, want 14:00 from the first range", slot.Start)
	}
}

func TestFindEarliestSlotNeverOverlapsBusy(t *testing.T) {
	ranges := []Interval{{Start: at(8, 0), End: at(18, 0)}}
	busy := []Interval{
		{Start: at(8, 0), End: at(9, 15)},
		{Start: at(9, 45), End: at(12, 0)},
		{Start: at(12, 15), End: at(13, 0)},
	}

	slot := FindEarliestSlot(ranges, busy, SlotDuration)
	if slot == nil {
		t.Fatal("expected a slot, free space exists after 13:00")
	}
	for _, b := range busy {
		if slot.overlaps(b) {
			t.Fatalf("returned slot %v-%v overlaps busy %v-%v", slot.Start, slot.End, b.Start, b.End)
		}
	}
	if !slot.Start.Equal(at(13, 0)) {
		t.Fatalf("slot starts at %v, want 13:00", slot.Start)
	}
}

func TestFindEarliestSlotRangeShorterThanDuration(t *testing.T) {
	ranges := []Interval{{Start: at(10, 0), End: at(10, 15)}}

	if slot := FindEarliestSlot(ranges, nil, SlotDuration); slot != nil {
		t.Fatalf("expected no slot in a 15m range, got %v-%v", slot.Start, slot.End)
	}
}
