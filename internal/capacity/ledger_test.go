package capacity

import (
	"errors"
	"testing"
	"time"

	"github.com/solnyshko/kidsbooking/internal/model"
)

func mustTime(t *testing.T, hour, min int) time.Time {
	t.Helper()
	return time.Date(2026, time.September, 7, hour, min, 0, 0, time.UTC)
}

func openSlot(id int64, hour, capacity, available int) *model.Slot {
	h := hour
	return &model.Slot{
		ID:        id,
		Kind:      model.KindDaycare,
		Date:      time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC),
		StartTime: time.Date(2026, time.September, 7, hour, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, time.September, 7, hour+1, 0, 0, 0, time.UTC),
		Hour:      &h,
		Capacity:  capacity,
		Available: available,
		Status:    model.SlotStatusOpen,
	}
}

func TestHourKeys_TwoHourWindow(t *testing.T) {
	keys, err := HourKeys(mustTime(t, 9, 0), mustTime(t, 11, 0))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
	if keys[0].Hour != 9 || keys[1].Hour != 10 {
		t.Fatalf("expected hours [9 10], got %v", keys)
	}
}

func TestHourKeys_PartialLastHourIncluded(t *testing.T) {
	keys, err := HourKeys(mustTime(t, 9, 0), mustTime(t, 10, 30))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected partial hour to be covered, got %d keys", len(keys))
	}
}

func TestHourKeys_InvalidWindow(t *testing.T) {
	if _, err := HourKeys(mustTime(t, 11, 0), mustTime(t, 9, 0)); !errors.Is(err, model.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	if _, err := HourKeys(mustTime(t, 9, 0), mustTime(t, 9, 0)); !errors.Is(err, model.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow for empty window, got %v", err)
	}
}

func TestHourlyKey_ComparableByValue(t *testing.T) {
	a := NewHourlyKey(mustTime(t, 9, 15))
	b := NewHourlyKey(mustTime(t, 9, 45))
	if a != b {
		t.Fatalf("keys within the same hour must be equal: %v vs %v", a, b)
	}
	if a.Start().Hour() != 9 {
		t.Fatalf("expected key start at hour 9, got %v", a.Start())
	}
}

func TestBuildPlan_OK(t *testing.T) {
	slots := []*model.Slot{openSlot(1, 9, 10, 10), openSlot(2, 10, 10, 4)}

	plan, err := BuildPlan(slots, 2, 2)
	if err != nil {
		t.Fatalf("expected plan, got %v", err)
	}
	if plan.Units != 2 {
		t.Fatalf("expected units 2, got %d", plan.Units)
	}
	ids := plan.SlotIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("expected slot ids [1 2], got %v", ids)
	}
}

func TestBuildPlan_MissingHourIsIncompleteCoverage(t *testing.T) {
	slots := []*model.Slot{openSlot(1, 9, 10, 10)}

	_, err := BuildPlan(slots, 2, 1)
	if !errors.Is(err, model.ErrIncompleteCoverage) {
		t.Fatalf("expected ErrIncompleteCoverage, got %v", err)
	}
}

func TestBuildPlan_ClosedSlotIsIncompleteCoverage(t *testing.T) {
	closed := openSlot(2, 10, 10, 10)
	closed.Status = model.SlotStatusClosed
	slots := []*model.Slot{openSlot(1, 9, 10, 10), closed}

	_, err := BuildPlan(slots, 2, 1)
	if !errors.Is(err, model.ErrIncompleteCoverage) {
		t.Fatalf("expected ErrIncompleteCoverage, got %v", err)
	}
}

func TestBuildPlan_InsufficientCapacity(t *testing.T) {
	// Час 9 свободен на 1 место, час 10 занят полностью.
	slots := []*model.Slot{openSlot(1, 9, 10, 1), openSlot(2, 10, 10, 0)}

	_, err := BuildPlan(slots, 2, 1)
	if !errors.Is(err, model.ErrInsufficientCapacity) {
		t.Fatalf("expected ErrInsufficientCapacity, got %v", err)
	}
}

func TestBuildPlan_RejectsZeroUnits(t *testing.T) {
	slots := []*model.Slot{openSlot(1, 9, 10, 10)}

	if _, err := BuildPlan(slots, 1, 0); !errors.Is(err, model.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow for zero units, got %v", err)
	}
}

func TestCheckAdjust(t *testing.T) {
	s := openSlot(1, 9, 5, 3)

	if err := CheckAdjust(s, 0); err != nil {
		t.Fatalf("expected 0 to be valid, got %v", err)
	}
	if err := CheckAdjust(s, 5); err != nil {
		t.Fatalf("expected capacity to be valid, got %v", err)
	}

	var inv *model.InvariantError
	if err := CheckAdjust(s, -1); !errors.As(err, &inv) {
		t.Fatalf("expected InvariantError for negative available, got %v", err)
	}
	if err := CheckAdjust(s, 6); !errors.As(err, &inv) {
		t.Fatalf("expected InvariantError for over-capacity, got %v", err)
	}
}
