package resource

import (
	"errors"
	"testing"
	"time"

	"github.com/aristath/ccpm/internal/ccpmerrors"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAllocateWithinCapacity(t *testing.T) {
	r := NewRegistry()
	r.Register("dev", 2, nil, false)

	day := date(2025, time.April, 7)
	if err := r.Allocate("dev", day, 1, "T1"); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if err := r.Allocate("dev", day, 1, "T2"); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if got := r.Utilization("dev", day); got != 2 {
		t.Errorf("Utilization() = %v, want 2", got)
	}
}

func TestAllocateOverCapacityFails(t *testing.T) {
	r := NewRegistry()
	r.Register("dev", 1, nil, false)

	day := date(2025, time.April, 7)
	if err := r.Allocate("dev", day, 1, "T1"); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	err := r.Allocate("dev", day, 1, "T2")
	var overErr *ccpmerrors.ResourceOverallocationError
	if !errors.As(err, &overErr) {
		t.Fatalf("expected ResourceOverallocationError, got %v", err)
	}
	if overErr.Requested != 1 || overErr.Available != 0 {
		t.Errorf("unexpected error fields: %+v", overErr)
	}
}

func TestAllocateOverCapacityAllowed(t *testing.T) {
	r := NewRegistry()
	r.Register("dev", 1, nil, true)

	day := date(2025, time.April, 7)
	r.Allocate("dev", day, 1, "T1")
	if err := r.Allocate("dev", day, 1, "T2"); err != nil {
		t.Errorf("expected overallocation to be permitted, got %v", err)
	}
	if !r.IsOverallocated() {
		t.Errorf("expected IsOverallocated() to report true")
	}
}

func TestAllocateOverCapacityAllowedRecordsViolation(t *testing.T) {
	r := NewRegistry()
	r.Register("dev", 1, nil, true)

	day := date(2025, time.April, 7)
	r.Allocate("dev", day, 1, "T1")
	r.Allocate("dev", day, 1, "T2")

	violations, err := r.Violations("dev")
	if err != nil {
		t.Fatalf("Violations() error = %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("got %d violations, want 1: %+v", len(violations), violations)
	}
	if violations[0].Requested != 1 || violations[0].Available != 0 {
		t.Errorf("unexpected violation fields: %+v", violations[0])
	}

	noneAllocated, err := r.Violations("ghost")
	var unknown *ccpmerrors.UnknownResourceName
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownResourceName for unregistered resource, got %v", err)
	}
	if noneAllocated != nil {
		t.Errorf("expected nil violations alongside error, got %v", noneAllocated)
	}
}

func TestDeallocateRemovesEntry(t *testing.T) {
	r := NewRegistry()
	r.Register("dev", 1, nil, false)

	day := date(2025, time.April, 7)
	r.Allocate("dev", day, 1, "T1")
	r.Deallocate("dev", day, "T1")

	if got := r.Utilization("dev", day); got != 0 {
		t.Errorf("Utilization() after deallocate = %v, want 0", got)
	}
}

func TestAllocateSpanRollsBackOnFailure(t *testing.T) {
	r := NewRegistry()
	r.Register("dev", 1, nil, false)

	// Pre-allocate the third working day so the span collides.
	start := date(2025, time.April, 7) // Monday
	blocked := start.AddDate(0, 0, 2)  // Wednesday
	r.Allocate("dev", blocked, 1, "OTHER")

	err := r.AllocateSpan("dev", start, 3, 1, "T1")
	var overErr *ccpmerrors.ResourceOverallocationError
	if !errors.As(err, &overErr) {
		t.Fatalf("expected ResourceOverallocationError, got %v", err)
	}

	// Monday and Tuesday must have been rolled back.
	if got := r.Utilization("dev", start); got != 0 {
		t.Errorf("expected rollback of day 0, Utilization() = %v", got)
	}
	if got := r.Utilization("dev", start.AddDate(0, 0, 1)); got != 0 {
		t.Errorf("expected rollback of day 1, Utilization() = %v", got)
	}
	// The pre-existing allocation on the blocking day is untouched.
	if got := r.Utilization("dev", blocked); got != 1 {
		t.Errorf("expected pre-existing allocation to survive, Utilization() = %v", got)
	}
}

func TestAllocateSpanSkipsWeekends(t *testing.T) {
	r := NewRegistry()
	r.Register("dev", 1, nil, false)

	start := date(2025, time.April, 7) // Monday
	if err := r.AllocateSpan("dev", start, 5, 1, "T1"); err != nil {
		t.Fatalf("AllocateSpan() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		d := start.AddDate(0, 0, i)
		if got := r.Utilization("dev", d); got != 1 {
			t.Errorf("Utilization(%s) = %v, want 1", d, got)
		}
	}
	saturday := start.AddDate(0, 0, 5)
	if got := r.Utilization("dev", saturday); got != 0 {
		t.Errorf("expected weekend to receive no allocation, got %v", got)
	}
}

func TestUnknownResourceName(t *testing.T) {
	r := NewRegistry()
	err := r.Allocate("ghost", date(2025, time.April, 7), 1, "T1")

	var unknown *ccpmerrors.UnknownResourceName
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownResourceName, got %v", err)
	}
}
