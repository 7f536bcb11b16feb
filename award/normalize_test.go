package award_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rpgramesh/stellaris-hrm-sub003/award"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(yearDay int) time.Time {
	return time.Date(2025, time.March, yearDay, 0, 0, 0, 0, time.UTC)
}

func at(d time.Time, hour, minute int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, time.UTC)
}

func record(id string, d time.Time, inH, inM, outH, outM int, breaks ...award.BreakInterval) award.AttendanceRecord {
	return award.AttendanceRecord{
		ID:         id,
		EmployeeID: "emp-1",
		Date:       d,
		ClockIn:    at(d, inH, inM),
		ClockOut:   at(d, outH, outM),
		Breaks:     breaks,
	}
}

// =============================================================================
// NORMALIZATION TESTS
// =============================================================================

func TestNormalize_NoBreaks_SingleSegment(t *testing.T) {
	// GIVEN: A 9-to-5 punch with no breaks
	// WHEN: Normalizing
	// THEN: One Work segment spanning the whole shift

	segments, err := award.Normalize(record("r1", day(10), 9, 0, 17, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if got := segments[0].Hours(); !got.Equal(dec("8")) {
		t.Errorf("expected 8 hours, got %v", got)
	}
}

func TestNormalize_BreakSplitsShift(t *testing.T) {
	// GIVEN: 09:00-17:00 with a 12:00-12:30 lunch break
	// WHEN: Normalizing
	// THEN: Two Work segments totalling 7.5 hours

	d := day(10)
	rec := record("r1", d, 9, 0, 17, 0,
		award.BreakInterval{Start: at(d, 12, 0), End: at(d, 12, 30)})

	segments, err := award.Normalize(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}

	total, err := award.WorkedHours(segments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.Equal(dec("7.5")) {
		t.Errorf("expected 7.5 worked hours, got %v", total)
	}
}

func TestNormalize_UnsortedBreaks_AreOrdered(t *testing.T) {
	// GIVEN: Two breaks supplied out of order
	// WHEN: Normalizing
	// THEN: Segments come out ordered and disjoint

	d := day(11)
	rec := record("r1", d, 8, 0, 18, 0,
		award.BreakInterval{Start: at(d, 15, 0), End: at(d, 15, 15)},
		award.BreakInterval{Start: at(d, 12, 0), End: at(d, 12, 45)})

	segments, err := award.Normalize(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	for i := 1; i < len(segments); i++ {
		if segments[i].Start.Before(segments[i-1].End) {
			t.Errorf("segments %d and %d overlap", i-1, i)
		}
	}
}

func TestNormalize_ClockOutBeforeClockIn_Rejected(t *testing.T) {
	// GIVEN: clock-out at 08:00, clock-in at 17:00
	// WHEN: Normalizing
	// THEN: InvalidTimeRange

	_, err := award.Normalize(record("r1", day(10), 17, 0, 8, 0))
	if !errors.Is(err, award.ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
}

func TestNormalize_ZeroDurationShift_Rejected(t *testing.T) {
	// clockOut == clockIn is invalid, not a zero-hour day
	_, err := award.Normalize(record("r1", day(10), 9, 0, 9, 0))
	if !errors.Is(err, award.ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
}

func TestNormalize_OverlappingBreaks_Rejected(t *testing.T) {
	// GIVEN: Two breaks that overlap each other
	// WHEN: Normalizing
	// THEN: OverlappingBreak with details

	d := day(10)
	rec := record("r1", d, 9, 0, 17, 0,
		award.BreakInterval{Start: at(d, 12, 0), End: at(d, 13, 0)},
		award.BreakInterval{Start: at(d, 12, 30), End: at(d, 13, 30)})

	_, err := award.Normalize(rec)
	if !errors.Is(err, award.ErrOverlappingBreak) {
		t.Fatalf("expected ErrOverlappingBreak, got %v", err)
	}

	var detail *award.BreakOverlapError
	if !errors.As(err, &detail) {
		t.Fatalf("expected BreakOverlapError, got %T", err)
	}
	if detail.Reason != "overlaps_previous_break" {
		t.Errorf("unexpected reason %q", detail.Reason)
	}
}

func TestNormalize_BreakOutsideSpan_Rejected(t *testing.T) {
	// A break before clock-in is invalid even though it doesn't overlap work
	d := day(10)
	rec := record("r1", d, 9, 0, 17, 0,
		award.BreakInterval{Start: at(d, 8, 0), End: at(d, 8, 30)})

	_, err := award.Normalize(rec)
	if !errors.Is(err, award.ErrOverlappingBreak) {
		t.Fatalf("expected ErrOverlappingBreak, got %v", err)
	}
}

func TestNormalize_TouchingBreaks_Allowed(t *testing.T) {
	// Breaks that share an edge do not overlap
	d := day(10)
	rec := record("r1", d, 9, 0, 17, 0,
		award.BreakInterval{Start: at(d, 12, 0), End: at(d, 12, 30)},
		award.BreakInterval{Start: at(d, 12, 30), End: at(d, 13, 0)})

	segments, err := award.Normalize(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total, _ := award.WorkedHours(segments)
	if !total.Equal(dec("7")) {
		t.Errorf("expected 7 worked hours, got %v", total)
	}
}

func TestNormalize_MissingClockOut_IncompleteSegment(t *testing.T) {
	// GIVEN: An open shift (no clock-out yet)
	// WHEN: Normalizing, then summing worked hours
	// THEN: One Incomplete segment; WorkedHours refuses to price it

	rec := award.AttendanceRecord{
		ID:         "r-open",
		EmployeeID: "emp-1",
		Date:       day(10),
		ClockIn:    at(day(10), 9, 0),
	}

	segments, err := award.Normalize(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 || !segments[0].Incomplete {
		t.Fatalf("expected single incomplete segment, got %+v", segments)
	}

	_, err = award.WorkedHours(segments)
	if !errors.Is(err, award.ErrIncompleteAttendance) {
		t.Fatalf("expected ErrIncompleteAttendance, got %v", err)
	}
}
