/*
normalize.go - Time-segment normalization

PURPOSE:
  Converts raw clock-in/clock-out punches plus break intervals into
  ordered, non-overlapping Work segments for one employee-day. This is
  the first stage of interpretation: everything downstream assumes
  segments are clean.

NORMALIZATION RULES:
  1. clock-out must be strictly after clock-in (else InvalidTimeRange)
  2. breaks must sit entirely inside [clock-in, clock-out]
  3. breaks must not overlap each other (touching edges are fine)
  4. break time is subtracted, splitting the span into Work segments
  5. a missing clock-out yields ONE open-ended segment flagged Incomplete

ZERO-LENGTH HANDLING:
  A break running edge-to-edge with the shift (e.g. a break ending exactly
  at clock-out) simply produces no trailing Work segment. Zero-length work
  slivers are dropped, not errors.

SEE ALSO:
  - types.go: AttendanceRecord, TimeSegment
  - engine.go: Prices the segments produced here
*/
package award

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Normalize converts one raw attendance record into ordered Work segments
// with breaks subtracted.
//
// A record with no clock-out returns a single segment flagged Incomplete;
// the caller decides whether to report it or wait for the punch.
func Normalize(rec AttendanceRecord) ([]TimeSegment, error) {
	if rec.ClockOut.IsZero() {
		return []TimeSegment{{
			EmployeeID: rec.EmployeeID,
			Date:       rec.Date,
			Start:      rec.ClockIn,
			Kind:       SegmentWork,
			Incomplete: true,
		}}, nil
	}

	if !rec.ClockOut.After(rec.ClockIn) {
		return nil, ErrInvalidTimeRange
	}

	breaks, err := orderedBreaks(rec)
	if err != nil {
		return nil, err
	}

	var segments []TimeSegment
	cursor := rec.ClockIn
	for _, b := range breaks {
		if b.Start.After(cursor) {
			segments = append(segments, workSegment(rec, cursor, b.Start))
		}
		cursor = b.End
	}
	if rec.ClockOut.After(cursor) {
		segments = append(segments, workSegment(rec, cursor, rec.ClockOut))
	}

	return segments, nil
}

func workSegment(rec AttendanceRecord, start, end time.Time) TimeSegment {
	return TimeSegment{
		EmployeeID: rec.EmployeeID,
		Date:       rec.Date,
		Start:      start,
		End:        end,
		Kind:       SegmentWork,
	}
}

// orderedBreaks validates and sorts the record's break intervals.
func orderedBreaks(rec AttendanceRecord) ([]BreakInterval, error) {
	if len(rec.Breaks) == 0 {
		return nil, nil
	}

	breaks := make([]BreakInterval, len(rec.Breaks))
	copy(breaks, rec.Breaks)
	sort.Slice(breaks, func(i, j int) bool { return breaks[i].Start.Before(breaks[j].Start) })

	prevEnd := rec.ClockIn
	for i, b := range breaks {
		switch {
		case !b.End.After(b.Start):
			return nil, &BreakOverlapError{RecordID: rec.ID, Start: b.Start, End: b.End, Reason: "inverted"}
		case b.Start.Before(rec.ClockIn) || b.End.After(rec.ClockOut):
			return nil, &BreakOverlapError{RecordID: rec.ID, Start: b.Start, End: b.End, Reason: "outside_shift_span"}
		case i > 0 && b.Start.Before(prevEnd):
			return nil, &BreakOverlapError{RecordID: rec.ID, Start: b.Start, End: b.End, Reason: "overlaps_previous_break"}
		}
		prevEnd = b.End
	}

	return breaks, nil
}

// WorkedHours sums the hours of complete Work segments.
// Returns ErrIncompleteAttendance if any segment is still open: incomplete
// time must be resolved, never priced as zero.
func WorkedHours(segments []TimeSegment) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, s := range segments {
		if s.Incomplete {
			return decimal.Zero, ErrIncompleteAttendance
		}
		if s.Kind != SegmentWork {
			continue
		}
		total = total.Add(s.Hours())
	}
	return total, nil
}
