/*
engine.go - Award interpretation: pricing normalized segments

PURPOSE:
  Applies a resolved award rule to one employee-day's normalized Work
  segments and emits priced pay components: ordinary hours up to the
  overtime threshold, overtime beyond it, shift-loading for hours inside
  the rule's shift window, and flat allowances.

PRICING MODEL:
  ordinary  = min(worked, threshold remaining)   at base rate
  overtime  = worked - ordinary                  at base x (1 + penalty%)
  loading   = hours inside the shift window      per the rule's LoadingMode
  allowance = flat per worked day                never scaled by hours

  The ordinary/overtime split is chronological: the hours that push the
  day (or week) past the threshold are the LATER hours. This matters for
  multiplicative loading, where an overtime hour inside the shift window
  loads on top of the penalty rate.

WEEKLY OVERTIME:
  For rules measured per week, the caller supplies the hours already
  worked earlier in the same week (PriorWeekHours). InterpretBatch does
  this bookkeeping automatically.

EDGE CASES:
  - zero worked hours        -> empty component list, not an error
  - threshold of zero        -> every worked hour is overtime (valid)
  - base rate <= 0           -> InvalidRateConfiguration
  - incomplete segment       -> IncompleteAttendance, never zero-priced

BATCH SEMANTICS:
  InterpretBatch isolates per-record failures: one bad record yields a
  RecordError and the rest of the run proceeds (partial results plus an
  error list, the way payroll batches are expected to degrade).

SEE ALSO:
  - normalize.go: Produces the segments priced here
  - rules.go: Rule resolution and the LoadingMode conventions
*/
package award

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// SINGLE-DAY INTERPRETATION
// =============================================================================

// DayInput is everything needed to price one employee-day.
type DayInput struct {
	RecordID   string
	Segments   []TimeSegment
	Rule       Rule
	HourlyRate decimal.Decimal

	// PriorWeekHours is the total worked hours credited earlier in the
	// same week. Only consulted when the rule measures overtime per week.
	PriorWeekHours decimal.Decimal
}

// Interpret prices one employee-day. The returned components are ordered:
// ordinary, overtime, loading, allowances.
func Interpret(in DayInput) (DayResult, error) {
	if !in.HourlyRate.IsPositive() {
		return DayResult{}, ErrInvalidRateConfiguration
	}

	result := DayResult{RecordID: in.RecordID}
	work := make([]TimeSegment, 0, len(in.Segments))
	for _, s := range in.Segments {
		if s.Incomplete {
			return DayResult{}, ErrIncompleteAttendance
		}
		if s.Kind == SegmentWork {
			work = append(work, s)
		}
	}
	if len(work) > 0 {
		result.EmployeeID = work[0].EmployeeID
		result.Date = work[0].Date
	}
	sort.Slice(work, func(i, j int) bool { return work[i].Start.Before(work[j].Start) })

	// Threshold remaining for this day. Weekly rules spend the threshold
	// across the week; daily rules reset it every day.
	remaining := in.Rule.OvertimeThreshold
	if in.Rule.OvertimePeriod == OvertimePerWeek {
		remaining = remaining.Sub(in.PriorWeekHours)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
	}

	split := splitSegments(work, remaining, in.Rule.ShiftWindow)
	if split.worked.IsZero() {
		return result, nil
	}

	base := in.HourlyRate
	otRate := base.Mul(decimal.NewFromInt(1).Add(in.Rule.PenaltyRatePct.Div(hundred))).Round(4)

	if split.ordinary.IsPositive() {
		result.Components = append(result.Components,
			NewComponent(CodeOrdinary, "Ordinary hours", split.ordinary, base))
	}
	if split.overtime.IsPositive() {
		result.Components = append(result.Components,
			NewComponent(CodeOvertime, "Overtime", split.overtime, otRate))
	}

	result.Components = append(result.Components,
		loadingComponents(in.Rule, split, base, otRate)...)

	for _, a := range in.Rule.Allowances {
		result.Components = append(result.Components,
			NewComponent(CodeAllowance, a.Type+" allowance", decimal.NewFromInt(1), a.Amount))
	}

	return result, nil
}

// daySplit carries the hour buckets for one day.
type daySplit struct {
	worked    decimal.Decimal
	ordinary  decimal.Decimal
	overtime  decimal.Decimal
	loadedOrd decimal.Decimal // loaded hours priced as ordinary
	loadedOT  decimal.Decimal // loaded hours priced as overtime
}

// splitSegments walks the day's segments chronologically, spending the
// remaining ordinary threshold and measuring shift-window overlap on
// each side of the ordinary/overtime boundary.
func splitSegments(work []TimeSegment, remaining decimal.Decimal, window *ShiftWindow) daySplit {
	split := daySplit{
		worked:    decimal.Zero,
		ordinary:  decimal.Zero,
		overtime:  decimal.Zero,
		loadedOrd: decimal.Zero,
		loadedOT:  decimal.Zero,
	}

	for _, s := range work {
		hours := s.Hours()
		if hours.IsZero() {
			continue
		}
		split.worked = split.worked.Add(hours)

		ord := decimal.Min(hours, remaining)
		if ord.IsNegative() {
			ord = decimal.Zero
		}
		ot := hours.Sub(ord)
		remaining = remaining.Sub(ord)

		split.ordinary = split.ordinary.Add(ord)
		split.overtime = split.overtime.Add(ot)

		if window != nil {
			// The threshold boundary falls ord hours into the segment,
			// rounded to the nearest minute. Truncating instead would
			// shift up to 59 seconds of loaded time across the boundary
			// whenever the threshold is not a whole number of minutes.
			boundary := s.Start.Add(time.Duration(ord.Mul(decimal.NewFromInt(60)).Round(0).IntPart()) * time.Minute)
			split.loadedOrd = split.loadedOrd.Add(windowOverlap(s.Start, boundary, s.Date, *window))
			split.loadedOT = split.loadedOT.Add(windowOverlap(boundary, s.End, s.Date, *window))
		}
	}

	return split
}

// loadingComponents emits the shift-loading components for the day.
//
// Additive: every loaded hour earns base x loading% on top of whatever
// the hour itself priced at, so a single component covers all loaded
// hours. Multiplicative: the loading compounds on the hour's effective
// rate, so loaded overtime hours earn loading on the penalty rate and
// are emitted as a second line.
func loadingComponents(rule Rule, split daySplit, base, otRate decimal.Decimal) []PayComponent {
	if rule.ShiftLoadingPct.IsZero() || rule.ShiftWindow == nil {
		return nil
	}
	loadPct := rule.ShiftLoadingPct.Div(hundred)
	ordLoadRate := base.Mul(loadPct).Round(4)

	var components []PayComponent
	switch rule.LoadingMode {
	case LoadingMultiplicative:
		if split.loadedOrd.IsPositive() {
			components = append(components,
				NewComponent(CodeShiftLoading, "Shift loading", split.loadedOrd, ordLoadRate))
		}
		if split.loadedOT.IsPositive() {
			otLoadRate := otRate.Mul(loadPct).Round(4)
			components = append(components,
				NewComponent(CodeShiftLoading, "Shift loading (overtime)", split.loadedOT, otLoadRate))
		}
	default: // additive
		loaded := split.loadedOrd.Add(split.loadedOT)
		if loaded.IsPositive() {
			components = append(components,
				NewComponent(CodeShiftLoading, "Shift loading", loaded, ordLoadRate))
		}
	}
	return components
}

// windowOverlap measures the hours of [start, end) that fall inside the
// shift window, checking the window instances anchored on the segment's
// date and its neighbours so spans crossing midnight are covered.
func windowOverlap(start, end time.Time, date time.Time, w ShiftWindow) decimal.Decimal {
	if !end.After(start) {
		return decimal.Zero
	}

	total := time.Duration(0)
	for dayOffset := -1; dayOffset <= 1; dayOffset++ {
		anchor := date.AddDate(0, 0, dayOffset)
		if !w.AppliesOn(anchor.Weekday()) {
			continue
		}
		wStart := anchor.Add(time.Duration(w.StartMinute) * time.Minute)
		wEnd := anchor.Add(time.Duration(w.EndMinute) * time.Minute)
		if w.EndMinute <= w.StartMinute {
			wEnd = wEnd.Add(24 * time.Hour) // wraps past midnight
		}
		total += overlap(start, end, wStart, wEnd)
	}
	return HoursFromDuration(total)
}

func overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// =============================================================================
// BATCH INTERPRETATION
// =============================================================================

// BatchInput is one interpretation run: a set of raw attendance records
// priced against a consistent rule snapshot.
type BatchInput struct {
	Records        []AttendanceRecord
	Rules          *RuleTable
	Classification Classification
	HourlyRate     decimal.Decimal
}

// BatchResult carries partial results plus the per-record error list.
type BatchResult struct {
	Days   []DayResult
	Errors []*RecordError
}

// InterpretBatch normalizes and prices every record, isolating failures
// per record. Records are processed in (employee, date) order so weekly
// overtime accumulates deterministically.
func InterpretBatch(in BatchInput) BatchResult {
	records := make([]AttendanceRecord, len(in.Records))
	copy(records, in.Records)
	sort.Slice(records, func(i, j int) bool {
		if records[i].EmployeeID != records[j].EmployeeID {
			return records[i].EmployeeID < records[j].EmployeeID
		}
		return records[i].Date.Before(records[j].Date)
	})

	var result BatchResult
	weekHours := make(map[string]decimal.Decimal)

	for _, rec := range records {
		day, err := interpretRecord(rec, in, weekHours)
		if err != nil {
			result.Errors = append(result.Errors, &RecordError{
				RecordID:   rec.ID,
				EmployeeID: rec.EmployeeID,
				Date:       rec.Date,
				Err:        err,
			})
			continue
		}
		result.Days = append(result.Days, day)
	}
	return result
}

func interpretRecord(rec AttendanceRecord, in BatchInput, weekHours map[string]decimal.Decimal) (DayResult, error) {
	rule, err := in.Rules.ActiveRule(in.Classification, rec.Date)
	if err != nil {
		return DayResult{}, err
	}

	segments, err := Normalize(rec)
	if err != nil {
		return DayResult{}, err
	}

	key := weekKey(rec.EmployeeID, rec.Date)
	day, err := Interpret(DayInput{
		RecordID:       rec.ID,
		Segments:       segments,
		Rule:           rule,
		HourlyRate:     in.HourlyRate,
		PriorWeekHours: weekHours[key],
	})
	if err != nil {
		return DayResult{}, err
	}

	day.RecordID = rec.ID
	day.EmployeeID = rec.EmployeeID
	day.Date = rec.Date
	weekHours[key] = weekHours[key].Add(day.TotalHours())
	return day, nil
}

func weekKey(id EmployeeID, date time.Time) string {
	year, week := date.ISOWeek()
	return fmt.Sprintf("%s/%d-W%02d", id, year, week)
}
