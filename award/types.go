/*
Package award provides the award interpretation engine.

PURPOSE:
  This package turns raw attendance punches into priced pay components
  (ordinary hours, overtime, shift loadings, allowances) under configurable
  award rules. It is pure computation: all I/O (fetching rules, rates,
  attendance) belongs to the caller, which keeps the engine trivially
  testable and safe to fan out per employee.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeSegment: A contiguous span of worked (or break) time for one
    employee-day
  - AttendanceRecord: The raw clock-in/clock-out punch the normalizer
    consumes
  - PayComponent: An immutable priced output line (units x rate = amount)
  - DayResult: All components produced for one employee-day

DESIGN PRINCIPLES:
  1. Immutability: PayComponents are produced, never mutated
  2. Precision: Uses decimal.Decimal for hours and currency - no floats
  3. Determinism: Same segments + same rule = same components, always
  4. Isolation: One bad record never poisons the rest of a batch

USAGE:
  segments, err := award.Normalize(record)
  result, err := award.Interpret(award.DayInput{
      Segments:   segments,
      Rule:       rule,
      HourlyRate: decimal.NewFromInt(40),
  })

SEE ALSO:
  - normalize.go: Punch-to-segment normalization
  - rules.go: Award rule table and effective-dated resolution
  - engine.go: Segment pricing
*/
package award

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RuleID string

// Classification identifies an award classification (e.g. "retail-level-2").
// Rule resolution is scoped per classification.
type Classification string

// =============================================================================
// TIME SEGMENTS - Normalized worked time
// =============================================================================

type SegmentKind string

const (
	SegmentWork  SegmentKind = "work"
	SegmentBreak SegmentKind = "break"
)

// TimeSegment is a half-open span [Start, End) of one employee-day.
// Segments for one employee-day are disjoint and ordered by Start.
type TimeSegment struct {
	EmployeeID EmployeeID
	Date       time.Time // midnight, date the shift started
	Start      time.Time
	End        time.Time
	Kind       SegmentKind

	// Incomplete marks an open shift (missing clock-out). The engine
	// refuses to price incomplete segments; they surface as errors.
	Incomplete bool
}

// Duration returns the segment length. Incomplete segments have no duration.
func (s TimeSegment) Duration() time.Duration {
	if s.Incomplete {
		return 0
	}
	return s.End.Sub(s.Start)
}

// Hours returns the segment length in decimal hours at minute precision.
func (s TimeSegment) Hours() decimal.Decimal {
	return HoursFromDuration(s.Duration())
}

// HoursFromDuration converts a duration to decimal hours, truncated to
// whole minutes. Sub-minute punch noise is not priced.
func HoursFromDuration(d time.Duration) decimal.Decimal {
	minutes := int64(d / time.Minute)
	return decimal.NewFromInt(minutes).Div(decimal.NewFromInt(60))
}

// =============================================================================
// ATTENDANCE RECORD - Raw input to the normalizer
// =============================================================================

// BreakInterval is an unpaid break inside a shift span.
type BreakInterval struct {
	Start time.Time
	End   time.Time
}

// AttendanceRecord is one raw punch for one employee-day.
// A zero ClockOut means the shift is still open.
type AttendanceRecord struct {
	ID         string
	EmployeeID EmployeeID
	Date       time.Time
	ClockIn    time.Time
	ClockOut   time.Time
	Breaks     []BreakInterval
}

// =============================================================================
// PAY COMPONENTS - Priced output lines
// =============================================================================

type ComponentCode string

const (
	CodeOrdinary     ComponentCode = "ORD"
	CodeOvertime     ComponentCode = "OT"
	CodeShiftLoading ComponentCode = "LOAD"
	CodeAllowance    ComponentCode = "ALW"
)

// PayComponent is an immutable priced line: Amount = Units * Rate,
// rounded to cents. Units are hours for time components and a count
// for allowances.
type PayComponent struct {
	Code        ComponentCode
	Description string
	Units       decimal.Decimal
	Rate        decimal.Decimal
	Amount      decimal.Decimal
}

// NewComponent prices a component, rounding the amount to cents.
func NewComponent(code ComponentCode, desc string, units, rate decimal.Decimal) PayComponent {
	return PayComponent{
		Code:        code,
		Description: desc,
		Units:       units,
		Rate:        rate,
		Amount:      units.Mul(rate).Round(2),
	}
}

// =============================================================================
// DAY RESULT - All components for one employee-day
// =============================================================================

type DayResult struct {
	RecordID   string
	EmployeeID EmployeeID
	Date       time.Time
	Components []PayComponent
}

// Total sums the component amounts for the day.
func (r DayResult) Total() decimal.Decimal {
	total := decimal.Zero
	for _, c := range r.Components {
		total = total.Add(c.Amount)
	}
	return total
}

// TotalHours sums the priced hours (ordinary + overtime) for the day.
// Loading and allowance components do not add worked time.
func (r DayResult) TotalHours() decimal.Decimal {
	hours := decimal.Zero
	for _, c := range r.Components {
		if c.Code == CodeOrdinary || c.Code == CodeOvertime {
			hours = hours.Add(c.Units)
		}
	}
	return hours
}
