/*
payg.go - Progressive PAYG withholding brackets

PURPOSE:
  The rate table (rates.go) deliberately returns one flat row per type;
  PAYG withholding is progressive, so its bracket math lives here. A
  WithholdingSchedule is an effective-dated table of marginal brackets;
  the bonus calculator asks it for the marginal rate at an employee's
  annual earnings.

BRACKETS:
  Brackets are ordered by lower bound, each carrying the marginal rate
  for income ABOVE that bound. MarginalRate walks from the top down and
  returns the first bracket whose bound the income clears. The built-in
  default is the 2024-25 Australian resident schedule; operators override
  it with their own effective-dated schedules.
*/
package statutory

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// WITHHOLDING SCHEDULE
// =============================================================================

// Bracket is one marginal band: the rate applied to annual income at or
// above LowerBound (up to the next bracket's bound).
type Bracket struct {
	LowerBound   decimal.Decimal
	MarginalRate decimal.Decimal // fraction 0..1
}

// WithholdingSchedule is an effective-dated bracket table.
type WithholdingSchedule struct {
	ID            string
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Brackets      []Bracket
}

// ActiveOn uses the same [from, to) convention as Rate rows.
func (s WithholdingSchedule) ActiveOn(date time.Time) bool {
	if date.Before(s.EffectiveFrom) {
		return false
	}
	if s.EffectiveTo != nil && !date.Before(*s.EffectiveTo) {
		return false
	}
	return true
}

// Validate checks the bracket table: a zero lower bound must exist and
// bounds must be strictly increasing.
func (s WithholdingSchedule) Validate() error {
	if len(s.Brackets) == 0 {
		return fmt.Errorf("%w: schedule %s has no brackets", ErrInvalidRate, s.ID)
	}
	if !s.Brackets[0].LowerBound.IsZero() {
		return fmt.Errorf("%w: schedule %s must start at a zero lower bound", ErrInvalidRate, s.ID)
	}
	for i, b := range s.Brackets {
		if b.MarginalRate.IsNegative() || b.MarginalRate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: schedule %s bracket %d rate %v outside [0, 1]", ErrInvalidRate, s.ID, i, b.MarginalRate)
		}
		if i > 0 && !b.LowerBound.GreaterThan(s.Brackets[i-1].LowerBound) {
			return fmt.Errorf("%w: schedule %s brackets not strictly increasing", ErrInvalidRate, s.ID)
		}
	}
	return nil
}

// MarginalRate returns the marginal rate for the bracket containing the
// annual income. Negative income resolves to the bottom bracket.
func (s WithholdingSchedule) MarginalRate(annualIncome decimal.Decimal) decimal.Decimal {
	rate := s.Brackets[0].MarginalRate
	for _, b := range s.Brackets {
		if annualIncome.GreaterThanOrEqual(b.LowerBound) {
			rate = b.MarginalRate
		}
	}
	return rate
}

// =============================================================================
// SCHEDULE SET - Effective-dated schedule resolution
// =============================================================================

// ScheduleSet resolves which bracket table applies on a payment date.
type ScheduleSet struct {
	schedules []WithholdingSchedule
}

func NewScheduleSet(schedules []WithholdingSchedule) (*ScheduleSet, error) {
	set := &ScheduleSet{schedules: make([]WithholdingSchedule, len(schedules))}
	copy(set.schedules, schedules)
	for _, s := range set.schedules {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	sort.Slice(set.schedules, func(i, j int) bool {
		return set.schedules[i].EffectiveFrom.Before(set.schedules[j].EffectiveFrom)
	})
	return set, nil
}

// Resolve returns the single schedule effective on the date, with the
// same zero-or-one contract as the rate table.
func (s *ScheduleSet) Resolve(date time.Time) (WithholdingSchedule, error) {
	var matches []WithholdingSchedule
	for _, sch := range s.schedules {
		if sch.ActiveOn(date) {
			matches = append(matches, sch)
		}
	}
	switch len(matches) {
	case 0:
		return WithholdingSchedule{}, fmt.Errorf("%w: no withholding schedule on %s", ErrRateNotFound, date.Format("2006-01-02"))
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return WithholdingSchedule{}, &AmbiguousRateError{Type: RatePAYGWithholding, Date: date, RateIDs: ids}
	}
}

// DefaultSchedule returns the 2024-25 Australian resident brackets,
// effective from 1 July 2024, open-ended. Used as a seed; operators are
// expected to supersede it each financial year.
func DefaultSchedule() WithholdingSchedule {
	bound := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
	rate := func(s string) decimal.Decimal { d, _ := decimal.NewFromString(s); return d }
	return WithholdingSchedule{
		ID:            "payg-2024-25",
		EffectiveFrom: time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
		Brackets: []Bracket{
			{LowerBound: bound(0), MarginalRate: rate("0")},
			{LowerBound: bound(18201), MarginalRate: rate("0.16")},
			{LowerBound: bound(45001), MarginalRate: rate("0.30")},
			{LowerBound: bound(135001), MarginalRate: rate("0.37")},
			{LowerBound: bound(190001), MarginalRate: rate("0.45")},
		},
	}
}
