/*
rules.go - Award rule table and effective-dated resolution

PURPOSE:
  Defines the configurable award rules (penalty rate, overtime trigger,
  shift loading, allowances) and the table that resolves which rule is
  active for a classification on a date. Rules are operator-edited
  configuration: long-lived, versioned by effective date, never
  overwritten in place.

EFFECTIVE WINDOWS:
  A rule is active on date d when EffectiveFrom <= d < EffectiveTo.
  The lower bound is inclusive, the upper bound exclusive; a nil
  EffectiveTo means open-ended. At most one rule may be active for a
  classification at any instant.

OVERLAP DEFENSE:
  The primary defense is write time: ValidateAgainst rejects any insert
  or update that would create an overlapping window for the same
  classification. If a bad table slips through anyway, ActiveRule fails
  with AmbiguousRuleConfiguration rather than guessing between
  candidates.

LOADING MODE:
  Both additive and multiplicative shift-loading conventions exist in
  real award systems, so the convention is an explicit per-rule flag
  (LoadingMode), never an implicit default.

SEE ALSO:
  - engine.go: Applies a resolved rule to normalized segments
  - errors.go: AmbiguousRuleError, ErrRuleNotFound
*/
package award

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RULE - One effective-dated award configuration row
// =============================================================================

// OvertimePeriod selects how the overtime threshold is measured.
type OvertimePeriod string

const (
	OvertimePerDay  OvertimePeriod = "day"
	OvertimePerWeek OvertimePeriod = "week"
)

// LoadingMode selects the shift-loading convention.
type LoadingMode string

const (
	// LoadingAdditive prices loaded hours as a separate component at
	// base rate x loading%. Overtime and loading stack independently.
	LoadingAdditive LoadingMode = "additive"

	// LoadingMultiplicative scales the hour's effective rate (including
	// any penalty uplift) by (1 + loading%). The loading component
	// carries the difference over the unloaded amount.
	LoadingMultiplicative LoadingMode = "multiplicative"
)

// Allowance is a flat per-day amount (meal, tool, travel), never scaled
// by hours.
type Allowance struct {
	Type   string
	Amount decimal.Decimal
}

// ShiftWindow marks the hours a rule treats as loaded (e.g. night shift).
// Minutes are measured from midnight; a window may wrap past midnight
// (Start > End, e.g. 22:00-06:00). Days lists the weekdays the window
// applies on, keyed by the day the window STARTS; empty means every day.
type ShiftWindow struct {
	StartMinute int
	EndMinute   int
	Days        []time.Weekday
}

// AppliesOn reports whether the window is active for shifts starting on
// the given weekday.
func (w ShiftWindow) AppliesOn(day time.Weekday) bool {
	if len(w.Days) == 0 {
		return true
	}
	for _, d := range w.Days {
		if d == day {
			return true
		}
	}
	return false
}

// Rule is one award configuration row for a classification.
type Rule struct {
	ID             RuleID
	Award          string
	Classification Classification

	// Overtime: hours beyond the threshold (per day or per week) price
	// at base x (1 + PenaltyRatePct/100). A zero threshold is valid and
	// means every worked hour is overtime (casual overtime-only rates).
	PenaltyRatePct    decimal.Decimal
	OvertimeThreshold decimal.Decimal
	OvertimePeriod    OvertimePeriod

	// Shift loading for hours inside ShiftWindow, per LoadingMode.
	ShiftLoadingPct decimal.Decimal
	LoadingMode     LoadingMode
	ShiftWindow     *ShiftWindow

	// Flat allowances emitted once per worked day.
	Allowances []Allowance

	EffectiveFrom time.Time
	EffectiveTo   *time.Time // nil = open-ended, exclusive bound otherwise
}

// ActiveOn reports whether the rule's effective window contains the date:
// EffectiveFrom inclusive, EffectiveTo exclusive.
func (r Rule) ActiveOn(date time.Time) bool {
	if date.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && !date.Before(*r.EffectiveTo) {
		return false
	}
	return true
}

// OverlapsWindow reports whether two effective windows intersect.
func (r Rule) OverlapsWindow(other Rule) bool {
	// r starts after other ends, or other starts after r ends
	if other.EffectiveTo != nil && !r.EffectiveFrom.Before(*other.EffectiveTo) {
		return false
	}
	if r.EffectiveTo != nil && !other.EffectiveFrom.Before(*r.EffectiveTo) {
		return false
	}
	return true
}

// Validate checks the rule's shape. Shape errors are configuration
// errors, rejected at write time.
func (r Rule) Validate() error {
	if r.Classification == "" {
		return fmt.Errorf("%w: missing classification", ErrInvalidRateConfiguration)
	}
	if r.PenaltyRatePct.IsNegative() {
		return fmt.Errorf("%w: negative penalty rate", ErrInvalidRateConfiguration)
	}
	if r.OvertimeThreshold.IsNegative() {
		return fmt.Errorf("%w: negative overtime threshold", ErrInvalidRateConfiguration)
	}
	if r.OvertimePeriod != OvertimePerDay && r.OvertimePeriod != OvertimePerWeek {
		return fmt.Errorf("%w: unknown overtime period %q", ErrInvalidRateConfiguration, r.OvertimePeriod)
	}
	if r.ShiftLoadingPct.IsNegative() {
		return fmt.Errorf("%w: negative shift loading", ErrInvalidRateConfiguration)
	}
	if !r.ShiftLoadingPct.IsZero() {
		if r.LoadingMode != LoadingAdditive && r.LoadingMode != LoadingMultiplicative {
			return fmt.Errorf("%w: loading mode must be additive or multiplicative", ErrInvalidRateConfiguration)
		}
	}
	for _, a := range r.Allowances {
		if a.Amount.IsNegative() {
			return fmt.Errorf("%w: negative allowance %q", ErrInvalidRateConfiguration, a.Type)
		}
	}
	if r.EffectiveTo != nil && !r.EffectiveTo.After(r.EffectiveFrom) {
		return fmt.Errorf("%w: effective_to not after effective_from", ErrInvalidRateConfiguration)
	}
	return nil
}

// ValidateAgainst rejects the rule if its effective window overlaps an
// existing rule for the same classification. This is the write-time
// defense behind the at-most-one-active-rule invariant.
func (r Rule) ValidateAgainst(existing []Rule) error {
	for _, other := range existing {
		if other.ID == r.ID || other.Classification != r.Classification {
			continue
		}
		if r.OverlapsWindow(other) {
			return &AmbiguousRuleError{
				Classification: r.Classification,
				Date:           r.EffectiveFrom,
				RuleIDs:        []RuleID{r.ID, other.ID},
			}
		}
	}
	return nil
}

// =============================================================================
// RULE TABLE - Immutable resolution snapshot
// =============================================================================

// RuleTable is a consistent snapshot of award rules for one
// interpretation run. Rules must not change mid-batch; callers load a
// fresh table per run rather than mutating one in place.
type RuleTable struct {
	byClassification map[Classification][]Rule
}

// NewRuleTable builds a snapshot. Shape errors fail fast; window
// overlaps are deliberately NOT rejected here so a table that slipped
// past write-time validation still loads and fails loudly at resolution.
func NewRuleTable(rules []Rule) (*RuleTable, error) {
	t := &RuleTable{byClassification: make(map[Classification][]Rule)}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, err)
		}
		t.byClassification[r.Classification] = append(t.byClassification[r.Classification], r)
	}
	return t, nil
}

// ActiveRule resolves the single rule active for the classification on
// the date. Zero matches is ErrRuleNotFound; more than one is
// AmbiguousRuleConfiguration - resolution never picks silently.
func (t *RuleTable) ActiveRule(c Classification, date time.Time) (Rule, error) {
	var matches []Rule
	for _, r := range t.byClassification[c] {
		if r.ActiveOn(date) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return Rule{}, fmt.Errorf("%w for %q on %s", ErrRuleNotFound, c, date.Format("2006-01-02"))
	case 1:
		return matches[0], nil
	default:
		ids := make([]RuleID, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return Rule{}, &AmbiguousRuleError{Classification: c, Date: date, RuleIDs: ids}
	}
}

// Classifications returns the classifications present in the table.
func (t *RuleTable) Classifications() []Classification {
	out := make([]Classification, 0, len(t.byClassification))
	for c := range t.byClassification {
		out = append(out, c)
	}
	return out
}
