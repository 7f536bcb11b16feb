/*
Package statutory provides effective-dated statutory rate resolution and
the bonus/adjustment tax calculator.

PURPOSE:
  Holds the operator-maintained statutory rate rows (PAYG withholding,
  superannuation guarantee, payroll tax, workers' compensation, Medicare
  levy) and resolves the single rate applicable on a calculation date.
  Like the award rule table, rows are versioned by effective date and
  never overwritten in place.

RESOLUTION CONTRACT:
  Resolve(rateType, date) yields exactly zero or one rate. Overlapping
  effective windows for the same rate type are a configuration error
  (AmbiguousRateConfiguration), never a silent pick. The window is
  [EffectiveFrom, EffectiveTo): inclusive lower bound, exclusive upper.

THRESHOLDS:
  Threshold-based types carry their threshold on the row; the resolver
  only returns the effective-dated row and leaves bracket math to the
  caller (see payg.go for the PAYG bracket schedule).

SEE ALSO:
  - payg.go: Progressive withholding brackets
  - bonus.go: Bonus tax treatment consuming these rates
*/
package statutory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE TYPES
// =============================================================================

type RateType string

const (
	RatePAYGWithholding RateType = "payg-withholding"
	RateSuperGuarantee  RateType = "superannuation-guarantee"
	RatePayrollTax      RateType = "payroll-tax"
	RateWorkersComp     RateType = "workers-compensation"
	RateMedicareLevy    RateType = "medicare-levy"
)

// KnownRateType reports whether the value is one of the supported types.
// Rate rows are tagged variants, not free-form strings.
func KnownRateType(t RateType) bool {
	switch t {
	case RatePAYGWithholding, RateSuperGuarantee, RatePayrollTax, RateWorkersComp, RateMedicareLevy:
		return true
	}
	return false
}

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrRateNotFound is returned when no rate row is effective for the
	// type on the requested date.
	ErrRateNotFound = errors.New("no applicable statutory rate")

	// ErrAmbiguousRateConfiguration is returned when overlapping effective
	// windows exist for one rate type. Treated as a configuration error.
	ErrAmbiguousRateConfiguration = errors.New("ambiguous rate configuration: overlapping effective ranges")

	// ErrInvalidRate is returned for rows with rates outside [0, 1] or
	// malformed windows.
	ErrInvalidRate = errors.New("invalid statutory rate")

	// ErrInsufficientHistory is returned when the average-rate bonus
	// method has no trailing earnings to average over. The calculator
	// never falls back to a default rate silently.
	ErrInsufficientHistory = errors.New("insufficient earnings history for average-rate method")
)

// AmbiguousRateError details the overlapping rows found at resolution.
type AmbiguousRateError struct {
	Type    RateType
	Date    time.Time
	RateIDs []string
}

func (e *AmbiguousRateError) Error() string {
	return fmt.Sprintf("ambiguous %s configuration at %s: overlapping rates %v",
		e.Type, e.Date.Format("2006-01-02"), e.RateIDs)
}

func (e *AmbiguousRateError) Unwrap() error { return ErrAmbiguousRateConfiguration }

// =============================================================================
// RATE - One effective-dated statutory rate row
// =============================================================================

type Rate struct {
	ID   string
	Type RateType
	Name string

	// Value is a fraction in [0, 1], e.g. 0.115 for 11.5% super guarantee.
	Value decimal.Decimal

	// Threshold is the base amount above which the rate applies, for
	// threshold-based types (e.g. payroll tax). Nil when not applicable.
	Threshold *decimal.Decimal

	EffectiveFrom time.Time
	EffectiveTo   *time.Time // nil = open-ended, exclusive otherwise
	Active        bool
}

// ActiveOn reports whether the row is effective on the date:
// EffectiveFrom inclusive, EffectiveTo exclusive. Deactivated rows never
// resolve.
func (r Rate) ActiveOn(date time.Time) bool {
	if !r.Active {
		return false
	}
	if date.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && !date.Before(*r.EffectiveTo) {
		return false
	}
	return true
}

// OverlapsWindow reports whether two effective windows intersect.
func (r Rate) OverlapsWindow(other Rate) bool {
	if other.EffectiveTo != nil && !r.EffectiveFrom.Before(*other.EffectiveTo) {
		return false
	}
	if r.EffectiveTo != nil && !other.EffectiveFrom.Before(*r.EffectiveTo) {
		return false
	}
	return true
}

// Validate checks the row's shape.
func (r Rate) Validate() error {
	if !KnownRateType(r.Type) {
		return fmt.Errorf("%w: unknown rate type %q", ErrInvalidRate, r.Type)
	}
	if r.Value.IsNegative() || r.Value.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s rate %v outside [0, 1]", ErrInvalidRate, r.Type, r.Value)
	}
	if r.Threshold != nil && r.Threshold.IsNegative() {
		return fmt.Errorf("%w: negative threshold", ErrInvalidRate)
	}
	if r.EffectiveTo != nil && !r.EffectiveTo.After(r.EffectiveFrom) {
		return fmt.Errorf("%w: effective_to not after effective_from", ErrInvalidRate)
	}
	return nil
}

// ValidateAgainst rejects the row if its window overlaps an existing
// active row of the same type. Write-time defense for the non-overlap
// invariant; deactivated rows don't count.
func (r Rate) ValidateAgainst(existing []Rate) error {
	for _, other := range existing {
		if other.ID == r.ID || other.Type != r.Type || !other.Active {
			continue
		}
		if r.OverlapsWindow(other) {
			return &AmbiguousRateError{Type: r.Type, Date: r.EffectiveFrom, RateIDs: []string{r.ID, other.ID}}
		}
	}
	return nil
}

// =============================================================================
// RATE TABLE - Immutable resolution snapshot
// =============================================================================

// RateTable is a consistent snapshot of statutory rates for one
// calculation run.
type RateTable struct {
	byType map[RateType][]Rate
}

// NewRateTable builds a snapshot. Shape errors fail fast; overlaps are
// caught at resolution so a table that slipped past write-time checks
// still fails loudly instead of resolving wrong.
func NewRateTable(rates []Rate) (*RateTable, error) {
	t := &RateTable{byType: make(map[RateType][]Rate)}
	for _, r := range rates {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rate %s: %w", r.ID, err)
		}
		t.byType[r.Type] = append(t.byType[r.Type], r)
	}
	return t, nil
}

// Resolve returns the single rate effective for the type on the date.
func (t *RateTable) Resolve(rateType RateType, date time.Time) (Rate, error) {
	var matches []Rate
	for _, r := range t.byType[rateType] {
		if r.ActiveOn(date) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return Rate{}, fmt.Errorf("%w: %s on %s", ErrRateNotFound, rateType, date.Format("2006-01-02"))
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return Rate{}, &AmbiguousRateError{Type: rateType, Date: date, RateIDs: ids}
	}
}
