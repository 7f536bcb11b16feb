/*
errors.go - Centralized error types for the interpretation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify errors with errors.Is / the helpers at the bottom.

ERROR CATEGORIES:
  1. Input errors - Malformed attendance (bad time range, overlapping breaks)
  2. Configuration errors - Rule/rate table shape violations
  3. Resolution errors - No applicable rule for a classification/date

FAILURE SEMANTICS:
  Per-record errors are isolated: one failing employee-day must not abort
  interpretation of the rest of the batch. RecordError carries the record
  identity so callers can report partial results plus an error list.

SEE ALSO:
  - normalize.go: Returns input errors
  - rules.go: Returns configuration and resolution errors
  - engine.go: Wraps all of these into RecordError for batches
*/
package award

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTimeRange is returned when clock-out is not after clock-in.
	ErrInvalidTimeRange = errors.New("invalid time range: clock-out must be after clock-in")

	// ErrOverlappingBreak is returned when break intervals overlap each
	// other or fall outside the shift span.
	ErrOverlappingBreak = errors.New("overlapping or out-of-span break")

	// ErrAmbiguousRuleConfiguration is returned when more than one rule is
	// effective for the same classification at the same instant. This is a
	// configuration error; resolution never guesses between candidates.
	ErrAmbiguousRuleConfiguration = errors.New("ambiguous rule configuration: overlapping effective ranges")

	// ErrRuleNotFound is returned when no rule is effective for a
	// classification on the requested date.
	ErrRuleNotFound = errors.New("no applicable award rule")

	// ErrInvalidRateConfiguration is returned for a negative or zero base
	// hourly rate, or malformed rule percentages.
	ErrInvalidRateConfiguration = errors.New("invalid rate configuration")

	// ErrIncompleteAttendance is returned when pricing is attempted on an
	// open shift (missing clock-out). Incomplete time is reported, never
	// silently zero-priced.
	ErrIncompleteAttendance = errors.New("incomplete attendance: shift has no clock-out")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// BreakOverlapError details which break interval violated the span rules.
type BreakOverlapError struct {
	RecordID string
	Start    time.Time
	End      time.Time
	Reason   string // "overlaps_previous_break", "outside_shift_span", "inverted"
}

func (e *BreakOverlapError) Error() string {
	return fmt.Sprintf("break %s-%s invalid for record %s: %s",
		e.Start.Format("15:04"), e.End.Format("15:04"), e.RecordID, e.Reason)
}

func (e *BreakOverlapError) Unwrap() error { return ErrOverlappingBreak }

// AmbiguousRuleError details the overlapping rules found during resolution
// or write-time validation.
type AmbiguousRuleError struct {
	Classification Classification
	Date           time.Time
	RuleIDs        []RuleID
}

func (e *AmbiguousRuleError) Error() string {
	return fmt.Sprintf("ambiguous rule configuration for %q at %s: %d overlapping rules %v",
		e.Classification, e.Date.Format("2006-01-02"), len(e.RuleIDs), e.RuleIDs)
}

func (e *AmbiguousRuleError) Unwrap() error { return ErrAmbiguousRuleConfiguration }

// RecordError ties an interpretation failure to the record it came from so
// batch callers can return partial results.
type RecordError struct {
	RecordID   string
	EmployeeID EmployeeID
	Date       time.Time
	Err        error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s (%s): %v", e.RecordID, e.Date.Format("2006-01-02"), e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsInputError returns true if the error is due to malformed attendance
// input rather than configuration.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidTimeRange) ||
		errors.Is(err, ErrOverlappingBreak) ||
		errors.Is(err, ErrIncompleteAttendance)
}

// IsConfigError returns true if the error indicates broken rule or rate
// configuration. Config errors are fatal to the record, not retried.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrAmbiguousRuleConfiguration) ||
		errors.Is(err, ErrInvalidRateConfiguration)
}

// IsNotFound returns true if the error indicates a missing rule.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}
