package award_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rpgramesh/stellaris-hrm-sub003/award"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func baseRule(id string, from time.Time, to *time.Time) award.Rule {
	return award.Rule{
		ID:                award.RuleID(id),
		Award:             "General Retail Industry Award",
		Classification:    "retail-level-2",
		PenaltyRatePct:    dec("25"),
		OvertimeThreshold: dec("7.6"),
		OvertimePeriod:    award.OvertimePerDay,
		EffectiveFrom:     from,
		EffectiveTo:       to,
	}
}

func datePtr(t time.Time) *time.Time { return &t }

// =============================================================================
// EFFECTIVE-WINDOW RESOLUTION TESTS
// =============================================================================

func TestRuleTable_ResolvesActiveRule(t *testing.T) {
	// GIVEN: Two back-to-back rule versions for one classification
	// WHEN: Resolving a date inside each window
	// THEN: The matching version comes back

	jul1 := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	table, err := award.NewRuleTable([]award.Rule{
		baseRule("rule-2024", time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), datePtr(jul1)),
		baseRule("rule-2025", jul1, nil),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rule, err := table.ActiveRule("retail-level-2", time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rule.ID != "rule-2024" {
		t.Errorf("expected rule-2024, got %s", rule.ID)
	}

	rule, err = table.ActiveRule("retail-level-2", time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rule.ID != "rule-2025" {
		t.Errorf("expected rule-2025, got %s", rule.ID)
	}
}

func TestRuleTable_BoundaryConventions(t *testing.T) {
	// GIVEN: A rule effective [Jul 1, Oct 1)
	// WHEN: Resolving exactly on each boundary
	// THEN: effective_from is inclusive, effective_to is exclusive

	jul1 := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	oct1 := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
	table, err := award.NewRuleTable([]award.Rule{baseRule("rule-q3", jul1, datePtr(oct1))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := table.ActiveRule("retail-level-2", jul1); err != nil {
		t.Errorf("effective_from should be inclusive: %v", err)
	}
	if _, err := table.ActiveRule("retail-level-2", oct1); !errors.Is(err, award.ErrRuleNotFound) {
		t.Errorf("effective_to should be exclusive, got %v", err)
	}
}

func TestRuleTable_ResolutionIsIdempotent(t *testing.T) {
	// Same classification/date twice must return the same rule
	jul1 := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	table, _ := award.NewRuleTable([]award.Rule{baseRule("rule-1", jul1, nil)})

	d := time.Date(2025, time.August, 5, 0, 0, 0, 0, time.UTC)
	first, err1 := table.ActiveRule("retail-level-2", d)
	second, err2 := table.ActiveRule("retail-level-2", d)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if first.ID != second.ID {
		t.Errorf("resolution not idempotent: %s vs %s", first.ID, second.ID)
	}
}

func TestRuleTable_UnknownClassification_NotFound(t *testing.T) {
	table, _ := award.NewRuleTable(nil)
	_, err := table.ActiveRule("nonexistent", time.Now())
	if !errors.Is(err, award.ErrRuleNotFound) {
		t.Fatalf("expected ErrRuleNotFound, got %v", err)
	}
}

func TestRuleTable_OverlappingRules_AmbiguousAtResolution(t *testing.T) {
	// GIVEN: Two overlapping windows that slipped past write-time checks
	// WHEN: Resolving a date both cover
	// THEN: AmbiguousRuleConfiguration naming both rules - never a guess

	jan1 := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	jun1 := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	table, err := award.NewRuleTable([]award.Rule{
		baseRule("rule-a", jan1, nil),
		baseRule("rule-b", jun1, nil),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = table.ActiveRule("retail-level-2", time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, award.ErrAmbiguousRuleConfiguration) {
		t.Fatalf("expected ErrAmbiguousRuleConfiguration, got %v", err)
	}

	var detail *award.AmbiguousRuleError
	if !errors.As(err, &detail) {
		t.Fatalf("expected AmbiguousRuleError, got %T", err)
	}
	if len(detail.RuleIDs) != 2 {
		t.Errorf("expected 2 overlapping rule IDs, got %v", detail.RuleIDs)
	}
}

// =============================================================================
// WRITE-TIME VALIDATION TESTS
// =============================================================================

func TestValidateAgainst_OverlappingInsert_Rejected(t *testing.T) {
	// GIVEN: An existing open-ended rule for the classification
	// WHEN: Inserting a rule whose window overlaps it
	// THEN: Rejected with AmbiguousRuleConfiguration at write time

	jan1 := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	existing := []award.Rule{baseRule("rule-a", jan1, nil)}

	candidate := baseRule("rule-b", time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), nil)
	if err := candidate.ValidateAgainst(existing); !errors.Is(err, award.ErrAmbiguousRuleConfiguration) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestValidateAgainst_AdjacentWindows_Allowed(t *testing.T) {
	// A new version starting exactly where the old one ends is valid
	jan1 := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	jul1 := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	existing := []award.Rule{baseRule("rule-a", jan1, datePtr(jul1))}

	candidate := baseRule("rule-b", jul1, nil)
	if err := candidate.ValidateAgainst(existing); err != nil {
		t.Fatalf("adjacent windows should not overlap: %v", err)
	}
}

func TestValidateAgainst_DifferentClassification_Allowed(t *testing.T) {
	jan1 := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	existing := []award.Rule{baseRule("rule-a", jan1, nil)}

	candidate := baseRule("rule-b", jan1, nil)
	candidate.Classification = "retail-level-3"
	if err := candidate.ValidateAgainst(existing); err != nil {
		t.Fatalf("different classifications may overlap: %v", err)
	}
}

func TestRuleValidate_ShapeErrors(t *testing.T) {
	jan1 := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	negPenalty := baseRule("r", jan1, nil)
	negPenalty.PenaltyRatePct = dec("-5")
	if err := negPenalty.Validate(); !errors.Is(err, award.ErrInvalidRateConfiguration) {
		t.Errorf("negative penalty should be rejected, got %v", err)
	}

	badPeriod := baseRule("r", jan1, nil)
	badPeriod.OvertimePeriod = "fortnight"
	if err := badPeriod.Validate(); !errors.Is(err, award.ErrInvalidRateConfiguration) {
		t.Errorf("unknown overtime period should be rejected, got %v", err)
	}

	loadedNoMode := baseRule("r", jan1, nil)
	loadedNoMode.ShiftLoadingPct = dec("15")
	if err := loadedNoMode.Validate(); !errors.Is(err, award.ErrInvalidRateConfiguration) {
		t.Errorf("loading without a mode should be rejected, got %v", err)
	}

	invertedWindow := baseRule("r", jan1, nil)
	invertedWindow.EffectiveTo = datePtr(time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC))
	if err := invertedWindow.Validate(); !errors.Is(err, award.ErrInvalidRateConfiguration) {
		t.Errorf("inverted effective window should be rejected, got %v", err)
	}
}
