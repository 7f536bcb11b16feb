package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgramesh/stellaris-hrm-sub003/award"
	"github.com/rpgramesh/stellaris-hrm-sub003/statutory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(t time.Time) *time.Time { return &t }

func ruleRec(id, classification string, from time.Time, to *time.Time) RuleRecord {
	return RuleRecord{
		ID:             id,
		Award:          "General Retail Industry Award",
		Classification: classification,
		ConfigJSON:     `{"id":"` + id + `"}`,
		EffectiveFrom:  from,
		EffectiveTo:    to,
	}
}

// =============================================================================
// AWARD RULES
// =============================================================================

func TestStore_SaveAndListRules(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	jul25 := day(2025, time.July, 1)
	require.NoError(t, store.SaveRule(ctx, ruleRec("r-old", "retail-level-2", day(2024, time.July, 1), dayPtr(jul25))))
	require.NoError(t, store.SaveRule(ctx, ruleRec("r-new", "retail-level-2", jul25, nil)))

	rules, err := store.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "r-old", rules[0].ID, "ordered by effective_from")
	assert.Equal(t, "r-new", rules[1].ID)
	assert.Nil(t, rules[1].EffectiveTo)
	require.NotNil(t, rules[0].EffectiveTo)
	assert.True(t, rules[0].EffectiveTo.Equal(jul25))
}

func TestStore_SaveRule_OverlapRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRule(ctx, ruleRec("r-a", "retail-level-2", day(2025, time.January, 1), nil)))

	err := store.SaveRule(ctx, ruleRec("r-b", "retail-level-2", day(2025, time.June, 1), nil))
	require.ErrorIs(t, err, award.ErrAmbiguousRuleConfiguration)

	var detail *award.AmbiguousRuleError
	require.ErrorAs(t, err, &detail)
	assert.Contains(t, detail.RuleIDs, award.RuleID("r-a"))
}

func TestStore_SaveRule_AdjacentWindowsAllowed(t *testing.T) {
	// [jan, jul) then [jul, nil) touch but do not overlap
	store := newTestStore(t)
	ctx := context.Background()

	jul := day(2025, time.July, 1)
	require.NoError(t, store.SaveRule(ctx, ruleRec("r-a", "retail-level-2", day(2025, time.January, 1), dayPtr(jul))))
	assert.NoError(t, store.SaveRule(ctx, ruleRec("r-b", "retail-level-2", jul, nil)))
}

func TestStore_SaveRule_OtherClassificationUnaffected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRule(ctx, ruleRec("r-a", "retail-level-2", day(2025, time.January, 1), nil)))
	assert.NoError(t, store.SaveRule(ctx, ruleRec("r-b", "retail-level-3", day(2025, time.January, 1), nil)))
}

func TestStore_GetAndDeleteRule(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRule(ctx, ruleRec("r-a", "retail-level-2", day(2025, time.January, 1), nil)))

	rec, err := store.GetRule(ctx, "r-a")
	require.NoError(t, err)
	assert.Equal(t, "retail-level-2", rec.Classification)

	require.NoError(t, store.DeleteRule(ctx, "r-a"))

	_, err = store.GetRule(ctx, "r-a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.DeleteRule(ctx, "r-a"), ErrNotFound)
}

// =============================================================================
// STATUTORY RATES
// =============================================================================

func TestStore_SaveRate_OverlapRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := RateRecord{
		ID:            "sg-a",
		RateType:      "superannuation-guarantee",
		ConfigJSON:    `{}`,
		EffectiveFrom: day(2024, time.July, 1),
		Active:        true,
	}
	require.NoError(t, store.SaveRate(ctx, first))

	second := first
	second.ID = "sg-b"
	second.EffectiveFrom = day(2025, time.July, 1)
	err := store.SaveRate(ctx, second)
	require.ErrorIs(t, err, statutory.ErrAmbiguousRateConfiguration)
}

func TestStore_SaveRate_InactiveRowsIgnoredByOverlapCheck(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	retired := RateRecord{
		ID:            "sg-old",
		RateType:      "superannuation-guarantee",
		ConfigJSON:    `{}`,
		EffectiveFrom: day(2024, time.July, 1),
		Active:        false,
	}
	require.NoError(t, store.SaveRate(ctx, retired))

	replacement := retired
	replacement.ID = "sg-new"
	replacement.Active = true
	assert.NoError(t, store.SaveRate(ctx, replacement))

	rates, err := store.ListRates(ctx)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.False(t, rates[0].Active)
	assert.True(t, rates[1].Active)
}

// =============================================================================
// BONUS PAYMENTS
// =============================================================================

func bonusRow(id, employee string) BonusPayment {
	return BonusPayment{
		ID:                id,
		EmployeeID:        employee,
		BonusType:         "discretionary",
		GrossAmount:       "5000.00",
		TaxWithheld:       "1500.00",
		NetAmount:         "3500.00",
		SuperContribution: "600.00",
		TaxMethod:         "marginal-rates",
		SuperIncluded:     true,
		PaymentDate:       day(2025, time.September, 15),
	}
}

func TestStore_BonusLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBonus(ctx, bonusRow("b-1", "emp-1")))

	bonus, err := store.GetBonus(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, "pending", bonus.ApprovalStatus)
	assert.Nil(t, bonus.ApprovedAt)
	assert.Equal(t, "1500.00", bonus.TaxWithheld)

	require.NoError(t, store.ApproveBonus(ctx, "b-1"))

	bonus, err = store.GetBonus(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, "approved", bonus.ApprovalStatus)
	assert.NotNil(t, bonus.ApprovedAt)

	// Approved bonuses are immutable
	assert.ErrorIs(t, store.ApproveBonus(ctx, "b-1"), ErrBonusFinalized)
	assert.ErrorIs(t, store.ApproveBonus(ctx, "b-missing"), ErrNotFound)
}

func TestStore_ListBonuses_FilterByEmployee(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBonus(ctx, bonusRow("b-1", "emp-1")))
	require.NoError(t, store.SaveBonus(ctx, bonusRow("b-2", "emp-2")))

	all, err := store.ListBonuses(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := store.ListBonuses(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "b-1", mine[0].ID)
}

// =============================================================================
// INTERPRETATION RUNS
// =============================================================================

func TestStore_RunHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-1", "run-2"} {
		require.NoError(t, store.SaveRun(ctx, InterpretationRun{
			ID:             id,
			Classification: "retail-level-2",
			RecordCount:    5,
			PricedCount:    4,
			ErrorCount:     1,
			TotalAmount:    "1234.56",
		}))
	}

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	limited, err := store.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
