/*
bonus.go - Bonus and adjustment tax treatment

PURPOSE:
  Applies marginal-rate or average-rate withholding to one-off payments
  (bonuses, back-pay, salary adjustments) and the superannuation
  guarantee contribution where applicable. The result is what the
  surrounding system persists as a bonus payment and surfaces for
  approval.

TAX METHODS:
  marginal-rates: withhold at the employee's current marginal PAYG
    bracket (resolved for the payment date) applied to the full bonus.
    Annual earnings must be supplied and positive; a missing value is
    rejected rather than priced in the tax-free bracket.
  average-rate: withhold at the prior 12 months' average tax rate,
    computed from the supplied earnings history. Missing history is
    InsufficientHistory, never a silent default.

SUPERANNUATION:
  When the bonus counts as ordinary time earnings (SuperIncluded), the
  guarantee contribution is gross x the SG rate effective at the payment
  date.
*/
package statutory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

type TaxMethod string

const (
	TaxMarginalRates TaxMethod = "marginal-rates"
	TaxAverageRate   TaxMethod = "average-rate"
)

// PeriodEarnings is one trailing pay period's gross and tax, the raw
// material for the average-rate method.
type PeriodEarnings struct {
	Gross decimal.Decimal
	Tax   decimal.Decimal
}

// BonusInput describes one bonus calculation.
type BonusInput struct {
	EmployeeID    string
	GrossAmount   decimal.Decimal
	PaymentDate   time.Time
	Method        TaxMethod
	SuperIncluded bool

	// AnnualEarnings places the employee in a PAYG bracket for the
	// marginal-rates method. Must be positive for that method.
	AnnualEarnings decimal.Decimal

	// History is the trailing 12 months of earnings for the average-rate
	// method; ignored for marginal-rates.
	History []PeriodEarnings
}

// BonusResult is the priced outcome. Amounts are rounded to cents.
type BonusResult struct {
	GrossAmount       decimal.Decimal
	TaxWithheld       decimal.Decimal
	NetAmount         decimal.Decimal
	SuperContribution decimal.Decimal
}

// =============================================================================
// CALCULATOR
// =============================================================================

// BonusCalculator prices bonuses against a consistent rate snapshot.
type BonusCalculator struct {
	Rates     *RateTable
	Schedules *ScheduleSet
}

// Calculate applies the requested tax method and, if applicable, the
// super guarantee.
func (c *BonusCalculator) Calculate(in BonusInput) (BonusResult, error) {
	if !in.GrossAmount.IsPositive() {
		return BonusResult{}, fmt.Errorf("%w: gross amount must be positive", ErrInvalidRate)
	}

	var taxRate decimal.Decimal
	switch in.Method {
	case TaxMarginalRates:
		// Zero earnings would land in the tax-free bracket and withhold
		// nothing. That is always a caller omission, not a real bracket.
		if !in.AnnualEarnings.IsPositive() {
			return BonusResult{}, fmt.Errorf("%w: marginal-rates method requires positive annual earnings", ErrInvalidRate)
		}
		schedule, err := c.Schedules.Resolve(in.PaymentDate)
		if err != nil {
			return BonusResult{}, err
		}
		taxRate = schedule.MarginalRate(in.AnnualEarnings)

	case TaxAverageRate:
		rate, err := averageRate(in.History)
		if err != nil {
			return BonusResult{}, err
		}
		taxRate = rate

	default:
		return BonusResult{}, fmt.Errorf("%w: unknown tax method %q", ErrInvalidRate, in.Method)
	}

	result := BonusResult{
		GrossAmount:       in.GrossAmount,
		TaxWithheld:       in.GrossAmount.Mul(taxRate).Round(2),
		SuperContribution: decimal.Zero,
	}
	result.NetAmount = in.GrossAmount.Sub(result.TaxWithheld)

	if in.SuperIncluded {
		sg, err := c.Rates.Resolve(RateSuperGuarantee, in.PaymentDate)
		if err != nil {
			return BonusResult{}, err
		}
		result.SuperContribution = in.GrossAmount.Mul(sg.Value).Round(2)
	}

	return result, nil
}

// averageRate computes total tax over total gross for the trailing
// periods. No periods, or zero total gross, is InsufficientHistory.
func averageRate(history []PeriodEarnings) (decimal.Decimal, error) {
	if len(history) == 0 {
		return decimal.Zero, ErrInsufficientHistory
	}
	gross, tax := decimal.Zero, decimal.Zero
	for _, p := range history {
		gross = gross.Add(p.Gross)
		tax = tax.Add(p.Tax)
	}
	if !gross.IsPositive() {
		return decimal.Zero, ErrInsufficientHistory
	}
	return tax.Div(gross), nil
}
