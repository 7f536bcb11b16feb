/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation tags
  - Version evolution

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *Response: Response wrappers returned to clients
  - *DTO: Embedded response fragments

WIRE CONVENTIONS:
  - The interpretation endpoint is camelCase (hourlyRate, clockIn,
    recordId): it predates this service and existing clients depend on
    it. Configuration endpoints reuse the factory's snake_case schema,
    which is what the rule-table UI edits.
  - Dates are "YYYY-MM-DD", timestamps RFC3339
  - Clock times are RFC3339 so a shift can wrap midnight unambiguously
  - Money and hour fields are decimal strings in responses; requests
    accept plain JSON numbers for convenience

VALIDATION:
  Struct tags carry the go-playground/validator rules; handlers run the
  validator before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/config.go: RuleJSON / RateJSON shapes reused for config endpoints
*/
package api

import (
	"time"

	"github.com/rpgramesh/stellaris-hrm-sub003/award"
	"github.com/rpgramesh/stellaris-hrm-sub003/factory"
)

// =============================================================================
// AWARD INTERPRETATION
// =============================================================================

// AwardRequest is one batch of attendance records to price.
type AwardRequest struct {
	// Classification selects the rule lineage; empty falls back to the
	// server's configured default.
	Classification string          `json:"classification,omitempty"`
	HourlyRate     float64         `json:"hourlyRate" validate:"required,gt=0"`
	Records        []AttendanceDTO `json:"records" validate:"required,min=1,dive"`
}

// AttendanceDTO is one raw punch. employeeId may be omitted for
// single-employee batches; the record id then identifies the worker-day.
// A missing clockOut marks an open shift, which is reported as an error
// rather than priced.
type AttendanceDTO struct {
	ID         string     `json:"id" validate:"required"`
	EmployeeID string     `json:"employeeId,omitempty"`
	Date       string     `json:"date" validate:"required"`
	ClockIn    string     `json:"clockIn" validate:"required"`
	ClockOut   string     `json:"clockOut,omitempty"`
	Breaks     []BreakDTO `json:"breaks,omitempty"`
}

type BreakDTO struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// AwardResultDTO is one record's outcome in the response array: priced
// components for complete records, an error message for records that
// could not be priced (components stays an empty list for those).
type AwardResultDTO struct {
	RecordID   string         `json:"recordId"`
	EmployeeID string         `json:"employeeId,omitempty"`
	Date       string         `json:"date,omitempty"`
	Components []ComponentDTO `json:"components"`
	Total      string         `json:"total,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// ComponentDTO is one priced pay line.
type ComponentDTO struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Units       string `json:"units"`
	Rate        string `json:"rate"`
	Amount      string `json:"amount"`
}

// =============================================================================
// BONUS CALCULATION
// =============================================================================

// BonusRequest prices a one-off payment.
type BonusRequest struct {
	EmployeeID    string  `json:"employee_id" validate:"required"`
	BonusType     string  `json:"bonus_type,omitempty"`
	GrossAmount   float64 `json:"gross_amount" validate:"required,gt=0"`
	PaymentDate   string  `json:"payment_date" validate:"required"`
	TaxMethod     string  `json:"tax_method" validate:"required,oneof=marginal-rates average-rate"`
	SuperIncluded bool    `json:"super_included"`

	// AnnualEarnings places the employee in a PAYG bracket; mandatory for
	// marginal-rates, where a missing value would price in the tax-free
	// bracket and silently withhold nothing.
	AnnualEarnings float64 `json:"annual_earnings,omitempty" validate:"required_if=TaxMethod marginal-rates,omitempty,gt=0"`

	// History is trailing per-period earnings (average-rate).
	History []PeriodEarningsDTO `json:"history,omitempty"`
}

type PeriodEarningsDTO struct {
	Gross float64 `json:"gross"`
	Tax   float64 `json:"tax"`
}

// BonusResponse is the persisted, priced bonus.
type BonusResponse struct {
	ID                string `json:"id"`
	EmployeeID        string `json:"employee_id"`
	BonusType         string `json:"bonus_type"`
	GrossAmount       string `json:"gross_amount"`
	TaxWithheld       string `json:"tax_withheld"`
	NetAmount         string `json:"net_amount"`
	SuperContribution string `json:"super_contribution"`
	TaxMethod         string `json:"tax_method"`
	PaymentDate       string `json:"payment_date"`
	ApprovalStatus    string `json:"approval_status"`
	CreatedAt         string `json:"created_at,omitempty"`
	ApprovedAt        string `json:"approved_at,omitempty"`
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// CreateRuleRequest wraps a rule definition in the factory's JSON shape.
type CreateRuleRequest struct {
	Config factory.RuleJSON `json:"config"`
}

// RuleResponse is a stored rule in API responses.
type RuleResponse struct {
	ID        string           `json:"id"`
	Config    factory.RuleJSON `json:"config"`
	CreatedAt string           `json:"created_at,omitempty"`
}

// CreateRateRequest wraps a statutory rate definition.
type CreateRateRequest struct {
	Config factory.RateJSON `json:"config"`
}

// RateResponse is a stored statutory rate row.
type RateResponse struct {
	ID        string           `json:"id"`
	Config    factory.RateJSON `json:"config"`
	CreatedAt string           `json:"created_at,omitempty"`
}

// ResolvedRateResponse answers "which rate applied on this date".
type ResolvedRateResponse struct {
	RateType      string `json:"rate_type"`
	Date          string `json:"date"`
	RateID        string `json:"rate_id"`
	Name          string `json:"name"`
	Value         string `json:"value"`
	EffectiveFrom string `json:"effective_from"`
	EffectiveTo   string `json:"effective_to,omitempty"`
}

// RunDTO is one interpretation run summary.
type RunDTO struct {
	ID             string `json:"id"`
	Classification string `json:"classification"`
	RecordCount    int    `json:"record_count"`
	PricedCount    int    `json:"priced_count"`
	ErrorCount     int    `json:"error_count"`
	TotalAmount    string `json:"total_amount"`
	CreatedAt      string `json:"created_at"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toDayResultDTO(day award.DayResult) AwardResultDTO {
	dto := AwardResultDTO{
		RecordID:   day.RecordID,
		EmployeeID: string(day.EmployeeID),
		Date:       day.Date.Format("2006-01-02"),
		Components: make([]ComponentDTO, 0, len(day.Components)),
		Total:      day.Total().StringFixed(2),
	}
	for _, c := range day.Components {
		dto.Components = append(dto.Components, ComponentDTO{
			Code:        string(c.Code),
			Description: c.Description,
			Units:       c.Units.String(),
			Rate:        c.Rate.String(),
			Amount:      c.Amount.StringFixed(2),
		})
	}
	return dto
}

func toRecordErrorDTO(re *award.RecordError) AwardResultDTO {
	dto := AwardResultDTO{
		RecordID:   re.RecordID,
		EmployeeID: string(re.EmployeeID),
		Components: []ComponentDTO{},
		Error:      re.Err.Error(),
	}
	if !re.Date.IsZero() {
		dto.Date = re.Date.Format("2006-01-02")
	}
	return dto
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
