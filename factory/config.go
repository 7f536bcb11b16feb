/*
Package factory provides JSON to Go configuration conversion.

PURPOSE:
  Converts JSON award-rule and statutory-rate definitions into award.Rule
  and statutory.Rate values. This is what lets the admin rule-table UI
  edit configuration without code changes: payroll officers submit JSON,
  the factory produces properly typed rows.

WHY JSON?
  - Non-developers maintain award and rate tables
  - Easy integration with the configuration UI
  - Database storage of configuration rows
  - Version control of rule definitions

RULE SCHEMA:
  {
    "id": "retail-l2-fy25",
    "award": "General Retail Industry Award",
    "classification": "retail-level-2",
    "penalty_rate_pct": 25,
    "overtime_threshold_hours": 7.6,
    "overtime_period": "day",
    "shift_loading_pct": 15,
    "loading_mode": "additive",
    "shift_window": {"start": "18:00", "end": "06:00", "days": ["friday", "saturday"]},
    "allowances": [{"type": "meal", "amount": 15.20}],
    "effective_from": "2025-07-01"
  }

VALIDATION:
  Enums are checked exhaustively here; anything downstream works with
  tagged variants, never raw strings. Missing IDs are minted as UUIDs.

SEE ALSO:
  - award/rules.go: Rule type and per-rule validation
  - statutory/rates.go: Rate type and per-row validation
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rpgramesh/stellaris-hrm-sub003/award"
	"github.com/rpgramesh/stellaris-hrm-sub003/statutory"
)

const dateLayout = "2006-01-02"

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the JSON representation of an award rule.
type RuleJSON struct {
	ID                     string           `json:"id,omitempty"`
	Award                  string           `json:"award"`
	Classification         string           `json:"classification"`
	PenaltyRatePct         float64          `json:"penalty_rate_pct"`
	OvertimeThresholdHours float64          `json:"overtime_threshold_hours"`
	OvertimePeriod         string           `json:"overtime_period,omitempty"` // day (default) | week
	ShiftLoadingPct        float64          `json:"shift_loading_pct,omitempty"`
	LoadingMode            string           `json:"loading_mode,omitempty"` // additive | multiplicative
	ShiftWindow            *ShiftWindowJSON `json:"shift_window,omitempty"`
	Allowances             []AllowanceJSON  `json:"allowances,omitempty"`
	EffectiveFrom          string           `json:"effective_from"`
	EffectiveTo            string           `json:"effective_to,omitempty"`
}

// ShiftWindowJSON uses wall-clock times; a window may wrap midnight.
type ShiftWindowJSON struct {
	Start string   `json:"start"` // "18:00"
	End   string   `json:"end"`   // "06:00"
	Days  []string `json:"days,omitempty"`
}

type AllowanceJSON struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

// RateJSON is the JSON representation of a statutory rate row.
type RateJSON struct {
	ID            string   `json:"id,omitempty"`
	RateType      string   `json:"rate_type"`
	Name          string   `json:"name"`
	Rate          float64  `json:"rate"` // fraction 0..1
	Threshold     *float64 `json:"threshold,omitempty"`
	EffectiveFrom string   `json:"effective_from"`
	EffectiveTo   string   `json:"effective_to,omitempty"`
	IsActive      *bool    `json:"is_active,omitempty"` // default true
}

// =============================================================================
// RULE FACTORY
// =============================================================================

type ConfigFactory struct{}

func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{}
}

// ParseRule converts a JSON rule definition into an award.Rule,
// validating enums and minting an ID if none was supplied.
func (f *ConfigFactory) ParseRule(data []byte) (award.Rule, error) {
	var rj RuleJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return award.Rule{}, fmt.Errorf("invalid rule JSON: %w", err)
	}
	return f.BuildRule(rj)
}

// BuildRule converts an already-decoded RuleJSON.
func (f *ConfigFactory) BuildRule(rj RuleJSON) (award.Rule, error) {
	rule := award.Rule{
		ID:                award.RuleID(rj.ID),
		Award:             rj.Award,
		Classification:    award.Classification(rj.Classification),
		PenaltyRatePct:    decimal.NewFromFloat(rj.PenaltyRatePct),
		OvertimeThreshold: decimal.NewFromFloat(rj.OvertimeThresholdHours),
		ShiftLoadingPct:   decimal.NewFromFloat(rj.ShiftLoadingPct),
	}
	if rule.ID == "" {
		rule.ID = award.RuleID(uuid.NewString())
	}

	switch rj.OvertimePeriod {
	case "", "day":
		rule.OvertimePeriod = award.OvertimePerDay
	case "week":
		rule.OvertimePeriod = award.OvertimePerWeek
	default:
		return award.Rule{}, fmt.Errorf("unknown overtime_period %q (want day or week)", rj.OvertimePeriod)
	}

	switch rj.LoadingMode {
	case "":
		// Only valid when no loading is configured; rule.Validate catches
		// a loaded rule without a mode.
	case "additive":
		rule.LoadingMode = award.LoadingAdditive
	case "multiplicative":
		rule.LoadingMode = award.LoadingMultiplicative
	default:
		return award.Rule{}, fmt.Errorf("unknown loading_mode %q (want additive or multiplicative)", rj.LoadingMode)
	}

	if rj.ShiftWindow != nil {
		window, err := parseShiftWindow(*rj.ShiftWindow)
		if err != nil {
			return award.Rule{}, err
		}
		rule.ShiftWindow = &window
	}

	for _, a := range rj.Allowances {
		rule.Allowances = append(rule.Allowances, award.Allowance{
			Type:   a.Type,
			Amount: decimal.NewFromFloat(a.Amount),
		})
	}

	var err error
	rule.EffectiveFrom, rule.EffectiveTo, err = parseEffectiveWindow(rj.EffectiveFrom, rj.EffectiveTo)
	if err != nil {
		return award.Rule{}, err
	}

	if err := rule.Validate(); err != nil {
		return award.Rule{}, err
	}
	return rule, nil
}

// FormatRule converts a rule back to its JSON shape for API responses.
func (f *ConfigFactory) FormatRule(rule award.Rule) RuleJSON {
	rj := RuleJSON{
		ID:             string(rule.ID),
		Award:          rule.Award,
		Classification: string(rule.Classification),
		OvertimePeriod: string(rule.OvertimePeriod),
		LoadingMode:    string(rule.LoadingMode),
		EffectiveFrom:  rule.EffectiveFrom.Format(dateLayout),
	}
	rj.PenaltyRatePct, _ = rule.PenaltyRatePct.Float64()
	rj.OvertimeThresholdHours, _ = rule.OvertimeThreshold.Float64()
	rj.ShiftLoadingPct, _ = rule.ShiftLoadingPct.Float64()
	if rule.EffectiveTo != nil {
		rj.EffectiveTo = rule.EffectiveTo.Format(dateLayout)
	}
	if rule.ShiftWindow != nil {
		w := ShiftWindowJSON{
			Start: minuteToClock(rule.ShiftWindow.StartMinute),
			End:   minuteToClock(rule.ShiftWindow.EndMinute),
		}
		for _, d := range rule.ShiftWindow.Days {
			w.Days = append(w.Days, strings.ToLower(d.String()))
		}
		rj.ShiftWindow = &w
	}
	for _, a := range rule.Allowances {
		amount, _ := a.Amount.Float64()
		rj.Allowances = append(rj.Allowances, AllowanceJSON{Type: a.Type, Amount: amount})
	}
	return rj
}

// =============================================================================
// RATE FACTORY
// =============================================================================

// ParseRate converts a JSON rate definition into a statutory.Rate.
func (f *ConfigFactory) ParseRate(data []byte) (statutory.Rate, error) {
	var rj RateJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return statutory.Rate{}, fmt.Errorf("invalid rate JSON: %w", err)
	}
	return f.BuildRate(rj)
}

// BuildRate converts an already-decoded RateJSON.
func (f *ConfigFactory) BuildRate(rj RateJSON) (statutory.Rate, error) {
	rate := statutory.Rate{
		ID:     rj.ID,
		Type:   statutory.RateType(rj.RateType),
		Name:   rj.Name,
		Value:  decimal.NewFromFloat(rj.Rate),
		Active: true,
	}
	if rate.ID == "" {
		rate.ID = uuid.NewString()
	}
	if rj.IsActive != nil {
		rate.Active = *rj.IsActive
	}
	if rj.Threshold != nil {
		threshold := decimal.NewFromFloat(*rj.Threshold)
		rate.Threshold = &threshold
	}

	var err error
	rate.EffectiveFrom, rate.EffectiveTo, err = parseEffectiveWindow(rj.EffectiveFrom, rj.EffectiveTo)
	if err != nil {
		return statutory.Rate{}, err
	}

	if err := rate.Validate(); err != nil {
		return statutory.Rate{}, err
	}
	return rate, nil
}

// FormatRate converts a rate row back to its JSON shape.
func (f *ConfigFactory) FormatRate(rate statutory.Rate) RateJSON {
	rj := RateJSON{
		ID:            rate.ID,
		RateType:      string(rate.Type),
		Name:          rate.Name,
		EffectiveFrom: rate.EffectiveFrom.Format(dateLayout),
		IsActive:      &rate.Active,
	}
	rj.Rate, _ = rate.Value.Float64()
	if rate.Threshold != nil {
		threshold, _ := rate.Threshold.Float64()
		rj.Threshold = &threshold
	}
	if rate.EffectiveTo != nil {
		rj.EffectiveTo = rate.EffectiveTo.Format(dateLayout)
	}
	return rj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseEffectiveWindow(from, to string) (time.Time, *time.Time, error) {
	if from == "" {
		return time.Time{}, nil, fmt.Errorf("effective_from is required")
	}
	fromDate, err := time.Parse(dateLayout, from)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("invalid effective_from %q (use YYYY-MM-DD)", from)
	}
	if to == "" {
		return fromDate, nil, nil
	}
	toDate, err := time.Parse(dateLayout, to)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("invalid effective_to %q (use YYYY-MM-DD)", to)
	}
	return fromDate, &toDate, nil
}

func parseShiftWindow(wj ShiftWindowJSON) (award.ShiftWindow, error) {
	start, err := clockToMinute(wj.Start)
	if err != nil {
		return award.ShiftWindow{}, fmt.Errorf("shift_window.start: %w", err)
	}
	end, err := clockToMinute(wj.End)
	if err != nil {
		return award.ShiftWindow{}, fmt.Errorf("shift_window.end: %w", err)
	}

	window := award.ShiftWindow{StartMinute: start, EndMinute: end}
	for _, name := range wj.Days {
		day, ok := weekdays[strings.ToLower(name)]
		if !ok {
			return award.ShiftWindow{}, fmt.Errorf("unknown weekday %q", name)
		}
		window.Days = append(window.Days, day)
	}
	return window, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func clockToMinute(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q (use HH:MM)", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func minuteToClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
