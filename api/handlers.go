/*
handlers.go - HTTP API handlers for the award interpretation service

PURPOSE:
  Exposes the award interpretation and statutory calculation engines via
  REST API. Handles HTTP request/response, JSON serialization, and
  delegates to domain logic.

ENDPOINTS:
  Payroll:
    POST   /api/payroll/award                 Interpret a batch of attendance records
    POST   /api/payroll/bonus                 Calculate and persist a bonus
    GET    /api/payroll/bonuses               List bonus payments
    POST   /api/payroll/bonuses/{id}/approve  Approve a pending bonus
    GET    /api/payroll/runs                  Interpretation run history

  Configuration:
    GET    /api/rules                         List award rules
    POST   /api/rules                         Create award rule from JSON
    GET    /api/rules/{id}                    Get one rule
    DELETE /api/rules/{id}                    Retire a rule
    GET    /api/rates                         List statutory rates
    POST   /api/rates                         Create statutory rate
    GET    /api/rates/resolve                 Resolve the rate for a date

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Factory: JSON to rule/rate conversion
  - Validate: Request-shape validation

SNAPSHOT FLOW:
  Each interpretation request loads the full rule table once and builds
  an immutable snapshot, so a rule edit mid-batch cannot split the batch
  across two configurations.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed request, validation errors
  - 404: Rule / rate / bonus not found
  - 409: Conflicting configuration (overlapping windows, double approval)
  - 422: Well-formed input the engine refuses to price
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - award/engine.go: Interpretation core
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rpgramesh/stellaris-hrm-sub003/award"
	"github.com/rpgramesh/stellaris-hrm-sub003/factory"
	"github.com/rpgramesh/stellaris-hrm-sub003/statutory"
	"github.com/rpgramesh/stellaris-hrm-sub003/store/sqlite"
)

const dateLayout = "2006-01-02"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Factory  *factory.ConfigFactory
	Validate *validator.Validate

	// DefaultClassification is used when an interpretation request omits
	// one.
	DefaultClassification string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, defaultClassification string) *Handler {
	return &Handler{
		Store:                 store,
		Factory:               factory.NewConfigFactory(),
		Validate:              validator.New(),
		DefaultClassification: defaultClassification,
	}
}

// =============================================================================
// AWARD INTERPRETATION
// =============================================================================

// InterpretAward prices a batch of attendance records.
func (h *Handler) InterpretAward(w http.ResponseWriter, r *http.Request) {
	var req AwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	classification := req.Classification
	if classification == "" {
		classification = h.DefaultClassification
	}
	if classification == "" {
		writeError(w, http.StatusBadRequest, "No classification given and no default configured", nil)
		return
	}

	records, err := parseAttendance(req.Records)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid attendance record", err)
		return
	}

	rules, err := h.ruleSnapshot(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rule table", err)
		return
	}

	batch := award.InterpretBatch(award.BatchInput{
		Records:        records,
		Rules:          rules,
		Classification: award.Classification(classification),
		HourlyRate:     decimal.NewFromFloat(req.HourlyRate),
	})

	results := make([]AwardResultDTO, 0, len(batch.Days)+len(batch.Errors))
	total := decimal.Zero
	for _, day := range batch.Days {
		results = append(results, toDayResultDTO(day))
		total = total.Add(day.Total())
	}
	for _, re := range batch.Errors {
		results = append(results, toRecordErrorDTO(re))
	}

	// Run history is telemetry: a failure to record it must not turn a
	// correctly priced batch into an error response.
	run := sqlite.InterpretationRun{
		ID:             uuid.NewString(),
		Classification: classification,
		RecordCount:    len(req.Records),
		PricedCount:    len(batch.Days),
		ErrorCount:     len(batch.Errors),
		TotalAmount:    total.StringFixed(2),
	}
	if err := h.Store.SaveRun(r.Context(), run); err != nil {
		log.Printf("WARNING: failed to record interpretation run %s: %v", run.ID, err)
	}

	writeJSON(w, http.StatusOK, results)
}

// ruleSnapshot builds an immutable rule table from the stored rows.
func (h *Handler) ruleSnapshot(r *http.Request) (*award.RuleTable, error) {
	records, err := h.Store.ListRules(r.Context())
	if err != nil {
		return nil, err
	}

	rules := make([]award.Rule, 0, len(records))
	for _, rec := range records {
		rule, err := h.Factory.ParseRule([]byte(rec.ConfigJSON))
		if err != nil {
			return nil, fmt.Errorf("stored rule %s: %w", rec.ID, err)
		}
		rules = append(rules, rule)
	}
	return award.NewRuleTable(rules)
}

// ListRuns returns interpretation run history.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, RunDTO{
			ID:             run.ID,
			Classification: run.Classification,
			RecordCount:    run.RecordCount,
			PricedCount:    run.PricedCount,
			ErrorCount:     run.ErrorCount,
			TotalAmount:    run.TotalAmount,
			CreatedAt:      run.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListRules returns all award rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}

	dtos := make([]RuleResponse, 0, len(records))
	for _, rec := range records {
		var config factory.RuleJSON
		if err := json.Unmarshal([]byte(rec.ConfigJSON), &config); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Corrupt stored rule %s", rec.ID), err)
			return
		}
		dtos = append(dtos, RuleResponse{
			ID:        rec.ID,
			Config:    config,
			CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRule validates and stores an award rule.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule, err := h.Factory.BuildRule(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule configuration", err)
		return
	}

	// Echo the minted ID back through the stored JSON
	config := h.Factory.FormatRule(rule)
	configJSON, _ := json.Marshal(config)

	rec := sqlite.RuleRecord{
		ID:             string(rule.ID),
		Award:          rule.Award,
		Classification: string(rule.Classification),
		ConfigJSON:     string(configJSON),
		EffectiveFrom:  rule.EffectiveFrom,
		EffectiveTo:    rule.EffectiveTo,
	}
	if err := h.Store.SaveRule(r.Context(), rec); err != nil {
		var ambiguous *award.AmbiguousRuleError
		if errors.As(err, &ambiguous) {
			writeError(w, http.StatusConflict, "Rule overlaps an existing effective window", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create rule", err)
		return
	}

	writeJSON(w, http.StatusCreated, RuleResponse{ID: rec.ID, Config: config})
}

// GetRule returns a single rule.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.Store.GetRule(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Rule not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get rule", err)
		return
	}

	var config factory.RuleJSON
	if err := json.Unmarshal([]byte(rec.ConfigJSON), &config); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Corrupt stored rule %s", rec.ID), err)
		return
	}
	writeJSON(w, http.StatusOK, RuleResponse{
		ID:        rec.ID,
		Config:    config,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	})
}

// DeleteRule retires a rule.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.Store.DeleteRule(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Rule not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete rule", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// RATE HANDLERS
// =============================================================================

// ListRates returns all statutory rates.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListRates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rates", err)
		return
	}

	dtos := make([]RateResponse, 0, len(records))
	for _, rec := range records {
		var config factory.RateJSON
		if err := json.Unmarshal([]byte(rec.ConfigJSON), &config); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Corrupt stored rate %s", rec.ID), err)
			return
		}
		dtos = append(dtos, RateResponse{
			ID:        rec.ID,
			Config:    config,
			CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRate validates and stores a statutory rate.
func (h *Handler) CreateRate(w http.ResponseWriter, r *http.Request) {
	var req CreateRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rate, err := h.Factory.BuildRate(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate configuration", err)
		return
	}

	config := h.Factory.FormatRate(rate)
	configJSON, _ := json.Marshal(config)

	rec := sqlite.RateRecord{
		ID:            rate.ID,
		RateType:      string(rate.Type),
		ConfigJSON:    string(configJSON),
		EffectiveFrom: rate.EffectiveFrom,
		EffectiveTo:   rate.EffectiveTo,
		Active:        rate.Active,
	}
	if err := h.Store.SaveRate(r.Context(), rec); err != nil {
		var ambiguous *statutory.AmbiguousRateError
		if errors.As(err, &ambiguous) {
			writeError(w, http.StatusConflict, "Rate overlaps an existing effective window", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create rate", err)
		return
	}

	writeJSON(w, http.StatusCreated, RateResponse{ID: rec.ID, Config: config})
}

// ResolveRate answers which rate applies on a given date.
// GET /api/rates/resolve?rate_type=superannuation-guarantee&date=2025-09-01
func (h *Handler) ResolveRate(w http.ResponseWriter, r *http.Request) {
	rateType := statutory.RateType(r.URL.Query().Get("rate_type"))
	if !statutory.KnownRateType(rateType) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown rate_type %q", rateType), nil)
		return
	}

	dateStr := r.URL.Query().Get("date")
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if dateStr != "" {
		var err error
		date, err = time.Parse(dateLayout, dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
	}

	table, err := h.rateSnapshot(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rate table", err)
		return
	}

	rate, err := table.Resolve(rateType, date)
	if errors.Is(err, statutory.ErrRateNotFound) {
		writeError(w, http.StatusNotFound, "No rate effective on that date", err)
		return
	}
	if errors.Is(err, statutory.ErrAmbiguousRateConfiguration) {
		writeError(w, http.StatusConflict, "Overlapping rates for that date", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve rate", err)
		return
	}

	resp := ResolvedRateResponse{
		RateType:      string(rate.Type),
		Date:          date.Format(dateLayout),
		RateID:        rate.ID,
		Name:          rate.Name,
		Value:         rate.Value.String(),
		EffectiveFrom: rate.EffectiveFrom.Format(dateLayout),
	}
	if rate.EffectiveTo != nil {
		resp.EffectiveTo = rate.EffectiveTo.Format(dateLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

// rateSnapshot builds an immutable rate table from the stored rows.
func (h *Handler) rateSnapshot(r *http.Request) (*statutory.RateTable, error) {
	records, err := h.Store.ListRates(r.Context())
	if err != nil {
		return nil, err
	}

	rates := make([]statutory.Rate, 0, len(records))
	for _, rec := range records {
		rate, err := h.Factory.ParseRate([]byte(rec.ConfigJSON))
		if err != nil {
			return nil, fmt.Errorf("stored rate %s: %w", rec.ID, err)
		}
		rates = append(rates, rate)
	}
	return statutory.NewRateTable(rates)
}

// =============================================================================
// BONUS HANDLERS
// =============================================================================

// CalculateBonus prices a bonus and persists it as pending.
func (h *Handler) CalculateBonus(w http.ResponseWriter, r *http.Request) {
	var req BonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	paymentDate, err := time.Parse(dateLayout, req.PaymentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment_date (use YYYY-MM-DD)", err)
		return
	}

	rates, err := h.rateSnapshot(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rate table", err)
		return
	}
	schedules, err := statutory.NewScheduleSet([]statutory.WithholdingSchedule{statutory.DefaultSchedule()})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load withholding schedules", err)
		return
	}

	calc := &statutory.BonusCalculator{Rates: rates, Schedules: schedules}

	history := make([]statutory.PeriodEarnings, 0, len(req.History))
	for _, p := range req.History {
		history = append(history, statutory.PeriodEarnings{
			Gross: decimal.NewFromFloat(p.Gross),
			Tax:   decimal.NewFromFloat(p.Tax),
		})
	}

	result, err := calc.Calculate(statutory.BonusInput{
		EmployeeID:     req.EmployeeID,
		GrossAmount:    decimal.NewFromFloat(req.GrossAmount),
		PaymentDate:    paymentDate,
		Method:         statutory.TaxMethod(req.TaxMethod),
		SuperIncluded:  req.SuperIncluded,
		AnnualEarnings: decimal.NewFromFloat(req.AnnualEarnings),
		History:        history,
	})
	if err != nil {
		writeError(w, bonusErrorStatus(err), "Failed to calculate bonus", err)
		return
	}

	bonusType := req.BonusType
	if bonusType == "" {
		bonusType = "discretionary"
	}

	payment := sqlite.BonusPayment{
		ID:                uuid.NewString(),
		EmployeeID:        req.EmployeeID,
		BonusType:         bonusType,
		GrossAmount:       result.GrossAmount.StringFixed(2),
		TaxWithheld:       result.TaxWithheld.StringFixed(2),
		NetAmount:         result.NetAmount.StringFixed(2),
		SuperContribution: result.SuperContribution.StringFixed(2),
		TaxMethod:         req.TaxMethod,
		SuperIncluded:     req.SuperIncluded,
		PaymentDate:       paymentDate,
	}
	if err := h.Store.SaveBonus(r.Context(), payment); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save bonus", err)
		return
	}

	writeJSON(w, http.StatusCreated, BonusResponse{
		ID:                payment.ID,
		EmployeeID:        payment.EmployeeID,
		BonusType:         payment.BonusType,
		GrossAmount:       payment.GrossAmount,
		TaxWithheld:       payment.TaxWithheld,
		NetAmount:         payment.NetAmount,
		SuperContribution: payment.SuperContribution,
		TaxMethod:         payment.TaxMethod,
		PaymentDate:       payment.PaymentDate.Format(dateLayout),
		ApprovalStatus:    "pending",
	})
}

func bonusErrorStatus(err error) int {
	switch {
	case errors.Is(err, statutory.ErrRateNotFound):
		return http.StatusNotFound
	case errors.Is(err, statutory.ErrAmbiguousRateConfiguration):
		return http.StatusConflict
	case errors.Is(err, statutory.ErrInsufficientHistory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, statutory.ErrInvalidRate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ListBonuses returns bonus payments, optionally filtered by employee.
func (h *Handler) ListBonuses(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employee_id")

	bonuses, err := h.Store.ListBonuses(r.Context(), employeeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bonuses", err)
		return
	}

	dtos := make([]BonusResponse, 0, len(bonuses))
	for _, b := range bonuses {
		dtos = append(dtos, toBonusResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bonuses": dtos})
}

// ApproveBonus transitions a pending bonus to approved.
func (h *Handler) ApproveBonus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.Store.ApproveBonus(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Bonus not found", nil)
		return
	}
	if errors.Is(err, sqlite.ErrBonusFinalized) {
		writeError(w, http.StatusConflict, "Bonus already approved", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to approve bonus", err)
		return
	}

	bonus, err := h.Store.GetBonus(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load bonus", err)
		return
	}
	writeJSON(w, http.StatusOK, toBonusResponse(*bonus))
}

func toBonusResponse(b sqlite.BonusPayment) BonusResponse {
	return BonusResponse{
		ID:                b.ID,
		EmployeeID:        b.EmployeeID,
		BonusType:         b.BonusType,
		GrossAmount:       b.GrossAmount,
		TaxWithheld:       b.TaxWithheld,
		NetAmount:         b.NetAmount,
		SuperContribution: b.SuperContribution,
		TaxMethod:         b.TaxMethod,
		PaymentDate:       b.PaymentDate.Format(dateLayout),
		ApprovalStatus:    b.ApprovalStatus,
		CreatedAt:         b.CreatedAt.Format(time.RFC3339),
		ApprovedAt:        formatTimePtr(b.ApprovedAt),
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func parseAttendance(dtos []AttendanceDTO) ([]award.AttendanceRecord, error) {
	records := make([]award.AttendanceRecord, 0, len(dtos))
	for _, dto := range dtos {
		date, err := time.Parse(dateLayout, dto.Date)
		if err != nil {
			return nil, fmt.Errorf("record %s: invalid date %q", dto.ID, dto.Date)
		}
		clockIn, err := time.Parse(time.RFC3339, dto.ClockIn)
		if err != nil {
			return nil, fmt.Errorf("record %s: invalid clockIn %q", dto.ID, dto.ClockIn)
		}

		// Clients that price one employee per batch send no employeeId;
		// the record id stands in so weekly accumulation still keys
		// consistently.
		employeeID := dto.EmployeeID
		if employeeID == "" {
			employeeID = dto.ID
		}

		rec := award.AttendanceRecord{
			ID:         dto.ID,
			EmployeeID: award.EmployeeID(employeeID),
			Date:       date,
			ClockIn:    clockIn,
		}
		if dto.ClockOut != "" {
			rec.ClockOut, err = time.Parse(time.RFC3339, dto.ClockOut)
			if err != nil {
				return nil, fmt.Errorf("record %s: invalid clockOut %q", dto.ID, dto.ClockOut)
			}
		}
		for _, b := range dto.Breaks {
			start, err := time.Parse(time.RFC3339, b.Start)
			if err != nil {
				return nil, fmt.Errorf("record %s: invalid break start %q", dto.ID, b.Start)
			}
			end, err := time.Parse(time.RFC3339, b.End)
			if err != nil {
				return nil, fmt.Errorf("record %s: invalid break end %q", dto.ID, b.End)
			}
			rec.Breaks = append(rec.Breaks, award.BreakInterval{Start: start, End: end})
		}
		records = append(records, rec)
	}
	return records, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
