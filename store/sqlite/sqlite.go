/*
Package sqlite provides the SQLite-backed configuration store.

PURPOSE:
  Persists the engine's external collaborators: award rules, statutory
  rates, bonus payments, and interpretation run history. In production
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

WRITE-TIME OVERLAP DEFENSE:
  The at-most-one-active-rule invariant is enforced HERE, on insert:
  SaveRule and SaveRate reject any row whose effective window overlaps
  an existing row for the same classification / rate type. Read-side
  resolution (award.RuleTable, statutory.RateTable) is the backstop for
  tables that predate this check.

SNAPSHOT SEMANTICS:
  ListRules / ListRates return the full table in one query so a caller
  can build an immutable resolution snapshot per interpretation run.
  No rule changes mid-batch.

IMMUTABILITY:
  Bonus payments stop being editable once approved: ApproveBonus is the
  only transition and refuses to run twice. Interpretation runs are
  append-only history.

KEY TABLES:
  award_rules:         Effective-dated award configuration (JSON + index columns)
  statutory_rates:     Effective-dated statutory rate rows
  bonus_payments:      Calculated bonuses awaiting / past approval
  interpretation_runs: One row per batch interpretation

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block
  and crash recovery is cleaner.

SEE ALSO:
  - award/rules.go: Read-side resolution over these rows
  - factory/config.go: JSON <-> typed config conversion
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rpgramesh/stellaris-hrm-sub003/award"
	"github.com/rpgramesh/stellaris-hrm-sub003/statutory"
)

const dateLayout = "2006-01-02"

// ErrBonusFinalized is returned when mutating a bonus that has already
// been approved.
var ErrBonusFinalized = errors.New("bonus payment already approved")

// ErrNotFound is returned for lookups of missing rows.
var ErrNotFound = errors.New("not found")

// Store implements configuration persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Award rules (effective-dated configuration)
	CREATE TABLE IF NOT EXISTS award_rules (
		id TEXT PRIMARY KEY,
		award TEXT NOT NULL,
		classification TEXT NOT NULL,
		config_json TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rules_classification_window
		ON award_rules(classification, effective_from);

	-- Statutory rates (effective-dated, per rate type)
	CREATE TABLE IF NOT EXISTS statutory_rates (
		id TEXT PRIMARY KEY,
		rate_type TEXT NOT NULL,
		config_json TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rates_type_window
		ON statutory_rates(rate_type, effective_from);

	-- Bonus payments (immutable once approved)
	CREATE TABLE IF NOT EXISTS bonus_payments (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		bonus_type TEXT NOT NULL,
		gross_amount TEXT NOT NULL,
		tax_withheld TEXT NOT NULL,
		net_amount TEXT NOT NULL,
		super_contribution TEXT NOT NULL,
		tax_method TEXT NOT NULL,
		super_included INTEGER NOT NULL,
		payment_date TEXT NOT NULL,
		approval_status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		approved_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_bonus_employee ON bonus_payments(employee_id);

	-- Interpretation runs (append-only history)
	CREATE TABLE IF NOT EXISTS interpretation_runs (
		id TEXT PRIMARY KEY,
		classification TEXT NOT NULL,
		record_count INTEGER NOT NULL,
		priced_count INTEGER NOT NULL,
		error_count INTEGER NOT NULL,
		total_amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// AWARD RULES
// =============================================================================

// RuleRecord is an award rule row. ConfigJSON holds the full definition;
// the remaining columns exist for indexing and overlap checks.
type RuleRecord struct {
	ID             string
	Award          string
	Classification string
	ConfigJSON     string
	EffectiveFrom  time.Time
	EffectiveTo    *time.Time
	CreatedAt      time.Time
}

// SaveRule inserts a rule row, rejecting any effective-window overlap
// with an existing rule for the same classification. This is the primary
// defense behind the non-overlap invariant.
func (s *Store) SaveRule(ctx context.Context, rec RuleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	overlapIDs, err := s.overlappingRuleIDs(ctx, rec)
	if err != nil {
		return err
	}
	if len(overlapIDs) > 0 {
		return &award.AmbiguousRuleError{
			Classification: award.Classification(rec.Classification),
			Date:           rec.EffectiveFrom,
			RuleIDs:        append([]award.RuleID{award.RuleID(rec.ID)}, overlapIDs...),
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO award_rules (id, award, classification, config_json, effective_from, effective_to, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Award, rec.Classification, rec.ConfigJSON,
		rec.EffectiveFrom.Format(dateLayout), formatDatePtr(rec.EffectiveTo),
		time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) overlappingRuleIDs(ctx context.Context, rec RuleRecord) ([]award.RuleID, error) {
	// Overlap: existing window ends after the new one starts AND starts
	// before the new one ends. NULL effective_to means open-ended.
	query := `
		SELECT id FROM award_rules
		WHERE classification = ? AND id != ?
		AND (effective_to IS NULL OR effective_to > ?)`
	args := []any{rec.Classification, rec.ID, rec.EffectiveFrom.Format(dateLayout)}
	if rec.EffectiveTo != nil {
		query += ` AND effective_from < ?`
		args = append(args, rec.EffectiveTo.Format(dateLayout))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []award.RuleID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, award.RuleID(id))
	}
	return ids, rows.Err()
}

// ListRules returns the whole rule table, oldest effective window first.
func (s *Store) ListRules(ctx context.Context) ([]RuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, award, classification, config_json, effective_from, effective_to, created_at
		FROM award_rules ORDER BY classification, effective_from`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RuleRecord
	for rows.Next() {
		rec, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetRule returns one rule row, or ErrNotFound.
func (s *Store) GetRule(ctx context.Context, id string) (*RuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, award, classification, config_json, effective_from, effective_to, created_at
		FROM award_rules WHERE id = ?`, id)
	rec, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteRule removes a rule row. Retiring a mistaken version is a
// delete; superseding a correct one is a new effective window.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM award_rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (RuleRecord, error) {
	var rec RuleRecord
	var from, createdAt string
	var to sql.NullString
	if err := row.Scan(&rec.ID, &rec.Award, &rec.Classification, &rec.ConfigJSON, &from, &to, &createdAt); err != nil {
		return RuleRecord{}, err
	}
	rec.EffectiveFrom, _ = time.Parse(dateLayout, from)
	rec.EffectiveTo = parseDatePtr(to)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return rec, nil
}

// =============================================================================
// STATUTORY RATES
// =============================================================================

// RateRecord is a statutory rate row.
type RateRecord struct {
	ID            string
	RateType      string
	ConfigJSON    string
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Active        bool
	CreatedAt     time.Time
}

// SaveRate inserts a rate row, rejecting overlapping effective windows
// for the same rate type. Deactivated rows don't participate.
func (s *Store) SaveRate(ctx context.Context, rec RateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Active {
		ids, err := s.overlappingRateIDs(ctx, rec)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			return &statutory.AmbiguousRateError{
				Type:    statutory.RateType(rec.RateType),
				Date:    rec.EffectiveFrom,
				RateIDs: append([]string{rec.ID}, ids...),
			}
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO statutory_rates (id, rate_type, config_json, effective_from, effective_to, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RateType, rec.ConfigJSON,
		rec.EffectiveFrom.Format(dateLayout), formatDatePtr(rec.EffectiveTo),
		boolToInt(rec.Active), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) overlappingRateIDs(ctx context.Context, rec RateRecord) ([]string, error) {
	query := `
		SELECT id FROM statutory_rates
		WHERE rate_type = ? AND id != ? AND is_active = 1
		AND (effective_to IS NULL OR effective_to > ?)`
	args := []any{rec.RateType, rec.ID, rec.EffectiveFrom.Format(dateLayout)}
	if rec.EffectiveTo != nil {
		query += ` AND effective_from < ?`
		args = append(args, rec.EffectiveTo.Format(dateLayout))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListRates returns the whole rate table.
func (s *Store) ListRates(ctx context.Context) ([]RateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rate_type, config_json, effective_from, effective_to, is_active, created_at
		FROM statutory_rates ORDER BY rate_type, effective_from`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RateRecord
	for rows.Next() {
		var rec RateRecord
		var from, createdAt string
		var to sql.NullString
		var active int
		if err := rows.Scan(&rec.ID, &rec.RateType, &rec.ConfigJSON, &from, &to, &active, &createdAt); err != nil {
			return nil, err
		}
		rec.EffectiveFrom, _ = time.Parse(dateLayout, from)
		rec.EffectiveTo = parseDatePtr(to)
		rec.Active = active == 1
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// BONUS PAYMENTS
// =============================================================================

// BonusPayment is a calculated bonus and its approval state. Amounts are
// stored as decimal strings; floats never touch money.
type BonusPayment struct {
	ID                string
	EmployeeID        string
	BonusType         string
	GrossAmount       string
	TaxWithheld       string
	NetAmount         string
	SuperContribution string
	TaxMethod         string
	SuperIncluded     bool
	PaymentDate       time.Time
	ApprovalStatus    string // pending | approved
	CreatedAt         time.Time
	ApprovedAt        *time.Time
}

// SaveBonus persists a freshly calculated bonus as pending.
func (s *Store) SaveBonus(ctx context.Context, b BonusPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bonus_payments
			(id, employee_id, bonus_type, gross_amount, tax_withheld, net_amount,
			 super_contribution, tax_method, super_included, payment_date,
			 approval_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?)`,
		b.ID, b.EmployeeID, b.BonusType, b.GrossAmount, b.TaxWithheld, b.NetAmount,
		b.SuperContribution, b.TaxMethod, boolToInt(b.SuperIncluded),
		b.PaymentDate.Format(dateLayout), time.Now().UTC().Format(time.RFC3339))
	return err
}

// ListBonuses returns bonuses, optionally filtered by employee.
func (s *Store) ListBonuses(ctx context.Context, employeeID string) ([]BonusPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, bonus_type, gross_amount, tax_withheld, net_amount,
		       super_contribution, tax_method, super_included, payment_date,
		       approval_status, created_at, approved_at
		FROM bonus_payments`
	var args []any
	if employeeID != "" {
		query += ` WHERE employee_id = ?`
		args = append(args, employeeID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bonuses []BonusPayment
	for rows.Next() {
		b, err := scanBonus(rows)
		if err != nil {
			return nil, err
		}
		bonuses = append(bonuses, b)
	}
	return bonuses, rows.Err()
}

// GetBonus returns one bonus, or ErrNotFound.
func (s *Store) GetBonus(ctx context.Context, id string) (*BonusPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, bonus_type, gross_amount, tax_withheld, net_amount,
		       super_contribution, tax_method, super_included, payment_date,
		       approval_status, created_at, approved_at
		FROM bonus_payments WHERE id = ?`, id)
	b, err := scanBonus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ApproveBonus transitions a pending bonus to approved. Approved bonuses
// are immutable; approving twice fails with ErrBonusFinalized.
func (s *Store) ApproveBonus(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE bonus_payments SET approval_status = 'approved', approved_at = ?
		WHERE id = ? AND approval_status = 'pending'`,
		time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish missing from finalized
		var status string
		err := s.db.QueryRowContext(ctx, `SELECT approval_status FROM bonus_payments WHERE id = ?`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrBonusFinalized
	}
	return nil
}

func scanBonus(row scanner) (BonusPayment, error) {
	var b BonusPayment
	var superIncluded int
	var paymentDate, createdAt string
	var approvedAt sql.NullString
	err := row.Scan(&b.ID, &b.EmployeeID, &b.BonusType, &b.GrossAmount, &b.TaxWithheld,
		&b.NetAmount, &b.SuperContribution, &b.TaxMethod, &superIncluded,
		&paymentDate, &b.ApprovalStatus, &createdAt, &approvedAt)
	if err != nil {
		return BonusPayment{}, err
	}
	b.SuperIncluded = superIncluded == 1
	b.PaymentDate, _ = time.Parse(dateLayout, paymentDate)
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if approvedAt.Valid {
		t, _ := time.Parse(time.RFC3339, approvedAt.String)
		b.ApprovedAt = &t
	}
	return b, nil
}

// =============================================================================
// INTERPRETATION RUNS
// =============================================================================

// InterpretationRun is one batch interpretation's summary, kept as
// append-only history for operators.
type InterpretationRun struct {
	ID             string
	Classification string
	RecordCount    int
	PricedCount    int
	ErrorCount     int
	TotalAmount    string
	CreatedAt      time.Time
}

// SaveRun appends a run summary.
func (s *Store) SaveRun(ctx context.Context, run InterpretationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interpretation_runs
			(id, classification, record_count, priced_count, error_count, total_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Classification, run.RecordCount, run.PricedCount, run.ErrorCount,
		run.TotalAmount, time.Now().UTC().Format(time.RFC3339))
	return err
}

// ListRuns returns run history, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]InterpretationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, classification, record_count, priced_count, error_count, total_amount, created_at
		FROM interpretation_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []InterpretationRun
	for rows.Next() {
		var run InterpretationRun
		var createdAt string
		if err := rows.Scan(&run.ID, &run.Classification, &run.RecordCount, &run.PricedCount,
			&run.ErrorCount, &run.TotalAmount, &createdAt); err != nil {
			return nil, err
		}
		run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func formatDatePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseDatePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
