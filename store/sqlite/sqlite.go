/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces (TemplateStore, CardStore,
  AssignmentStore, EntryLog) using SQLite. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  templates:         Template definitions (vocabulary as JSON config)
  company_defaults:  One row per company naming its default template.
                     The single-writer record that enforces "exactly one
                     default" without scanning all templates.
  rate_cards:        Priced cards (entries as JSON)
  rate_assignments:  (subcontractor, client) -> pay/bill card bindings,
                     UNIQUE on the pair; saves are conflict-upserts so
                     concurrent creates can never leave two live rows.
  subcontractors:    Display names for reporting lookups
  time_logs:         Priced work entries. Financial columns are written
                     by INSERT only; the sole UPDATE in this package
                     touches status (and updated_at), nothing else.
  expenses:          Pass-through spend entries, same discipline.

WRITE-ONCE ENFORCEMENT:
  There is no UPDATE statement for any financial column. Status
  transitions use optimistic expected-status predicates:
    UPDATE ... SET status=? WHERE id=? AND status=?
  Zero rows affected means a concurrent transition won; the caller gets
  ErrStatusConflict and must re-read.

ATOMIC BATCHES:
  SubmitBatch wraps its transitions in one transaction: a 10-entry
  submission either fully commits or fully rolls back.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

SEE ALSO:
  - ratecard/*.go, ledger/entry.go: interface definitions
  - store/memory/memory.go: in-memory implementation for core tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/rate-engine/ledger"
	"github.com/warp/rate-engine/ratecard"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A :memory: database exists per connection; one connection keeps
	// every query on the same database.
	db.SetMaxOpenConns(1)

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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		config_json TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_templates_company
		ON templates(company_id);

	-- Exactly one default template per company: a dedicated record,
	-- not a flag scattered across template rows.
	CREATE TABLE IF NOT EXISTS company_defaults (
		company_id TEXT PRIMARY KEY,
		template_id TEXT NOT NULL REFERENCES templates(id)
	);

	CREATE TABLE IF NOT EXISTS rate_cards (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		name TEXT,
		kind TEXT NOT NULL,
		template_id TEXT,
		template_name TEXT,
		rates_json TEXT NOT NULL,
		expenses_json TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rate_cards_company
		ON rate_cards(company_id);
	CREATE INDEX IF NOT EXISTS idx_rate_cards_template
		ON rate_cards(template_id) WHERE template_id != '';

	-- CRITICAL: at most one live assignment per (subcontractor, client).
	-- Saves are conflict-upserts against this unique pair.
	CREATE TABLE IF NOT EXISTS rate_assignments (
		id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		subcontractor_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		pay_card_id TEXT,
		bill_card_id TEXT,
		created_at TEXT NOT NULL,
		PRIMARY KEY (subcontractor_id, client_id)
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_company
		ON rate_assignments(company_id);

	CREATE TABLE IF NOT EXISTS subcontractors (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Financial columns are INSERT-only; only status/updated_at ever
	-- see an UPDATE.
	CREATE TABLE IF NOT EXISTS time_logs (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		subcontractor_id TEXT NOT NULL,
		client_id TEXT,
		role_name TEXT NOT NULL,
		timeframe_id TEXT,
		timeframe_label TEXT,
		work_date TEXT NOT NULL,
		hours_regular TEXT NOT NULL,
		hours_ot TEXT NOT NULL,
		sub_cost TEXT NOT NULL,
		client_bill TEXT NOT NULL,
		margin_value TEXT NOT NULL,
		margin_pct TEXT NOT NULL,
		currency TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_time_logs_project
		ON time_logs(project_id, work_date);
	CREATE INDEX IF NOT EXISTS idx_time_logs_subcontractor
		ON time_logs(subcontractor_id, work_date);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		subcontractor_id TEXT NOT NULL,
		client_id TEXT,
		category TEXT,
		work_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		quantity TEXT,
		unit_rate TEXT,
		currency TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_project
		ON expenses(project_id, work_date);
	CREATE INDEX IF NOT EXISTS idx_expenses_subcontractor
		ON expenses(subcontractor_id, work_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

// templateConfig is the JSON shape stored in templates.config_json.
type templateConfig struct {
	Timeframes         []ratecard.TimeframeDef    `json:"timeframes"`
	ExpenseCategories  []ratecard.ExpenseCategory `json:"expense_categories"`
	ResourceCategories []string                   `json:"resource_categories"`
}

func (s *Store) SaveTemplate(ctx context.Context, t ratecard.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	config, err := json.Marshal(templateConfig{
		Timeframes:         t.Timeframes,
		ExpenseCategories:  t.ExpenseCategories,
		ResourceCategories: t.ResourceCategories,
	})
	if err != nil {
		return fmt.Errorf("marshaling template config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (id, company_id, name, description, config_json, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			config_json = excluded.config_json,
			active = excluded.active`,
		t.ID, t.CompanyID, t.Name, t.Description, string(config),
		boolToInt(t.Active), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*ratecard.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT t.id, t.company_id, t.name, t.description, t.config_json, t.active,
		       EXISTS(SELECT 1 FROM company_defaults d
		              WHERE d.company_id = t.company_id AND d.template_id = t.id)
		FROM templates t WHERE t.id = ?`, id)

	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, ratecard.ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) ListTemplates(ctx context.Context, companyID string) ([]ratecard.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.company_id, t.name, t.description, t.config_json, t.active,
		       EXISTS(SELECT 1 FROM company_defaults d
		              WHERE d.company_id = t.company_id AND d.template_id = t.id)
		FROM templates t WHERE t.company_id = ? ORDER BY t.id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ratecard.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*ratecard.Template, error) {
	var t ratecard.Template
	var configJSON string
	var active, isDefault int
	if err := row.Scan(&t.ID, &t.CompanyID, &t.Name, &t.Description,
		&configJSON, &active, &isDefault); err != nil {
		return nil, err
	}
	var config templateConfig
	if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
		return nil, fmt.Errorf("unmarshaling template config: %w", err)
	}
	t.Timeframes = config.Timeframes
	t.ExpenseCategories = config.ExpenseCategories
	t.ResourceCategories = config.ResourceCategories
	t.Active = active != 0
	t.IsDefault = isDefault != 0
	return &t, nil
}

// SetDefault supersedes any previous default in one upsert.
func (s *Store) SetDefault(ctx context.Context, companyID, templateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM templates WHERE id = ? AND company_id = ?`,
		templateID, companyID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return ratecard.ErrTemplateNotFound
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO company_defaults (company_id, template_id) VALUES (?, ?)
		ON CONFLICT(company_id) DO UPDATE SET template_id = excluded.template_id`,
		companyID, templateID)
	return err
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var isDefault int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM company_defaults WHERE template_id = ?`, id).Scan(&isDefault)
	if err != nil {
		return err
	}
	if isDefault > 0 {
		return ratecard.ErrTemplateIsDefault
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ratecard.ErrTemplateNotFound
	}
	return nil
}

// =============================================================================
// CARD STORE
// =============================================================================

func (s *Store) SaveCard(ctx context.Context, c ratecard.Card) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rates, err := json.Marshal(c.Rates)
	if err != nil {
		return fmt.Errorf("marshaling rates: %w", err)
	}
	expenses, err := json.Marshal(c.Expenses)
	if err != nil {
		return fmt.Errorf("marshaling expenses: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rate_cards (id, company_id, name, kind, template_id, template_name,
			rates_json, expenses_json, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			template_id = excluded.template_id,
			template_name = excluded.template_name,
			rates_json = excluded.rates_json,
			expenses_json = excluded.expenses_json,
			active = excluded.active`,
		c.ID, c.CompanyID, c.Name, string(c.Kind), c.TemplateID, c.TemplateName,
		string(rates), string(expenses), boolToInt(c.Active),
		time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) GetCard(ctx context.Context, id string) (*ratecard.Card, error) {
	cards, err := s.queryCards(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, ratecard.ErrCardNotFound
	}
	return &cards[0], nil
}

func (s *Store) ListCards(ctx context.Context, companyID string) ([]ratecard.Card, error) {
	return s.queryCards(ctx, `WHERE company_id = ? ORDER BY id`, companyID)
}

func (s *Store) ListCardsByTemplate(ctx context.Context, templateID string) ([]ratecard.Card, error) {
	return s.queryCards(ctx, `WHERE template_id = ? ORDER BY id`, templateID)
}

func (s *Store) queryCards(ctx context.Context, where string, args ...any) ([]ratecard.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, name, kind, template_id, template_name,
		       rates_json, expenses_json, active
		FROM rate_cards `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ratecard.Card
	for rows.Next() {
		var c ratecard.Card
		var kind, ratesJSON, expensesJSON string
		var active int
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &kind, &c.TemplateID,
			&c.TemplateName, &ratesJSON, &expensesJSON, &active); err != nil {
			return nil, err
		}
		c.Kind = ratecard.CardKind(kind)
		c.Active = active != 0
		if err := json.Unmarshal([]byte(ratesJSON), &c.Rates); err != nil {
			return nil, fmt.Errorf("unmarshaling rates for card %s: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(expensesJSON), &c.Expenses); err != nil {
			return nil, fmt.Errorf("unmarshaling expenses for card %s: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM rate_cards WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ratecard.ErrCardNotFound
	}
	return nil
}

// =============================================================================
// ASSIGNMENT STORE
// =============================================================================

// SaveAssignment upserts against the unique (subcontractor, client)
// pair: the previous assignment, if any, is superseded in the same
// statement, so concurrent saves cannot leave two live rows.
func (s *Store) SaveAssignment(ctx context.Context, a ratecard.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_assignments (id, company_id, subcontractor_id, client_id,
			pay_card_id, bill_card_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subcontractor_id, client_id) DO UPDATE SET
			id = excluded.id,
			company_id = excluded.company_id,
			pay_card_id = excluded.pay_card_id,
			bill_card_id = excluded.bill_card_id,
			created_at = excluded.created_at`,
		a.ID, a.CompanyID, a.SubcontractorID, a.ClientID,
		a.PayCardID, a.BillCardID, created.Format(time.RFC3339))
	return err
}

func (s *Store) GetAssignment(ctx context.Context, subID, clientID string) (*ratecard.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, subcontractor_id, client_id, pay_card_id, bill_card_id, created_at
		FROM rate_assignments WHERE subcontractor_id = ? AND client_id = ?`,
		subID, clientID)

	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, ratecard.ErrAssignmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) ListAssignments(ctx context.Context, companyID string) ([]ratecard.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, subcontractor_id, client_id, pay_card_id, bill_card_id, created_at
		FROM rate_assignments WHERE company_id = ? ORDER BY id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ratecard.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAssignment(row rowScanner) (*ratecard.Assignment, error) {
	var a ratecard.Assignment
	var created string
	if err := row.Scan(&a.ID, &a.CompanyID, &a.SubcontractorID, &a.ClientID,
		&a.PayCardID, &a.BillCardID, &created); err != nil {
		return nil, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &a, nil
}

func (s *Store) DeleteAssignment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM rate_assignments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ratecard.ErrAssignmentNotFound
	}
	return nil
}

// =============================================================================
// SUBCONTRACTORS - Display-name lookups for reporting
// =============================================================================

// Subcontractor is the minimal record reporting needs: id and name.
type Subcontractor struct {
	ID        string
	CompanyID string
	Name      string
}

func (s *Store) SaveSubcontractor(ctx context.Context, sub Subcontractor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subcontractors (id, company_id, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		sub.ID, sub.CompanyID, sub.Name, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) ListSubcontractors(ctx context.Context, companyID string) ([]Subcontractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, name FROM subcontractors
		WHERE company_id = ? ORDER BY id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subcontractor
	for rows.Next() {
		var sub Subcontractor
		if err := rows.Scan(&sub.ID, &sub.CompanyID, &sub.Name); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// SubcontractorNames returns the id -> name map the aggregator consumes.
func (s *Store) SubcontractorNames(ctx context.Context, companyID string) (map[string]string, error) {
	subs, err := s.ListSubcontractors(ctx, companyID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(subs))
	for _, sub := range subs {
		names[sub.ID] = sub.Name
	}
	return names, nil
}

// =============================================================================
// ENTRY LOG - Time logs
// =============================================================================

func (s *Store) AppendTimeLog(ctx context.Context, t ledger.TimeLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_logs (id, company_id, project_id, subcontractor_id, client_id,
			role_name, timeframe_id, timeframe_label, work_date,
			hours_regular, hours_ot, sub_cost, client_bill, margin_value, margin_pct,
			currency, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.CompanyID, t.ProjectID, t.SubcontractorID, t.ClientID,
		t.RoleName, t.Timeframe.ID, t.Timeframe.Label,
		t.Date.UTC().Format("2006-01-02"),
		t.HoursRegular.String(), t.HoursOT.String(),
		t.SubCost.String(), t.ClientBill.String(),
		t.MarginValue.String(), t.MarginPct.String(),
		t.Currency, string(t.Status),
		t.CreatedAt.UTC().Format(time.RFC3339),
		t.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) GetTimeLog(ctx context.Context, id string) (*ledger.TimeLog, error) {
	logs, err := s.queryTimeLogs(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, ledger.ErrEntryNotFound
	}
	return &logs[0], nil
}

func (s *Store) ListTimeLogs(ctx context.Context, f ledger.Filter) ([]ledger.TimeLog, error) {
	where, args := filterClause(f)
	return s.queryTimeLogs(ctx, where+` ORDER BY id`, args...)
}

func (s *Store) queryTimeLogs(ctx context.Context, where string, args ...any) ([]ledger.TimeLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, project_id, subcontractor_id, client_id,
		       role_name, timeframe_id, timeframe_label, work_date,
		       hours_regular, hours_ot, sub_cost, client_bill, margin_value, margin_pct,
		       currency, status, created_at, updated_at
		FROM time_logs `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.TimeLog
	for rows.Next() {
		var t ledger.TimeLog
		var workDate, hoursReg, hoursOT, cost, bill, marginVal, marginPct string
		var status, createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.ProjectID, &t.SubcontractorID,
			&t.ClientID, &t.RoleName, &t.Timeframe.ID, &t.Timeframe.Label,
			&workDate, &hoursReg, &hoursOT, &cost, &bill, &marginVal, &marginPct,
			&t.Currency, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		t.Date, _ = time.Parse("2006-01-02", workDate)
		t.HoursRegular = parseDecimal(hoursReg)
		t.HoursOT = parseDecimal(hoursOT)
		t.SubCost = parseDecimal(cost)
		t.ClientBill = parseDecimal(bill)
		t.MarginValue = parseDecimal(marginVal)
		t.MarginPct = parseDecimal(marginPct)
		t.Status = ledger.Status(status)
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// TransitionTimeLog applies an optimistic status transition: the UPDATE
// only matches when the entry is still in the expected status.
func (s *Store) TransitionTimeLog(ctx context.Context, id string, from, to ledger.Status) error {
	if err := ledger.CheckTransition(from, to); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionRow(ctx, s.db, "time_logs", id, from, to)
}

// =============================================================================
// ENTRY LOG - Expenses
// =============================================================================

func (s *Store) AppendExpense(ctx context.Context, e ledger.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, company_id, project_id, subcontractor_id, client_id,
			category, work_date, amount, quantity, unit_rate, currency, status,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CompanyID, e.ProjectID, e.SubcontractorID, e.ClientID,
		e.Category, e.Date.UTC().Format("2006-01-02"),
		e.Amount.String(), decimalPtrString(e.Quantity), decimalPtrString(e.UnitRate),
		e.Currency, string(e.Status),
		e.CreatedAt.UTC().Format(time.RFC3339),
		e.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) GetExpense(ctx context.Context, id string) (*ledger.Expense, error) {
	expenses, err := s.queryExpenses(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, ledger.ErrEntryNotFound
	}
	return &expenses[0], nil
}

func (s *Store) ListExpenses(ctx context.Context, f ledger.Filter) ([]ledger.Expense, error) {
	where, args := filterClause(f)
	return s.queryExpenses(ctx, where+` ORDER BY id`, args...)
}

func (s *Store) queryExpenses(ctx context.Context, where string, args ...any) ([]ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, project_id, subcontractor_id, client_id,
		       category, work_date, amount, quantity, unit_rate, currency, status,
		       created_at, updated_at
		FROM expenses `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Expense
	for rows.Next() {
		var e ledger.Expense
		var workDate, amount, status, createdAt, updatedAt string
		var quantity, unitRate sql.NullString
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.ProjectID, &e.SubcontractorID,
			&e.ClientID, &e.Category, &workDate, &amount, &quantity, &unitRate,
			&e.Currency, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		e.Date, _ = time.Parse("2006-01-02", workDate)
		e.Amount = parseDecimal(amount)
		if quantity.Valid && quantity.String != "" {
			q := parseDecimal(quantity.String)
			e.Quantity = &q
		}
		if unitRate.Valid && unitRate.String != "" {
			r := parseDecimal(unitRate.String)
			e.UnitRate = &r
		}
		e.Status = ledger.Status(status)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// TransitionExpense applies an optimistic status transition.
func (s *Store) TransitionExpense(ctx context.Context, id string, from, to ledger.Status) error {
	if err := ledger.CheckTransition(from, to); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionRow(ctx, s.db, "expenses", id, from, to)
}

// =============================================================================
// BATCH SUBMISSION - All-or-nothing
// =============================================================================

// SubmitBatch moves DRAFT entries to SUBMITTED inside one transaction.
// Any miss (unknown id, wrong status) rolls the whole batch back.
func (s *Store) SubmitBatch(ctx context.Context, timeLogIDs, expenseIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range timeLogIDs {
		if err := s.transitionRow(ctx, tx, "time_logs", id, ledger.StatusDraft, ledger.StatusSubmitted); err != nil {
			return err
		}
	}
	for _, id := range expenseIDs {
		if err := s.transitionRow(ctx, tx, "expenses", id, ledger.StatusDraft, ledger.StatusSubmitted); err != nil {
			return err
		}
	}

	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// transitionRow is the ONLY update in this package: status and
// updated_at, guarded by the expected current status.
func (s *Store) transitionRow(ctx context.Context, db execer, table, id string, from, to ledger.Status) error {
	res, err := db.ExecContext(ctx,
		`UPDATE `+table+` SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), time.Now().UTC().Format(time.RFC3339), id, string(from))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	// Distinguish "gone" from "lost the race".
	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return ledger.ErrEntryNotFound
	}
	return ledger.ErrStatusConflict
}

// =============================================================================
// HELPERS
// =============================================================================

func filterClause(f ledger.Filter) (string, []any) {
	where := `WHERE 1=1`
	var args []any
	if f.CompanyID != "" {
		where += ` AND company_id = ?`
		args = append(args, f.CompanyID)
	}
	if f.ProjectID != "" {
		where += ` AND project_id = ?`
		args = append(args, f.ProjectID)
	}
	if f.SubcontractorID != "" {
		where += ` AND subcontractor_id = ?`
		args = append(args, f.SubcontractorID)
	}
	if !f.From.IsZero() {
		where += ` AND work_date >= ?`
		args = append(args, f.From.UTC().Format("2006-01-02"))
	}
	if !f.To.IsZero() {
		where += ` AND work_date <= ?`
		args = append(args, f.To.UTC().Format("2006-01-02"))
	}
	return where, args
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalPtrString(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Reset clears all tables. Dev/demo only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{
		"time_logs", "expenses", "rate_assignments", "subcontractors",
		"company_defaults", "rate_cards", "templates",
	} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("resetting %s: %w", table, err)
		}
	}
	return nil
}
