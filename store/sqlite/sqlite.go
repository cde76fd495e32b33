/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  cases:   One row per judgment debt, including the derived aggregates
  entries: One row per ledger event; soft-deleted rows keep is_active = 0

INDEXES:
  idx_entries_case_date:   Ordered suffix loads (hot path)
  idx_entries_active_day:  Enforces at most one ACTIVE entry per case per day.
                           Partial index: soft-deleted rows don't occupy days.

SOFT DELETE:
  There are no DELETE statements. Cases and entries are deactivated via
  UPDATE so every historical ledger stays replayable.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level row locking handles this instead. Engine mutations run
  inside WithTx; a rolled-back transaction leaves no partial snapshots.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

DECIMALS:
  All monetary columns are TEXT holding exact decimal strings. Scanning
  goes through shopspring/decimal; no float conversion anywhere.

USAGE:
  store, err := sqlite.New("./data/docket.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  eng := ledger.NewEngine(store)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/docketware/debt-engine/ledger"
)

// Store implements ledger.TxStore using SQLite.
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

	// SQLite allows one writer, and every ":memory:" connection is its own
	// database; a single pooled connection covers both.
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

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cases (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		court_name TEXT NOT NULL DEFAULT '',
		court_case_number TEXT NOT NULL DEFAULT '',
		judgment_amount TEXT NOT NULL,
		interest_rate TEXT NOT NULL,
		judgment_date TEXT NOT NULL,
		total_payments TEXT NOT NULL DEFAULT '0',
		accrued_interest TEXT NOT NULL DEFAULT '0',
		payoff_amount TEXT NOT NULL DEFAULT '0',
		today_payoff TEXT NOT NULL DEFAULT '0',
		last_payment_date TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cases_active
		ON cases(is_active, created_at DESC);

	-- seq is the insertion-order tie-break for entries sharing a date
	-- (legacy data only; the partial index below prevents new ties).
	CREATE TABLE IF NOT EXISTS entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		case_id TEXT NOT NULL REFERENCES cases(id),
		entry_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		description TEXT,
		accrued_interest TEXT NOT NULL DEFAULT '0',
		principal_balance TEXT NOT NULL DEFAULT '0',
		combined_balance TEXT NOT NULL DEFAULT '0',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_case_date
		ON entries(case_id, entry_date, seq);

	-- CRITICAL: at most one ACTIVE entry per case per calendar day.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_active_day
		ON entries(case_id, entry_date)
		WHERE is_active = 1;
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// CASES
// =============================================================================

func (s *Store) CreateCase(ctx context.Context, c *ledger.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createCase(ctx, s.db, c)
}

func createCase(ctx context.Context, db execer, c *ledger.Case) error {
	query := `
		INSERT INTO cases
		(id, name, court_name, court_case_number, judgment_amount, interest_rate,
		 judgment_date, total_payments, accrued_interest, payoff_amount, today_payoff,
		 last_payment_date, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		c.ID,
		c.Name,
		c.CourtName,
		c.CourtCaseNumber,
		c.JudgmentAmount.String(),
		c.InterestRatePercent.String(),
		c.JudgmentDate.String(),
		c.TotalPayments.String(),
		c.AccruedInterest.String(),
		c.PayoffAmount.String(),
		c.TodayPayoff.String(),
		nullDate(c.LastPaymentDate),
		c.IsActive,
		c.CreatedAt.UTC().Format(time.RFC3339),
		c.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert case: %w", err)
	}
	return nil
}

const caseColumns = `id, name, court_name, court_case_number, judgment_amount, interest_rate,
	judgment_date, total_payments, accrued_interest, payoff_amount, today_payoff,
	last_payment_date, is_active, created_at, updated_at`

func (s *Store) GetCase(ctx context.Context, id ledger.CaseID) (*ledger.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCase(ctx, s.db, id)
}

func getCase(ctx context.Context, db execer, id ledger.CaseID) (*ledger.Case, error) {
	row := db.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = ?`, id)
	c, err := scanCase(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("case %s: %w", id, ledger.ErrCaseNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return c, nil
}

func (s *Store) ListCases(ctx context.Context) ([]*ledger.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCases(ctx, s.db)
}

func listCases(ctx context.Context, db execer) ([]*ledger.Case, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE is_active = 1 ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var cases []*ledger.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func (s *Store) UpdateCase(ctx context.Context, c *ledger.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateCase(ctx, s.db, c)
}

func updateCase(ctx context.Context, db execer, c *ledger.Case) error {
	query := `
		UPDATE cases SET
			total_payments = ?, accrued_interest = ?, payoff_amount = ?,
			today_payoff = ?, last_payment_date = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := db.ExecContext(ctx, query,
		c.TotalPayments.String(),
		c.AccruedInterest.String(),
		c.PayoffAmount.String(),
		c.TodayPayoff.String(),
		nullDate(c.LastPaymentDate),
		c.IsActive,
		c.UpdatedAt.UTC().Format(time.RFC3339),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update case: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("case %s: %w", c.ID, ledger.ErrCaseNotFound)
	}
	return nil
}

// =============================================================================
// ENTRIES
// =============================================================================

func (s *Store) InsertEntry(ctx context.Context, e *ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertEntry(ctx, s.db, e)
}

func insertEntry(ctx context.Context, db execer, e *ledger.Entry) error {
	query := `
		INSERT INTO entries
		(id, case_id, entry_type, amount, entry_date, description,
		 accrued_interest, principal_balance, combined_balance,
		 is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := db.ExecContext(ctx, query,
		e.ID,
		e.CaseID,
		e.Type,
		e.Amount.String(),
		e.Date.String(),
		nullString(e.Description),
		e.AccruedInterest.String(),
		e.PrincipalBalance.String(),
		e.CombinedBalance.String(),
		e.IsActive,
		e.CreatedAt.UTC().Format(time.RFC3339),
		e.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.DuplicateDateError{CaseID: e.CaseID, Date: e.Date}
		}
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read entry seq: %w", err)
	}
	e.Seq = seq
	return nil
}

func (s *Store) UpdateEntry(ctx context.Context, e *ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateEntry(ctx, s.db, e)
}

func updateEntry(ctx context.Context, db execer, e *ledger.Entry) error {
	query := `
		UPDATE entries SET
			entry_type = ?, amount = ?, entry_date = ?, description = ?,
			accrued_interest = ?, principal_balance = ?, combined_balance = ?,
			is_active = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := db.ExecContext(ctx, query,
		e.Type,
		e.Amount.String(),
		e.Date.String(),
		nullString(e.Description),
		e.AccruedInterest.String(),
		e.PrincipalBalance.String(),
		e.CombinedBalance.String(),
		e.IsActive,
		e.UpdatedAt.UTC().Format(time.RFC3339),
		e.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.DuplicateDateError{CaseID: e.CaseID, Date: e.Date}
		}
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("entry %s: %w", e.ID, ledger.ErrEntryNotFound)
	}
	return nil
}

const entryColumns = `seq, id, case_id, entry_type, amount, entry_date, description,
	accrued_interest, principal_balance, combined_balance, is_active, created_at, updated_at`

func (s *Store) GetEntry(ctx context.Context, id ledger.EntryID) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEntry(ctx, s.db, id)
}

func getEntry(ctx context.Context, db execer, id ledger.EntryID) (*ledger.Entry, error) {
	row := db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entry %s: %w", id, ledger.ErrEntryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

func (s *Store) LoadEntries(ctx context.Context, caseID ledger.CaseID) ([]*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadEntries(ctx, s.db, caseID)
}

func loadEntries(ctx context.Context, db execer, caseID ledger.CaseID) ([]*ledger.Entry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE case_id = ? ORDER BY entry_date ASC, seq ASC`,
		caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreateCase(ctx context.Context, c *ledger.Case) error {
	return createCase(ctx, ts.tx, c)
}

func (ts *txStore) GetCase(ctx context.Context, id ledger.CaseID) (*ledger.Case, error) {
	return getCase(ctx, ts.tx, id)
}

func (ts *txStore) ListCases(ctx context.Context) ([]*ledger.Case, error) {
	return listCases(ctx, ts.tx)
}

func (ts *txStore) UpdateCase(ctx context.Context, c *ledger.Case) error {
	return updateCase(ctx, ts.tx, c)
}

func (ts *txStore) InsertEntry(ctx context.Context, e *ledger.Entry) error {
	return insertEntry(ctx, ts.tx, e)
}

func (ts *txStore) UpdateEntry(ctx context.Context, e *ledger.Entry) error {
	return updateEntry(ctx, ts.tx, e)
}

func (ts *txStore) GetEntry(ctx context.Context, id ledger.EntryID) (*ledger.Entry, error) {
	return getEntry(ctx, ts.tx, id)
}

func (ts *txStore) LoadEntries(ctx context.Context, caseID ledger.CaseID) ([]*ledger.Entry, error) {
	return loadEntries(ctx, ts.tx, caseID)
}

// =============================================================================
// SCANNING
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*ledger.Case, error) {
	var (
		c               ledger.Case
		judgmentAmount  string
		interestRate    string
		judgmentDate    string
		totalPayments   string
		accruedInterest string
		payoffAmount    string
		todayPayoff     string
		lastPaymentDate sql.NullString
		createdAt       string
		updatedAt       string
	)

	err := row.Scan(
		&c.ID, &c.Name, &c.CourtName, &c.CourtCaseNumber,
		&judgmentAmount, &interestRate, &judgmentDate,
		&totalPayments, &accruedInterest, &payoffAmount, &todayPayoff,
		&lastPaymentDate, &c.IsActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.JudgmentAmount = parseDecimal(judgmentAmount)
	c.InterestRatePercent = parseDecimal(interestRate)
	c.JudgmentDate, _ = ledger.ParseDate(judgmentDate)
	c.TotalPayments = parseDecimal(totalPayments)
	c.AccruedInterest = parseDecimal(accruedInterest)
	c.PayoffAmount = parseDecimal(payoffAmount)
	c.TodayPayoff = parseDecimal(todayPayoff)
	if lastPaymentDate.Valid {
		if d, err := ledger.ParseDate(lastPaymentDate.String); err == nil {
			c.LastPaymentDate = &d
		}
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &c, nil
}

func scanEntry(row rowScanner) (*ledger.Entry, error) {
	var (
		e                ledger.Entry
		amount           string
		entryDate        string
		description      sql.NullString
		accruedInterest  string
		principalBalance string
		combinedBalance  string
		createdAt        string
		updatedAt        string
	)

	err := row.Scan(
		&e.Seq, &e.ID, &e.CaseID, &e.Type, &amount, &entryDate, &description,
		&accruedInterest, &principalBalance, &combinedBalance,
		&e.IsActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Amount = parseDecimal(amount)
	e.Date, _ = ledger.ParseDate(entryDate)
	e.Description = description.String
	e.AccruedInterest = parseDecimal(accruedInterest)
	e.PrincipalBalance = parseDecimal(principalBalance)
	e.CombinedBalance = parseDecimal(combinedBalance)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &e, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *ledger.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
