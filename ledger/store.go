/*
store.go - Persistence interface for cases and ledger entries

PURPOSE:
  Defines the interface between the engine and the database. Different
  implementations can use SQLite, PostgreSQL, or in-memory storage.

KEY INTERFACES:
  Store:   Case and entry persistence
  TxStore: Transactional operations (atomic multi-row writes)

SOFT-DELETE CONTRACT:
  Neither cases nor entries are ever physically removed. Deactivation is a
  normal update; history stays replayable and auditable. The uniqueness
  constraint on (case, date) applies to active entries only.

ORDERING CONTRACT:
  LoadEntries returns entries ordered by (date, seq). Seq is assigned by
  the store on insert and breaks ties for legacy rows that share a date.

TRANSACTIONS:
  Every engine mutation runs inside TxStore.WithTx. The transaction scope
  is what delivers per-case mutual exclusion: two concurrent mutations on
  the same case cannot interleave their anchor reads and snapshot writes,
  and readers see either fully pre-edit or fully post-edit state.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - ledger/store/memory.go: In-memory for testing
*/
package ledger

import "context"

// Store handles persistence of cases and their ledger entries.
type Store interface {
	// CreateCase persists a new case.
	CreateCase(ctx context.Context, c *Case) error

	// GetCase returns a case by ID, or ErrCaseNotFound.
	// Inactive cases are still returned; callers decide what frozen means.
	GetCase(ctx context.Context, id CaseID) (*Case, error)

	// ListCases returns all active cases, most recently created first.
	ListCases(ctx context.Context) ([]*Case, error)

	// UpdateCase overwrites a case's mutable fields (aggregates, active flag).
	UpdateCase(ctx context.Context, c *Case) error

	// InsertEntry persists a new entry and assigns its Seq.
	InsertEntry(ctx context.Context, e *Entry) error

	// UpdateEntry overwrites an entry's mutable fields.
	UpdateEntry(ctx context.Context, e *Entry) error

	// GetEntry returns an entry by ID, or ErrEntryNotFound.
	GetEntry(ctx context.Context, id EntryID) (*Entry, error)

	// LoadEntries returns every entry for a case, active or not,
	// ordered by (date, seq).
	LoadEntries(ctx context.Context, caseID CaseID) ([]*Entry, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back and no writes are visible.
	WithTx(ctx context.Context, fn func(Store) error) error
}
