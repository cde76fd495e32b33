/*
Package ledger implements the debt ledger accrual and recomputation engine.

PURPOSE:
  This package contains the types and algorithms for tracking court-judgment
  debts that accrue simple daily interest and are periodically reduced by
  payments or increased by costs. Every ledger entry carries a running
  principal and accrued-interest snapshot, and the engine keeps those
  snapshots mathematically consistent even when an earlier entry is edited
  after later entries already exist.

KEY CONCEPTS IN THIS FILE (types.go):
  - Case: A judgment debt with its baseline (amount, rate, date) and
    derived aggregates (total payments, payoff, today's payoff)
  - Entry: One ledger event (payment, cost, manual interest) with its
    post-event balance snapshot
  - Event: The caller-supplied description of a new ledger event
  - Snapshot: A (date, principal, interest) anchor the next entry accrues from

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors;
     currency rounding happens only at presentation boundaries
  2. Replayability: Entry snapshots are always derivable from the previous
     entry (or the judgment baseline) plus the entry's own event
  3. Auditability: Entries are soft-deleted, never physically removed

USAGE:
  eng := ledger.NewEngine(store)
  entry, c, err := eng.Append(ctx, caseID, ledger.Event{
      Type:   ledger.TypePayment,
      Amount: decimal.NewFromInt(600),
      Date:   ledger.NewDate(2024, time.March, 1),
  })

SEE ALSO:
  - accrual.go: Day-count interest calculation
  - waterfall.go: Per-event balance application rules
  - replay.go: Deterministic suffix recomputation
  - engine.go: Append/edit/remove operations over a store
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CaseID string
type EntryID string

func NewCaseID() CaseID   { return CaseID(uuid.NewString()) }
func NewEntryID() EntryID { return EntryID(uuid.NewString()) }

// =============================================================================
// ENTRY TYPE - The three kinds of ledger events
// =============================================================================

type EntryType string

const (
	// TypePayment reduces the debt, interest first, then principal.
	TypePayment EntryType = "PAYMENT"
	// TypeCost capitalizes a cost into principal. Not interest-bearing
	// until the next accrual period folds it in.
	TypeCost EntryType = "COST"
	// TypeInterest is a manual interest adjustment that bypasses the
	// day-count calculation entirely.
	TypeInterest EntryType = "INTEREST"
)

func (t EntryType) Valid() bool {
	switch t {
	case TypePayment, TypeCost, TypeInterest:
		return true
	}
	return false
}

// =============================================================================
// CASE - One judgment debt
// =============================================================================

type Case struct {
	ID              CaseID
	Name            string
	CourtName       string
	CourtCaseNumber string

	// Judgment baseline. Immutable after creation.
	JudgmentAmount      decimal.Decimal
	InterestRatePercent decimal.Decimal // annual rate, 12.50 means 12.5%/year
	JudgmentDate        Date

	// Derived aggregates, recomputed on every ledger mutation.
	TotalPayments   decimal.Decimal
	AccruedInterest decimal.Decimal // as of the latest active entry, not projected
	PayoffAmount    decimal.Decimal // principal + interest as of the latest active entry
	TodayPayoff     decimal.Decimal // PayoffAmount projected to today; display-only
	LastPaymentDate *Date

	// Soft-delete flag. An inactive case's ledger is frozen.
	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Baseline returns the judgment anchor used when no active entry precedes
// an event: the original principal with zero accrued interest.
func (c *Case) Baseline() Snapshot {
	return Snapshot{
		Date:      c.JudgmentDate,
		Principal: c.JudgmentAmount,
		Interest:  decimal.Zero,
	}
}

// =============================================================================
// ENTRY - One ledger event with its post-event snapshot
// =============================================================================

type Entry struct {
	ID          EntryID
	CaseID      CaseID
	Type        EntryType
	Amount      decimal.Decimal
	Date        Date
	Description string

	// Snapshot fields, overwritten by replay. CombinedBalance always
	// equals PrincipalBalance + AccruedInterest.
	AccruedInterest  decimal.Decimal
	PrincipalBalance decimal.Decimal
	CombinedBalance  decimal.Decimal

	// Soft-delete flag. Inactive entries are excluded from anchors and
	// replay sets but kept for audit.
	IsActive bool

	// Seq is the store-assigned insertion order. Ties on Date only occur
	// in legacy data; Seq breaks them deterministically.
	Seq int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot returns this entry's post-event anchor.
func (e *Entry) Snapshot() Snapshot {
	return Snapshot{Date: e.Date, Principal: e.PrincipalBalance, Interest: e.AccruedInterest}
}

// Event returns the event this entry records, for re-application during replay.
func (e *Entry) Event() Event {
	return Event{Type: e.Type, Amount: e.Amount, Date: e.Date, Description: e.Description}
}

// =============================================================================
// EVENT - Caller-supplied description of a new ledger event
// =============================================================================

type Event struct {
	Type        EntryType
	Amount      decimal.Decimal
	Date        Date
	Description string
}

// =============================================================================
// SNAPSHOT - A (date, principal, interest) accrual anchor
// =============================================================================

type Snapshot struct {
	Date      Date
	Principal decimal.Decimal
	Interest  decimal.Decimal
}

func (s Snapshot) Combined() decimal.Decimal { return s.Principal.Add(s.Interest) }

// =============================================================================
// ENTRY CHANGES - Partial update applied by Engine.Edit
// =============================================================================

// EntryChanges carries the fields an edit may touch. Nil means unchanged.
type EntryChanges struct {
	Type        *EntryType
	Amount      *decimal.Decimal
	Date        *Date
	Description *string
}
