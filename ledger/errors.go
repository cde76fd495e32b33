/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (the HTTP layer, stores) wrap these with additional context.

ERROR CATEGORIES:
  1. Lookup errors - missing or soft-deleted cases/entries
  2. Validation errors - malformed events, rejected before arithmetic
  3. Business-rule errors - duplicate dates, overpayments

All of these are deterministic input or business-rule failures, not
transient faults; callers should not retry them.

USAGE:
    if errors.Is(err, ledger.ErrDuplicateDate) { ... }

    var over *ledger.OverpaymentError
    if errors.As(err, &over) { ... }
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrCaseNotFound is returned when a referenced case doesn't exist.
	ErrCaseNotFound = errors.New("case not found")

	// ErrCaseInactive is returned when mutating the ledger of a
	// soft-deleted case. The ledger of an inactive case is frozen.
	ErrCaseInactive = errors.New("case is inactive")

	// ErrEntryNotFound is returned when a referenced entry doesn't exist.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrDuplicateDate is returned when an active entry already occupies
	// the target date for a case. At most one active entry per day.
	ErrDuplicateDate = errors.New("active entry already exists on date")

	// ErrOverpayment is returned when a payment exceeds the total
	// outstanding balance (principal plus interest at the event date).
	ErrOverpayment = errors.New("payment exceeds outstanding balance")

	// ErrInvalidEvent is returned for malformed events: negative amounts,
	// unknown types, or missing dates. Rejected before any arithmetic.
	ErrInvalidEvent = errors.New("invalid ledger event")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OverpaymentError reports how far a payment overshot the balance.
type OverpaymentError struct {
	CaseID      CaseID
	Date        Date
	Requested   decimal.Decimal
	Outstanding decimal.Decimal // principal + interest at the event date
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment %v on %s exceeds outstanding balance %v",
		e.Requested, e.Date, e.Outstanding)
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpayment }

// DuplicateDateError reports a date-uniqueness violation.
type DuplicateDateError struct {
	CaseID     CaseID
	Date       Date
	ExistingID EntryID
}

func (e *DuplicateDateError) Error() string {
	return fmt.Sprintf("case %s already has an active entry on %s (entry: %s)",
		e.CaseID, e.Date, e.ExistingID)
}

func (e *DuplicateDateError) Unwrap() error { return ErrDuplicateDate }

// InvalidEventError reports why an event was rejected.
type InvalidEventError struct {
	Reason string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid ledger event: %s", e.Reason)
}

func (e *InvalidEventError) Unwrap() error { return ErrInvalidEvent }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid input or a
// violated business rule, as opposed to a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicateDate) ||
		errors.Is(err, ErrOverpayment) ||
		errors.Is(err, ErrInvalidEvent) ||
		errors.Is(err, ErrCaseInactive)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCaseNotFound) ||
		errors.Is(err, ErrEntryNotFound)
}
