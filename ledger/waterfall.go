package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// EVENT VALIDATION
// =============================================================================

// ValidateEvent rejects malformed events before any balance arithmetic runs.
func ValidateEvent(ev Event) error {
	if !ev.Type.Valid() {
		return &InvalidEventError{Reason: "unknown entry type " + string(ev.Type)}
	}
	if ev.Amount.IsNegative() {
		return &InvalidEventError{Reason: "amount must not be negative"}
	}
	if ev.Date.IsZero() {
		return &InvalidEventError{Reason: "date is required"}
	}
	return nil
}

// =============================================================================
// WATERFALL - Per-event balance application rules
// =============================================================================

// ApplyEvent applies one ledger event to a running (principal, interest)
// pair and returns the pair after the event. interest must already include
// day-count accrual up to the event date.
//
// Rules:
//   - PAYMENT: interest-first waterfall. Interest is absorbed before any
//     principal reduction. A payment larger than principal+interest fails
//     with OverpaymentError and changes nothing.
//   - COST: capitalized into principal, interest untouched.
//   - INTEREST: manual adjustment added to interest, principal untouched.
func ApplyEvent(ev Event, principal, interest decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := ValidateEvent(ev); err != nil {
		return principal, interest, err
	}

	switch ev.Type {
	case TypePayment:
		if ev.Amount.LessThan(interest) {
			return principal, interest.Sub(ev.Amount), nil
		}
		remainder := ev.Amount.Sub(interest)
		if remainder.GreaterThan(principal) {
			return principal, interest, &OverpaymentError{
				Date:        ev.Date,
				Requested:   ev.Amount,
				Outstanding: principal.Add(interest),
			}
		}
		return principal.Sub(remainder), decimal.Zero, nil

	case TypeCost:
		return principal.Add(ev.Amount), interest, nil

	case TypeInterest:
		return principal, interest.Add(ev.Amount), nil
	}

	// Unreachable: ValidateEvent rejects unknown types.
	return principal, interest, &InvalidEventError{Reason: "unknown entry type " + string(ev.Type)}
}
