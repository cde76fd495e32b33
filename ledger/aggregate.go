package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// CASE AGGREGATES - Derived summary fields folded from active entries
// =============================================================================

// UpdateAggregates recomputes every derived field on the case from its
// ordered active entries:
//
//   - TotalPayments: sum of Amount over all active PAYMENT entries
//   - LastPaymentDate: date of the most recent active PAYMENT, or nil
//   - AccruedInterest / PayoffAmount: taken from the last active entry's
//     snapshot, or the judgment baseline when the ledger is empty
//   - TodayPayoff: PayoffAmount projected from the last entry's date to
//     today with the same day-count rule. Display-only; it never anchors
//     further accrual.
func UpdateAggregates(c *Case, active []*Entry, today Date, prec Precision) {
	total := decimal.Zero
	var lastPayment *Date
	for _, e := range active {
		if e.Type != TypePayment {
			continue
		}
		total = total.Add(e.Amount)
		if lastPayment == nil || e.Date.After(*lastPayment) {
			d := e.Date
			lastPayment = &d
		}
	}
	c.TotalPayments = total
	c.LastPaymentDate = lastPayment

	last := c.Baseline()
	if n := len(active); n > 0 {
		last = active[n-1].Snapshot()
	}
	c.AccruedInterest = last.Interest
	c.PayoffAmount = last.Combined()
	c.TodayPayoff = ProjectPayoff(c, last, today, prec)
}

// ProjectPayoff projects a snapshot's combined balance forward to the given
// date. Used for the display-only "payoff as of today" figure.
func ProjectPayoff(c *Case, from Snapshot, to Date, prec Precision) decimal.Decimal {
	return from.Combined().Add(Accrue(from.Principal, c.InterestRatePercent, from.Date, to, prec))
}
