package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPLAY - Deterministic fold over an ordered entry suffix
// =============================================================================

// Replay re-derives the snapshot fields of every entry in order, starting
// from anchor. For each entry it accrues interest from the running anchor's
// date and principal to the entry's date, applies the waterfall for the
// entry's own event, overwrites the entry's three snapshot fields, and
// advances the anchor to the entry just resolved.
//
// Replay is a pure fold: it touches no store, so recomputation is a
// deterministic function of (anchor, entries) and replaying an unedited
// suffix reproduces the stored snapshots exactly.
//
// An OverpaymentError anywhere in the walk aborts it; entries already
// rewritten in this walk must then be discarded by the caller (the engine
// runs Replay inside a storage transaction for exactly this reason).
func Replay(anchor Snapshot, annualRatePercent decimal.Decimal, entries []*Entry, prec Precision) error {
	cur := anchor
	for _, e := range entries {
		accrued := Accrue(cur.Principal, annualRatePercent, cur.Date, e.Date, prec)
		interestAtDate := cur.Interest.Add(accrued)

		principal, interest, err := ApplyEvent(e.Event(), cur.Principal, interestAtDate)
		if err != nil {
			return fmt.Errorf("replay entry %s (%s on %s): %w", e.ID, e.Type, e.Date, err)
		}

		e.PrincipalBalance = principal
		e.AccruedInterest = interest
		e.CombinedBalance = principal.Add(interest)
		cur = e.Snapshot()
	}
	return nil
}

// anchorBefore returns the anchor for the entry at index idx in an ordered
// active slice: the snapshot of the preceding active entry, or the judgment
// baseline when no entry precedes it.
func anchorBefore(c *Case, active []*Entry, idx int) Snapshot {
	if idx <= 0 {
		return c.Baseline()
	}
	return active[idx-1].Snapshot()
}
