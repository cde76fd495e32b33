package ledger_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docketware/debt-engine/ledger"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// judgmentAnchor is the canonical fixture: $10,000 at 10%/year, judgment
// entered January 1, 2024.
func judgmentAnchor() ledger.Snapshot {
	return ledger.Snapshot{
		Date:      ledger.NewDate(2024, time.January, 1),
		Principal: dec("10000"),
		Interest:  decimal.Zero,
	}
}

func entry(typ ledger.EntryType, amount string, d ledger.Date) *ledger.Entry {
	return &ledger.Entry{
		ID:       ledger.NewEntryID(),
		Type:     typ,
		Amount:   dec(amount),
		Date:     d,
		IsActive: true,
	}
}

// =============================================================================
// REPLAY CHAIN TESTS
// =============================================================================

func TestReplay_CostThenPayment(t *testing.T) {
	// GIVEN: $10,000 judgment at 10% on 2024-01-01
	// WHEN: Replaying a $500 cost on Feb 1 and a $600 payment on Mar 1
	// THEN: Each entry's snapshot reflects accrual up to its date plus its
	//       own event

	cost := entry(ledger.TypeCost, "500", ledger.NewDate(2024, time.February, 1))
	payment := entry(ledger.TypePayment, "600", ledger.NewDate(2024, time.March, 1))

	err := ledger.Replay(judgmentAnchor(), dec("10"), []*ledger.Entry{cost, payment}, ledger.DefaultPrecision)
	require.NoError(t, err)

	// 31 days on 10,000: interest 84.93; the cost capitalizes.
	assertMoney(t, "84.93", cost.AccruedInterest)
	assertMoney(t, "10500", cost.PrincipalBalance)
	assertMoney(t, "10584.93", cost.CombinedBalance)

	// 29 more days (leap February) on 10,500 brings interest to 168.36;
	// the payment clears it and the remainder hits principal.
	assert.True(t, payment.AccruedInterest.IsZero())
	assertMoney(t, "10068.36", payment.PrincipalBalance)
	assertMoney(t, "10068.36", payment.CombinedBalance)
}

func TestReplay_EditedCostChangesDownstreamPayment(t *testing.T) {
	// The same chain with the cost reduced to $300. The payment entry's
	// stored snapshot must follow the new accrual base.
	cost := entry(ledger.TypeCost, "300", ledger.NewDate(2024, time.February, 1))
	payment := entry(ledger.TypePayment, "600", ledger.NewDate(2024, time.March, 1))

	err := ledger.Replay(judgmentAnchor(), dec("10"), []*ledger.Entry{cost, payment}, ledger.DefaultPrecision)
	require.NoError(t, err)

	assertMoney(t, "10300", cost.PrincipalBalance)
	// 84.93 + 29 days on 10,300 (81.84) = 166.77; payment absorbs it all.
	assert.True(t, payment.AccruedInterest.IsZero())
	assertMoney(t, "9866.77", payment.PrincipalBalance)
}

func TestReplay_SameDayEntryAccruesNothing(t *testing.T) {
	// An entry on the anchor date itself sees zero fresh accrual.
	cost := entry(ledger.TypeCost, "500", ledger.NewDate(2024, time.January, 1))

	err := ledger.Replay(judgmentAnchor(), dec("10"), []*ledger.Entry{cost}, ledger.DefaultPrecision)
	require.NoError(t, err)

	assert.True(t, cost.AccruedInterest.IsZero())
	assertMoney(t, "10500", cost.PrincipalBalance)
}

func TestReplay_ManualInterestBypassesDayCount(t *testing.T) {
	adj := entry(ledger.TypeInterest, "25", ledger.NewDate(2024, time.February, 1))

	err := ledger.Replay(judgmentAnchor(), dec("10"), []*ledger.Entry{adj}, ledger.DefaultPrecision)
	require.NoError(t, err)

	// Day-count accrual still runs up to the entry date; the manual
	// adjustment is added on top of it.
	assertMoney(t, "109.93", adj.AccruedInterest)
	assertMoney(t, "10000", adj.PrincipalBalance)
}

func TestReplay_IsIdempotent(t *testing.T) {
	// Replaying an already-consistent chain must reproduce the stored
	// snapshots exactly, not just to currency precision.
	entries := []*ledger.Entry{
		entry(ledger.TypeCost, "500", ledger.NewDate(2024, time.February, 1)),
		entry(ledger.TypePayment, "600", ledger.NewDate(2024, time.March, 1)),
		entry(ledger.TypePayment, "100", ledger.NewDate(2024, time.April, 15)),
	}
	require.NoError(t, ledger.Replay(judgmentAnchor(), dec("10"), entries, ledger.DefaultPrecision))

	first := make([]ledger.Snapshot, len(entries))
	for i, e := range entries {
		first[i] = e.Snapshot()
	}

	require.NoError(t, ledger.Replay(judgmentAnchor(), dec("10"), entries, ledger.DefaultPrecision))
	for i, e := range entries {
		assert.True(t, first[i].Principal.Equal(e.PrincipalBalance), "entry %d principal drifted", i)
		assert.True(t, first[i].Interest.Equal(e.AccruedInterest), "entry %d interest drifted", i)
	}
}

func TestReplay_OverpaymentAbortsWalk(t *testing.T) {
	// GIVEN: A chain where the second entry overpays
	// WHEN: Replaying
	// THEN: The walk fails with OverpaymentError; the caller's transaction
	//       is responsible for discarding any snapshots already rewritten

	cost := entry(ledger.TypeCost, "500", ledger.NewDate(2024, time.February, 1))
	over := entry(ledger.TypePayment, "50000", ledger.NewDate(2024, time.March, 1))

	err := ledger.Replay(judgmentAnchor(), dec("10"), []*ledger.Entry{cost, over}, ledger.DefaultPrecision)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrOverpayment)
}

func TestReplay_EmptySuffixIsNoOp(t *testing.T) {
	assert.NoError(t, ledger.Replay(judgmentAnchor(), dec("10"), nil, ledger.DefaultPrecision))
}
