package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// PRECISION - Explicit arithmetic contract for accrual and replay
// =============================================================================

// Precision declares how much precision the engine carries through its
// arithmetic. It is threaded into every accrual call rather than set as
// process-wide decimal state, so two engines with different contracts can
// coexist and the contract is visible at the call site.
type Precision struct {
	// Calc is the number of decimal places carried through division inside
	// the accrual/replay chain. Rounding error must not compound across
	// long replay chains, so this stays high.
	Calc int32

	// Currency is the number of decimal places used when a value is
	// formatted for external presentation. Never applied inside the chain.
	Currency int32
}

// DefaultPrecision mirrors a 28-significant-digit decimal context with
// 2-place currency display.
var DefaultPrecision = Precision{Calc: 28, Currency: 2}

// RoundCurrency rounds a value for presentation. Half-up.
func (p Precision) RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(p.Currency)
}

// =============================================================================
// DAY-COUNT ACCRUAL
// =============================================================================

// dayCountDivisor converts a percent-per-year rate into a fractional daily
// rate: divide by 100 for the fraction and by 365 for days. Fixed at 36500
// with no leap-year adjustment; changing it would alter financial results
// for every existing ledger.
var dayCountDivisor = decimal.NewFromInt(36500)

// Accrue computes simple interest on principal at annualRatePercent per
// year over the whole days between from and to. Returns zero when to is on
// or before from; there is no negative accrual.
func Accrue(principal, annualRatePercent decimal.Decimal, from, to Date, prec Precision) decimal.Decimal {
	if !to.After(from) {
		return decimal.Zero
	}
	days := decimal.NewFromInt(int64(DaysBetween(from, to)))
	return principal.Mul(annualRatePercent).Mul(days).DivRound(dayCountDivisor, prec.Calc)
}
