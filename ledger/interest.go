package ledger

import "math/big"

// SecondsPerYear is the accrual denominator for annualised rates.
const SecondsPerYear = 31_536_000

// MaxCollateralFactorBps caps the registrable collateral factor.
const MaxCollateralFactorBps = 9_000

// LiquidationBonusBps is the extra collateral awarded to liquidators on top
// of the repaid debt.
const LiquidationBonusBps = 500

var (
	basisPoints = big.NewInt(10_000)
	// accrualDenominator = SECONDS_PER_YEAR * 10000, the divisor of the
	// simple-interest formula.
	accrualDenominator = new(big.Int).Mul(big.NewInt(SecondsPerYear), basisPoints)
)

// PendingInterest computes the simple linear interest owed on the borrowed
// amount at rateBps over elapsed seconds:
//
//	borrowed * rateBps * elapsed / (SecondsPerYear * 10000)
//
// Integer division truncates toward zero, so interest is rounded down in
// favour of pool solvency. The inputs are never mutated.
func PendingInterest(borrowed *big.Int, rateBps, elapsed uint64) *big.Int {
	if borrowed == nil || borrowed.Sign() <= 0 || rateBps == 0 || elapsed == 0 {
		return big.NewInt(0)
	}
	interest := new(big.Int).SetUint64(rateBps)
	interest.Mul(interest, new(big.Int).SetUint64(elapsed))
	interest.Mul(interest, borrowed)
	return interest.Quo(interest, accrualDenominator)
}

// Accrue folds the interest accumulated since the last accrual into the
// position's borrowed balance and advances the accrual timestamp. The
// returned delta is the interest added, zero when the position carries no
// debt or has never been touched (first touch only initialises the
// timestamp). The timestamp is monotonically non-decreasing: a clock reading
// earlier than the last accrual yields zero elapsed time and leaves the
// timestamp alone.
func Accrue(p *Position, rateBps, now uint64) *big.Int {
	if p == nil {
		return big.NewInt(0)
	}
	if p.Borrowed == nil {
		p.Borrowed = big.NewInt(0)
	}
	if p.LastInterestAt == 0 || p.Borrowed.Sign() == 0 {
		if now > p.LastInterestAt {
			p.LastInterestAt = now
		}
		return big.NewInt(0)
	}
	var elapsed uint64
	if now > p.LastInterestAt {
		elapsed = now - p.LastInterestAt
	}
	delta := PendingInterest(p.Borrowed, rateBps, elapsed)
	if delta.Sign() > 0 {
		p.Borrowed = new(big.Int).Add(p.Borrowed, delta)
	}
	if now > p.LastInterestAt {
		p.LastInterestAt = now
	}
	return delta
}

// EffectiveRateBps derives a volatility-adjusted borrow rate. The volatility
// component is scaled by the asset's multiplier out of 100, mirroring how the
// rate refresh job computes the value it pushes through SetInterestRate.
func EffectiveRateBps(baseRateBps, multiplier, volatilityBps uint64) uint64 {
	return baseRateBps + volatilityBps*multiplier/100
}
