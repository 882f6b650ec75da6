package ledger

import "math/big"

// IsHealthy reports whether a hypothetical position is within its borrowing
// limit. A position with no debt is healthy unconditionally; otherwise the
// constraint is
//
//	borrowed * 10000 <= deposited * collateralFactorBps
//
// cross-multiplied so no fractional rounding can bias the decision. The
// predicate is always evaluated against post-operation balances before
// anything is committed.
func IsHealthy(deposited, borrowed *big.Int, collateralFactorBps uint64) bool {
	if borrowed == nil || borrowed.Sign() == 0 {
		return true
	}
	if deposited == nil || deposited.Sign() <= 0 {
		return false
	}
	lhs := new(big.Int).Mul(borrowed, basisPoints)
	rhs := new(big.Int).Mul(deposited, new(big.Int).SetUint64(collateralFactorBps))
	return lhs.Cmp(rhs) <= 0
}

// HealthFactorBps expresses how close a position sits to its borrowing limit:
// deposited * collateralFactorBps / borrowed, in basis points. Exactly 10000
// means the position is at the limit; below 10000 it is liquidatable. A
// debt-free position returns nil (no meaningful factor).
func HealthFactorBps(deposited, borrowed *big.Int, collateralFactorBps uint64) *big.Int {
	if borrowed == nil || borrowed.Sign() == 0 {
		return nil
	}
	if deposited == nil || deposited.Sign() <= 0 {
		return big.NewInt(0)
	}
	factor := new(big.Int).Mul(deposited, new(big.Int).SetUint64(collateralFactorBps))
	return factor.Quo(factor, borrowed)
}
