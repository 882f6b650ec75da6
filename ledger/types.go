package ledger

import "math/big"

// Asset captures the registry entry and aggregate accounting for one
// supported asset class. Amounts are integers at the asset's native
// fixed-point scale; rates and factors are expressed in basis points.
type Asset struct {
	// Symbol is the unique registry key, normalised to upper case.
	Symbol string
	// TokenRef is the opaque custody handle for the underlying value.
	// Immutable after registration.
	TokenRef string
	// PriceFeedRef is the opaque handle the price oracle resolves.
	// Immutable after registration.
	PriceFeedRef string
	// BaseRateBps is the informational base borrow rate.
	BaseRateBps uint64
	// CurrentRateBps is the rate applied by interest accrual. Adjusted
	// administratively; existing positions pick it up on their next accrual.
	CurrentRateBps uint64
	// CollateralFactorBps bounds the borrowable fraction of deposited value.
	// Never exceeds MaxCollateralFactorBps.
	CollateralFactorBps uint64
	// VolatilityMultiplier scales the volatility component when deriving an
	// effective rate for this asset.
	VolatilityMultiplier uint64
	// Decimals records the fixed-point scale of the underlying asset.
	Decimals uint8
	// Active gates all user operations on this asset.
	Active bool
	// TotalDeposited aggregates Deposited across every position in the asset.
	TotalDeposited *big.Int
	// TotalBorrowed aggregates Borrowed across every position in the asset.
	TotalBorrowed *big.Int
}

// Clone returns a deep copy of the asset.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	clone := *a
	clone.TotalDeposited = cloneInt(a.TotalDeposited)
	clone.TotalBorrowed = cloneInt(a.TotalBorrowed)
	return &clone
}

// Position maintains the collateral and debt balances for a (user, asset)
// pair. Positions are created lazily on first interaction and never deleted.
type Position struct {
	// User identifies the position owner. The ledger trusts the supplied
	// identity; authentication happens in the caller layer.
	User string
	// Symbol names the asset this position belongs to.
	Symbol string
	// Deposited is the collateral balance.
	Deposited *big.Int
	// Borrowed is the outstanding principal plus accrued interest.
	Borrowed *big.Int
	// LastInterestAt is the UNIX timestamp (seconds) of the last accrual.
	// Zero means the position has never been touched.
	LastInterestAt uint64
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Deposited = cloneInt(p.Deposited)
	clone.Borrowed = cloneInt(p.Borrowed)
	return &clone
}

// AssetSnapshot is the read-surface view of a registered asset.
type AssetSnapshot struct {
	Symbol               string   `json:"symbol"`
	TokenRef             string   `json:"tokenRef"`
	PriceFeedRef         string   `json:"priceFeedRef"`
	BaseRateBps          uint64   `json:"baseRateBps"`
	CurrentRateBps       uint64   `json:"currentRateBps"`
	CollateralFactorBps  uint64   `json:"collateralFactorBps"`
	VolatilityMultiplier uint64   `json:"volatilityMultiplier"`
	Decimals             uint8    `json:"decimals"`
	Active               bool     `json:"active"`
	TotalDeposited       *big.Int `json:"totalDeposited"`
	TotalBorrowed        *big.Int `json:"totalBorrowed"`
}

// PositionSnapshot is the read-surface view of a position. PendingInterest is
// the interest that would be folded into Borrowed if the position were touched
// at the snapshot time; taking a snapshot never mutates state.
type PositionSnapshot struct {
	User            string   `json:"user"`
	Symbol          string   `json:"symbol"`
	Deposited       *big.Int `json:"deposited"`
	Borrowed        *big.Int `json:"borrowed"`
	PendingInterest *big.Int `json:"pendingInterest"`
	LastInterestAt  uint64   `json:"lastInterestAt"`
}

// LiquidationCandidate describes an unhealthy position surfaced by the
// read-side scan. HealthFactorBps is below 10000 for every candidate.
type LiquidationCandidate struct {
	User            string   `json:"user"`
	Deposited       *big.Int `json:"deposited"`
	Borrowed        *big.Int `json:"borrowed"`
	HealthFactorBps *big.Int `json:"healthFactorBps"`
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
