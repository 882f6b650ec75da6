package ledger

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"lendledger/core/types"
)

// AddAssetParams carries the administrative input for registering an asset.
type AddAssetParams struct {
	Symbol               string
	TokenRef             string
	PriceFeedRef         string
	BaseRateBps          uint64
	CollateralFactorBps  uint64
	VolatilityMultiplier uint64
	Decimals             uint8
}

// AddAsset registers a new asset class. The current interest rate starts at
// the base rate, both aggregate totals at zero and the asset active.
func (e *Engine) AddAsset(params AddAssetParams) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	symbol := NormalizeSymbol(params.Symbol)
	if symbol == "" || strings.Contains(symbol, "/") {
		return ErrInvalidParameter
	}
	if params.TokenRef == "" || params.PriceFeedRef == "" {
		return ErrInvalidParameter
	}
	if params.CollateralFactorBps > MaxCollateralFactorBps {
		return ErrInvalidParameter
	}
	var evt *types.Event
	defer e.emitAfter(&evt)
	release := e.lockAsset(symbol)
	defer release()

	existing, err := e.state.GetAsset(symbol)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyExists
	}

	asset := &Asset{
		Symbol:               symbol,
		TokenRef:             params.TokenRef,
		PriceFeedRef:         params.PriceFeedRef,
		BaseRateBps:          params.BaseRateBps,
		CurrentRateBps:       params.BaseRateBps,
		CollateralFactorBps:  params.CollateralFactorBps,
		VolatilityMultiplier: params.VolatilityMultiplier,
		Decimals:             params.Decimals,
		Active:               true,
		TotalDeposited:       big.NewInt(0),
		TotalBorrowed:        big.NewInt(0),
	}
	if err := e.state.PutAsset(asset); err != nil {
		return fmt.Errorf("register asset %s: %w", symbol, err)
	}
	if err := e.state.AppendSymbol(symbol); err != nil {
		return fmt.Errorf("register asset %s: %w", symbol, err)
	}

	evt = NewAssetAddedEvent(asset)
	e.log.Info("asset registered", "symbol", symbol, "baseRateBps", params.BaseRateBps,
		"collateralFactorBps", params.CollateralFactorBps)
	return nil
}

// UpdateAsset adjusts the base rate and collateral factor of a registered
// asset. Existing positions are unaffected until their next accrual.
func (e *Engine) UpdateAsset(symbol string, baseRateBps, collateralFactorBps uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if collateralFactorBps > MaxCollateralFactorBps {
		return ErrInvalidParameter
	}
	symbol = NormalizeSymbol(symbol)
	var evt *types.Event
	defer e.emitAfter(&evt)
	release := e.lockAsset(symbol)
	defer release()

	asset, err := e.loadAsset(symbol)
	if err != nil {
		return err
	}
	asset.BaseRateBps = baseRateBps
	asset.CollateralFactorBps = collateralFactorBps
	if err := e.state.PutAsset(asset); err != nil {
		return fmt.Errorf("update asset %s: %w", symbol, err)
	}

	evt = NewAssetUpdatedEvent(asset)
	e.log.Info("asset updated", "symbol", symbol, "baseRateBps", baseRateBps,
		"collateralFactorBps", collateralFactorBps)
	return nil
}

// SetInterestRate replaces the rate applied by interest accrual. The
// administrative caller typically pushes a volatility-adjusted effective rate
// here.
func (e *Engine) SetInterestRate(symbol string, rateBps uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	symbol = NormalizeSymbol(symbol)
	var evt *types.Event
	defer e.emitAfter(&evt)
	release := e.lockAsset(symbol)
	defer release()

	asset, err := e.loadAsset(symbol)
	if err != nil {
		return err
	}
	asset.CurrentRateBps = rateBps
	if err := e.state.PutAsset(asset); err != nil {
		return fmt.Errorf("set rate %s: %w", symbol, err)
	}

	evt = NewRateChangedEvent(symbol, rateBps)
	e.log.Info("interest rate changed", "symbol", symbol, "rateBps", rateBps)
	return nil
}

// SetAssetActive flips the gate that rejects user operations on the asset.
func (e *Engine) SetAssetActive(symbol string, active bool) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	symbol = NormalizeSymbol(symbol)
	release := e.lockAsset(symbol)
	defer release()

	asset, err := e.loadAsset(symbol)
	if err != nil {
		return err
	}
	asset.Active = active
	if err := e.state.PutAsset(asset); err != nil {
		return fmt.Errorf("set active %s: %w", symbol, err)
	}
	e.log.Info("asset active flag changed", "symbol", symbol, "active", active)
	return nil
}

// Symbols lists every registered symbol in registration order.
func (e *Engine) Symbols() ([]string, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.state.Symbols()
}

// AssetSnapshot returns the read-surface view of a registered asset.
func (e *Engine) AssetSnapshot(symbol string) (*AssetSnapshot, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	asset, err := e.loadAsset(NormalizeSymbol(symbol))
	if err != nil {
		return nil, err
	}
	return &AssetSnapshot{
		Symbol:               asset.Symbol,
		TokenRef:             asset.TokenRef,
		PriceFeedRef:         asset.PriceFeedRef,
		BaseRateBps:          asset.BaseRateBps,
		CurrentRateBps:       asset.CurrentRateBps,
		CollateralFactorBps:  asset.CollateralFactorBps,
		VolatilityMultiplier: asset.VolatilityMultiplier,
		Decimals:             asset.Decimals,
		Active:               asset.Active,
		TotalDeposited:       asset.TotalDeposited,
		TotalBorrowed:        asset.TotalBorrowed,
	}, nil
}

// LatestPrice resolves the asset's current price through the price
// collaborator. Non-positive or unavailable values are never surfaced as
// valid prices.
func (e *Engine) LatestPrice(symbol string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	asset, err := e.loadAsset(NormalizeSymbol(symbol))
	if err != nil {
		return nil, err
	}
	price, err := e.oracle.LatestPrice(asset.PriceFeedRef)
	if err != nil {
		return nil, fmt.Errorf("price %s: %w", asset.Symbol, err)
	}
	return price, nil
}

// PositionSnapshot returns the read-surface view of a position, including the
// interest that would accrue if the position were touched now. Taking a
// snapshot never mutates state.
func (e *Engine) PositionSnapshot(user, symbol string) (*PositionSnapshot, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	symbol = NormalizeSymbol(symbol)
	asset, err := e.loadAsset(symbol)
	if err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(user, symbol)
	if err != nil {
		return nil, err
	}
	return &PositionSnapshot{
		User:            user,
		Symbol:          symbol,
		Deposited:       pos.Deposited,
		Borrowed:        pos.Borrowed,
		PendingInterest: pendingFor(pos, asset.CurrentRateBps, e.clock()),
		LastInterestAt:  pos.LastInterestAt,
	}, nil
}

// UserPositions collects the user's snapshots across every registered asset,
// skipping assets the user has never touched.
func (e *Engine) UserPositions(user string) ([]*PositionSnapshot, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	symbols, err := e.state.Symbols()
	if err != nil {
		return nil, err
	}
	snapshots := make([]*PositionSnapshot, 0, len(symbols))
	for _, symbol := range symbols {
		pos, err := e.state.GetPosition(user, symbol)
		if err != nil {
			return nil, err
		}
		if pos == nil {
			continue
		}
		snap, err := e.PositionSnapshot(user, symbol)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// LiquidationCandidates scans the asset's positions and returns every one
// that fails the solvency check once pending interest is counted, together
// with its health factor. The scan is read-only.
func (e *Engine) LiquidationCandidates(symbol string) ([]LiquidationCandidate, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	symbol = NormalizeSymbol(symbol)
	asset, err := e.loadAsset(symbol)
	if err != nil {
		return nil, err
	}
	now := e.clock()
	var candidates []LiquidationCandidate
	err = e.state.ForEachPosition(symbol, func(pos *Position) error {
		if pos.Borrowed == nil || pos.Borrowed.Sign() == 0 {
			return nil
		}
		owed := new(big.Int).Add(pos.Borrowed, pendingFor(pos, asset.CurrentRateBps, now))
		if IsHealthy(pos.Deposited, owed, asset.CollateralFactorBps) {
			return nil
		}
		candidates = append(candidates, LiquidationCandidate{
			User:            pos.User,
			Deposited:       cloneInt(pos.Deposited),
			Borrowed:        owed,
			HealthFactorBps: HealthFactorBps(pos.Deposited, owed, asset.CollateralFactorBps),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func pendingFor(pos *Position, rateBps, now uint64) *big.Int {
	if pos == nil || pos.LastInterestAt == 0 || now <= pos.LastInterestAt {
		return big.NewInt(0)
	}
	return PendingInterest(pos.Borrowed, rateBps, now-pos.LastInterestAt)
}

// lockAsset serialises administrative mutations with user operations on the
// same asset.
func (e *Engine) lockAsset(symbol string) func() {
	e.mu.Lock()
	lock := e.assetLocks[symbol]
	if lock == nil {
		lock = &sync.Mutex{}
		e.assetLocks[symbol] = lock
	}
	e.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}
