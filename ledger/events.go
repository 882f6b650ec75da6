package ledger

import (
	"math/big"
	"strconv"

	"lendledger/core/types"
)

const (
	EventTypeAssetAdded   = "asset.added"
	EventTypeAssetUpdated = "asset.updated"
	EventTypeRateChanged  = "asset.rate_changed"
	EventTypeDeposited    = "ledger.deposited"
	EventTypeWithdrawn    = "ledger.withdrawn"
	EventTypeBorrowed     = "ledger.borrowed"
	EventTypeRepaid       = "ledger.repaid"
	EventTypeLiquidated   = "ledger.liquidated"
)

// NewAssetAddedEvent returns the canonical payload for a freshly registered
// asset.
func NewAssetAddedEvent(a *Asset) *types.Event {
	return &types.Event{
		Type: EventTypeAssetAdded,
		Attributes: map[string]string{
			"symbol":              a.Symbol,
			"token":               a.TokenRef,
			"priceFeed":           a.PriceFeedRef,
			"baseRateBps":         strconv.FormatUint(a.BaseRateBps, 10),
			"collateralFactorBps": strconv.FormatUint(a.CollateralFactorBps, 10),
		},
	}
}

// NewAssetUpdatedEvent returns the canonical payload for an administrative
// parameter update.
func NewAssetUpdatedEvent(a *Asset) *types.Event {
	return &types.Event{
		Type: EventTypeAssetUpdated,
		Attributes: map[string]string{
			"symbol":              a.Symbol,
			"baseRateBps":         strconv.FormatUint(a.BaseRateBps, 10),
			"collateralFactorBps": strconv.FormatUint(a.CollateralFactorBps, 10),
		},
	}
}

// NewRateChangedEvent returns the canonical payload for an interest rate
// adjustment.
func NewRateChangedEvent(symbol string, rateBps uint64) *types.Event {
	return &types.Event{
		Type: EventTypeRateChanged,
		Attributes: map[string]string{
			"symbol":  symbol,
			"rateBps": strconv.FormatUint(rateBps, 10),
		},
	}
}

func newPositionEvent(eventType string, p *Position, amount *big.Int) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"user":      p.User,
			"symbol":    p.Symbol,
			"amount":    amount.String(),
			"deposited": p.Deposited.String(),
			"borrowed":  p.Borrowed.String(),
		},
	}
}

// NewLiquidatedEvent returns the canonical payload emitted after a forced
// closure, including the seized collateral awarded to the liquidator.
func NewLiquidatedEvent(p *Position, liquidator string, repaid, seized *big.Int) *types.Event {
	evt := newPositionEvent(EventTypeLiquidated, p, repaid)
	evt.Attributes["liquidator"] = liquidator
	evt.Attributes["seized"] = seized.String()
	return evt
}
