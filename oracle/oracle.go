// Package oracle defines the price collaborator contract the ledger consumes.
// The ledger never interprets a non-positive or missing value as a valid
// price; sourcing and staleness policy live with the oracle implementation.
package oracle

import (
	"errors"
	"math/big"
	"sync"
)

var (
	// ErrUnavailable indicates the feed has no price to report.
	ErrUnavailable = errors.New("oracle: price unavailable")
	// ErrInvalidPrice indicates the feed reported a zero or negative value.
	ErrInvalidPrice = errors.New("oracle: non-positive price")
)

// PriceOracle resolves the latest price for an asset's feed reference.
type PriceOracle interface {
	LatestPrice(feed string) (*big.Int, error)
}

// StaticOracle is an in-memory PriceOracle fed by an external process. It is
// suitable for tests and for deployments where an off-process poller pushes
// prices in.
type StaticOracle struct {
	mu     sync.RWMutex
	prices map[string]*big.Int
}

// NewStaticOracle constructs an empty static oracle.
func NewStaticOracle() *StaticOracle {
	return &StaticOracle{prices: make(map[string]*big.Int)}
}

// SetPrice records the latest observation for a feed. Non-positive values are
// stored as-is and rejected at read time so a poisoned update is visible.
func (o *StaticOracle) SetPrice(feed string, price *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[feed] = new(big.Int).Set(price)
}

// LatestPrice returns the most recent observation for the feed.
func (o *StaticOracle) LatestPrice(feed string) (*big.Int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.prices[feed]
	if !ok {
		return nil, ErrUnavailable
	}
	if price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	return new(big.Int).Set(price), nil
}
