// Package custody defines the asset-movement collaborator the ledger calls at
// the boundary of every operation. Transfers are atomic with a binary
// outcome: a Vault must never partially move value.
package custody

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
)

// ErrTransferFailed wraps any custody-side failure. The ledger never retries;
// a failed transfer aborts the whole operation.
var ErrTransferFailed = errors.New("custody: transfer failed")

// Vault moves external value in and out of the pool.
type Vault interface {
	// Pull withdraws amount of token from the holder into the pool.
	Pull(ctx context.Context, token, from string, amount *big.Int) error
	// Push releases amount of token from the pool to the holder.
	Push(ctx context.Context, token, to string, amount *big.Int) error
}

// MemoryVault is an in-process Vault keeping simple per-holder balances. It
// backs tests and single-node deployments where custody is simulated.
type MemoryVault struct {
	mu       sync.Mutex
	balances map[string]map[string]*big.Int
}

// NewMemoryVault constructs an empty vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{balances: make(map[string]map[string]*big.Int)}
}

// Credit seeds a holder's balance, creating the token bucket on demand.
func (v *MemoryVault) Credit(token, holder string, amount *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	bucket := v.balances[token]
	if bucket == nil {
		bucket = make(map[string]*big.Int)
		v.balances[token] = bucket
	}
	current := bucket[holder]
	if current == nil {
		current = big.NewInt(0)
	}
	bucket[holder] = new(big.Int).Add(current, amount)
}

// Balance reports a holder's current balance for the token.
func (v *MemoryVault) Balance(token, holder string) *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	bucket := v.balances[token]
	if bucket == nil || bucket[holder] == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(bucket[holder])
}

// Pull implements the Vault interface.
func (v *MemoryVault) Pull(_ context.Context, token, from string, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	bucket := v.balances[token]
	if bucket == nil || bucket[from] == nil || bucket[from].Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds insufficient %s", ErrTransferFailed, from, token)
	}
	bucket[from] = new(big.Int).Sub(bucket[from], amount)
	return nil
}

// Push implements the Vault interface.
func (v *MemoryVault) Push(_ context.Context, token, to string, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	bucket := v.balances[token]
	if bucket == nil {
		bucket = make(map[string]*big.Int)
		v.balances[token] = bucket
	}
	current := bucket[to]
	if current == nil {
		current = big.NewInt(0)
	}
	bucket[to] = new(big.Int).Add(current, amount)
	return nil
}
