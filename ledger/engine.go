package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"lendledger/core/events"
	"lendledger/core/pause"
	"lendledger/core/types"
	"lendledger/custody"
	"lendledger/oracle"
)

// State is the persistence contract the engine is written against. GetAsset
// and GetPosition return nil (no error) when the record does not exist.
// Implementations must hand out values the engine can mutate freely without
// affecting stored state until the matching Put.
type State interface {
	GetAsset(symbol string) (*Asset, error)
	PutAsset(asset *Asset) error
	GetPosition(user, symbol string) (*Position, error)
	PutPosition(position *Position) error
	// Symbols lists every registered symbol in registration order.
	Symbols() ([]string, error)
	AppendSymbol(symbol string) error
	// ForEachPosition visits every stored position of the asset.
	ForEachPosition(symbol string, fn func(*Position) error) error
}

// Engine orchestrates every ledger state transition: registry administration,
// the four user operations and liquidation. Each operation is atomic; a
// failed precondition or custody transfer leaves persisted state untouched
// because the engine works on copies and persists only after the external
// movement succeeded.
type Engine struct {
	state   State
	vault   custody.Vault
	oracle  oracle.PriceOracle
	emitter events.Emitter
	pauses  pause.View
	log     *slog.Logger
	clock   func() uint64

	mu         sync.Mutex
	inFlight   map[string]bool
	assetLocks map[string]*sync.Mutex
}

// NewEngine constructs an engine wired to its three collaborators. Events,
// pauses, logger and clock have working defaults and are adjusted through the
// setters below.
func NewEngine(state State, vault custody.Vault, priceOracle oracle.PriceOracle) *Engine {
	return &Engine{
		state:      state,
		vault:      vault,
		oracle:     priceOracle,
		emitter:    events.NoopEmitter{},
		log:        slog.Default(),
		clock:      func() uint64 { return uint64(time.Now().Unix()) },
		inFlight:   make(map[string]bool),
		assetLocks: make(map[string]*sync.Mutex),
	}
}

// SetEmitter wires the engine to a downstream event subscriber.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetPauses installs the per-operation pause switches.
func (e *Engine) SetPauses(v pause.View) {
	if e == nil {
		return
	}
	e.pauses = v
}

// SetLogger replaces the engine logger.
func (e *Engine) SetLogger(log *slog.Logger) {
	if e == nil || log == nil {
		return
	}
	e.log = log
}

// SetClock replaces the time source used for accrual. The clock reports UNIX
// seconds; tests install a deterministic one.
func (e *Engine) SetClock(clock func() uint64) {
	if e == nil || clock == nil {
		return
	}
	e.clock = clock
}

// Deposit pulls amount of the asset's token from the user into the pool and
// credits the position's collateral balance.
func (e *Engine) Deposit(ctx context.Context, user, symbol string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := pause.Guard(e.pauses, "deposit"); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	symbol = NormalizeSymbol(symbol)
	release, err := e.beginOp(user, symbol)
	if err != nil {
		return err
	}
	var evt *types.Event
	defer e.emitAfter(&evt)
	defer release()

	asset, err := e.activeAsset(symbol)
	if err != nil {
		return err
	}
	pos, err := e.loadPosition(user, symbol)
	if err != nil {
		return err
	}
	interest := Accrue(pos, asset.CurrentRateBps, e.clock())

	if err := e.vault.Pull(ctx, asset.TokenRef, user, amount); err != nil {
		return fmt.Errorf("deposit %s %s: %w", user, symbol, err)
	}

	pos.Deposited = new(big.Int).Add(pos.Deposited, amount)
	asset.TotalDeposited = new(big.Int).Add(asset.TotalDeposited, amount)
	asset.TotalBorrowed = new(big.Int).Add(asset.TotalBorrowed, interest)
	if err := e.persist(asset, pos); err != nil {
		return err
	}

	evt = newPositionEvent(EventTypeDeposited, pos, amount)
	e.log.Debug("deposit committed", "user", user, "symbol", symbol, "amount", amount.String())
	return nil
}

// Withdraw releases amount of collateral back to the user, provided the
// remaining position stays healthy.
func (e *Engine) Withdraw(ctx context.Context, user, symbol string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := pause.Guard(e.pauses, "withdraw"); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	symbol = NormalizeSymbol(symbol)
	release, err := e.beginOp(user, symbol)
	if err != nil {
		return err
	}
	var evt *types.Event
	defer e.emitAfter(&evt)
	defer release()

	asset, err := e.activeAsset(symbol)
	if err != nil {
		return err
	}
	pos, err := e.loadPosition(user, symbol)
	if err != nil {
		return err
	}
	interest := Accrue(pos, asset.CurrentRateBps, e.clock())

	if pos.Deposited.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	remaining := new(big.Int).Sub(pos.Deposited, amount)
	if !IsHealthy(remaining, pos.Borrowed, asset.CollateralFactorBps) {
		return ErrUnhealthyPosition
	}

	if err := e.vault.Push(ctx, asset.TokenRef, user, amount); err != nil {
		return fmt.Errorf("withdraw %s %s: %w", user, symbol, err)
	}

	pos.Deposited = remaining
	asset.TotalDeposited = new(big.Int).Sub(asset.TotalDeposited, amount)
	asset.TotalBorrowed = new(big.Int).Add(asset.TotalBorrowed, interest)
	if err := e.persist(asset, pos); err != nil {
		return err
	}

	evt = newPositionEvent(EventTypeWithdrawn, pos, amount)
	e.log.Debug("withdraw committed", "user", user, "symbol", symbol, "amount", amount.String())
	return nil
}

// Borrow pushes amount of the asset's token out to the user against their
// collateral, bounded by the position's borrowing limit and the pool's free
// liquidity.
func (e *Engine) Borrow(ctx context.Context, user, symbol string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := pause.Guard(e.pauses, "borrow"); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	symbol = NormalizeSymbol(symbol)
	release, err := e.beginOp(user, symbol)
	if err != nil {
		return err
	}
	var evt *types.Event
	defer e.emitAfter(&evt)
	defer release()

	asset, err := e.activeAsset(symbol)
	if err != nil {
		return err
	}
	pos, err := e.loadPosition(user, symbol)
	if err != nil {
		return err
	}
	interest := Accrue(pos, asset.CurrentRateBps, e.clock())
	asset.TotalBorrowed = new(big.Int).Add(asset.TotalBorrowed, interest)

	liquidity := new(big.Int).Sub(asset.TotalDeposited, asset.TotalBorrowed)
	if liquidity.Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}
	projected := new(big.Int).Add(pos.Borrowed, amount)
	if !IsHealthy(pos.Deposited, projected, asset.CollateralFactorBps) {
		return ErrUnhealthyPosition
	}

	if err := e.vault.Push(ctx, asset.TokenRef, user, amount); err != nil {
		return fmt.Errorf("borrow %s %s: %w", user, symbol, err)
	}

	pos.Borrowed = projected
	asset.TotalBorrowed = new(big.Int).Add(asset.TotalBorrowed, amount)
	if err := e.persist(asset, pos); err != nil {
		return err
	}

	evt = newPositionEvent(EventTypeBorrowed, pos, amount)
	e.log.Debug("borrow committed", "user", user, "symbol", symbol, "amount", amount.String())
	return nil
}

// Repay pulls up to the outstanding debt back from the user. Any excess of
// amount over the debt is never transferred, so the caller keeps it. The
// actual amount repaid is returned.
func (e *Engine) Repay(ctx context.Context, user, symbol string, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := pause.Guard(e.pauses, "repay"); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	symbol = NormalizeSymbol(symbol)
	release, err := e.beginOp(user, symbol)
	if err != nil {
		return nil, err
	}
	var evt *types.Event
	defer e.emitAfter(&evt)
	defer release()

	asset, err := e.activeAsset(symbol)
	if err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(user, symbol)
	if err != nil {
		return nil, err
	}
	interest := Accrue(pos, asset.CurrentRateBps, e.clock())
	if pos.Borrowed.Sign() == 0 {
		return nil, ErrNoOutstandingDebt
	}

	actual := new(big.Int).Set(amount)
	if actual.Cmp(pos.Borrowed) > 0 {
		actual = new(big.Int).Set(pos.Borrowed)
	}

	if err := e.vault.Pull(ctx, asset.TokenRef, user, actual); err != nil {
		return nil, fmt.Errorf("repay %s %s: %w", user, symbol, err)
	}

	pos.Borrowed = new(big.Int).Sub(pos.Borrowed, actual)
	asset.TotalBorrowed = new(big.Int).Add(asset.TotalBorrowed, interest)
	asset.TotalBorrowed = new(big.Int).Sub(asset.TotalBorrowed, actual)
	if err := e.persist(asset, pos); err != nil {
		return nil, err
	}

	evt = newPositionEvent(EventTypeRepaid, pos, actual)
	e.log.Debug("repay committed", "user", user, "symbol", symbol, "amount", actual.String())
	return actual, nil
}

// Liquidate lets a third party repay part of an unhealthy position's debt in
// exchange for the repaid amount plus the liquidation bonus in collateral.
// The seized collateral is capped at the position's deposit even when that
// under-compensates the bonus. Returns the repaid and seized amounts.
func (e *Engine) Liquidate(ctx context.Context, liquidator, user, symbol string, amount *big.Int) (*big.Int, *big.Int, error) {
	if e == nil || e.state == nil {
		return nil, nil, ErrNilState
	}
	if err := pause.Guard(e.pauses, "liquidate"); err != nil {
		return nil, nil, err
	}
	if liquidator == user {
		return nil, nil, ErrSelfLiquidation
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	symbol = NormalizeSymbol(symbol)
	release, err := e.beginOp(user, symbol)
	if err != nil {
		return nil, nil, err
	}
	var evt *types.Event
	defer e.emitAfter(&evt)
	defer release()

	// Liquidation is permitted on inactive assets: it only reduces risk.
	asset, err := e.loadAsset(symbol)
	if err != nil {
		return nil, nil, err
	}
	pos, err := e.loadPosition(user, symbol)
	if err != nil {
		return nil, nil, err
	}
	interest := Accrue(pos, asset.CurrentRateBps, e.clock())

	if IsHealthy(pos.Deposited, pos.Borrowed, asset.CollateralFactorBps) {
		return nil, nil, ErrPositionHealthy
	}

	repay := new(big.Int).Set(amount)
	if repay.Cmp(pos.Borrowed) > 0 {
		repay = new(big.Int).Set(pos.Borrowed)
	}
	seize := new(big.Int).Mul(repay, big.NewInt(10_000+LiquidationBonusBps))
	seize.Quo(seize, basisPoints)
	if seize.Cmp(pos.Deposited) > 0 {
		seize = new(big.Int).Set(pos.Deposited)
	}

	if err := e.vault.Pull(ctx, asset.TokenRef, liquidator, repay); err != nil {
		return nil, nil, fmt.Errorf("liquidate %s by %s: %w", user, liquidator, err)
	}
	if err := e.vault.Push(ctx, asset.TokenRef, liquidator, seize); err != nil {
		// Return the pulled repayment so the aborted operation is value
		// neutral for the liquidator.
		if refundErr := e.vault.Push(ctx, asset.TokenRef, liquidator, repay); refundErr != nil {
			e.log.Error("liquidation refund failed", "liquidator", liquidator, "symbol", symbol, "err", refundErr)
		}
		return nil, nil, fmt.Errorf("liquidate %s by %s: %w", user, liquidator, err)
	}

	pos.Borrowed = new(big.Int).Sub(pos.Borrowed, repay)
	pos.Deposited = new(big.Int).Sub(pos.Deposited, seize)
	asset.TotalBorrowed = new(big.Int).Add(asset.TotalBorrowed, interest)
	asset.TotalBorrowed = new(big.Int).Sub(asset.TotalBorrowed, repay)
	asset.TotalDeposited = new(big.Int).Sub(asset.TotalDeposited, seize)
	if err := e.persist(asset, pos); err != nil {
		return nil, nil, err
	}

	evt = NewLiquidatedEvent(pos, liquidator, repay, seize)
	e.log.Info("position liquidated",
		"user", user, "liquidator", liquidator, "symbol", symbol,
		"repaid", repay.String(), "seized", seize.String())
	return repay, seize, nil
}

// NormalizeSymbol canonicalises an asset symbol for keying.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// emitAfter delivers a committed operation's event once the guards are
// released. It is deferred before the release so subscribers run outside the
// asset lock; a subscriber may therefore call back into the engine, including
// for other positions of the same asset. A nil event (rejected operation)
// emits nothing.
func (e *Engine) emitAfter(evt **types.Event) {
	if evt == nil || *evt == nil {
		return
	}
	e.emitter.Emit(*evt)
}

// beginOp takes the per-position re-entrancy guard and the asset write lock.
// A nested call against the same position is rejected instead of deadlocking;
// operations against distinct assets proceed concurrently.
func (e *Engine) beginOp(user, symbol string) (func(), error) {
	key := user + "\x00" + symbol
	e.mu.Lock()
	if e.inFlight[key] {
		e.mu.Unlock()
		return nil, ErrOperationInProgress
	}
	e.inFlight[key] = true
	lock := e.assetLocks[symbol]
	if lock == nil {
		lock = &sync.Mutex{}
		e.assetLocks[symbol] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		e.mu.Lock()
		delete(e.inFlight, key)
		e.mu.Unlock()
	}, nil
}

func (e *Engine) loadAsset(symbol string) (*Asset, error) {
	asset, err := e.state.GetAsset(symbol)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, ErrNotFound
	}
	if asset.TotalDeposited == nil {
		asset.TotalDeposited = big.NewInt(0)
	}
	if asset.TotalBorrowed == nil {
		asset.TotalBorrowed = big.NewInt(0)
	}
	return asset, nil
}

func (e *Engine) activeAsset(symbol string) (*Asset, error) {
	asset, err := e.loadAsset(symbol)
	if err != nil {
		return nil, err
	}
	if !asset.Active {
		return nil, ErrInactiveAsset
	}
	return asset, nil
}

func (e *Engine) loadPosition(user, symbol string) (*Position, error) {
	pos, err := e.state.GetPosition(user, symbol)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		pos = &Position{User: user, Symbol: symbol}
	}
	if pos.Deposited == nil {
		pos.Deposited = big.NewInt(0)
	}
	if pos.Borrowed == nil {
		pos.Borrowed = big.NewInt(0)
	}
	return pos, nil
}

func (e *Engine) persist(asset *Asset, pos *Position) error {
	if err := e.state.PutPosition(pos); err != nil {
		return fmt.Errorf("persist position %s/%s: %w", pos.User, pos.Symbol, err)
	}
	if err := e.state.PutAsset(asset); err != nil {
		return fmt.Errorf("persist asset %s: %w", asset.Symbol, err)
	}
	return nil
}
