package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"lendledger/custody"
)

// setupUnderwater opens a 100/50 position for alice and drops the collateral
// factor so the position fails the solvency check.
func setupUnderwater(t *testing.T) *testHarness {
	t.Helper()
	h := newTestHarness(t, 7500)
	ctx := context.Background()
	h.vault.Credit(testToken, "alice", big.NewInt(100))

	if err := h.engine.Deposit(ctx, "alice", testSymbol, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := h.engine.Borrow(ctx, "alice", testSymbol, big.NewInt(50)); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if err := h.engine.UpdateAsset(testSymbol, 500, 4_000); err != nil {
		t.Fatalf("update asset: %v", err)
	}
	return h
}

func TestLiquidateSeizesCollateralWithBonus(t *testing.T) {
	h := setupUnderwater(t)
	ctx := context.Background()
	h.vault.Credit(testToken, "bob", big.NewInt(80))

	repaid, seized, err := h.engine.Liquidate(ctx, "bob", "alice", testSymbol, big.NewInt(80))
	if err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if repaid.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("repaid: got %s want 50", repaid)
	}
	// 50 plus the 500 bps bonus is 52.5, truncated to 52.
	if seized.Cmp(big.NewInt(52)) != 0 {
		t.Fatalf("seized: got %s want 52", seized)
	}

	pos := h.position(t, "alice")
	if pos.Borrowed.Sign() != 0 {
		t.Fatalf("borrowed after liquidation: got %s want 0", pos.Borrowed)
	}
	if pos.Deposited.Cmp(big.NewInt(48)) != 0 {
		t.Fatalf("deposited after liquidation: got %s want 48", pos.Deposited)
	}
	asset := h.asset(t)
	if asset.TotalBorrowed.Sign() != 0 || asset.TotalDeposited.Cmp(big.NewInt(48)) != 0 {
		t.Fatalf("totals after liquidation: borrowed %s deposited %s",
			asset.TotalBorrowed, asset.TotalDeposited)
	}
	// Bob is up the 2-unit bonus: 80 - 50 + 52.
	if got := h.vault.Balance(testToken, "bob"); got.Cmp(big.NewInt(82)) != 0 {
		t.Fatalf("liquidator balance: got %s want 82", got)
	}
}

func TestLiquidatePartial(t *testing.T) {
	h := setupUnderwater(t)
	ctx := context.Background()
	h.vault.Credit(testToken, "bob", big.NewInt(20))

	repaid, seized, err := h.engine.Liquidate(ctx, "bob", "alice", testSymbol, big.NewInt(20))
	if err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if repaid.Cmp(big.NewInt(20)) != 0 || seized.Cmp(big.NewInt(21)) != 0 {
		t.Fatalf("repaid/seized: got %s/%s want 20/21", repaid, seized)
	}
	pos := h.position(t, "alice")
	if pos.Borrowed.Cmp(big.NewInt(30)) != 0 || pos.Deposited.Cmp(big.NewInt(79)) != 0 {
		t.Fatalf("position after partial liquidation: %s/%s", pos.Deposited, pos.Borrowed)
	}
}

func TestLiquidateSeizeCappedAtDeposit(t *testing.T) {
	h := newTestHarness(t, 7500)
	ctx := context.Background()
	h.vault.Credit(testToken, "alice", big.NewInt(100))

	if err := h.engine.Deposit(ctx, "alice", testSymbol, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := h.engine.Borrow(ctx, "alice", testSymbol, big.NewInt(75)); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	// Ten years of accrual pushes the debt to 112, past the deposit itself.
	h.advance(10 * SecondsPerYear)
	h.vault.Credit(testToken, "bob", big.NewInt(200))

	repaid, seized, err := h.engine.Liquidate(ctx, "bob", "alice", testSymbol, big.NewInt(200))
	if err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if repaid.Cmp(big.NewInt(112)) != 0 {
		t.Fatalf("repaid: got %s want 112", repaid)
	}
	if seized.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("seized: got %s want 100 (capped at deposit)", seized)
	}
	pos := h.position(t, "alice")
	if pos.Deposited.Sign() != 0 || pos.Borrowed.Sign() != 0 {
		t.Fatalf("position not closed: %s/%s", pos.Deposited, pos.Borrowed)
	}
	asset := h.asset(t)
	if asset.TotalDeposited.Sign() != 0 || asset.TotalBorrowed.Sign() != 0 {
		t.Fatalf("totals not closed: %s/%s", asset.TotalDeposited, asset.TotalBorrowed)
	}
}

func TestLiquidateHealthyPositionRejected(t *testing.T) {
	h := newTestHarness(t, 7500)
	ctx := context.Background()
	h.vault.Credit(testToken, "alice", big.NewInt(100))
	h.vault.Credit(testToken, "bob", big.NewInt(100))

	if err := h.engine.Deposit(ctx, "alice", testSymbol, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := h.engine.Borrow(ctx, "alice", testSymbol, big.NewInt(50)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	_, _, err := h.engine.Liquidate(ctx, "bob", "alice", testSymbol, big.NewInt(50))
	if !errors.Is(err, ErrPositionHealthy) {
		t.Fatalf("liquidate healthy position: got %v want ErrPositionHealthy", err)
	}
	pos := h.position(t, "alice")
	if pos.Deposited.Cmp(big.NewInt(100)) != 0 || pos.Borrowed.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("rejected liquidation mutated position: %s/%s", pos.Deposited, pos.Borrowed)
	}
	if got := h.vault.Balance(testToken, "bob"); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("rejected liquidation moved value: %s", got)
	}
}

func TestLiquidateSelfRejected(t *testing.T) {
	h := setupUnderwater(t)
	ctx := context.Background()

	_, _, err := h.engine.Liquidate(ctx, "alice", "alice", testSymbol, big.NewInt(10))
	if !errors.Is(err, ErrSelfLiquidation) {
		t.Fatalf("self liquidation: got %v want ErrSelfLiquidation", err)
	}
}

func TestLiquidateAllowedOnInactiveAsset(t *testing.T) {
	h := setupUnderwater(t)
	ctx := context.Background()
	h.vault.Credit(testToken, "bob", big.NewInt(80))

	if err := h.engine.SetAssetActive(testSymbol, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, _, err := h.engine.Liquidate(ctx, "bob", "alice", testSymbol, big.NewInt(50)); err != nil {
		t.Fatalf("liquidate on inactive asset: %v", err)
	}
}

type seizeFailVault struct {
	*custody.MemoryVault
	pushes int
}

func (v *seizeFailVault) Push(ctx context.Context, token, to string, amount *big.Int) error {
	v.pushes++
	if v.pushes == 1 {
		return custody.ErrTransferFailed
	}
	return v.MemoryVault.Push(ctx, token, to, amount)
}

func TestLiquidateRefundsOnSeizeFailure(t *testing.T) {
	h := setupUnderwater(t)
	ctx := context.Background()
	h.vault.Credit(testToken, "bob", big.NewInt(80))

	fv := &seizeFailVault{MemoryVault: h.vault}
	engine := NewEngine(h.state, fv, h.oracle)
	engine.SetClock(func() uint64 { return h.now })

	_, _, err := engine.Liquidate(ctx, "bob", "alice", testSymbol, big.NewInt(50))
	if !errors.Is(err, custody.ErrTransferFailed) {
		t.Fatalf("liquidate with failing seize: got %v want ErrTransferFailed", err)
	}
	// The pulled repayment was returned, leaving bob whole.
	if got := h.vault.Balance(testToken, "bob"); got.Cmp(big.NewInt(80)) != 0 {
		t.Fatalf("liquidator balance after aborted liquidation: got %s want 80", got)
	}
	pos := h.position(t, "alice")
	if pos.Deposited.Cmp(big.NewInt(100)) != 0 || pos.Borrowed.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("aborted liquidation mutated position: %s/%s", pos.Deposited, pos.Borrowed)
	}
}

func TestLiquidationCandidatesScan(t *testing.T) {
	h := setupUnderwater(t)
	ctx := context.Background()
	h.vault.Credit(testToken, "bob", big.NewInt(300))

	// Bob stays comfortably healthy at the reduced collateral factor.
	if err := h.engine.Deposit(ctx, "bob", testSymbol, big.NewInt(300)); err != nil {
		t.Fatalf("deposit bob: %v", err)
	}
	if err := h.engine.Borrow(ctx, "bob", testSymbol, big.NewInt(30)); err != nil {
		t.Fatalf("borrow bob: %v", err)
	}

	candidates, err := h.engine.LiquidationCandidates(testSymbol)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidate count: got %d want 1", len(candidates))
	}
	c := candidates[0]
	if c.User != "alice" {
		t.Fatalf("candidate user: got %q want alice", c.User)
	}
	// deposited * 4000 / borrowed = 100 * 4000 / 50.
	if c.HealthFactorBps.Cmp(big.NewInt(8_000)) != 0 {
		t.Fatalf("health factor: got %s want 8000", c.HealthFactorBps)
	}
}
