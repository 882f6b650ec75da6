package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"
)

func TestAddAssetValidation(t *testing.T) {
	h := newTestHarness(t, 7500)

	cases := []struct {
		name   string
		params AddAssetParams
		want   error
	}{
		{"empty symbol", AddAssetParams{TokenRef: "t", PriceFeedRef: "f"}, ErrInvalidParameter},
		{"separator in symbol", AddAssetParams{Symbol: "A/B", TokenRef: "t", PriceFeedRef: "f"}, ErrInvalidParameter},
		{"missing token", AddAssetParams{Symbol: "X", PriceFeedRef: "f"}, ErrInvalidParameter},
		{"missing feed", AddAssetParams{Symbol: "X", TokenRef: "t"}, ErrInvalidParameter},
		{"factor above cap", AddAssetParams{Symbol: "X", TokenRef: "t", PriceFeedRef: "f", CollateralFactorBps: 9_001}, ErrInvalidParameter},
		{"duplicate", AddAssetParams{Symbol: testSymbol, TokenRef: "t", PriceFeedRef: "f"}, ErrAlreadyExists},
		{"duplicate after normalisation", AddAssetParams{Symbol: " atom ", TokenRef: "t", PriceFeedRef: "f"}, ErrAlreadyExists},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := h.engine.AddAsset(tc.params); !errors.Is(err, tc.want) {
				t.Fatalf("AddAsset: got %v want %v", err, tc.want)
			}
		})
	}
}

func TestAddAssetDefaults(t *testing.T) {
	h := newTestHarness(t, 7500)

	snap, err := h.engine.AssetSnapshot(testSymbol)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.Active {
		t.Fatalf("new asset not active")
	}
	if snap.CurrentRateBps != snap.BaseRateBps {
		t.Fatalf("current rate %d != base rate %d", snap.CurrentRateBps, snap.BaseRateBps)
	}
	if snap.TotalDeposited.Sign() != 0 || snap.TotalBorrowed.Sign() != 0 {
		t.Fatalf("new asset has non-zero totals: %s/%s", snap.TotalDeposited, snap.TotalBorrowed)
	}
}

func TestUpdateAssetBoundsFactor(t *testing.T) {
	h := newTestHarness(t, 7500)

	if err := h.engine.UpdateAsset(testSymbol, 600, 9_001); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("update past cap: got %v want ErrInvalidParameter", err)
	}
	if err := h.engine.UpdateAsset(testSymbol, 600, 8_000); err != nil {
		t.Fatalf("update: %v", err)
	}
	snap, err := h.engine.AssetSnapshot(testSymbol)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.BaseRateBps != 600 || snap.CollateralFactorBps != 8_000 {
		t.Fatalf("snapshot after update: %+v", snap)
	}
	// The applied rate is only replaced through SetInterestRate.
	if snap.CurrentRateBps != 500 {
		t.Fatalf("current rate changed by UpdateAsset: %d", snap.CurrentRateBps)
	}
}

func TestSetInterestRateUnknownAsset(t *testing.T) {
	h := newTestHarness(t, 7500)
	if err := h.engine.SetInterestRate("DOGE", 100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("set rate on unknown asset: got %v want ErrNotFound", err)
	}
}

func TestSymbolsPreserveRegistrationOrder(t *testing.T) {
	h := newTestHarness(t, 7500)
	for _, s := range []string{"OSMO", "JUNO"} {
		err := h.engine.AddAsset(AddAssetParams{
			Symbol: s, TokenRef: "token/" + s, PriceFeedRef: "feed/" + s,
		})
		if err != nil {
			t.Fatalf("add %s: %v", s, err)
		}
	}
	symbols, err := h.engine.Symbols()
	if err != nil {
		t.Fatalf("symbols: %v", err)
	}
	want := []string{testSymbol, "OSMO", "JUNO"}
	if len(symbols) != len(want) {
		t.Fatalf("symbols: got %v want %v", symbols, want)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Fatalf("symbols: got %v want %v", symbols, want)
		}
	}
}

func TestLatestPrice(t *testing.T) {
	h := newTestHarness(t, 7500)

	if _, err := h.engine.LatestPrice(testSymbol); err == nil {
		t.Fatalf("expected error with no price set")
	}
	h.oracle.SetPrice(testFeed, big.NewInt(12_345))
	price, err := h.engine.LatestPrice(testSymbol)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price.Cmp(big.NewInt(12_345)) != 0 {
		t.Fatalf("price: got %s want 12345", price)
	}
}

func TestUserPositionsSkipsUntouchedAssets(t *testing.T) {
	h := newTestHarness(t, 7500)
	ctx := context.Background()
	err := h.engine.AddAsset(AddAssetParams{
		Symbol: "OSMO", TokenRef: "token/osmo", PriceFeedRef: "feed/osmo",
	})
	if err != nil {
		t.Fatalf("add asset: %v", err)
	}
	h.vault.Credit(testToken, "alice", big.NewInt(100))
	if err := h.engine.Deposit(ctx, "alice", testSymbol, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	snaps, err := h.engine.UserPositions("alice")
	if err != nil {
		t.Fatalf("user positions: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("snapshot count: got %d want 1", len(snaps))
	}
	if snaps[0].Symbol != testSymbol {
		t.Fatalf("snapshot symbol: got %q want %q", snaps[0].Symbol, testSymbol)
	}
}
