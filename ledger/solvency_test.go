package ledger

import (
	"math/big"
	"testing"
)

func TestIsHealthy(t *testing.T) {
	cases := []struct {
		name      string
		deposited int64
		borrowed  int64
		factorBps uint64
		want      bool
	}{
		{"no debt", 0, 0, 7500, true},
		{"no debt no deposit", 0, 0, 0, true},
		{"at the limit", 100, 75, 7500, true},
		{"one past the limit", 100, 76, 7500, false},
		{"debt without deposit", 0, 1, 7500, false},
		{"zero factor with debt", 100, 1, 0, false},
		{"max factor", 100, 90, 9000, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsHealthy(big.NewInt(tc.deposited), big.NewInt(tc.borrowed), tc.factorBps)
			if got != tc.want {
				t.Fatalf("IsHealthy(%d, %d, %d): got %v want %v",
					tc.deposited, tc.borrowed, tc.factorBps, got, tc.want)
			}
		})
	}
}

func TestIsHealthyAvoidsRoundingBias(t *testing.T) {
	// 3 * 7500 / 10000 is 2.25; a float or a pre-divided limit would admit a
	// borrow of 3 here. The cross-multiplied form must not.
	if IsHealthy(big.NewInt(3), big.NewInt(3), 7500) {
		t.Fatalf("expected 3 against 3 at 7500 bps to be unhealthy")
	}
	if !IsHealthy(big.NewInt(4), big.NewInt(3), 7500) {
		t.Fatalf("expected 3 against 4 at 7500 bps to be healthy")
	}
}

func TestHealthFactorBps(t *testing.T) {
	if got := HealthFactorBps(big.NewInt(100), big.NewInt(0), 7500); got != nil {
		t.Fatalf("debt-free factor: got %s want nil", got)
	}
	if got := HealthFactorBps(big.NewInt(100), big.NewInt(75), 7500); got.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("at-limit factor: got %s want 10000", got)
	}
	if got := HealthFactorBps(big.NewInt(100), big.NewInt(50), 4_000); got.Cmp(big.NewInt(8_000)) != 0 {
		t.Fatalf("underwater factor: got %s want 8000", got)
	}
	if got := HealthFactorBps(big.NewInt(0), big.NewInt(50), 7500); got.Sign() != 0 {
		t.Fatalf("no-deposit factor: got %s want 0", got)
	}
}
