package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/BurntSushi/toml"

	"lendledger/ledger"
)

// Market describes one asset class seeded into the registry at boot.
type Market struct {
	Symbol               string `toml:"Symbol"`
	Token                string `toml:"Token"`
	PriceFeed            string `toml:"PriceFeed"`
	BaseRateBps          uint64 `toml:"BaseRateBps"`
	CollateralFactorBps  uint64 `toml:"CollateralFactorBps"`
	VolatilityMultiplier uint64 `toml:"VolatilityMultiplier"`
	Decimals             uint8  `toml:"Decimals"`
	// InitialPrice optionally seeds the static oracle, expressed as a
	// decimal integer string at the feed's native scale.
	InitialPrice string `toml:"InitialPrice"`
}

// MarketsFile is the TOML document listing the seeded markets.
type MarketsFile struct {
	Assets []Market `toml:"asset"`
}

// LoadMarkets parses and validates the markets file.
func LoadMarkets(path string) (MarketsFile, error) {
	var file MarketsFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return MarketsFile{}, fmt.Errorf("decode markets: %w", err)
	}
	seen := make(map[string]bool, len(file.Assets))
	for i := range file.Assets {
		m := &file.Assets[i]
		m.Symbol = strings.ToUpper(strings.TrimSpace(m.Symbol))
		if m.Symbol == "" {
			return MarketsFile{}, fmt.Errorf("markets: asset %d missing symbol", i)
		}
		if seen[m.Symbol] {
			return MarketsFile{}, fmt.Errorf("markets: duplicate symbol %s", m.Symbol)
		}
		seen[m.Symbol] = true
		if strings.TrimSpace(m.Token) == "" || strings.TrimSpace(m.PriceFeed) == "" {
			return MarketsFile{}, fmt.Errorf("markets: %s missing token or price feed", m.Symbol)
		}
		if m.CollateralFactorBps > ledger.MaxCollateralFactorBps {
			return MarketsFile{}, fmt.Errorf("markets: %s collateral factor %d exceeds %d bps",
				m.Symbol, m.CollateralFactorBps, ledger.MaxCollateralFactorBps)
		}
		if m.InitialPrice != "" {
			if _, ok := new(big.Int).SetString(m.InitialPrice, 10); !ok {
				return MarketsFile{}, fmt.Errorf("markets: %s invalid initial price %q", m.Symbol, m.InitialPrice)
			}
		}
	}
	return file, nil
}
