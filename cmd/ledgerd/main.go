package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lendledger/config"
	"lendledger/core/events"
	"lendledger/core/state"
	"lendledger/custody"
	"lendledger/journal"
	"lendledger/ledger"
	"lendledger/observability"
	"lendledger/observability/logging"
	"lendledger/oracle"
	"lendledger/rpc"
	"lendledger/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "path to ledgerd config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	env := strings.TrimSpace(os.Getenv("LEDGER_ENV"))
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("ledgerd", env)

	markets, err := config.LoadMarkets(cfg.MarketsPath)
	if err != nil {
		log.Fatalf("load markets: %v", err)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		log.Fatalf("open state database: %v", err)
	}
	defer db.Close()

	priceOracle := oracle.NewStaticOracle()
	for _, m := range markets.Assets {
		if m.InitialPrice == "" {
			continue
		}
		price, _ := new(big.Int).SetString(m.InitialPrice, 10)
		priceOracle.SetPrice(m.PriceFeed, price)
	}

	engine := ledger.NewEngine(state.NewManager(db), custody.NewMemoryVault(), priceOracle)
	engine.SetLogger(logger)

	emitters := []events.Emitter{observability.EventRecorder{}}
	if cfg.JournalPath != "" {
		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			log.Fatalf("open journal: %v", err)
		}
		defer store.Close()
		emitters = append(emitters, journal.NewRecorder(store, logger))
	}
	engine.SetEmitter(events.Fanout(emitters...))

	for _, m := range markets.Assets {
		err := engine.AddAsset(ledger.AddAssetParams{
			Symbol:               m.Symbol,
			TokenRef:             m.Token,
			PriceFeedRef:         m.PriceFeed,
			BaseRateBps:          m.BaseRateBps,
			CollateralFactorBps:  m.CollateralFactorBps,
			VolatilityMultiplier: m.VolatilityMultiplier,
			Decimals:             m.Decimals,
		})
		if err != nil && !errors.Is(err, ledger.ErrAlreadyExists) {
			log.Fatalf("seed market %s: %v", m.Symbol, err)
		}
	}
	logger.Info("markets seeded", "count", len(markets.Assets))

	server := rpc.NewServer(engine, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ledgerd listening", "addr", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		logger.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
