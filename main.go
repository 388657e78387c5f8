package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading-intelligence/internal/api"
	"trading-intelligence/internal/balance"
	"trading-intelligence/internal/decision"
	"trading-intelligence/internal/events"
	"trading-intelligence/internal/execution"
	"trading-intelligence/internal/market"
	"trading-intelligence/internal/predict"
	"trading-intelligence/internal/risk"
	"trading-intelligence/internal/session"
	"trading-intelligence/pkg/binance"
	"trading-intelligence/pkg/config"
	"trading-intelligence/pkg/db"
	"trading-intelligence/pkg/instance"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: load config: %v", err)
	}
	log.Printf("main: starting trading core on port %s", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("main: open database: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("main: apply migrations: %v", err)
	}

	// Exchange client; only used for market data, balance or orders when the
	// matching mode is enabled below.
	exchangeClient := binance.New(binance.Config{
		APIKey:    cfg.BinanceAPIKey,
		APISecret: cfg.BinanceAPISecret,
		Testnet:   cfg.BinanceTestnet,
	})

	// Market data (mock by default; live quotes are read-only and unsigned)
	var marketData market.Data
	if cfg.UseMockMarket {
		mock := market.NewMock(100, 0.8)
		go mock.StreamTicks(ctx, bus, []string{cfg.DefaultSymbol}, time.Second)
		marketData = mock
		log.Println("main: using mock market data")
	} else {
		marketData = exchangeClient
		log.Printf("main: using binance market data (testnet=%v)", cfg.BinanceTestnet)
	}

	// Prediction collaborator
	var predictor predict.Predictor
	switch cfg.Predictor {
	case "remote":
		predictor = predict.NewRemote(cfg.PredictorURL)
		log.Printf("main: using remote predictor at %s", cfg.PredictorURL)
	default:
		predictor = predict.NewStub()
		log.Println("main: using stub predictor")
	}

	// Balance
	var balanceMgr *balance.Manager
	if cfg.BalanceSource == "exchange" && cfg.BinanceAPIKey != "" {
		balanceMgr = balance.NewManager(exchangeClient, cfg.BalanceAsset, time.Duration(cfg.BalanceSyncInterval)*time.Second)
		balanceMgr.Start(ctx)
		log.Printf("main: balance synced from exchange every %ds", cfg.BalanceSyncInterval)
	} else {
		balanceMgr = balance.NewFixed(cfg.FixedBalance)
		log.Printf("main: fixed balance %.2f %s", cfg.FixedBalance, cfg.BalanceAsset)
	}

	limits := risk.Limits{
		PositionSizePercent: cfg.PositionSizePercent,
		MaxDailyTrades:      cfg.MaxDailyTrades,
		StopLossPercent:     cfg.StopLossPercent,
		TakeProfitPercent:   cfg.TakeProfitPercent,
		MinAccountBalance:   cfg.MinAccountBalance,
		MaxPositionNotional: cfg.MaxPositionNotional,
	}

	// Execution is opt-in; without it sessions generate decisions only.
	var (
		exec        *execution.Executor
		trader      session.Trader
		exitMonitor session.ExitMonitor
	)
	if cfg.ExecutionEnabled {
		exec = execution.NewExecutor(limits, exchangeClient, marketData, balanceMgr, database, bus, true)
		trader = exec
		exitMonitor = execution.NewMonitor(exec, marketData)
		log.Printf("main: execution ENABLED (max %d trades/day, %.1f%% per position)",
			limits.MaxDailyTrades, limits.PositionSizePercent)
	} else {
		log.Println("main: execution disabled, decisions only")
	}

	engine := decision.NewEngine(predictor, marketData, database)
	manager := session.NewManager(engine, database, bus, trader, exitMonitor, session.Defaults{
		Timeframe:     cfg.DefaultTimeframe,
		Interval:      time.Duration(cfg.DecisionInterval) * time.Second,
		MaxDecisions:  cfg.MaxDecisions,
		BuyThreshold:  cfg.BuyThreshold,
		SellThreshold: cfg.SellThreshold,
	})

	profiles, err := config.LoadProfiles(cfg.ProfilesPath)
	if err != nil {
		log.Printf("main: load profiles: %v", err)
		profiles = map[string]config.Profile{}
	} else if len(profiles) > 0 {
		log.Printf("main: loaded %d symbol profiles", len(profiles))
	}

	version := os.Getenv("APP_VERSION")
	if version == "" {
		version = "v1.0-dev"
	}
	instanceID, err := instance.ID()
	if err != nil {
		log.Printf("main: machine id unavailable: %v", err)
	}

	server := api.NewServer(bus, database, manager, exec, balanceMgr, limits, api.SystemMeta{
		Version:          version,
		InstanceID:       instanceID,
		Predictor:        cfg.Predictor,
		UseMockMarket:    cfg.UseMockMarket,
		ExecutionEnabled: cfg.ExecutionEnabled,
		DefaultSymbol:    cfg.DefaultSymbol,
		StartedAt:        time.Now().UTC(),
	}, cfg.JWTSecret)
	server.Profiles = profiles

	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("main: api server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("main: shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	manager.Shutdown(shutdownCtx)
	if exec != nil {
		exec.CloseAll(shutdownCtx, "shutdown")
	}
	log.Println("main: shutdown complete")
}
