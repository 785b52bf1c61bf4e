package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"signal-trade-lab/internal/domain"
	"signal-trade-lab/internal/executor"
	"signal-trade-lab/internal/risk"
	"signal-trade-lab/internal/signalsource"
	"signal-trade-lab/internal/strategy"
	"signal-trade-lab/internal/trader"
)

func main() {
	// Parse flags
	configPath := flag.String("strategy-config", "", "Path to strategy config JSON (required)")
	wsURL := flag.String("ws-url", "", "Live signal WebSocket endpoint (required)")
	apiKey := flag.String("api-key", "", "Signal API key")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[trader] ", log.LstdFlags)

	// Validate required flags
	if *configPath == "" {
		logger.Fatal("--strategy-config is required")
	}
	if *wsURL == "" {
		logger.Fatal("--ws-url is required")
	}

	cfg, err := loadStrategyConfig(*configPath)
	if err != nil {
		logger.Fatalf("load strategy config: %v", err)
	}
	if !cfg.Enabled {
		logger.Fatalf("strategy %q is disabled", cfg.Name)
	}

	// Only the dry-run executor ships with this build; refuse configs that
	// expect live venue routing.
	if !cfg.DryRun {
		logger.Fatalf("strategy %q requires live execution; only dry_run strategies are supported", cfg.Name)
	}

	engine, err := strategy.NewEngine(cfg)
	if err != nil {
		logger.Fatalf("build strategy: %v", err)
	}
	engine.WithLogger(logger)

	riskMgr := risk.NewManager(cfg.RiskLimits)
	exec := executor.NewDryRun(logger)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	feed, err := signalsource.NewWSFeed(ctx, *wsURL, *apiKey, nil)
	if err != nil {
		logger.Fatalf("connect live feed: %v", err)
	}
	defer feed.Close()

	logger.Printf("Trading strategy %s against %s (dry run)", cfg.Name, *wsURL)

	t := trader.New(engine, riskMgr, exec).WithLogger(logger)
	if err := t.Run(ctx, feed.Signals()); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("trader loop: %v", err)
	}

	stats := t.Stats()
	logger.Printf("Done: %d signals, %d matched, %d placed, %d rejected, %d failed",
		stats.SignalsSeen, stats.SignalsMatched, stats.OrdersPlaced, stats.OrdersRejected, stats.OrdersFailed)
}

// loadStrategyConfig reads and validates a strategy config document.
func loadStrategyConfig(path string) (*domain.StrategyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg domain.StrategyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return &cfg, nil
}
