package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal-trade-lab/internal/domain"
	"signal-trade-lab/internal/replay"
	"signal-trade-lab/internal/reporting"
	"signal-trade-lab/internal/signalsource"
	chstore "signal-trade-lab/internal/storage/clickhouse"
	pgstore "signal-trade-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("strategy-config", "", "Path to strategy config JSON (required)")
	fromTime := flag.String("from-time", "", "Start time (RFC3339, required)")
	toTime := flag.String("to-time", "", "End time (RFC3339, required)")

	// Signal source
	apiURL := flag.String("api-url", "", "Historical signal API base URL")
	apiKey := flag.String("api-key", "", "Signal API key")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (signal archive)")
	pageSize := flag.Int("page-size", 500, "Signals per fetched page")

	// Run options
	feeRate := flag.Float64("fee-rate", 0.02, "Fee fraction charged on both legs' notional")
	pacingMs := flag.Int64("pacing-ms", 0, "Synthetic delay between batches (cosmetic)")
	runID := flag.String("run-id", "", "Persist the trade trace under this run id")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (trade log)")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	// Validate required flags
	if *configPath == "" {
		logger.Fatal("--strategy-config is required")
	}
	if *fromTime == "" || *toTime == "" {
		logger.Fatal("--from-time and --to-time are required")
	}
	if *apiURL == "" && *clickhouseDSN == "" {
		logger.Fatal("one of --api-url or --clickhouse-dsn is required")
	}
	if *runID != "" && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required when --run-id is set")
	}

	cfg, err := loadStrategyConfig(*configPath)
	if err != nil {
		logger.Fatalf("load strategy config: %v", err)
	}

	start, end, err := parseTimeRange(*fromTime, *toTime)
	if err != nil {
		logger.Fatal(err)
	}

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

	// Create signal source
	var src signalsource.Source
	if *apiURL != "" {
		src = signalsource.NewHTTPSource(*apiURL, *apiKey, start, end,
			signalsource.WithPageSize(*pageSize))
	} else {
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()

		src = signalsource.NewStoreSource(chstore.NewSignalStore(conn), start, end, *pageSize)
	}

	// Create runner
	runner := replay.NewRunner().WithLogger(logger)
	if *postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		runner = runner.WithTradeLog(pgstore.NewTradeLogStore(pool))
	}

	logger.Printf("Running replay: strategy=%s range=[%s, %s]", cfg.Name, *fromTime, *toTime)

	report, err := runner.Run(ctx, cfg, src, replay.Options{
		FeeRate:     *feeRate,
		PacingDelay: time.Duration(*pacingMs) * time.Millisecond,
		RunID:       *runID,
	})
	if err != nil {
		logger.Fatalf("replay failed: %v", err)
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Print(reporting.RenderMarkdown(cfg.Name, report))
	}
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

// parseTimeRange converts RFC3339 bounds to unix milliseconds.
func parseTimeRange(fromTime, toTime string) (int64, int64, error) {
	from, err := time.Parse(time.RFC3339, fromTime)
	if err != nil {
		return 0, 0, fmt.Errorf("parse from-time: %w", err)
	}
	to, err := time.Parse(time.RFC3339, toTime)
	if err != nil {
		return 0, 0, fmt.Errorf("parse to-time: %w", err)
	}
	return from.UnixMilli(), to.UnixMilli(), nil
}
