package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"signal-trade-lab/internal/domain"
	"signal-trade-lab/internal/replay"
	"signal-trade-lab/internal/reporting"
	"signal-trade-lab/internal/signalsource"
	chstore "signal-trade-lab/internal/storage/clickhouse"
)

func main() {
	// Parse flags
	configPaths := flag.String("strategy-configs", "", "Comma-separated strategy config JSON paths (required, >=2)")
	fromTime := flag.String("from-time", "", "Start time (RFC3339, required)")
	toTime := flag.String("to-time", "", "End time (RFC3339, required)")

	// Signal source
	apiURL := flag.String("api-url", "", "Historical signal API base URL")
	apiKey := flag.String("api-key", "", "Signal API key")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (signal archive)")
	pageSize := flag.Int("page-size", 500, "Signals per fetched page")

	// Run options
	feeRate := flag.Float64("fee-rate", 0.02, "Fee fraction charged on both legs' notional")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	outputCSV := flag.Bool("csv", false, "Output as CSV")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[compare] ", log.LstdFlags)

	// Validate required flags
	if *configPaths == "" {
		logger.Fatal("--strategy-configs is required")
	}
	if *fromTime == "" || *toTime == "" {
		logger.Fatal("--from-time and --to-time are required")
	}
	if *apiURL == "" && *clickhouseDSN == "" {
		logger.Fatal("one of --api-url or --clickhouse-dsn is required")
	}

	// Load strategy configs in input order
	var cfgs []*domain.StrategyConfig
	for _, path := range strings.Split(*configPaths, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		cfg, err := loadStrategyConfig(path)
		if err != nil {
			logger.Fatalf("load strategy config: %v", err)
		}
		cfgs = append(cfgs, cfg)
	}
	if len(cfgs) < 2 {
		logger.Fatal("--strategy-configs needs at least 2 configs to compare")
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

	logger.Printf("Comparing %d strategies over [%s, %s]", len(cfgs), *fromTime, *toTime)

	runner := replay.NewRunner().WithLogger(logger)
	results, err := runner.Compare(ctx, cfgs, src, replay.Options{FeeRate: *feeRate})
	if err != nil {
		logger.Fatalf("compare failed: %v", err)
	}

	// Output results
	switch {
	case *outputJSON:
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
	case *outputCSV:
		fmt.Print(reporting.RenderCSV(results))
	default:
		fmt.Print(reporting.RenderComparisonMarkdown(results))
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
