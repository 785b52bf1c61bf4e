package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal-trade-lab/internal/domain"
	"signal-trade-lab/internal/signalsource"
	"signal-trade-lab/internal/storage"
	chstore "signal-trade-lab/internal/storage/clickhouse"
	"signal-trade-lab/internal/storage/memory"
)

func main() {
	// Parse flags
	apiURL := flag.String("api-url", "", "Historical signal API base URL (backfill mode)")
	wsURL := flag.String("ws-url", "", "Live signal WebSocket endpoint (live mode)")
	apiKey := flag.String("api-key", "", "Signal API key")
	fromTime := flag.String("from-time", "", "Start time (RFC3339, backfill mode)")
	toTime := flag.String("to-time", "", "End time (RFC3339, backfill mode)")
	pageSize := flag.Int("page-size", 500, "Signals per fetched page")
	flushSize := flag.Int("flush-size", 100, "Live mode: signals buffered per archive insert")

	// Storage
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (signal archive)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (dry runs)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[ingest] ", log.LstdFlags)

	// Validate required flags
	if (*apiURL == "") == (*wsURL == "") {
		logger.Fatal("exactly one of --api-url (backfill) or --ws-url (live) is required")
	}
	if *apiURL != "" && (*fromTime == "" || *toTime == "") {
		logger.Fatal("--from-time and --to-time are required in backfill mode")
	}
	if !*useMemory && *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required when not using --use-memory")
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

	// Create archive store
	var store storage.SignalStore = memory.NewSignalStore()
	if !*useMemory {
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()

		store = chstore.NewSignalStore(conn)
	}

	var err error
	if *apiURL != "" {
		err = runBackfill(ctx, logger, store, *apiURL, *apiKey, *fromTime, *toTime, *pageSize)
	} else {
		err = runLive(ctx, logger, store, *wsURL, *apiKey, *flushSize)
	}
	if err != nil {
		logger.Fatalf("ingest failed: %v", err)
	}
}

// runBackfill pages the historical API into the archive.
func runBackfill(ctx context.Context, logger *log.Logger, store storage.SignalStore,
	apiURL, apiKey, fromTime, toTime string, pageSize int) error {

	from, err := time.Parse(time.RFC3339, fromTime)
	if err != nil {
		return fmt.Errorf("parse from-time: %w", err)
	}
	to, err := time.Parse(time.RFC3339, toTime)
	if err != nil {
		return fmt.Errorf("parse to-time: %w", err)
	}

	src := signalsource.NewHTTPSource(apiURL, apiKey, from.UnixMilli(), to.UnixMilli(),
		signalsource.WithPageSize(pageSize))

	total := 0
	skipped := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("fetch signal batch: %w", err)
		}
		if len(batch) == 0 {
			continue
		}

		if err := store.InsertBulk(ctx, batch); err != nil {
			// Re-running a backfill over an already-archived range is routine.
			if errors.Is(err, storage.ErrDuplicateKey) {
				skipped += len(batch)
				continue
			}
			return fmt.Errorf("archive signal batch: %w", err)
		}
		total += len(batch)
		logger.Printf("Archived %d signals (%d total)", len(batch), total)
	}

	logger.Printf("Backfill complete: %d archived, %d skipped as duplicates", total, skipped)
	return nil
}

// runLive streams the WebSocket feed into the archive until interrupted.
func runLive(ctx context.Context, logger *log.Logger, store storage.SignalStore,
	wsURL, apiKey string, flushSize int) error {

	feed, err := signalsource.NewWSFeed(ctx, wsURL, apiKey, nil)
	if err != nil {
		return fmt.Errorf("connect live feed: %w", err)
	}
	defer feed.Close()

	logger.Printf("Streaming live signals from %s", wsURL)

	buffer := make([]*domain.Signal, 0, flushSize)
	flush := func() error {
		if len(buffer) == 0 {
			return nil
		}
		if err := store.InsertBulk(ctx, buffer); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("archive live batch: %w", err)
		}
		logger.Printf("Archived %d live signals", len(buffer))
		buffer = buffer[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			// Flush what we have on shutdown; the context is already done,
			// so use a short grace window.
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if len(buffer) > 0 {
				if err := store.InsertBulk(flushCtx, buffer); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
					return fmt.Errorf("archive final batch: %w", err)
				}
				logger.Printf("Archived %d live signals on shutdown", len(buffer))
			}
			return nil
		case sig, ok := <-feed.Signals():
			if !ok {
				return flush()
			}
			buffer = append(buffer, sig)
			if len(buffer) >= flushSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
}
