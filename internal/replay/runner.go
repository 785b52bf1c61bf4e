package replay

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"signal-trade-lab/internal/domain"
	"signal-trade-lab/internal/signalsource"
	"signal-trade-lab/internal/storage"
	"signal-trade-lab/internal/strategy"
)

// Options controls a replay run.
type Options struct {
	// FeeRate is the fee fraction charged on both legs' notional (0.02 = 2%).
	FeeRate float64

	// PacingDelay inserts a synthetic pause between batches for interactive
	// replay. Purely cosmetic: it must have zero effect on the report.
	PacingDelay time.Duration

	// RunID, when set and a trade log store is configured, persists the
	// run's trace under that id.
	RunID string
}

// Result pairs a strategy name with its report, for strategy comparison.
type Result struct {
	Name   string               `json:"name"`
	Report *domain.ReplayReport `json:"report"`
}

// Runner replays historical signal streams through strategy rule engines.
type Runner struct {
	logger   *log.Logger
	tradeLog storage.TradeLogStore
}

// NewRunner creates a replay runner.
func NewRunner() *Runner {
	return &Runner{
		logger: log.New(io.Discard, "", 0),
	}
}

// WithLogger sets a logger for run progress.
func (r *Runner) WithLogger(logger *log.Logger) *Runner {
	r.logger = logger
	return r
}

// WithTradeLog sets an optional store for persisting run traces.
func (r *Runner) WithTradeLog(store storage.TradeLogStore) *Runner {
	r.tradeLog = store
	return r
}

// Run replays the source through one strategy and returns its report.
// Signals are processed strictly in arrival order; a run aborted by context
// cancellation returns an error, never a partial report.
func (r *Runner) Run(ctx context.Context, cfg *domain.StrategyConfig, src signalsource.Source, opts Options) (*domain.ReplayReport, error) {
	strat, err := strategy.NewEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("build strategy %q: %w", cfg.Name, err)
	}

	engine := NewEngine(strat)

	for {
		// Cancellation checkpoint at batch boundaries.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fetch signal batch: %w", err)
		}

		for _, sig := range batch {
			engine.OnSignal(sig)
		}

		if opts.PacingDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.PacingDelay):
			}
		}
	}

	report := engine.Report(opts.FeeRate)
	r.logger.Printf("run %s: %d signals, %d matched, %d commands",
		cfg.Name, report.Summary.TotalSignals, report.Summary.SignalsMatched, report.Summary.TradesGenerated)

	if opts.RunID != "" && r.tradeLog != nil && len(engine.Trace()) > 0 {
		if err := r.tradeLog.InsertBulk(ctx, opts.RunID, engine.Trace()); err != nil {
			return nil, fmt.Errorf("persist trade log for run %s: %w", opts.RunID, err)
		}
	}

	return report, nil
}

// Compare replays one signal stream through multiple strategies and returns
// their reports in input order. The stream is fetched exactly once and
// buffered; each strategy then replays the shared read-only batches through
// its own independent engine, concurrently. Every result observes the same
// TotalSignals.
func (r *Runner) Compare(ctx context.Context, cfgs []*domain.StrategyConfig, src signalsource.Source, opts Options) ([]*Result, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("compare requires at least one strategy config")
	}

	// Build every engine before the expensive fetch so a bad config fails fast.
	engines := make([]*Engine, len(cfgs))
	for i, cfg := range cfgs {
		strat, err := strategy.NewEngine(cfg)
		if err != nil {
			return nil, fmt.Errorf("build strategy %q: %w", cfg.Name, err)
		}
		engines[i] = NewEngine(strat)
	}

	batches, err := signalsource.Drain(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("buffer signal stream: %w", err)
	}

	results := make([]*Result, len(cfgs))
	var wg sync.WaitGroup
	for i := range engines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			engine := engines[i]
			for _, batch := range batches {
				for _, sig := range batch {
					engine.OnSignal(sig)
				}
			}
			results[i] = &Result{
				Name:   cfgs[i].Name,
				Report: engine.Report(opts.FeeRate),
			}
		}(i)
	}
	wg.Wait()

	return results, nil
}
