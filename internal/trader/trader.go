package trader

import (
	"context"
	"io"
	"log"
	"sync"

	"signal-trade-lab/internal/domain"
	"signal-trade-lab/internal/executor"
	"signal-trade-lab/internal/risk"
	"signal-trade-lab/internal/strategy"
)

// Stats counts live-loop outcomes.
type Stats struct {
	SignalsSeen    int
	SignalsMatched int
	OrdersPlaced   int
	OrdersRejected int
	OrdersFailed   int
}

// Trader runs the live signal-to-order loop: signals flow through the
// strategy rule engine, surviving commands are gated by the admission
// controller, admitted commands go to the executor, and successfully
// submitted trades are recorded back into the admission controller.
//
// Orchestration order at this call site: strategy first (market ids are
// resolved inside the rule engine), then risk evaluate, then submit, then
// risk record. Evaluate/record are split so a failed submission never
// charges quota.
type Trader struct {
	engine *strategy.Engine
	risk   *risk.Manager
	exec   executor.Executor
	logger *log.Logger

	mu        sync.Mutex
	positions map[string]*domain.Position
	stats     Stats
}

// New creates a trader.
func New(engine *strategy.Engine, riskMgr *risk.Manager, exec executor.Executor) *Trader {
	return &Trader{
		engine:    engine,
		risk:      riskMgr,
		exec:      exec,
		logger:    log.New(io.Discard, "", 0),
		positions: make(map[string]*domain.Position),
	}
}

// WithLogger sets a logger for loop events.
func (t *Trader) WithLogger(logger *log.Logger) *Trader {
	t.logger = logger
	return t
}

// Run consumes signals until the channel closes or the context is done.
func (t *Trader) Run(ctx context.Context, signals <-chan *domain.Signal) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			t.HandleSignal(ctx, sig)
		}
	}
}

// HandleSignal runs one signal through the full live path.
func (t *Trader) HandleSignal(ctx context.Context, sig *domain.Signal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.SignalsSeen++

	commands := t.engine.HandleSignal(sig)
	if len(commands) == 0 {
		return
	}
	t.stats.SignalsMatched++

	for _, cmd := range commands {
		decision := t.risk.Evaluate(cmd, t.positionList())
		if !decision.Allowed {
			t.stats.OrdersRejected++
			t.logger.Printf("signal %s: command %s rejected: %s", sig.ID, cmd.ID, decision.Reason)
			continue
		}

		if err := t.exec.PlaceOrder(ctx, cmd); err != nil {
			t.stats.OrdersFailed++
			t.logger.Printf("signal %s: command %s failed: %v", sig.ID, cmd.ID, err)
			continue
		}

		t.risk.RecordTrade(cmd.MarketID)
		t.applyFill(cmd)
		t.stats.OrdersPlaced++
	}
}

// Stats returns a snapshot of loop counters.
func (t *Trader) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Positions returns a snapshot of the open position book.
func (t *Trader) Positions() []*domain.Position {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*domain.Position, 0, len(t.positions))
	for _, p := range t.positions {
		copy := *p
		out = append(out, &copy)
	}
	return out
}

// positionList returns positions without copying; callers hold t.mu.
func (t *Trader) positionList() []*domain.Position {
	out := make([]*domain.Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, p)
	}
	return out
}

// applyFill updates the position book after a successful submission.
// Entry price uses the command's limit price when present, matching the
// notional convention the admission controller prices new trades with.
func (t *Trader) applyFill(cmd *domain.TradeCommand) {
	price := 1.0
	if cmd.LimitPrice != nil {
		price = *cmd.LimitPrice
	}

	pos, ok := t.positions[cmd.MarketID]
	if !ok {
		t.positions[cmd.MarketID] = &domain.Position{
			MarketID:   cmd.MarketID,
			Size:       cmd.Size,
			EntryPrice: price,
		}
		return
	}
	pos.Size += cmd.Size
}
