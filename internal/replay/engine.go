package replay

import (
	"signal-trade-lab/internal/domain"
	"signal-trade-lab/internal/metrics"
	"signal-trade-lab/internal/strategy"
)

// Engine accumulates one strategy's replay state: signal counters and the
// ordered trade trace. Signals must be fed in arrival order; the trace is
// append-only and never re-scanned, keeping per-signal overhead O(1).
type Engine struct {
	strategy *strategy.Engine

	totalSignals   int
	signalsMatched int
	trace          []*domain.TracedCommand
}

// NewEngine creates a replay engine around a strategy rule engine.
func NewEngine(strat *strategy.Engine) *Engine {
	return &Engine{
		strategy: strat,
		trace:    make([]*domain.TracedCommand, 0),
	}
}

// OnSignal runs one signal through the strategy and appends any resulting
// commands to the trace, tagged with the originating signal's timestamp and
// payload for PnL pricing.
func (e *Engine) OnSignal(sig *domain.Signal) {
	e.totalSignals++

	commands := e.strategy.HandleSignal(sig)
	if len(commands) == 0 {
		return
	}
	e.signalsMatched++

	// Arbitrage signals produce buy+sell legs; anything else is single-leg.
	payload, _ := sig.ArbitragePayload()

	for _, cmd := range commands {
		leg := domain.LegSingle
		if payload != nil {
			if cmd.Side == domain.SideBuy {
				leg = domain.LegBuy
			} else {
				leg = domain.LegSell
			}
		}

		e.trace = append(e.trace, &domain.TracedCommand{
			Command:     cmd,
			SignalID:    sig.ID,
			Leg:         leg,
			TriggeredAt: sig.TriggeredAt,
			Payload:     payload,
		})
	}
}

// Trace returns the accumulated trade trace in processing order.
func (e *Engine) Trace() []*domain.TracedCommand {
	return e.trace
}

// Report computes the replay report from the accumulated state.
func (e *Engine) Report(feeRate float64) *domain.ReplayReport {
	return metrics.ComputeReport(e.trace, e.totalSignals, e.signalsMatched, feeRate)
}
