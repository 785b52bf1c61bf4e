package metrics

import (
	"math"
	"testing"

	"signal-trade-lab/internal/domain"
)

func pairLegs(signalID string, size float64, buyPrice, sellPrice string) []*domain.TracedCommand {
	payload := &domain.ArbitragePayload{
		BuyVenue:     "polymarket",
		SellVenue:    "kalshi",
		BuyMarketID:  "0xabc",
		SellMarketID: "FED-25DEC",
		BuyPrice:     buyPrice,
		SellPrice:    sellPrice,
	}
	return []*domain.TracedCommand{
		{
			Command:  &domain.TradeCommand{ID: signalID + "-buy", Side: domain.SideBuy, Size: size},
			SignalID: signalID,
			Leg:      domain.LegBuy,
			Payload:  payload,
		},
		{
			Command:  &domain.TradeCommand{ID: signalID + "-sell", Side: domain.SideSell, Size: size},
			SignalID: signalID,
			Leg:      domain.LegSell,
			Payload:  payload,
		},
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeReport_EmptyTrace(t *testing.T) {
	r := ComputeReport(nil, 0, 0, 0.02)

	if r.Summary.TotalSignals != 0 || r.Summary.TradesGenerated != 0 {
		t.Errorf("unexpected summary: %+v", r.Summary)
	}
	if r.WinRate.WinRate != 0 {
		t.Errorf("empty trace must have win rate 0, got %v", r.WinRate.WinRate)
	}
	if r.Risk.MaxDrawdown != 0 {
		t.Errorf("empty trace must have drawdown 0, got %v", r.Risk.MaxDrawdown)
	}
}

func TestComputeReport_SinglePricedPair(t *testing.T) {
	trace := pairLegs("sig-1", 10, "0.40", "0.55")
	r := ComputeReport(trace, 1, 1, 0.02)

	// 10*(0.55-0.40) - 0.02*10*(0.40+0.55) = 1.5 - 0.19 = 1.31
	if !approx(r.PnL.TotalRealizedPnl, 1.31) {
		t.Errorf("expected pnl 1.31, got %v", r.PnL.TotalRealizedPnl)
	}
	if r.WinRate.WinRate != 1 {
		t.Errorf("expected win rate 1, got %v", r.WinRate.WinRate)
	}
	if r.DataQuality.PayloadPricedTrades != 2 {
		t.Errorf("expected 2 priced trades, got %d", r.DataQuality.PayloadPricedTrades)
	}
	if r.Summary.TradesGenerated != 2 {
		t.Errorf("expected 2 trades generated, got %d", r.Summary.TradesGenerated)
	}
}

func TestComputeReport_FeesTurnWinIntoLoss(t *testing.T) {
	// Spread 0.01 on 1 unit; round-trip fees 0.02*(0.50+0.51) ≈ 0.0202.
	trace := pairLegs("sig-1", 1, "0.50", "0.51")
	r := ComputeReport(trace, 1, 1, 0.02)

	if r.PnL.TotalRealizedPnl >= 0 {
		t.Errorf("expected fee-dominated loss, got %v", r.PnL.TotalRealizedPnl)
	}
	if r.WinRate.WinRate != 0 {
		t.Errorf("expected win rate 0, got %v", r.WinRate.WinRate)
	}
}

func TestComputeReport_WinRateMixed(t *testing.T) {
	var trace []*domain.TracedCommand
	trace = append(trace, pairLegs("sig-1", 10, "0.40", "0.55")...) // win
	trace = append(trace, pairLegs("sig-2", 10, "0.55", "0.40")...) // loss
	trace = append(trace, pairLegs("sig-3", 10, "0.45", "0.60")...) // win

	r := ComputeReport(trace, 3, 3, 0.0)
	if !approx(r.WinRate.WinRate, 2.0/3.0) {
		t.Errorf("expected win rate 2/3, got %v", r.WinRate.WinRate)
	}
}

func TestComputeReport_MaxDrawdown(t *testing.T) {
	var trace []*domain.TracedCommand
	trace = append(trace, pairLegs("sig-1", 10, "0.40", "0.55")...) // +1.5
	trace = append(trace, pairLegs("sig-2", 10, "0.60", "0.40")...) // -2.0
	trace = append(trace, pairLegs("sig-3", 10, "0.50", "0.45")...) // -0.5
	trace = append(trace, pairLegs("sig-4", 10, "0.40", "0.80")...) // +4.0

	r := ComputeReport(trace, 4, 4, 0.0)
	// Peak 1.5, trough 1.5-2.0-0.5 = -1.0, drawdown 2.5.
	if !approx(r.Risk.MaxDrawdown, 2.5) {
		t.Errorf("expected drawdown 2.5, got %v", r.Risk.MaxDrawdown)
	}
	if r.Risk.MaxDrawdown < 0 {
		t.Error("drawdown must be non-negative")
	}
}

func TestComputeReport_MonotonicGainsHaveZeroDrawdown(t *testing.T) {
	var trace []*domain.TracedCommand
	trace = append(trace, pairLegs("sig-1", 10, "0.40", "0.55")...)
	trace = append(trace, pairLegs("sig-2", 10, "0.45", "0.60")...)

	r := ComputeReport(trace, 2, 2, 0.0)
	if r.Risk.MaxDrawdown != 0 {
		t.Errorf("expected zero drawdown, got %v", r.Risk.MaxDrawdown)
	}
}

func TestComputeReport_UnpricedLegsExcluded(t *testing.T) {
	trace := pairLegs("sig-1", 10, "0.40", "0.55")

	// A lone buy leg with no sell counterpart.
	orphan := pairLegs("sig-2", 10, "0.40", "0.55")[:1]
	trace = append(trace, orphan...)

	// A pair whose payload carries no prices.
	unpriced := pairLegs("sig-3", 10, "", "")
	trace = append(trace, unpriced...)

	// A single-leg command without arbitrage payload.
	trace = append(trace, &domain.TracedCommand{
		Command:  &domain.TradeCommand{ID: "single", Side: domain.SideBuy, Size: 1},
		SignalID: "sig-4",
		Leg:      domain.LegSingle,
	})

	r := ComputeReport(trace, 4, 4, 0.02)

	if r.Summary.TradesGenerated != 6 {
		t.Errorf("all commands count toward trades generated, got %d", r.Summary.TradesGenerated)
	}
	if r.DataQuality.PayloadPricedTrades != 2 {
		t.Errorf("only the complete priced pair counts, got %d", r.DataQuality.PayloadPricedTrades)
	}
	if !approx(r.PnL.TotalRealizedPnl, 1.31) {
		t.Errorf("expected pnl from the priced pair only, got %v", r.PnL.TotalRealizedPnl)
	}
}

func TestComputeReport_BoundsHold(t *testing.T) {
	var trace []*domain.TracedCommand
	trace = append(trace, pairLegs("sig-1", 10, "0.55", "0.40")...)
	trace = append(trace, pairLegs("sig-2", 10, "0.60", "0.40")...)

	r := ComputeReport(trace, 2, 2, 0.05)
	if r.WinRate.WinRate < 0 || r.WinRate.WinRate > 1 {
		t.Errorf("win rate out of [0,1]: %v", r.WinRate.WinRate)
	}
	if r.Risk.MaxDrawdown < 0 {
		t.Errorf("drawdown negative: %v", r.Risk.MaxDrawdown)
	}
}
