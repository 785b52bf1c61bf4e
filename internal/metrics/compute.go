package metrics

import (
	"signal-trade-lab/internal/domain"
)

// pricedPair is a matched buy/sell leg pair with payload-sourced prices,
// eligible for PnL computation. Pairs keep the order their first leg was
// seen in the trace; drawdown is order-dependent.
type pricedPair struct {
	size      float64
	buyPrice  float64
	sellPrice float64
	legs      int
}

// ComputeReport builds a ReplayReport from an ordered trade trace.
// feeRate is a fraction (0.02 = 2%) charged on both legs' notional.
//
// A pair is priced when both the buy and sell legs of one originating
// signal exist and that signal's payload carries parsable prices. Unpaired
// or unpriced legs still count toward TradesGenerated but are excluded from
// PnL and win rate.
func ComputeReport(trace []*domain.TracedCommand, totalSignals, signalsMatched int, feeRate float64) *domain.ReplayReport {
	pairs := collectPricedPairs(trace)

	pnls := make([]float64, len(pairs))
	pricedTrades := 0
	wins := 0
	total := 0.0
	for i, p := range pairs {
		pnl := realizedPnL(p, feeRate)
		pnls[i] = pnl
		total += pnl
		if pnl > 0 {
			wins++
		}
		pricedTrades += p.legs
	}

	return &domain.ReplayReport{
		Summary: domain.ReportSummary{
			TotalSignals:    totalSignals,
			SignalsMatched:  signalsMatched,
			TradesGenerated: len(trace),
		},
		PnL:         domain.ReportPnL{TotalRealizedPnl: total},
		WinRate:     domain.ReportWinRate{WinRate: computeWinRate(wins, len(pairs))},
		Risk:        domain.ReportRisk{MaxDrawdown: computeMaxDrawdown(pnls)},
		DataQuality: domain.ReportDataQuality{PayloadPricedTrades: pricedTrades},
	}
}

// collectPricedPairs walks the trace once, pairing buy and sell legs by
// originating signal. Map lookups keep the walk O(1) amortized per command.
func collectPricedPairs(trace []*domain.TracedCommand) []pricedPair {
	type openPair struct {
		buy, sell *domain.TracedCommand
	}

	open := make(map[string]*openPair)
	var order []*openPair

	for _, tc := range trace {
		if tc.Payload == nil {
			continue
		}
		if tc.Leg != domain.LegBuy && tc.Leg != domain.LegSell {
			continue
		}

		p, ok := open[tc.SignalID]
		if !ok {
			p = &openPair{}
			open[tc.SignalID] = p
			order = append(order, p)
		}
		switch tc.Leg {
		case domain.LegBuy:
			p.buy = tc
		case domain.LegSell:
			p.sell = tc
		}
	}

	var pairs []pricedPair
	for _, p := range order {
		if p.buy == nil || p.sell == nil {
			continue
		}
		buyPrice, sellPrice, ok := p.buy.Payload.Prices()
		if !ok {
			continue
		}
		pairs = append(pairs, pricedPair{
			size:      p.buy.Command.Size,
			buyPrice:  buyPrice,
			sellPrice: sellPrice,
			legs:      2,
		})
	}
	return pairs
}

// realizedPnL is the captured spread net of round-trip fees on both legs'
// notional: size*(sell-buy) - feeRate*size*(buy+sell).
func realizedPnL(p pricedPair, feeRate float64) float64 {
	gross := p.size * (p.sellPrice - p.buyPrice)
	fees := feeRate * p.size * (p.buyPrice + p.sellPrice)
	return gross - fees
}

// computeWinRate calculates win rate as wins / total, 0 when total is 0.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeMaxDrawdown calculates worst peak-to-trough on cumulative PnL.
// PnLs must be in processing order. Result is floored at 0.
func computeMaxDrawdown(pnls []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, pnl := range pnls {
		cumulative += pnl
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := peak - cumulative
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}
