package reporting

import (
	"fmt"
	"strings"

	"signal-trade-lab/internal/domain"
	"signal-trade-lab/internal/replay"
)

// RenderMarkdown renders a single replay report as Markdown string.
func RenderMarkdown(name string, r *domain.ReplayReport) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Replay Report: %s\n\n", name))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Signals | %d |\n", r.Summary.TotalSignals))
	sb.WriteString(fmt.Sprintf("| Signals Matched | %d |\n", r.Summary.SignalsMatched))
	sb.WriteString(fmt.Sprintf("| Trades Generated | %d |\n", r.Summary.TradesGenerated))
	sb.WriteString("\n")

	sb.WriteString("## Performance\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Realized PnL | %.6f |\n", r.PnL.TotalRealizedPnl))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", r.WinRate.WinRate))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.6f |\n", r.Risk.MaxDrawdown))
	sb.WriteString("\n")

	sb.WriteString("## Data Quality\n\n")
	sb.WriteString(fmt.Sprintf("Payload-priced trades: %d of %d generated.\n",
		r.DataQuality.PayloadPricedTrades, r.Summary.TradesGenerated))
	if r.DataQuality.PayloadPricedTrades < r.Summary.TradesGenerated {
		sb.WriteString("Some trades lack payload pricing and are excluded from PnL.\n")
	}

	return sb.String()
}

// RenderComparisonMarkdown renders strategy comparison results as a Markdown
// table, in input order.
func RenderComparisonMarkdown(results []*replay.Result) string {
	var sb strings.Builder

	sb.WriteString("# Strategy Comparison\n\n")

	if len(results) == 0 {
		sb.WriteString("No strategies compared.\n")
		return sb.String()
	}

	sb.WriteString("| Strategy | Signals | Matched | Trades | PnL | WinRate | MaxDD | PricedTrades |\n")
	sb.WriteString("|----------|---------|---------|--------|-----|---------|-------|-------------|\n")
	for _, res := range results {
		r := res.Report
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.6f | %.4f | %.6f | %d |\n",
			res.Name,
			r.Summary.TotalSignals, r.Summary.SignalsMatched, r.Summary.TradesGenerated,
			r.PnL.TotalRealizedPnl, r.WinRate.WinRate, r.Risk.MaxDrawdown,
			r.DataQuality.PayloadPricedTrades))
	}
	sb.WriteString("\n")

	return sb.String()
}
