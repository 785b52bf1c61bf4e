package reporting

import (
	"fmt"
	"strings"

	"signal-trade-lab/internal/replay"
)

// RenderCSV renders comparison results as CSV string.
func RenderCSV(results []*replay.Result) string {
	var sb strings.Builder

	// Header
	sb.WriteString("strategy,total_signals,signals_matched,trades_generated,")
	sb.WriteString("total_realized_pnl,win_rate,max_drawdown,payload_priced_trades\n")

	// Rows
	for _, res := range results {
		r := res.Report
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%.6f,%.6f,%.6f,%d\n",
			res.Name,
			r.Summary.TotalSignals,
			r.Summary.SignalsMatched,
			r.Summary.TradesGenerated,
			r.PnL.TotalRealizedPnl,
			r.WinRate.WinRate,
			r.Risk.MaxDrawdown,
			r.DataQuality.PayloadPricedTrades,
		))
	}

	return sb.String()
}
