package domain

// ReplayReport is the value object produced once per replay run.
type ReplayReport struct {
	Summary     ReportSummary     `json:"summary"`
	PnL         ReportPnL         `json:"pnl"`
	WinRate     ReportWinRate     `json:"winRate"`
	Risk        ReportRisk        `json:"risk"`
	DataQuality ReportDataQuality `json:"dataQuality"`
}

// ReportSummary counts the signals seen and the commands they produced.
type ReportSummary struct {
	TotalSignals    int `json:"totalSignals"`
	SignalsMatched  int `json:"signalsMatched"`
	TradesGenerated int `json:"tradesGenerated"`
}

// ReportPnL holds realized PnL over priced pairs, net of round-trip fees.
type ReportPnL struct {
	TotalRealizedPnl float64 `json:"totalRealizedPnl"`
}

// ReportWinRate holds the fraction of priced pairs with positive PnL, in [0,1].
type ReportWinRate struct {
	WinRate float64 `json:"winRate"`
}

// ReportRisk holds the worst peak-to-trough decline of cumulative PnL.
type ReportRisk struct {
	MaxDrawdown float64 `json:"maxDrawdown"`
}

// ReportDataQuality counts commands belonging to priced pairs. It equals
// TradesGenerated whenever every matched signal carried payload pricing.
type ReportDataQuality struct {
	PayloadPricedTrades int `json:"payloadPricedTrades"`
}
