package domain

// TracedCommand pairs a generated trade command with its originating signal
// context, so replay PnL can be priced from the signal payload. Trace order
// is processing order; report computation depends on it.
type TracedCommand struct {
	Command     *TradeCommand
	SignalID    string
	Leg         string
	TriggeredAt int64
	Payload     *ArbitragePayload // nil when the signal carried no arbitrage payload
}
