package domain

// Position is a read-only snapshot owned by an external position tracker.
// The admission controller reads positions; it never mutates them.
type Position struct {
	MarketID     string   `json:"market_id"`
	Size         float64  `json:"size"`
	EntryPrice   float64  `json:"entry_price"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
}

// MarkPrice returns the current price when known, falling back to the
// entry price for exposure valuation.
func (p *Position) MarkPrice() float64 {
	if p.CurrentPrice != nil {
		return *p.CurrentPrice
	}
	return p.EntryPrice
}
