package domain

// Side is the direction of a trade command.
type Side string

// Side constants.
const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Action opens or closes a position.
type Action string

// Action constants.
const (
	ActionOpen  Action = "open"
	ActionClose Action = "close"
)

// OrderType selects market or limit execution.
type OrderType string

// Order type constants.
const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// CommandTypeTrade is the only command type the pipeline emits.
const CommandTypeTrade = "trade"

// Leg tags distinguish the commands derived from one signal.
// Command ids are deterministic functions of (signal id, leg).
const (
	LegBuy    = "buy"
	LegSell   = "sell"
	LegSingle = "single"
)

// TradeCommand is an immutable instruction to open or close a position on a
// venue. MarketID is venue-native by the time a command exists: cross-venue
// legs carry payload ids, single-leg commands go through the resolver first.
type TradeCommand struct {
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	MarketID   string    `json:"market_id"`
	Venue      string    `json:"venue"`
	Side       Side      `json:"side"`
	Action     Action    `json:"action"`
	Size       float64   `json:"size"`
	OrderType  OrderType `json:"order_type"`
	LimitPrice *float64  `json:"limit_price,omitempty"`
}
