package domain

import (
	"encoding/json"
	"strconv"
)

// SignalType classifies the kind of event a signal describes.
type SignalType string

// Signal type constants.
const (
	SignalTypeAlert SignalType = "alert"
)

// Signal name constants. Names are free-form categories; only
// cross_venue_arbitrage has a payload schema the engine understands.
const (
	SignalNameCrossVenueArbitrage = "cross_venue_arbitrage"
)

// Signal is an immutable event describing a detected tradeable condition.
// Timestamps are unix milliseconds; streams are expected ordered by
// TriggeredAt, though ordering is not enforced here.
type Signal struct {
	ID            string          `json:"id"`
	SignalType    SignalType      `json:"signal_type"`
	SignalName    string          `json:"signal_name"`
	MarketID      string          `json:"market_id"`
	Venue         string          `json:"venue"`
	BaseCurrency  string          `json:"base_currency"`
	QuoteCurrency string          `json:"quote_currency"`
	CreatedAt     int64           `json:"created_at"`
	TriggeredAt   int64           `json:"triggered_at"`
	Description   string          `json:"description"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// ArbitragePayload is the payload schema for cross_venue_arbitrage signals.
// Prices are decimal strings on the wire.
type ArbitragePayload struct {
	Version      string `json:"version,omitempty"`
	BuyVenue     string `json:"buy_venue"`
	SellVenue    string `json:"sell_venue"`
	BuyMarketID  string `json:"buy_market_id"`
	SellMarketID string `json:"sell_market_id"`
	BuyPrice     string `json:"buy_price"`
	SellPrice    string `json:"sell_price"`
}

// ArbitragePayload decodes the signal payload as a two-legged cross-venue
// opportunity. Returns false when the payload is absent, malformed, or
// missing any of the venue/market fields both legs require.
func (s *Signal) ArbitragePayload() (*ArbitragePayload, bool) {
	if len(s.Payload) == 0 {
		return nil, false
	}

	var p ArbitragePayload
	if err := json.Unmarshal(s.Payload, &p); err != nil {
		return nil, false
	}

	if p.BuyVenue == "" || p.SellVenue == "" || p.BuyMarketID == "" || p.SellMarketID == "" {
		return nil, false
	}

	return &p, true
}

// Prices parses the payload's decimal-string prices.
// Returns false when either price is missing or unparsable.
func (p *ArbitragePayload) Prices() (buy, sell float64, ok bool) {
	if p == nil || p.BuyPrice == "" || p.SellPrice == "" {
		return 0, 0, false
	}

	buy, err := strconv.ParseFloat(p.BuyPrice, 64)
	if err != nil {
		return 0, 0, false
	}

	sell, err = strconv.ParseFloat(p.SellPrice, 64)
	if err != nil {
		return 0, 0, false
	}

	return buy, sell, true
}
