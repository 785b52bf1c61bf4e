package domain

import (
	"errors"
	"fmt"
)

// Config validation errors. Malformed configuration is fatal at load time:
// the engine must not start with an invalid strategy or risk config.
var (
	ErrMissingStrategyName = errors.New("strategy config requires name")
	ErrNoRules             = errors.New("strategy config requires at least one rule")
	ErrMissingRuleName     = errors.New("rule requires name")
	ErrNoSignalTypes       = errors.New("rule requires at least one signal type")
	ErrNoSignalNames       = errors.New("rule requires at least one signal name")
	ErrInvalidSide         = errors.New("rule action side must be buy or sell")
	ErrInvalidSize         = errors.New("rule action size must be positive")
	ErrInvalidOrderType    = errors.New("rule action order type must be market or limit")
	ErrNegativeRiskLimit   = errors.New("risk limit must not be negative")
)

// RuleAction is the trade template applied when a rule matches.
type RuleAction struct {
	Side       Side      `json:"side"`
	Size       float64   `json:"size"`
	OrderType  OrderType `json:"order_type"`
	LimitPrice *float64  `json:"limit_price,omitempty"`
}

// StrategyRule is an ordered entry in a rule set. Rules are evaluated in
// declaration order; the first enabled rule whose signal type and name sets
// both contain the incoming signal's values fires. At most one rule fires
// per signal.
type StrategyRule struct {
	Name        string     `json:"name"`
	Enabled     bool       `json:"enabled"`
	SignalTypes []string   `json:"signal_types"`
	SignalNames []string   `json:"signal_names"`
	Action      RuleAction `json:"action"`
}

// RiskLimits configures the admission controller.
// SignalDedupWindowSeconds is carried for signal-level dedup performed
// upstream; the admission controller itself does not enforce it.
type RiskLimits struct {
	MaxTradesPerMinute       int      `json:"max_trades_per_minute"`
	MarketCooldownSeconds    int      `json:"market_cooldown_seconds"`
	SignalDedupWindowSeconds int      `json:"signal_dedup_window_seconds"`
	MaxPositionSizePerMarket *float64 `json:"max_position_size_per_market,omitempty"`
	MaxTotalExposureUSD      *float64 `json:"max_total_exposure_usd,omitempty"`
}

// StrategyConfig is the structured strategy document.
type StrategyConfig struct {
	Name           string            `json:"name"`
	Enabled        bool              `json:"enabled"`
	DryRun         bool              `json:"dry_run"`
	Rules          []StrategyRule    `json:"rules"`
	MarketMappings map[string]string `json:"market_mappings,omitempty"`
	RiskLimits     RiskLimits        `json:"risk_limits"`
}

// Validate checks the config shape. Invalid configs are rejected before any
// signal is processed.
func (c *StrategyConfig) Validate() error {
	if c.Name == "" {
		return ErrMissingStrategyName
	}
	if len(c.Rules) == 0 {
		return ErrNoRules
	}

	for i, rule := range c.Rules {
		if err := rule.validate(); err != nil {
			return fmt.Errorf("rule %d (%q): %w", i, rule.Name, err)
		}
	}

	return c.RiskLimits.validate()
}

func (r *StrategyRule) validate() error {
	if r.Name == "" {
		return ErrMissingRuleName
	}
	if len(r.SignalTypes) == 0 {
		return ErrNoSignalTypes
	}
	if len(r.SignalNames) == 0 {
		return ErrNoSignalNames
	}
	if r.Action.Side != SideBuy && r.Action.Side != SideSell {
		return ErrInvalidSide
	}
	if r.Action.Size <= 0 {
		return ErrInvalidSize
	}
	if r.Action.OrderType != OrderTypeMarket && r.Action.OrderType != OrderTypeLimit {
		return ErrInvalidOrderType
	}
	return nil
}

func (l *RiskLimits) validate() error {
	if l.MaxTradesPerMinute < 0 || l.MarketCooldownSeconds < 0 || l.SignalDedupWindowSeconds < 0 {
		return ErrNegativeRiskLimit
	}
	if l.MaxPositionSizePerMarket != nil && *l.MaxPositionSizePerMarket < 0 {
		return ErrNegativeRiskLimit
	}
	if l.MaxTotalExposureUSD != nil && *l.MaxTotalExposureUSD < 0 {
		return ErrNegativeRiskLimit
	}
	return nil
}
