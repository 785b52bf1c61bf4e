package strategy

import (
	"io"
	"log"
	"strconv"

	"signal-trade-lab/internal/domain"
	"signal-trade-lab/internal/idhash"
	"signal-trade-lab/internal/marketid"
)

// Engine matches incoming signals against an ordered rule set and emits
// trade commands. It is pure and stateless across calls apart from the rule
// list and mapping table it was configured with: re-running HandleSignal
// with the same signal always yields the same output, which replay
// determinism and strategy comparison depend on.
type Engine struct {
	name     string
	rules    []domain.StrategyRule
	resolver *marketid.Resolver
	logger   *log.Logger
}

// NewEngine builds an engine from a validated strategy config. The config's
// market mappings are loaded into the engine's own resolver instance, so
// engines never share resolver state.
func NewEngine(cfg *domain.StrategyConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	resolver := marketid.NewResolver()
	resolver.LoadMappings(cfg.MarketMappings)

	return &Engine{
		name:     cfg.Name,
		rules:    cfg.Rules,
		resolver: resolver,
		logger:   log.New(io.Discard, "", 0),
	}, nil
}

// WithLogger sets a logger for informational no-match conditions.
func (e *Engine) WithLogger(logger *log.Logger) *Engine {
	e.logger = logger
	return e
}

// Name returns the configured strategy name.
func (e *Engine) Name() string {
	return e.name
}

// HandleSignal finds the first enabled rule whose signal type and name sets
// both contain the signal's values and constructs trade commands from its
// action template. Returns nil when no rule matches or when single-leg
// market resolution fails; neither is an error.
func (e *Engine) HandleSignal(sig *domain.Signal) []*domain.TradeCommand {
	rule := e.matchRule(sig)
	if rule == nil {
		return nil
	}

	if payload, ok := sig.ArbitragePayload(); ok {
		return e.buildArbitrageLegs(sig, rule, payload)
	}

	return e.buildSingleLeg(sig, rule)
}

// matchRule scans the rule list in declaration order. First enabled match
// wins; at most one rule fires per signal.
func (e *Engine) matchRule(sig *domain.Signal) *domain.StrategyRule {
	for i := range e.rules {
		rule := &e.rules[i]
		if !rule.Enabled {
			continue
		}
		if !contains(rule.SignalTypes, string(sig.SignalType)) {
			continue
		}
		if !contains(rule.SignalNames, sig.SignalName) {
			continue
		}
		return rule
	}
	return nil
}

// buildArbitrageLegs emits exactly two commands for a cross-venue
// opportunity: a buy/open on the buy venue and a sell/open on the sell
// venue. Payload market ids are already venue-native and bypass the
// resolver. For limit templates the payload prices become the leg limit
// prices.
func (e *Engine) buildArbitrageLegs(sig *domain.Signal, rule *domain.StrategyRule, payload *domain.ArbitragePayload) []*domain.TradeCommand {
	var buyLimit, sellLimit *float64
	if rule.Action.OrderType == domain.OrderTypeLimit {
		if buy, err := strconv.ParseFloat(payload.BuyPrice, 64); err == nil {
			buyLimit = &buy
		}
		if sell, err := strconv.ParseFloat(payload.SellPrice, 64); err == nil {
			sellLimit = &sell
		}
	}

	return []*domain.TradeCommand{
		{
			Type:       domain.CommandTypeTrade,
			ID:         idhash.ComputeCommandID(sig.ID, domain.LegBuy),
			MarketID:   payload.BuyMarketID,
			Venue:      payload.BuyVenue,
			Side:       domain.SideBuy,
			Action:     domain.ActionOpen,
			Size:       rule.Action.Size,
			OrderType:  rule.Action.OrderType,
			LimitPrice: buyLimit,
		},
		{
			Type:       domain.CommandTypeTrade,
			ID:         idhash.ComputeCommandID(sig.ID, domain.LegSell),
			MarketID:   payload.SellMarketID,
			Venue:      payload.SellVenue,
			Side:       domain.SideSell,
			Action:     domain.ActionOpen,
			Size:       rule.Action.Size,
			OrderType:  rule.Action.OrderType,
			LimitPrice: sellLimit,
		},
	}
}

// buildSingleLeg emits one command using the rule's action template and the
// signal's resolved market id. An unresolvable market id makes the rule a
// non-match: the engine must not emit an unroutable command.
func (e *Engine) buildSingleLeg(sig *domain.Signal, rule *domain.StrategyRule) []*domain.TradeCommand {
	native, ok := e.resolver.Resolve(sig.MarketID)
	if !ok {
		e.logger.Printf("signal %s: market id %q did not resolve, skipping rule %q", sig.ID, sig.MarketID, rule.Name)
		return nil
	}

	return []*domain.TradeCommand{
		{
			Type:       domain.CommandTypeTrade,
			ID:         idhash.ComputeCommandID(sig.ID, domain.LegSingle),
			MarketID:   native,
			Venue:      sig.Venue,
			Side:       rule.Action.Side,
			Action:     domain.ActionOpen,
			Size:       rule.Action.Size,
			OrderType:  rule.Action.OrderType,
			LimitPrice: rule.Action.LimitPrice,
		},
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
