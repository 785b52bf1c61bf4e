package risk

import (
	"sync"
	"time"

	"signal-trade-lab/internal/domain"
)

// rateWindow is the trailing window for the trades-per-minute limit.
// RecordTrade prunes timestamps older than this, bounding memory to one
// minute of trade history.
const rateWindow = time.Minute

// Reason codes for admission rejections.
const (
	ReasonRateLimitExceeded   = "rate_limit_exceeded"
	ReasonCooldownActive      = "cooldown_active"
	ReasonMaxPositionExceeded = "max_position_exceeded"
	ReasonMaxExposureExceeded = "max_exposure_exceeded"
)

// Decision is the admission result. Rejections carry the reason of the
// first violated constraint; Evaluate never returns an error.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision        { return Decision{Allowed: true} }
func deny(r string) Decision { return Decision{Allowed: false, Reason: r} }

// Manager gates proposed trade commands against rate, cooldown,
// position-size, and exposure limits. State is explicitly owned and
// injectable: callers may run multiple independent managers (one per
// backtest) without cross-contamination.
//
// Evaluate and RecordTrade are deliberately split: Evaluate never mutates
// state, so a caller can simulate a decision without committing and retries
// never double-charge quota. Both are safe for concurrent use; a single
// mutex serializes evaluate/record from multiple order-routing paths.
type Manager struct {
	mu                sync.Mutex
	limits            domain.RiskLimits
	tradeTimes        []time.Time
	lastTradeByMarket map[string]time.Time
	now               func() time.Time
}

// NewManager creates an admission controller with the given limits.
func NewManager(limits domain.RiskLimits) *Manager {
	return &Manager{
		limits:            limits,
		lastTradeByMarket: make(map[string]time.Time),
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Evaluate runs the admission checks in fixed order, short-circuiting on the
// first failure: rate limit, cooldown, position-size cap, exposure cap.
// Passing all checks performs no state mutation; the caller records the
// trade separately once it has actually been submitted.
func (m *Manager) Evaluate(cmd *domain.TradeCommand, positions []*domain.Position) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if m.limits.MaxTradesPerMinute > 0 {
		cutoff := now.Add(-rateWindow)
		count := 0
		for _, ts := range m.tradeTimes {
			if ts.After(cutoff) {
				count++
			}
		}
		if count >= m.limits.MaxTradesPerMinute {
			return deny(ReasonRateLimitExceeded)
		}
	}

	if m.limits.MarketCooldownSeconds > 0 {
		cooldown := time.Duration(m.limits.MarketCooldownSeconds) * time.Second
		if last, ok := m.lastTradeByMarket[cmd.MarketID]; ok && now.Sub(last) < cooldown {
			return deny(ReasonCooldownActive)
		}
	}

	if m.limits.MaxPositionSizePerMarket != nil {
		existing := 0.0
		for _, p := range positions {
			if p.MarketID == cmd.MarketID {
				existing += p.Size
			}
		}
		if existing+cmd.Size > *m.limits.MaxPositionSizePerMarket {
			return deny(ReasonMaxPositionExceeded)
		}
	}

	if m.limits.MaxTotalExposureUSD != nil {
		exposure := 0.0
		for _, p := range positions {
			exposure += p.Size * p.MarkPrice()
		}
		notional := cmd.Size
		if cmd.LimitPrice != nil {
			notional = cmd.Size * *cmd.LimitPrice
		}
		if exposure+notional > *m.limits.MaxTotalExposureUSD {
			return deny(ReasonMaxExposureExceeded)
		}
	}

	return allow()
}

// RecordTrade commits a submitted trade: appends its timestamp, updates the
// per-market last-trade time, and prunes timestamps older than the rate
// window.
func (m *Manager) RecordTrade(marketID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.tradeTimes = append(m.tradeTimes, now)
	m.lastTradeByMarket[marketID] = now

	cutoff := now.Add(-rateWindow)
	kept := m.tradeTimes[:0]
	for _, ts := range m.tradeTimes {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	m.tradeTimes = kept
}

// UpdateConfig replaces the limits. Recorded state is preserved so a config
// reload does not reset rate or cooldown history.
func (m *Manager) UpdateConfig(limits domain.RiskLimits) {
	m.mu.Lock()
	m.limits = limits
	m.mu.Unlock()
}

// Reset clears all recorded trade history.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.tradeTimes = nil
	m.lastTradeByMarket = make(map[string]time.Time)
	m.mu.Unlock()
}
