package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"testing"
	"time"

	"signal-trade-lab/internal/domain"
	"signal-trade-lab/internal/storage/memory"
)

// sliceSource replays pre-built batches and counts Next calls.
type sliceSource struct {
	batches [][]*domain.Signal
	pos     int
	calls   int
}

func (s *sliceSource) Next(_ context.Context) ([]*domain.Signal, error) {
	s.calls++
	if s.pos >= len(s.batches) {
		return nil, io.EOF
	}
	batch := s.batches[s.pos]
	s.pos++
	return batch, nil
}

// failingSource fails on the nth Next call.
type failingSource struct {
	inner  *sliceSource
	failAt int
	err    error
}

func (s *failingSource) Next(ctx context.Context) ([]*domain.Signal, error) {
	if s.inner.calls+1 == s.failAt {
		s.inner.calls++
		return nil, s.err
	}
	return s.inner.Next(ctx)
}

func arbSignal(id string, triggeredAt int64, buyPrice, sellPrice string) *domain.Signal {
	payload, _ := json.Marshal(domain.ArbitragePayload{
		BuyVenue:     "kalshi",
		SellVenue:    "polymarket",
		BuyMarketID:  "KXBTC-25DEC31",
		SellMarketID: "0xabc123",
		BuyPrice:     buyPrice,
		SellPrice:    sellPrice,
	})
	return &domain.Signal{
		ID:          id,
		SignalType:  domain.SignalTypeAlert,
		SignalName:  domain.SignalNameCrossVenueArbitrage,
		MarketID:    "BTCUSDT",
		Venue:       "binance",
		TriggeredAt: triggeredAt,
		Payload:     payload,
	}
}

// spikeSignal builds a payload-free volume_spike signal whose market id
// resolves by the venue:symbol convention.
func spikeSignal(id string, triggeredAt int64) *domain.Signal {
	return &domain.Signal{
		ID:          id,
		SignalType:  domain.SignalTypeAlert,
		SignalName:  "volume_spike",
		MarketID:    "binance:BTC/USDT",
		Venue:       "binance",
		TriggeredAt: triggeredAt,
	}
}

func arbConfig(name string) *domain.StrategyConfig {
	return &domain.StrategyConfig{
		Name:    name,
		Enabled: true,
		Rules: []domain.StrategyRule{
			{
				Name:        "arb",
				Enabled:     true,
				SignalTypes: []string{string(domain.SignalTypeAlert)},
				SignalNames: []string{domain.SignalNameCrossVenueArbitrage},
				Action: domain.RuleAction{
					Side:      domain.SideBuy,
					Size:      10,
					OrderType: domain.OrderTypeMarket,
				},
			},
		},
	}
}

// noMatchConfig matches a signal name that never occurs.
func noMatchConfig(name string) *domain.StrategyConfig {
	cfg := arbConfig(name)
	cfg.Rules[0].SignalNames = []string{"volume_spike"}
	return cfg
}

// arbBatches builds n arbitrage signals split into pages of pageSize.
func arbBatches(n, pageSize int) [][]*domain.Signal {
	var batches [][]*domain.Signal
	var batch []*domain.Signal
	for i := 0; i < n; i++ {
		batch = append(batch, arbSignal(
			fmt.Sprintf("sig%d", i),
			int64(1000+i*1000),
			"0.40", "0.55",
		))
		if len(batch) == pageSize {
			batches = append(batches, batch)
			batch = nil
		}
	}
	if len(batch) > 0 {
		batches = append(batches, batch)
	}
	return batches
}

func TestRunner_Run_AllMatching(t *testing.T) {
	// 10 signals over 2 pages, all matching.
	src := &sliceSource{batches: arbBatches(10, 5)}
	runner := NewRunner()

	report, err := runner.Run(context.Background(), arbConfig("arb"), src, Options{FeeRate: 0.02})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Summary.TotalSignals != 10 {
		t.Errorf("TotalSignals: got %d, want 10", report.Summary.TotalSignals)
	}
	if report.Summary.SignalsMatched != 10 {
		t.Errorf("SignalsMatched: got %d, want 10", report.Summary.SignalsMatched)
	}
	if report.Summary.TradesGenerated != 20 {
		t.Errorf("TradesGenerated: got %d, want 20", report.Summary.TradesGenerated)
	}
	if report.DataQuality.PayloadPricedTrades != 20 {
		t.Errorf("PayloadPricedTrades: got %d, want 20", report.DataQuality.PayloadPricedTrades)
	}
	if report.PnL.TotalRealizedPnl == 0 {
		t.Error("TotalRealizedPnl should be non-zero for priced pairs")
	}

	// 10 × (10×(0.55−0.40) − 0.02×10×(0.40+0.55)) = 10 × 1.31
	want := 13.1
	if diff := report.PnL.TotalRealizedPnl - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("TotalRealizedPnl: got %f, want %f", report.PnL.TotalRealizedPnl, want)
	}
}

func TestRunner_Run_InvalidConfig(t *testing.T) {
	src := &sliceSource{batches: arbBatches(1, 1)}
	runner := NewRunner()

	cfg := arbConfig("bad")
	cfg.Rules = nil

	_, err := runner.Run(context.Background(), cfg, src, Options{})
	if !errors.Is(err, domain.ErrNoRules) {
		t.Errorf("expected ErrNoRules, got %v", err)
	}
	if src.calls != 0 {
		t.Errorf("source must not be touched on invalid config, got %d calls", src.calls)
	}
}

func TestRunner_Run_FetchFailure(t *testing.T) {
	fetchErr := errors.New("upstream gone")
	src := &failingSource{
		inner:  &sliceSource{batches: arbBatches(10, 5)},
		failAt: 2,
		err:    fetchErr,
	}
	runner := NewRunner()

	report, err := runner.Run(context.Background(), arbConfig("arb"), src, Options{})
	if !errors.Is(err, fetchErr) {
		t.Errorf("expected fetch error, got %v", err)
	}
	if report != nil {
		t.Error("partial report must not be returned on fetch failure")
	}
}

func TestRunner_Run_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &sliceSource{batches: arbBatches(10, 5)}
	runner := NewRunner()

	report, err := runner.Run(ctx, arbConfig("arb"), src, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if report != nil {
		t.Error("partial report must not be returned on cancellation")
	}
}

func TestRunner_Run_PacingHasNoReportEffect(t *testing.T) {
	runner := NewRunner()

	plain, err := runner.Run(context.Background(), arbConfig("arb"),
		&sliceSource{batches: arbBatches(6, 2)}, Options{FeeRate: 0.02})
	if err != nil {
		t.Fatalf("Run without pacing: %v", err)
	}

	paced, err := runner.Run(context.Background(), arbConfig("arb"),
		&sliceSource{batches: arbBatches(6, 2)}, Options{FeeRate: 0.02, PacingDelay: 2 * time.Millisecond})
	if err != nil {
		t.Fatalf("Run with pacing: %v", err)
	}

	if !reflect.DeepEqual(plain, paced) {
		t.Errorf("pacing changed the report:\nplain: %+v\npaced: %+v", plain, paced)
	}
}

func TestRunner_Run_PersistsTrace(t *testing.T) {
	store := memory.NewTradeLogStore()
	runner := NewRunner().WithTradeLog(store)

	src := &sliceSource{batches: arbBatches(3, 2)}
	_, err := runner.Run(context.Background(), arbConfig("arb"), src, Options{RunID: "run1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, err := store.GetByRunID(context.Background(), "run1")
	if err != nil {
		t.Fatalf("GetByRunID: %v", err)
	}
	if len(entries) != 6 {
		t.Errorf("expected 6 persisted commands, got %d", len(entries))
	}
	if entries[0].Leg != domain.LegBuy || entries[1].Leg != domain.LegSell {
		t.Errorf("leg order not preserved: %s, %s", entries[0].Leg, entries[1].Leg)
	}
}

func TestRunner_Run_NoPersistWithoutRunID(t *testing.T) {
	store := memory.NewTradeLogStore()
	runner := NewRunner().WithTradeLog(store)

	src := &sliceSource{batches: arbBatches(3, 2)}
	if _, err := runner.Run(context.Background(), arbConfig("arb"), src, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := store.GetByRunID(context.Background(), ""); err == nil {
		t.Error("nothing should be persisted without a run id")
	}
}

func TestRunner_Compare_Invariant(t *testing.T) {
	// 5 identical signals; one strategy matches all, one matches none.
	src := &sliceSource{batches: arbBatches(5, 2)}
	runner := NewRunner()

	results, err := runner.Compare(context.Background(),
		[]*domain.StrategyConfig{arbConfig("all"), noMatchConfig("none")},
		src, Options{FeeRate: 0.02})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Name != "all" || results[1].Name != "none" {
		t.Errorf("results not in input order: %s, %s", results[0].Name, results[1].Name)
	}

	// Every result observes the same TotalSignals.
	for _, res := range results {
		if res.Report.Summary.TotalSignals != 5 {
			t.Errorf("%s: TotalSignals got %d, want 5", res.Name, res.Report.Summary.TotalSignals)
		}
	}

	if results[0].Report.Summary.TradesGenerated != 10 {
		t.Errorf("all: TradesGenerated got %d, want 10", results[0].Report.Summary.TradesGenerated)
	}
	if results[1].Report.Summary.TradesGenerated != 0 {
		t.Errorf("none: TradesGenerated got %d, want 0", results[1].Report.Summary.TradesGenerated)
	}
	if results[1].Report.WinRate.WinRate != 0 {
		t.Errorf("none: WinRate got %f, want 0", results[1].Report.WinRate.WinRate)
	}
}

func TestRunner_Compare_PartialOverlap(t *testing.T) {
	// 3 arbitrage signals plus 2 volume-spike signals. The broad strategy
	// matches every signal; the narrow one matches only the spikes, a
	// nonempty strict subset of the same stream.
	signals := []*domain.Signal{
		arbSignal("sig0", 1000, "0.40", "0.55"),
		arbSignal("sig1", 2000, "0.40", "0.55"),
		arbSignal("sig2", 3000, "0.40", "0.55"),
		spikeSignal("sig3", 4000),
		spikeSignal("sig4", 5000),
	}
	src := &sliceSource{batches: [][]*domain.Signal{signals[:3], signals[3:]}}
	runner := NewRunner()

	broad := arbConfig("broad")
	broad.Rules[0].SignalNames = []string{domain.SignalNameCrossVenueArbitrage, "volume_spike"}
	narrow := arbConfig("narrow")
	narrow.Rules[0].SignalNames = []string{"volume_spike"}

	results, err := runner.Compare(context.Background(),
		[]*domain.StrategyConfig{broad, narrow}, src, Options{FeeRate: 0.02})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	for _, res := range results {
		if res.Report.Summary.TotalSignals != 5 {
			t.Errorf("%s: TotalSignals got %d, want 5", res.Name, res.Report.Summary.TotalSignals)
		}
	}

	// broad: 3 arb signals at two legs each plus 2 single-leg spikes.
	if got := results[0].Report.Summary.SignalsMatched; got != 5 {
		t.Errorf("broad: SignalsMatched got %d, want 5", got)
	}
	if got := results[0].Report.Summary.TradesGenerated; got != 8 {
		t.Errorf("broad: TradesGenerated got %d, want 8", got)
	}

	// narrow: only the two spikes, one leg each.
	if got := results[1].Report.Summary.SignalsMatched; got != 2 {
		t.Errorf("narrow: SignalsMatched got %d, want 2", got)
	}
	if got := results[1].Report.Summary.TradesGenerated; got != 2 {
		t.Errorf("narrow: TradesGenerated got %d, want 2", got)
	}
}

func TestRunner_Compare_FetchesOnce(t *testing.T) {
	src := &sliceSource{batches: arbBatches(10, 5)}
	runner := NewRunner()

	_, err := runner.Compare(context.Background(),
		[]*domain.StrategyConfig{arbConfig("a"), arbConfig("b"), arbConfig("c")},
		src, Options{})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	// 2 data pages + 1 EOF, regardless of strategy count.
	if src.calls != 3 {
		t.Errorf("expected 3 source calls, got %d", src.calls)
	}
}

func TestRunner_Compare_BadConfigFailsBeforeFetch(t *testing.T) {
	src := &sliceSource{batches: arbBatches(5, 5)}
	runner := NewRunner()

	bad := arbConfig("bad")
	bad.Name = ""

	_, err := runner.Compare(context.Background(),
		[]*domain.StrategyConfig{arbConfig("ok"), bad}, src, Options{})
	if !errors.Is(err, domain.ErrMissingStrategyName) {
		t.Errorf("expected ErrMissingStrategyName, got %v", err)
	}
	if src.calls != 0 {
		t.Errorf("source must not be touched on invalid config, got %d calls", src.calls)
	}
}

func TestRunner_Compare_IndependentEngines(t *testing.T) {
	// Each strategy owns its engine; sizing differences must not leak.
	src := &sliceSource{batches: arbBatches(4, 2)}
	runner := NewRunner()

	a := arbConfig("a")
	b := arbConfig("b")
	b.Rules[0].Action.Size = 20

	results, err := runner.Compare(context.Background(),
		[]*domain.StrategyConfig{a, b}, src, Options{FeeRate: 0})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	// size 10 vs 20 over the same spread doubles PnL.
	if results[1].Report.PnL.TotalRealizedPnl != 2*results[0].Report.PnL.TotalRealizedPnl {
		t.Errorf("expected doubled PnL: a=%f b=%f",
			results[0].Report.PnL.TotalRealizedPnl, results[1].Report.PnL.TotalRealizedPnl)
	}
}

func TestRunner_Throughput(t *testing.T) {
	// 10,000 signals at two legs each must stay well under the wall-clock
	// budget when fetching is not network-bound.
	src := &sliceSource{batches: arbBatches(10000, 1000)}
	runner := NewRunner()

	start := time.Now()
	report, err := runner.Run(context.Background(), arbConfig("arb"), src, Options{FeeRate: 0.02})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summary.TradesGenerated != 20000 {
		t.Errorf("TradesGenerated: got %d, want 20000", report.Summary.TradesGenerated)
	}
	if elapsed > 30*time.Second {
		t.Errorf("replay took %s, budget is 30s", elapsed)
	}
}
