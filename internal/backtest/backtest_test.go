package backtest

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"trading-analysisv1/internal/model"
)

// ────────────────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────────────────

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f)", label, got, want, tol)
	}
}

func barsFromCloses(closes []float64) []model.PriceBar {
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{Date: day0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

func driftBars(n int, rate float64) []model.PriceBar {
	closes := make([]float64, n)
	p := 100.0
	for i := range closes {
		closes[i] = p
		p *= 1 + rate
	}
	return barsFromCloses(closes)
}

func randomBars(n int, seed int64) []model.PriceBar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]model.PriceBar, n)
	p := 100.0
	for i := range bars {
		open := p
		p *= 1 + (rng.Float64()-0.48)*0.05
		hi := math.Max(open, p) * (1 + rng.Float64()*0.01)
		lo := math.Min(open, p) * (1 - rng.Float64()*0.01)
		bars[i] = model.PriceBar{Date: day0.AddDate(0, 0, i), Open: open, High: hi, Low: lo, Close: p, Volume: 1000 + rng.Float64()*4000}
	}
	return bars
}

func flat(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func holds(bars []model.PriceBar) []model.Signal {
	out := make([]model.Signal, len(bars))
	for i, b := range bars {
		out[i] = model.Signal{Date: b.Date, Type: model.SignalHold, Strength: model.StrengthWeak}
	}
	return out
}

func frictionless() Config {
	cfg := DefaultConfig()
	cfg.CommissionPct = 0
	cfg.SlippagePct = 0
	return cfg
}

func mustEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func reasons(trades []model.Trade) []string {
	out := make([]string, len(trades))
	for i, tr := range trades {
		out[i] = string(tr.Action) + ":" + tr.Reason
	}
	return out
}

var (
	buyStrong = model.Signal{Type: model.SignalBuy, Strength: model.StrengthStrong}
	buyWeak   = model.Signal{Type: model.SignalBuy, Strength: model.StrengthWeak}
	sellSig   = model.Signal{Type: model.SignalSell, Strength: model.StrengthModerate}
)

// ────────────────────────────────────────────────────────────
// Configuration
// ────────────────────────────────────────────────────────────

func TestConfig_Validate(t *testing.T) {
	mutate := func(f func(*Config)) Config {
		c := DefaultConfig()
		f(&c)
		return c
	}
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"defaults", DefaultConfig(), true},
		{"zero capital", mutate(func(c *Config) { c.InitialCapital = 0 }), false},
		{"zero position size", mutate(func(c *Config) { c.PositionSizePct = 0 }), false},
		{"position size above one", mutate(func(c *Config) { c.PositionSizePct = 1.5 }), false},
		{"negative stop", mutate(func(c *Config) { c.StopLossPct = -0.1 }), false},
		{"zero max positions", mutate(func(c *Config) { c.MaxPositions = 0 }), false},
		{"commission above one", mutate(func(c *Config) { c.CommissionPct = 2 }), false},
		{"full size", mutate(func(c *Config) { c.PositionSizePct = 1 }), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok != (err == nil) {
				t.Fatalf("err=%v", err)
			}
			if err != nil {
				var cfgErr *model.InvalidConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Errorf("wrong error type %T", err)
				}
			}
		})
	}
}

func TestNewEngine_UnknownStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = "astrology"
	_, err := NewEngine(cfg, Options{})
	var cfgErr *model.InvalidConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	a, b := DefaultConfig(), DefaultConfig()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equal configs fingerprint differently")
	}
	b.StopLossPct = 0.06
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("different configs share a fingerprint")
	}
}

// ────────────────────────────────────────────────────────────
// State machine
// ────────────────────────────────────────────────────────────

func TestSimulate_StopLoss(t *testing.T) {
	closes := flat(60, 100)
	closes[52] = 94
	bars := barsFromCloses(closes)
	sigs := holds(bars)
	sigs[49] = buyStrong

	res, err := mustEngine(t, frictionless()).Simulate(bars, sigs)
	if err != nil {
		t.Fatal(err)
	}
	if got := reasons(res.Trades); !reflect.DeepEqual(got, []string{"buy:signal", "sell:stop_loss"}) {
		t.Fatalf("trades %v", got)
	}
	// 10% of 100000 at 100 is 100 shares; stopped out at 94.
	if res.Trades[0].Quantity != 100 {
		t.Errorf("qty %.0f", res.Trades[0].Quantity)
	}
	assertClose(t, "pnl", res.Trades[1].RealizedPnL, -600, 1e-9)
	assertClose(t, "final", res.FinalCapital, 99400, 1e-9)
	assertClose(t, "drawdown", res.MaxDrawdown, 0.006, 1e-12)
	if res.TradeCount != 1 || res.WinRate != 0 {
		t.Errorf("trades=%d winRate=%.2f", res.TradeCount, res.WinRate)
	}
	if len(res.EquityCurve) != 11 {
		t.Errorf("equity points %d, want 11", len(res.EquityCurve))
	}
}

func TestSimulate_ExitPaths(t *testing.T) {
	closes := flat(60, 100)
	closes[53] = 111
	bars := barsFromCloses(closes)
	sigs := holds(bars)
	sigs[49] = buyStrong
	sigs[50] = buyStrong
	sigs[54] = buyStrong
	sigs[56] = sellSig
	sigs[57] = buyStrong

	res, err := mustEngine(t, frictionless()).Simulate(bars, sigs)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"buy:signal", "buy:signal",
		"sell:take_profit", "sell:take_profit",
		"buy:signal", "sell:sell_signal",
		"buy:signal", "sell:end_of_data",
	}
	if got := reasons(res.Trades); !reflect.DeepEqual(got, want) {
		t.Fatalf("trades %v", got)
	}
	// Second entry sized from the remaining 90000.
	if res.Trades[1].Quantity != 90 {
		t.Errorf("second qty %.0f", res.Trades[1].Quantity)
	}
	assertClose(t, "tp pnl", res.Trades[2].RealizedPnL, 1100, 1e-9)
	if res.TradeCount != 4 {
		t.Errorf("round trips %d", res.TradeCount)
	}
	assertClose(t, "win rate", res.WinRate, 0.5, 1e-12)
}

func TestSimulate_MaxPositionsAndWeakSignals(t *testing.T) {
	bars := barsFromCloses(flat(60, 100))
	sigs := holds(bars)
	sigs[49] = buyStrong
	sigs[50] = buyStrong
	sigs[51] = buyWeak

	cfg := frictionless()
	cfg.MaxPositions = 1
	res, _ := mustEngine(t, cfg).Simulate(bars, sigs)
	if got := reasons(res.Trades); !reflect.DeepEqual(got, []string{"buy:signal", "sell:end_of_data"}) {
		t.Fatalf("max positions: %v", got)
	}

	sigs = holds(bars)
	sigs[49] = buyWeak
	res, _ = mustEngine(t, frictionless()).Simulate(bars, sigs)
	if len(res.Trades) != 0 {
		t.Errorf("weak buy traded: %v", reasons(res.Trades))
	}
}

func TestSimulate_SizingSkip(t *testing.T) {
	bars := barsFromCloses(flat(60, 100))
	sigs := holds(bars)
	for i := 49; i < 59; i++ {
		sigs[i] = buyStrong
	}
	cfg := frictionless()
	cfg.InitialCapital = 500 // 10% buys half a share
	res, err := mustEngine(t, cfg).Simulate(bars, sigs)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trades) != 0 || res.FinalCapital != 500 {
		t.Errorf("trades=%d final=%.2f", len(res.Trades), res.FinalCapital)
	}
	if res.SharpeRatio != 0 || res.MaxDrawdown != 0 {
		t.Errorf("sharpe=%.4f dd=%.4f", res.SharpeRatio, res.MaxDrawdown)
	}
}

func TestSimulate_FrictionsReduceProceeds(t *testing.T) {
	bars := barsFromCloses(flat(60, 100))
	sigs := holds(bars)
	sigs[49] = buyStrong

	res, _ := mustEngine(t, DefaultConfig()).Simulate(bars, sigs)
	if len(res.Trades) != 2 {
		t.Fatalf("trades %v", reasons(res.Trades))
	}
	if res.Trades[0].Price <= 100 || res.Trades[1].Price >= 100 {
		t.Errorf("fills buy=%.4f sell=%.4f", res.Trades[0].Price, res.Trades[1].Price)
	}
	if res.FinalCapital >= res.InitialCapital {
		t.Errorf("flat round trip with costs should lose: %.2f", res.FinalCapital)
	}
}

func TestSimulate_SignalLengthMismatch(t *testing.T) {
	bars := barsFromCloses(flat(60, 100))
	_, err := mustEngine(t, DefaultConfig()).Simulate(bars, holds(bars)[:10])
	var cfgErr *model.InvalidConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %v", err)
	}
}

// ────────────────────────────────────────────────────────────
// Full runs
// ────────────────────────────────────────────────────────────

func TestRun_InsufficientData(t *testing.T) {
	_, err := mustEngine(t, DefaultConfig()).Run(driftBars(WarmupBars-1, 0.001))
	var short *model.InsufficientDataError
	if !errors.As(err, &short) || short.Required != WarmupBars {
		t.Fatalf("got %v", err)
	}
}

func TestRun_RejectsUnorderedBars(t *testing.T) {
	bars := driftBars(80, 0.001)
	bars[10].Date = bars[9].Date
	_, err := mustEngine(t, DefaultConfig()).Run(bars)
	var cfgErr *model.InvalidConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %v", err)
	}
}

func TestRun_SteadyDriftScenario(t *testing.T) {
	bars := driftBars(252, 0.001)
	eng := mustEngine(t, DefaultConfig())

	sigs, err := eng.Signals(bars)
	if err != nil {
		t.Fatal(err)
	}
	buys, sells := 0, 0
	for _, s := range sigs {
		switch s.Type {
		case model.SignalBuy:
			buys++
		case model.SignalSell:
			sells++
		}
	}
	if buys == 0 || sells != 0 {
		t.Fatalf("buys=%d sells=%d", buys, sells)
	}

	res, err := eng.Simulate(bars, sigs)
	if err != nil {
		t.Fatal(err)
	}
	if res.FinalCapital <= res.InitialCapital {
		t.Errorf("final %.2f not above initial %.2f", res.FinalCapital, res.InitialCapital)
	}
	if res.AnnualizedReturn <= 0 || res.SharpeRatio <= 0 {
		t.Errorf("annualized=%.4f sharpe=%.4f", res.AnnualizedReturn, res.SharpeRatio)
	}
}

func TestRun_Invariants(t *testing.T) {
	for seed := int64(1); seed <= 8; seed++ {
		bars := randomBars(200, seed)
		res, err := mustEngine(t, DefaultConfig()).Run(bars)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		assertClose(t, "ledger identity", res.FinalCapital, res.InitialCapital+res.RealizedPnL(), 1e-6)
		if res.MaxDrawdown < 0 || res.MaxDrawdown > 1 {
			t.Errorf("seed %d: drawdown %.4f", seed, res.MaxDrawdown)
		}
		wins, sells := 0, 0
		for _, tr := range res.Trades {
			if tr.Action == model.ActionSell {
				sells++
				if tr.RealizedPnL > 0 {
					wins++
				}
			} else if tr.RealizedPnL != 0 {
				t.Errorf("seed %d: buy with realized P&L", seed)
			}
		}
		if res.TradeCount != sells {
			t.Errorf("seed %d: trade count %d, sells %d", seed, res.TradeCount, sells)
		}
		want := 0.0
		if sells > 0 {
			want = float64(wins) / float64(sells)
		}
		assertClose(t, "win rate", res.WinRate, want, 1e-12)
		for i := 1; i < len(res.Trades); i++ {
			if res.Trades[i].Date.Before(res.Trades[i-1].Date) {
				t.Errorf("seed %d: ledger out of order at %d", seed, i)
			}
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	bars := randomBars(180, 42)
	a, err := mustEngine(t, DefaultConfig()).Run(bars)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := mustEngine(t, DefaultConfig()).Run(bars)
	if !reflect.DeepEqual(a, b) {
		t.Error("identical runs produced different results")
	}
}

func TestRun_PredictionStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = "linear_regression"
	res, err := mustEngine(t, cfg).Run(randomBars(150, 5))
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, "ledger identity", res.FinalCapital, res.InitialCapital+res.RealizedPnL(), 1e-6)
}

// ────────────────────────────────────────────────────────────
// Stats
// ────────────────────────────────────────────────────────────

func TestAnnualize(t *testing.T) {
	assertClose(t, "one year", annualize(0.1, 1), 0.1, 1e-12)
	assertClose(t, "two years", annualize(0.21, 2), 0.1, 1e-9)
	assertClose(t, "sub-day span", annualize(0.05, 0), 0.05, 1e-12)
	assertClose(t, "wipeout", annualize(-1, 1), -1, 1e-12)
}

func TestSharpe(t *testing.T) {
	if sharpe([]float64{0.01, 0.01, 0.01}) != 0 {
		t.Error("constant returns should score 0")
	}
	if sharpe(nil) != 0 {
		t.Error("no returns should score 0")
	}
	// mean 0.01, population std 0.01
	assertClose(t, "sharpe", sharpe([]float64{0, 0.02}), math.Sqrt(252), 1e-9)
}

// ────────────────────────────────────────────────────────────
// Optimizer / comparison / report
// ────────────────────────────────────────────────────────────

func TestOptimize(t *testing.T) {
	bars := randomBars(160, 9)
	grid := Grid{
		PositionSizes: []float64{0.05, 0.2},
		StopLosses:    []float64{0.03, 0.08},
		TakeProfits:   []float64{0.06, 0.15},
	}
	var mu sync.Mutex
	progress := 0
	res, err := Optimize(context.Background(), bars, DefaultConfig(), grid, Options{}, OptimizeOptions{
		Concurrency: 3,
		OnProgress: func(p Progress) {
			mu.Lock()
			progress++
			mu.Unlock()
			if p.Total != 8 {
				t.Errorf("total %d", p.Total)
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trials) != 8 || progress != 8 {
		t.Fatalf("trials=%d progress=%d", len(res.Trials), progress)
	}
	for i, tr := range res.Trials {
		if tr.Index != i || tr.Result == nil {
			t.Fatalf("trial %d out of place", i)
		}
		if tr.Result.SharpeRatio > res.Best.Result.SharpeRatio {
			t.Errorf("trial %d beats the chosen best", i)
		}
		if tr.Result.SharpeRatio == res.Best.Result.SharpeRatio && i < res.Best.Index {
			t.Errorf("tie not resolved to the earliest trial")
		}
	}
	if res.Trials[0].Config.PositionSizePct != 0.05 || res.Trials[7].Config.TakeProfitPct != 0.15 {
		t.Error("grid order changed")
	}

	// Every trial matches a standalone run of its configuration.
	for _, i := range []int{0, 5} {
		solo, err := mustEngine(t, res.Trials[i].Config).Run(bars)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(solo, res.Trials[i].Result) {
			t.Errorf("trial %d differs from a standalone run", i)
		}
	}
}

func TestOptimize_InvalidGrid(t *testing.T) {
	_, err := Optimize(context.Background(), randomBars(80, 1), DefaultConfig(), Grid{StopLosses: []float64{0.05}}, Options{}, OptimizeOptions{})
	var cfgErr *model.InvalidConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %v", err)
	}
	_, err = Optimize(context.Background(), randomBars(80, 1), DefaultConfig(), Grid{
		PositionSizes: []float64{2}, StopLosses: []float64{0.05}, TakeProfits: []float64{0.1},
	}, Options{}, OptimizeOptions{})
	if !errors.As(err, &cfgErr) {
		t.Fatalf("out-of-range grid value: got %v", err)
	}
}

func TestOptimize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Optimize(ctx, randomBars(120, 2), DefaultConfig(), DefaultGrid(), Options{}, OptimizeOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
}

func TestCompare(t *testing.T) {
	bars := randomBars(150, 3)
	tight := DefaultConfig()
	tight.StopLossPct = 0.02
	cross := DefaultConfig()
	cross.Strategy = "sma_crossover"

	rows, err := Compare(context.Background(), bars, []NamedConfig{
		{Name: "default", Config: DefaultConfig()},
		{Name: "tight-stop", Config: tight},
		{Name: "crossover", Config: cross},
	}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0].Name != "default" || rows[2].Name != "crossover" {
		t.Fatalf("rows %+v", rows)
	}

	// Headers are upper-cased by the table style.
	report := strings.ToLower(ComparisonReport(rows))
	for _, want := range []string{"strategy comparison", "default", "tight-stop", "crossover", "sharpe"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestReport(t *testing.T) {
	closes := flat(60, 100)
	closes[53] = 111
	bars := barsFromCloses(closes)
	sigs := holds(bars)
	sigs[49] = buyStrong
	res, err := mustEngine(t, frictionless()).Simulate(bars, sigs)
	if err != nil {
		t.Fatal(err)
	}

	out := Report(res)
	for _, want := range []string{"Backtest Summary", "Final capital", "101100.00", "take_profit", "BUY", "SELL", "100.00%"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	empty := Report(&model.BacktestResult{InitialCapital: 1, FinalCapital: 1})
	if !strings.Contains(empty, "No trades.") {
		t.Errorf("empty report:\n%s", empty)
	}
}
