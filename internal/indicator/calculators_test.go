package indicator

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/markcheno/go-talib"

	"trading-analysisv1/internal/model"
)

// ────────────────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────────────────

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func barsFromCloses(closes []float64) []model.PriceBar {
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{
			Date:   day0.AddDate(0, 0, i),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func randomWalk(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	p := 100.0
	for i := range out {
		p *= 1 + (rng.Float64()-0.5)*0.04
		out[i] = p
	}
	return out
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// ────────────────────────────────────────────────────────────
// SMA / EMA
// ────────────────────────────────────────────────────────────

func TestCalculateSMA_OutputLength(t *testing.T) {
	for _, n := range []int{0, 1, 5, 19, 20, 21, 100} {
		for _, p := range []int{1, 5, 20} {
			pts, err := CalculateSMA(barsFromCloses(linear(n, 100, 1)), p, model.SourceClose)
			if err != nil {
				t.Fatalf("n=%d p=%d: %v", n, p, err)
			}
			want := n - p + 1
			if n < p {
				want = 0
			}
			if len(pts) != want {
				t.Errorf("n=%d p=%d: len=%d, want %d", n, p, len(pts), want)
			}
		}
	}
}

func TestCalculateSMA_AlignmentAndSource(t *testing.T) {
	bars := barsFromCloses([]float64{100, 102, 104, 103, 105})
	pts, err := CalculateSMA(bars, 3, model.SourceHigh)
	if err != nil {
		t.Fatal(err)
	}
	if !pts[0].Date.Equal(bars[2].Date) {
		t.Errorf("first point dated %v, want %v", pts[0].Date, bars[2].Date)
	}
	assertClose(t, "SMA(3) of highs", pts[0].Value, 102.5, 1e-9)
	if pts[0].Period != 3 {
		t.Errorf("period = %d, want 3", pts[0].Period)
	}
}

func TestCalculate_InvalidConfiguration(t *testing.T) {
	bars := barsFromCloses(linear(30, 100, 1))
	var cfgErr *model.InvalidConfigurationError

	if _, err := CalculateSMA(bars, 0, model.SourceClose); !errors.As(err, &cfgErr) {
		t.Errorf("SMA period 0: got %v, want InvalidConfigurationError", err)
	}
	if _, err := CalculateEMA(bars, 5, model.PriceSource("vwap")); !errors.As(err, &cfgErr) {
		t.Errorf("EMA bad source: got %v, want InvalidConfigurationError", err)
	}
	if _, err := CalculateRSI(bars, RSIConfig{Period: 14, Overbought: 30, Oversold: 70}); !errors.As(err, &cfgErr) {
		t.Errorf("RSI inverted thresholds: got %v, want InvalidConfigurationError", err)
	}
	if _, err := CalculateMACD(bars, MACDConfig{Fast: 26, Slow: 12, Signal: 9}); !errors.As(err, &cfgErr) {
		t.Errorf("MACD fast>slow: got %v, want InvalidConfigurationError", err)
	}
	if _, err := CalculateBollinger(bars, BollingerConfig{Period: 20, StdDevMultiplier: 0}); !errors.As(err, &cfgErr) {
		t.Errorf("Bollinger zero multiplier: got %v, want InvalidConfigurationError", err)
	}
	if _, err := CalculateLevels(bars, LevelConfig{Lookback: 2, Tolerance: 0.02, MaxLevels: 5, RecencyDays: 30}); !errors.As(err, &cfgErr) {
		t.Errorf("Levels lookback 2: got %v, want InvalidConfigurationError", err)
	}
}

func TestCalculate_DoesNotMutateInput(t *testing.T) {
	bars := barsFromCloses(randomWalk(80, 7))
	orig := make([]model.PriceBar, len(bars))
	copy(orig, bars)

	CalculateSMA(bars, 10, model.SourceClose)
	CalculateEMA(bars, 10, model.SourceClose)
	CalculateRSI(bars, DefaultRSIConfig())
	CalculateMACD(bars, DefaultMACDConfig())
	CalculateBollinger(bars, DefaultBollingerConfig())
	CalculateLevels(bars, DefaultLevelConfig())

	for i := range bars {
		if bars[i] != orig[i] {
			t.Fatalf("bar %d mutated: %+v → %+v", i, orig[i], bars[i])
		}
	}
}

// ────────────────────────────────────────────────────────────
// Independent oracle (TA-Lib port)
// ────────────────────────────────────────────────────────────

func TestCalculate_MatchesTalib(t *testing.T) {
	closes := randomWalk(200, 42)
	bars := barsFromCloses(closes)

	sma, _ := CalculateSMA(bars, 20, model.SourceClose)
	wantSMA := talib.Sma(closes, 20)
	for i, p := range sma {
		assertClose(t, "SMA vs talib", p.Value, wantSMA[19+i], 1e-3)
	}

	ema, _ := CalculateEMA(bars, 12, model.SourceClose)
	wantEMA := talib.Ema(closes, 12)
	for i, p := range ema {
		assertClose(t, "EMA vs talib", p.Value, wantEMA[11+i], 1e-3)
	}

	rsi, _ := CalculateRSI(bars, DefaultRSIConfig())
	wantRSI := talib.Rsi(closes, 14)
	for i, p := range rsi {
		assertClose(t, "RSI vs talib", p.Value, wantRSI[14+i], 1e-3)
	}
}

// ────────────────────────────────────────────────────────────
// RSI
// ────────────────────────────────────────────────────────────

func TestCalculateRSI_Bounds(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		pts, err := CalculateRSI(barsFromCloses(randomWalk(150, seed)), DefaultRSIConfig())
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range pts {
			if p.Value < 0 || p.Value > 100 {
				t.Fatalf("seed %d: RSI %v out of [0,100]", seed, p.Value)
			}
		}
	}
}

func TestCalculateRSI_Monotonic(t *testing.T) {
	up, _ := CalculateRSI(barsFromCloses(linear(40, 100, 0.7)), DefaultRSIConfig())
	for _, p := range up {
		if p.Value != 100 {
			t.Fatalf("increasing series: RSI %v, want 100", p.Value)
		}
		if p.Signal != model.ZoneOverbought || p.Strength != model.StrengthStrong {
			t.Errorf("increasing series: got %s/%s", p.Signal, p.Strength)
		}
	}

	down, _ := CalculateRSI(barsFromCloses(linear(40, 200, -0.7)), DefaultRSIConfig())
	for _, p := range down {
		if p.Value != 0 {
			t.Fatalf("decreasing series: RSI %v, want 0", p.Value)
		}
		if p.Signal != model.ZoneOversold {
			t.Errorf("decreasing series: zone %s", p.Signal)
		}
	}
}

func TestCalculateRSI_BoundaryLength(t *testing.T) {
	// 14 strictly decreasing closes: RSI(14) needs 15.
	pts, err := CalculateRSI(barsFromCloses(linear(14, 200, -1)), DefaultRSIConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 0 {
		t.Errorf("14 bars: got %d points, want 0", len(pts))
	}

	pts, _ = CalculateRSI(barsFromCloses(linear(15, 200, -1)), DefaultRSIConfig())
	if len(pts) != 1 {
		t.Errorf("15 bars: got %d points, want 1", len(pts))
	}
}

func TestClassifyRSI(t *testing.T) {
	cfg := DefaultRSIConfig()
	tests := []struct {
		value    float64
		zone     model.RSIZone
		strength model.Strength
	}{
		{80, model.ZoneOverbought, model.StrengthStrong},
		{70, model.ZoneOverbought, model.StrengthStrong},
		{65, model.ZoneNeutral, model.StrengthModerate},
		{55, model.ZoneNeutral, model.StrengthWeak},
		{50, model.ZoneNeutral, model.StrengthWeak},
		{38, model.ZoneNeutral, model.StrengthModerate},
		{30, model.ZoneOversold, model.StrengthStrong},
		{5, model.ZoneOversold, model.StrengthStrong},
	}
	for _, tt := range tests {
		zone, strength := ClassifyRSI(tt.value, cfg)
		if zone != tt.zone || strength != tt.strength {
			t.Errorf("ClassifyRSI(%v) = %s/%s, want %s/%s", tt.value, zone, strength, tt.zone, tt.strength)
		}
	}
}

// ────────────────────────────────────────────────────────────
// MACD
// ────────────────────────────────────────────────────────────

func TestCalculateMACD_HistogramIdentity(t *testing.T) {
	bars := barsFromCloses(randomWalk(120, 3))
	pts, err := CalculateMACD(bars, DefaultMACDConfig())
	if err != nil {
		t.Fatal(err)
	}
	if want := 120 - 34 + 1; len(pts) != want {
		t.Fatalf("len = %d, want %d", len(pts), want)
	}
	if !pts[0].Date.Equal(bars[33].Date) {
		t.Errorf("first MACD point dated %v, want %v", pts[0].Date, bars[33].Date)
	}
	for _, p := range pts {
		assertClose(t, "histogram", p.Histogram, p.MACD-p.Signal, 1e-9)
	}
}

func TestCalculateMACD_Trend(t *testing.T) {
	up, _ := CalculateMACD(barsFromCloses(linear(60, 100, 1)), DefaultMACDConfig())
	if len(up) == 0 {
		t.Fatal("no MACD points")
	}
	if last := up[len(up)-1]; last.MACD <= 0 {
		t.Errorf("uptrend MACD = %v, want > 0", last.MACD)
	}

	// Rally then sharp decline: MACD falls below its signal line.
	closes := append(linear(50, 100, 1), linear(10, 145, -3)...)
	pts, _ := CalculateMACD(barsFromCloses(closes), DefaultMACDConfig())
	last := pts[len(pts)-1]
	if last.Trend != model.TrendBearish {
		t.Errorf("after sell-off trend = %s (macd=%v signal=%v hist=%v)", last.Trend, last.MACD, last.Signal, last.Histogram)
	}
}

func TestCalculateMACD_ShortInput(t *testing.T) {
	pts, err := CalculateMACD(barsFromCloses(linear(33, 100, 1)), DefaultMACDConfig())
	if err != nil || len(pts) != 0 {
		t.Errorf("33 bars: got %d points, err=%v; want empty", len(pts), err)
	}
}

// ────────────────────────────────────────────────────────────
// Bollinger
// ────────────────────────────────────────────────────────────

func TestCalculateBollinger_Ordering(t *testing.T) {
	for seed := int64(10); seed < 15; seed++ {
		pts, err := CalculateBollinger(barsFromCloses(randomWalk(100, seed)), DefaultBollingerConfig())
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range pts {
			if !(p.Upper >= p.Middle && p.Middle >= p.Lower) {
				t.Fatalf("band ordering violated: %+v", p)
			}
		}
	}
}

func TestCalculateBollinger_FlatSeries(t *testing.T) {
	pts, _ := CalculateBollinger(barsFromCloses(linear(25, 100, 0)), DefaultBollingerConfig())
	if len(pts) != 6 {
		t.Fatalf("len = %d, want 6", len(pts))
	}
	for _, p := range pts {
		if p.Upper != 100 || p.Middle != 100 || p.Lower != 100 {
			t.Errorf("flat band expected at 100, got %+v", p)
		}
		if p.Bandwidth != 0 || p.PercentB != 0.5 {
			t.Errorf("flat band bandwidth/%%B = %v/%v, want 0/0.5", p.Bandwidth, p.PercentB)
		}
	}
}

func TestCalculateBollinger_KnownValues(t *testing.T) {
	// Window 2,4,4,4,5,5,7,9: mean 5, population std 2.
	bars := barsFromCloses([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	pts, err := CalculateBollinger(bars, BollingerConfig{Period: 8, StdDevMultiplier: 2})
	if err != nil {
		t.Fatal(err)
	}
	p := pts[0]
	assertClose(t, "middle", p.Middle, 5, 1e-9)
	assertClose(t, "upper", p.Upper, 9, 1e-9)
	assertClose(t, "lower", p.Lower, 1, 1e-9)
	assertClose(t, "bandwidth", p.Bandwidth, 1.6, 1e-9)
	assertClose(t, "percentB", p.PercentB, 1, 1e-9)
}

// ────────────────────────────────────────────────────────────
// Support / Resistance
// ────────────────────────────────────────────────────────────

func TestCalculateLevels_Zigzag(t *testing.T) {
	// 100, 95, 100, 110 repeated: lows pivot at 95, highs pivot at 110.
	pattern := []float64{100, 95, 100, 110}
	var closes []float64
	for len(closes) < 20 {
		closes = append(closes, pattern...)
	}
	levels, err := CalculateLevels(barsFromCloses(closes), DefaultLevelConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != 2 {
		t.Fatalf("got %d levels, want 2: %+v", len(levels), levels)
	}

	sup, res := levels[0], levels[1]
	if sup.Type != model.LevelSupport || res.Type != model.LevelResistance {
		t.Fatalf("unexpected ordering: %+v", levels)
	}
	assertClose(t, "support price", sup.Price, 94.5, 1e-9)
	assertClose(t, "resistance price", res.Price, 110.5, 1e-9)
	if sup.Touches != 5 || res.Touches != 4 {
		t.Errorf("touches = %d/%d, want 5/4", sup.Touches, res.Touches)
	}
	// support: 0.6*5/5 + 0.4*(1-2/30); resistance: 0.6*4/5 + 0.4*(1-4/30)
	assertClose(t, "support strength", sup.Strength, 0.9733, 1e-9)
	assertClose(t, "resistance strength", res.Strength, 0.8267, 1e-9)
}

func TestCalculateLevels_MergesIntoNearestLevel(t *testing.T) {
	// Support pivots at 100 and 103 form separate levels; the pivot at 101.8
	// is within tolerance of both and belongs to 103, the closer one.
	lows := []float64{110, 100, 110, 103, 110, 101.8, 110}
	bars := make([]model.PriceBar, len(lows))
	for i, l := range lows {
		bars[i] = model.PriceBar{
			Date:   day0.AddDate(0, 0, i),
			Open:   l,
			High:   200 + float64(i),
			Low:    l,
			Close:  l,
			Volume: 1000,
		}
	}
	levels, err := CalculateLevels(bars, DefaultLevelConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != 2 {
		t.Fatalf("got %d levels, want 2: %+v", len(levels), levels)
	}
	byTouches := map[int]model.Level{}
	for _, l := range levels {
		if l.Type != model.LevelSupport {
			t.Fatalf("unexpected level %+v", l)
		}
		byTouches[l.Touches] = l
	}
	merged, ok := byTouches[2]
	if !ok {
		t.Fatalf("no two-touch level: %+v", levels)
	}
	assertClose(t, "merged price", merged.Price, 102.4, 1e-9)
	assertClose(t, "single price", byTouches[1].Price, 100, 1e-9)
}

func TestCalculateLevels_Limits(t *testing.T) {
	levels, err := CalculateLevels(barsFromCloses(randomWalk(300, 99)), DefaultLevelConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) > 5 {
		t.Errorf("got %d levels, want at most 5", len(levels))
	}
	for i, l := range levels {
		if l.Strength < 0.3 || l.Strength > 1 {
			t.Errorf("level %d strength %v outside [0.3,1]", i, l.Strength)
		}
		if i > 0 && l.Strength > levels[i-1].Strength {
			t.Errorf("levels not sorted by strength: %+v", levels)
		}
	}
}

func TestCalculateLevels_ShortAndMonotonic(t *testing.T) {
	short, _ := CalculateLevels(barsFromCloses([]float64{100, 101}), DefaultLevelConfig())
	if len(short) != 0 {
		t.Errorf("2 bars: got %d levels", len(short))
	}
	mono, _ := CalculateLevels(barsFromCloses(linear(60, 100, 1)), DefaultLevelConfig())
	if len(mono) != 0 {
		t.Errorf("monotonic series: got %d levels, want 0", len(mono))
	}
}
