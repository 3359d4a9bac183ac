package indicator

import (
	"math"
	"testing"
)

// ────────────────────────────────────────────────────────────
// Helper
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// ────────────────────────────────────────────────────────────
// SMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	// Prices: 100, 102, 104, 103, 105
	// SMA after price 3: (100+102+104)/3 = 102.0000
	// SMA after price 4: (102+104+103)/3 = 103.0000
	// SMA after price 5: (104+103+105)/3 = 104.0000

	sma := NewSMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 103.0, 104.0}
	ready := []bool{false, false, true, true, true}

	for i, p := range prices {
		sma.Update(p)
		if sma.Ready() != ready[i] {
			t.Errorf("price %d: Ready()=%v, want %v", i, sma.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "SMA(3)", sma.Value(), expected[i], 0.0001)
		}
	}
}

func TestSMA_Correctness_Period5(t *testing.T) {
	// SMA(5) after price 5: (10+11+12+13+14)/5 = 12.0
	// SMA(5) after price 6: (11+12+13+14+15)/5 = 13.0
	// SMA(5) after price 7: (12+13+14+15+16)/5 = 14.0

	sma := NewSMA(5)
	prices := []float64{10, 11, 12, 13, 14, 15, 16}
	expected := []float64{0, 0, 0, 0, 12.0, 13.0, 14.0}

	for i, p := range prices {
		sma.Update(p)
		if i >= 4 {
			assertClose(t, "SMA(5)", sma.Value(), expected[i], 0.0001)
		}
	}
}

func TestSMA_StdDev(t *testing.T) {
	sma := NewSMA(4)
	for _, p := range []float64{2, 4, 4, 4} {
		sma.Update(p)
	}
	// mean 3.5, deviations -1.5, .5, .5, .5 → var = (2.25+0.75)/4 = 0.75
	assertClose(t, "StdDev", sma.StdDev(), math.Sqrt(0.75), 1e-12)

	flat := NewSMA(3)
	for i := 0; i < 5; i++ {
		flat.Update(101.37)
	}
	if flat.StdDev() != 0 {
		t.Errorf("flat window StdDev = %v, want exactly 0", flat.StdDev())
	}
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_Correctness_Period3(t *testing.T) {
	// EMA(3): multiplier = 2/(3+1) = 0.5
	// Seed after 3 prices: (100+102+104)/3 = 102.0
	// Price 4: 103*0.5 + 102.0*0.5 = 102.5
	// Price 5: 105*0.5 + 102.5*0.5 = 103.75

	ema := NewEMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 102.5, 103.75}
	ready := []bool{false, false, true, true, true}

	for i, p := range prices {
		ema.Update(p)
		if ema.Ready() != ready[i] {
			t.Errorf("price %d: Ready()=%v, want %v", i, ema.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "EMA(3)", ema.Value(), expected[i], 0.0001)
		}
	}
}

func TestEMA_Correctness_Period5(t *testing.T) {
	mult := 2.0 / 6.0
	prices := []float64{44, 44.25, 44.50, 43.75, 44.50, 44.25, 44.00}
	seed := (44.0 + 44.25 + 44.50 + 43.75 + 44.50) / 5.0

	ema := NewEMA(5)
	for _, p := range prices[:5] {
		ema.Update(p)
	}
	assertClose(t, "EMA(5) seed", ema.Value(), seed, 1e-9)

	ema.Update(prices[5])
	expected6 := 44.25*mult + seed*(1-mult)
	assertClose(t, "EMA(5) price 6", ema.Value(), expected6, 1e-9)

	ema.Update(prices[6])
	expected7 := 44.00*mult + expected6*(1-mult)
	assertClose(t, "EMA(5) price 7", ema.Value(), expected7, 1e-9)
}

// ────────────────────────────────────────────────────────────
// SMMA Correctness (Wilder's Smoothing)
// ────────────────────────────────────────────────────────────

func TestSMMA_Correctness_Period3(t *testing.T) {
	// Seed = (100+102+104)/3 = 102.0
	// Price 4: (102.0*2 + 103)/3 = 102.3333
	// Price 5: (102.3333*2 + 105)/3 = 103.2222

	smma := NewSMMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 102.3333, 103.2222}

	for i, p := range prices {
		smma.Update(p)
		if i >= 2 {
			assertClose(t, "SMMA(3)", smma.Value(), expected[i], 0.0001)
		}
	}
}

// ────────────────────────────────────────────────────────────
// RSI Correctness (Wilder's Method)
// ────────────────────────────────────────────────────────────

func TestRSI_Correctness_Period5(t *testing.T) {
	// Prices: 44, 44.34, 44.09, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84
	//
	// First RSI after 6 prices:
	//   avgGain = (0.34+0.72+0.50)/5 = 0.312
	//   avgLoss = (0.25+0.48)/5      = 0.146
	//   RSI = 100 - 100/(1+2.13699)  = 68.112
	// Price 7 (+0.27): avgGain 0.3036, avgLoss 0.1168 → 72.219
	// Price 8 (+0.32): avgGain 0.30688, avgLoss 0.09344 → 76.658
	// Price 9 (+0.42): avgGain 0.329504, avgLoss 0.074752 → 81.509

	prices := []float64{44, 44.34, 44.09, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84}

	rsi := NewRSI(5)
	for i := 0; i <= 5; i++ {
		rsi.Update(prices[i])
	}
	if !rsi.Ready() {
		t.Fatal("RSI(5) should be ready after 6 prices")
	}
	assertClose(t, "RSI(5) price 6", rsi.Value(), 68.112, 0.1)

	rsi.Update(prices[6])
	assertClose(t, "RSI(5) price 7", rsi.Value(), 72.219, 0.1)

	rsi.Update(prices[7])
	assertClose(t, "RSI(5) price 8", rsi.Value(), 76.658, 0.1)

	rsi.Update(prices[8])
	assertClose(t, "RSI(5) price 9", rsi.Value(), 81.509, 0.1)
}

func TestRSI_AllUp_Is100(t *testing.T) {
	rsi := NewRSI(5)
	for i := 0; i < 10; i++ {
		rsi.Update(100 + float64(i))
	}
	assertClose(t, "RSI all up", rsi.Value(), 100.0, 0.001)
}

func TestRSI_AllDown_Is0(t *testing.T) {
	rsi := NewRSI(5)
	for i := 0; i < 10; i++ {
		rsi.Update(200 - float64(i))
	}
	assertClose(t, "RSI all down", rsi.Value(), 0.0, 0.001)
}

func TestRSI_Flat_Is100(t *testing.T) {
	// Both averages are 0; zero average loss is treated as maximal strength.
	rsi := NewRSI(5)
	for i := 0; i < 10; i++ {
		rsi.Update(100)
	}
	assertClose(t, "RSI flat", rsi.Value(), 100.0, 0.001)
}

// ────────────────────────────────────────────────────────────
// Cross-indicator: same data → correct ordering
// ────────────────────────────────────────────────────────────

func TestIndicators_TrendingUp_Ordering(t *testing.T) {
	sma5 := NewSMA(5)
	sma20 := NewSMA(20)
	ema5 := NewEMA(5)

	for i := 0; i < 30; i++ {
		p := 100 + float64(i)
		sma5.Update(p)
		sma20.Update(p)
		ema5.Update(p)
	}

	if sma5.Value() <= sma20.Value() {
		t.Errorf("SMA(5) should be > SMA(20) in uptrend: SMA5=%.2f, SMA20=%.2f", sma5.Value(), sma20.Value())
	}
	if ema5.Value() <= sma20.Value() {
		t.Errorf("EMA(5) should be > SMA(20) in uptrend: EMA5=%.2f, SMA20=%.2f", ema5.Value(), sma20.Value())
	}
}

func TestEMA_MoreResponsiveThanSMA(t *testing.T) {
	sma := NewSMA(10)
	ema := NewEMA(10)

	for i := 0; i < 20; i++ {
		sma.Update(100)
		ema.Update(100)
	}

	// Sudden jump to 120
	sma.Update(120)
	ema.Update(120)

	if ema.Value() <= sma.Value() {
		t.Errorf("EMA should react more than SMA to sudden price jump: EMA=%.4f, SMA=%.4f", ema.Value(), sma.Value())
	}
}
