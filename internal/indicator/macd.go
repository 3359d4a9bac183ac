package indicator

import (
	"trading-analysisv1/internal/mathx"
	"trading-analysisv1/internal/model"
)

// MACDConfig configures CalculateMACD.
type MACDConfig struct {
	Fast   int `json:"fast" yaml:"fast"`
	Slow   int `json:"slow" yaml:"slow"`
	Signal int `json:"signal" yaml:"signal"`
}

// DefaultMACDConfig returns MACD(12, 26, 9).
func DefaultMACDConfig() MACDConfig {
	return MACDConfig{Fast: 12, Slow: 26, Signal: 9}
}

func (c MACDConfig) Validate() error {
	if err := validatePeriod("macd.fast", c.Fast); err != nil {
		return err
	}
	if err := validatePeriod("macd.slow", c.Slow); err != nil {
		return err
	}
	if err := validatePeriod("macd.signal", c.Signal); err != nil {
		return err
	}
	if c.Fast >= c.Slow {
		return model.Invalid("macd", "fast period %d must be shorter than slow period %d", c.Fast, c.Slow)
	}
	return nil
}

// MinBars is the series length that yields the first MACD point.
func (c MACDConfig) MinBars() int { return c.Slow + c.Signal - 1 }

// CalculateMACD returns MACD points from the first bar where the signal line
// exists. Histogram is taken from the rounded lines so that
// Histogram == MACD - Signal holds at the output precision.
func CalculateMACD(bars []model.PriceBar, cfg MACDConfig) ([]model.MACDPoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(bars) < cfg.MinBars() {
		return []model.MACDPoint{}, nil
	}

	closes := model.Closes(bars)
	fast := emaValues(closes, cfg.Fast) // starts at bar Fast-1
	slow := emaValues(closes, cfg.Slow) // starts at bar Slow-1

	// Align both lines from bar Slow-1.
	shift := cfg.Slow - cfg.Fast
	line := make([]float64, len(slow))
	for j := range slow {
		line[j] = fast[j+shift] - slow[j]
	}

	signal := emaValues(line, cfg.Signal) // starts at line index Signal-1
	first := cfg.Slow - 1 + cfg.Signal - 1

	points := make([]model.MACDPoint, len(signal))
	for k := range signal {
		m := mathx.Round4(line[cfg.Signal-1+k])
		s := mathx.Round4(signal[k])
		h := mathx.Round4(m - s)
		points[k] = model.MACDPoint{
			Date:      bars[first+k].Date,
			MACD:      m,
			Signal:    s,
			Histogram: h,
			Trend:     macdTrend(m, s, h),
		}
	}
	return points, nil
}

func macdTrend(m, s, h float64) model.Trend {
	switch {
	case m > s && h > 0:
		return model.TrendBullish
	case m < s && h < 0:
		return model.TrendBearish
	}
	return model.TrendNeutral
}
