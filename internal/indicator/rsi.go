package indicator

import (
	"math"

	"trading-analysisv1/internal/mathx"
	"trading-analysisv1/internal/model"
)

// RSI calculates the Relative Strength Index using Wilder's smoothing method.
// Gains and losses are each smoothed by an SMMA, so Update is O(1).
type RSI struct {
	period    int
	count     int
	prevClose float64
	gain      *SMMA
	loss      *SMMA
	current   float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		period: period,
		gain:   NewSMMA(period),
		loss:   NewSMMA(period),
	}
}

func (r *RSI) Name() string { return "RSI" }

func (r *RSI) Update(price float64) {
	r.count++

	if r.count == 1 {
		// First price: no delta yet
		r.prevClose = price
		return
	}

	delta := price - r.prevClose
	r.prevClose = price

	r.gain.Update(math.Max(delta, 0))
	r.loss.Update(math.Max(-delta, 0))

	if r.gain.Ready() {
		r.current = rsiFromAverages(r.gain.Value(), r.loss.Value())
	}
}

// rsiFromAverages maps smoothed gain/loss to RSI. A zero average loss is
// maximal strength (100), including the flat case.
func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

func (r *RSI) Value() float64 { return r.current }
func (r *RSI) Ready() bool    { return r.count > r.period }

// RSIConfig configures CalculateRSI.
type RSIConfig struct {
	Period     int     `json:"period" yaml:"period"`
	Overbought float64 `json:"overbought" yaml:"overbought"`
	Oversold   float64 `json:"oversold" yaml:"oversold"`
}

// DefaultRSIConfig returns RSI(14) with 70/30 thresholds.
func DefaultRSIConfig() RSIConfig {
	return RSIConfig{Period: 14, Overbought: 70, Oversold: 30}
}

// Validate rejects non-positive periods and inverted or out-of-range thresholds.
func (c RSIConfig) Validate() error {
	if err := validatePeriod("rsi.period", c.Period); err != nil {
		return err
	}
	if c.Oversold <= 0 || c.Overbought >= 100 || c.Oversold >= c.Overbought {
		return model.Invalid("rsi.thresholds", "need 0 < oversold < overbought < 100, got %v/%v", c.Oversold, c.Overbought)
	}
	return nil
}

// ClassifyRSI returns the zone and strength of an RSI value.
// Strength buckets |RSI-50| at 20 (strong) and 10 (moderate).
func ClassifyRSI(value float64, cfg RSIConfig) (model.RSIZone, model.Strength) {
	zone := model.ZoneNeutral
	switch {
	case value >= cfg.Overbought:
		zone = model.ZoneOverbought
	case value <= cfg.Oversold:
		zone = model.ZoneOversold
	}

	dist := math.Abs(value - 50)
	strength := model.StrengthWeak
	switch {
	case dist >= 20:
		strength = model.StrengthStrong
	case dist >= 10:
		strength = model.StrengthModerate
	}
	return zone, strength
}

// CalculateRSI returns one point per bar from index Period on; it needs
// Period+1 bars for the first value.
func CalculateRSI(bars []model.PriceBar, cfg RSIConfig) ([]model.RSIPoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(bars) < cfg.Period+1 {
		return []model.RSIPoint{}, nil
	}

	rsi := NewRSI(cfg.Period)
	points := make([]model.RSIPoint, 0, len(bars)-cfg.Period)
	for i := range bars {
		rsi.Update(bars[i].Close)
		if !rsi.Ready() {
			continue
		}
		v := mathx.Round4(mathx.Clamp(rsi.Value(), 0, 100))
		zone, strength := ClassifyRSI(v, cfg)
		points = append(points, model.RSIPoint{
			Date:     bars[i].Date,
			Value:    v,
			Signal:   zone,
			Strength: strength,
		})
	}
	return points, nil
}
