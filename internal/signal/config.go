// Package signal turns indicator readings into a single buy/sell/hold
// recommendation. Six sub-scores in [-1, 1] are combined by a weighted sum,
// classified, and explained by templated reasoning lines.
package signal

import (
	"math"

	"trading-analysisv1/internal/indicator"
	"trading-analysisv1/internal/model"
)

// MinBars is the shortest series Score accepts.
const MinBars = 50

const weightTolerance = 1e-6

// Weights of the six sub-scores. They must each lie in [0,1] and sum to 1.
type Weights struct {
	RSI               float64 `json:"rsi" yaml:"rsi"`
	MACD              float64 `json:"macd" yaml:"macd"`
	Bollinger         float64 `json:"bollinger" yaml:"bollinger"`
	MovingAverage     float64 `json:"moving_average" yaml:"moving_average"`
	SupportResistance float64 `json:"support_resistance" yaml:"support_resistance"`
	Volume            float64 `json:"volume" yaml:"volume"`
}

// defaultWeightTotal scales the 25/25/20/20/10/10 split to sum to 1.
const defaultWeightTotal = 1.1

// DefaultWeights favours momentum (RSI, MACD) over structure, keeping the
// 25:25:20:20:10:10 ratios normalized to a unit sum.
func DefaultWeights() Weights {
	return Weights{
		RSI:               0.25 / defaultWeightTotal,
		MACD:              0.25 / defaultWeightTotal,
		Bollinger:         0.20 / defaultWeightTotal,
		MovingAverage:     0.20 / defaultWeightTotal,
		SupportResistance: 0.10 / defaultWeightTotal,
		Volume:            0.10 / defaultWeightTotal,
	}
}

func (w Weights) fields() [6]struct {
	name  string
	value float64
} {
	return [6]struct {
		name  string
		value float64
	}{
		{"rsi", w.RSI},
		{"macd", w.MACD},
		{"bollinger", w.Bollinger},
		{"moving_average", w.MovingAverage},
		{"support_resistance", w.SupportResistance},
		{"volume", w.Volume},
	}
}

func (w Weights) Validate() error {
	sum := 0.0
	for _, f := range w.fields() {
		if math.IsNaN(f.value) || f.value < 0 || f.value > 1 {
			return model.Invalid("weights."+f.name, "must be in [0,1], got %v", f.value)
		}
		sum += f.value
	}
	if math.Abs(sum-1) > weightTolerance {
		return model.Invalid("weights", "must sum to 1, got %.6f", sum)
	}
	return nil
}

// Config holds the scorer weights and the indicator settings it reads.
type Config struct {
	Weights   Weights                   `json:"weights" yaml:"weights"`
	RSI       indicator.RSIConfig       `json:"rsi" yaml:"rsi"`
	MACD      indicator.MACDConfig      `json:"macd" yaml:"macd"`
	Bollinger indicator.BollingerConfig `json:"bollinger" yaml:"bollinger"`
	Levels    indicator.LevelConfig     `json:"levels" yaml:"levels"`
}

func DefaultConfig() Config {
	return Config{
		Weights:   DefaultWeights(),
		RSI:       indicator.DefaultRSIConfig(),
		MACD:      indicator.DefaultMACDConfig(),
		Bollinger: indicator.DefaultBollingerConfig(),
		Levels:    indicator.DefaultLevelConfig(),
	}
}

func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if err := c.RSI.Validate(); err != nil {
		return err
	}
	if err := c.MACD.Validate(); err != nil {
		return err
	}
	if err := c.Bollinger.Validate(); err != nil {
		return err
	}
	return c.Levels.Validate()
}
