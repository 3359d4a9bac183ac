package backtest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"

	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/strategy"
)

// Config holds the risk and cost parameters of a run.
type Config struct {
	InitialCapital  float64 `json:"initial_capital" yaml:"initial_capital"`
	PositionSizePct float64 `json:"position_size_pct" yaml:"position_size_pct"` // fraction of cash per entry
	StopLossPct     float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct" yaml:"take_profit_pct"`
	MaxPositions    int     `json:"max_positions" yaml:"max_positions"`
	CommissionPct   float64 `json:"commission_pct" yaml:"commission_pct"`
	SlippagePct     float64 `json:"slippage_pct" yaml:"slippage_pct"`

	// Strategy is "signal", "sma_crossover" or a prediction algorithm name.
	Strategy string `json:"strategy" yaml:"strategy"`
}

// DefaultConfig returns the standard run parameters.
func DefaultConfig() Config {
	return Config{
		InitialCapital:  100000,
		PositionSizePct: 0.10,
		StopLossPct:     0.05,
		TakeProfitPct:   0.10,
		MaxPositions:    3,
		CommissionPct:   0.001,
		SlippagePct:     0.0005,
		Strategy:        strategy.NameSignal,
	}
}

func validPct(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return model.Invalid(field, "must be in [0,1], got %v", v)
	}
	return nil
}

func (c Config) Validate() error {
	if !(c.InitialCapital > 0) || math.IsInf(c.InitialCapital, 0) {
		return model.Invalid("initial_capital", "must be positive, got %v", c.InitialCapital)
	}
	if err := validPct("position_size_pct", c.PositionSizePct); err != nil {
		return err
	}
	if c.PositionSizePct == 0 {
		return model.Invalid("position_size_pct", "must be positive")
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"stop_loss_pct", c.StopLossPct},
		{"take_profit_pct", c.TakeProfitPct},
		{"commission_pct", c.CommissionPct},
		{"slippage_pct", c.SlippagePct},
	} {
		if err := validPct(f.name, f.v); err != nil {
			return err
		}
	}
	if c.MaxPositions < 1 {
		return model.Invalid("max_positions", "must be >= 1, got %d", c.MaxPositions)
	}
	return nil
}

// Fingerprint is a stable hash of the configuration for cache keys.
func (c Config) Fingerprint() string {
	b, _ := json.Marshal(c)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
