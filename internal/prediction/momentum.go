package prediction

import (
	"math"

	"trading-analysisv1/internal/indicator"
	"trading-analysisv1/internal/model"
)

// RSIMomentum nudges the current price against RSI extremes: overbought
// pulls it down 2%, oversold pushes it up 2%, and the neutral zone moves
// it 1% toward the side of 50 the RSI sits on.
type RSIMomentum struct {
	RSI indicator.RSIConfig
}

// DefaultRSIMomentum uses RSI(14) with 70/30 thresholds.
func DefaultRSIMomentum() RSIMomentum { return RSIMomentum{RSI: indicator.DefaultRSIConfig()} }

func (RSIMomentum) Name() string { return NameRSIMomentum }

// MinBars is 20, or Period+1 if that is larger.
func (m RSIMomentum) MinBars() int {
	if m.RSI.Period+1 > 20 {
		return m.RSI.Period + 1
	}
	return 20
}

var strengthConfidence = map[model.Strength]float64{
	model.StrengthStrong:   0.7,
	model.StrengthModerate: 0.5,
	model.StrengthWeak:     0.3,
}

func (m RSIMomentum) Predict(bars []model.PriceBar, horizon int) (model.Prediction, error) {
	if err := m.RSI.Validate(); err != nil {
		return model.Prediction{}, err
	}
	if err := validateHorizon(horizon); err != nil {
		return model.Prediction{}, err
	}
	if err := requireBars(m.Name(), bars, m.MinBars()); err != nil {
		return model.Prediction{}, err
	}

	points, err := indicator.CalculateRSI(bars, m.RSI)
	if err != nil {
		return model.Prediction{}, err
	}
	last := points[len(points)-1]

	factor := 1.0
	switch {
	case last.Signal == model.ZoneOverbought:
		factor = 0.98
	case last.Signal == model.ZoneOversold:
		factor = 1.02
	case last.Value > 50:
		factor = 1.01
	case last.Value < 50:
		factor = 0.99
	}

	confidence := strengthConfidence[last.Strength]
	predicted := bars[len(bars)-1].Close * factor
	margin := predicted * math.Max(0.005, 0.05*(1-confidence))
	return build(bars, horizon, m.Name(), predicted, margin, confidence), nil
}
