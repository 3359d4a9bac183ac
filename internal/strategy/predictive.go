package strategy

import (
	"fmt"
	"math"

	"trading-analysisv1/internal/mathx"
	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/prediction"
)

// Defaults for prediction-driven strategies.
const (
	DefaultHorizon   = 5
	DefaultThreshold = 0.02
)

// PredictionStrategy buys when a model predicts a rise larger than
// Threshold over Horizon days and sells on a fall larger than Threshold.
// Moves beyond twice the threshold are strong.
type PredictionStrategy struct {
	Model     prediction.Model
	Horizon   int
	Threshold float64
}

// NewPredictionStrategy applies defaults for zero horizon/threshold.
func NewPredictionStrategy(m prediction.Model, horizon int, threshold float64) (*PredictionStrategy, error) {
	if horizon == 0 {
		horizon = DefaultHorizon
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if horizon < 1 {
		return nil, model.Invalid("strategy.horizon", "must be >= 1, got %d", horizon)
	}
	if threshold < 0 || threshold >= 1 {
		return nil, model.Invalid("strategy.threshold", "must be in (0,1), got %v", threshold)
	}
	return &PredictionStrategy{Model: m, Horizon: horizon, Threshold: threshold}, nil
}

func (s *PredictionStrategy) Name() string { return "prediction:" + s.Model.Name() }

func (s *PredictionStrategy) Evaluate(bars []model.PriceBar) (model.Signal, error) {
	p, err := s.Model.Predict(bars, s.Horizon)
	if err != nil {
		return model.Signal{}, err
	}
	last := bars[len(bars)-1]
	move := (p.PredictedPrice - last.Close) / last.Close

	sig := hold(last)
	sig.Confidence = p.Confidence
	sig.Score = mathx.Round4(mathx.Clamp(move/(2*s.Threshold), -1, 1))
	switch {
	case move > s.Threshold:
		sig.Type = model.SignalBuy
	case move < -s.Threshold:
		sig.Type = model.SignalSell
	}
	if sig.Type != model.SignalHold {
		sig.Strength = model.StrengthModerate
		if math.Abs(move) > 2*s.Threshold {
			sig.Strength = model.StrengthStrong
		}
	}
	sig.Reasoning = []string{fmt.Sprintf("%s predicts %.2f in %d days (%+.2f%%, confidence %.2f)",
		p.Algorithm, p.PredictedPrice, s.Horizon, move*100, p.Confidence)}
	return sig, nil
}
