// Package prediction produces single future-price estimates with confidence
// bounds from a bar series. Each Model is deterministic; the Ensemble
// combines several of them and skips members that lack history.
package prediction

import (
	"math"

	"trading-analysisv1/internal/mathx"
	"trading-analysisv1/internal/model"
)

// Model is implemented by every prediction algorithm.
type Model interface {
	// Name is the algorithm name recorded on predictions.
	Name() string

	// Predict estimates the close horizonDays calendar days after the last bar.
	// It fails with *model.InsufficientDataError when bars is shorter than
	// the model's minimum and *model.InvalidConfigurationError for bad input.
	Predict(bars []model.PriceBar, horizonDays int) (model.Prediction, error)
}

// Algorithm names accepted by ByName.
const (
	NameLinear      = "linear_regression"
	NamePolynomial  = "polynomial_regression"
	NameMACrossover = "ma_crossover"
	NameRSIMomentum = "rsi_momentum"
	NameEnsemble    = "ensemble"
)

// ByName builds a model with default parameters.
func ByName(name string) (Model, error) {
	switch name {
	case NameLinear:
		return LinearRegression{}, nil
	case NamePolynomial:
		return PolynomialRegression{Degree: 2}, nil
	case NameMACrossover:
		return DefaultMACrossover(), nil
	case NameRSIMomentum:
		return DefaultRSIMomentum(), nil
	case NameEnsemble, "":
		return NewEnsemble(), nil
	}
	return nil, model.Invalid("prediction.algorithm", "unknown algorithm %q", name)
}

func validateHorizon(h int) error {
	if h < 1 {
		return model.Invalid("prediction.horizon", "horizon must be >= 1 day, got %d", h)
	}
	return nil
}

func requireBars(component string, bars []model.PriceBar, min int) error {
	if len(bars) < min {
		return &model.InsufficientDataError{Component: component, Required: min, Got: len(bars)}
	}
	return nil
}

// build rounds and assembles a prediction. Prices are floored at zero.
func build(bars []model.PriceBar, horizon int, name string, price, margin, confidence float64) model.Prediction {
	price = math.Max(price, 0)
	margin = math.Abs(margin)
	return model.Prediction{
		TargetDate:     bars[len(bars)-1].Date.AddDate(0, 0, horizon),
		PredictedPrice: mathx.Round2(price),
		Confidence:     mathx.Round4(mathx.Clamp(confidence, 0, 1)),
		UpperBound:     mathx.Round2(price + margin),
		LowerBound:     mathx.Round2(math.Max(price-margin, 0)),
		Algorithm:      name,
	}
}
