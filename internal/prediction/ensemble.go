package prediction

import (
	"errors"
	"log/slog"
	"math"

	"trading-analysisv1/internal/mathx"
	"trading-analysisv1/internal/model"
)

// Ensemble runs every member model and combines the ones that had enough
// history. Members failing with *model.InsufficientDataError are skipped;
// any other member error aborts the call.
type Ensemble struct {
	Models []Model
	Logger *slog.Logger
}

// DefaultModels is the member set used when an Ensemble has none configured.
func DefaultModels() []Model {
	return []Model{
		LinearRegression{},
		PolynomialRegression{Degree: 2},
		DefaultMACrossover(),
		DefaultRSIMomentum(),
	}
}

// NewEnsemble returns an ensemble over models, or DefaultModels when empty.
func NewEnsemble(models ...Model) *Ensemble {
	if len(models) == 0 {
		models = DefaultModels()
	}
	return &Ensemble{Models: models}
}

func (e *Ensemble) Name() string { return NameEnsemble }

func (e *Ensemble) Predict(bars []model.PriceBar, horizon int) (model.Prediction, error) {
	p, _, err := e.PredictDetailed(bars, horizon)
	return p, err
}

// PredictDetailed returns the combined prediction and the member predictions
// it was built from. The price is the confidence-weighted mean (equal weights
// when every confidence is zero), confidence is the confidence-weighted mean
// confidence, and the bounds envelope all members.
func (e *Ensemble) PredictDetailed(bars []model.PriceBar, horizon int) (model.Prediction, []model.Prediction, error) {
	if err := validateHorizon(horizon); err != nil {
		return model.Prediction{}, nil, err
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	models := e.Models
	if len(models) == 0 {
		models = DefaultModels()
	}

	var (
		members  []model.Prediction
		failures []error
	)
	for _, m := range models {
		p, err := m.Predict(bars, horizon)
		if err != nil {
			var short *model.InsufficientDataError
			if errors.As(err, &short) {
				logger.Debug("ensemble member skipped", "model", m.Name(), "required", short.Required, "got", short.Got)
				failures = append(failures, err)
				continue
			}
			return model.Prediction{}, nil, err
		}
		members = append(members, p)
	}
	if len(members) == 0 {
		return model.Prediction{}, nil, &model.NoModelsAvailableError{Failures: failures}
	}

	totalConf := 0.0
	for _, p := range members {
		totalConf += p.Confidence
	}

	var price, conf float64
	lower, upper := math.Inf(1), math.Inf(-1)
	for _, p := range members {
		w := 1.0 / float64(len(members))
		if totalConf > 0 {
			w = p.Confidence / totalConf
		}
		price += w * p.PredictedPrice
		conf += w * p.Confidence
		lower = math.Min(lower, p.LowerBound)
		upper = math.Max(upper, p.UpperBound)
	}

	return model.Prediction{
		TargetDate:     members[0].TargetDate,
		PredictedPrice: mathx.Round2(price),
		Confidence:     mathx.Round4(mathx.Clamp(conf, 0, 1)),
		UpperBound:     upper,
		LowerBound:     lower,
		Algorithm:      NameEnsemble,
	}, members, nil
}
