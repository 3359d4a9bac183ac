// Package strategy adapts signal sources to the backtester.
//
// A Strategy looks at a bar series and emits a Signal for its latest bar.
// Walk replays a series bar by bar so each signal only sees the history
// available at that bar.
package strategy

import (
	"errors"
	"fmt"
	"strings"

	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/prediction"
	"trading-analysisv1/internal/signal"
)

// Strategy is the interface that all trading strategies must implement.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Evaluate returns the signal for the last bar of bars.
	Evaluate(bars []model.PriceBar) (model.Signal, error)
}

// Names accepted by New besides the prediction algorithm names.
const (
	NameSignal       = "signal"
	NameSMACrossover = "sma_crossover"
)

// Options supply the collaborators New needs.
type Options struct {
	Scorer    *signal.Scorer // required for the signal strategy
	Horizon   int            // prediction horizon in days
	Threshold float64        // minimum predicted move for prediction strategies
}

// New builds a strategy by name. "signal" wraps the scorer,
// "sma_crossover" is the moving-average cross, and any prediction
// algorithm name (or "prediction" for the ensemble) wraps that model.
func New(name string, opts Options) (Strategy, error) {
	switch name {
	case NameSignal, "":
		if opts.Scorer == nil {
			return nil, model.Invalid("strategy", "signal strategy needs a scorer")
		}
		return &SignalStrategy{Scorer: opts.Scorer}, nil
	case NameSMACrossover:
		return NewSMACrossover(9, 21, true, 14), nil
	}

	algo := strings.TrimPrefix(name, "prediction")
	algo = strings.TrimPrefix(algo, ":")
	m, err := prediction.ByName(algo)
	if err != nil {
		return nil, model.Invalid("strategy", "unknown strategy %q", name)
	}
	return NewPredictionStrategy(m, opts.Horizon, opts.Threshold)
}

// Walk evaluates s at every bar from start on, giving each call only the
// bars up to and including that bar. Earlier entries are holds. A strategy
// that still lacks history at a bar holds there.
func Walk(s Strategy, bars []model.PriceBar, start int) ([]model.Signal, error) {
	out := make([]model.Signal, len(bars))
	for i := range bars {
		out[i] = hold(bars[i])
		if i < start {
			continue
		}
		sig, err := s.Evaluate(bars[:i+1])
		if err != nil {
			var short *model.InsufficientDataError
			var none *model.NoModelsAvailableError
			if errors.As(err, &short) || errors.As(err, &none) {
				continue
			}
			return nil, fmt.Errorf("%s at %s: %w", s.Name(), bars[i].Date.Format(model.DateLayout), err)
		}
		out[i] = sig
	}
	return out, nil
}

func hold(b model.PriceBar) model.Signal {
	return model.Signal{Date: b.Date, Type: model.SignalHold, Strength: model.StrengthWeak}
}

// SignalStrategy trades on the weighted indicator score.
type SignalStrategy struct {
	Scorer *signal.Scorer
}

func (s *SignalStrategy) Name() string { return NameSignal }

func (s *SignalStrategy) Evaluate(bars []model.PriceBar) (model.Signal, error) {
	return s.Scorer.Score(bars)
}
