package prediction

import (
	"math"

	"trading-analysisv1/internal/indicator"
	"trading-analysisv1/internal/mathx"
	"trading-analysisv1/internal/model"
)

const (
	maxTrendStrength = 0.10
	agreementWindow  = 5
)

// MACrossover extrapolates the current price along the short/long moving
// average trend. Confidence grows with how many of the last five periods
// agreed with the current crossover direction.
type MACrossover struct {
	Short int
	Long  int
}

// DefaultMACrossover returns the 10/30 crossover model.
func DefaultMACrossover() MACrossover { return MACrossover{Short: 10, Long: 30} }

func (MACrossover) Name() string { return NameMACrossover }

// MinBars is Long+5.
func (m MACrossover) MinBars() int { return m.Long + agreementWindow }

func (m MACrossover) Predict(bars []model.PriceBar, horizon int) (model.Prediction, error) {
	if m.Short < 1 || m.Short >= m.Long {
		return model.Prediction{}, model.Invalid("ma_crossover", "need 1 <= short < long, got %d/%d", m.Short, m.Long)
	}
	if err := validateHorizon(horizon); err != nil {
		return model.Prediction{}, err
	}
	if err := requireBars(m.Name(), bars, m.MinBars()); err != nil {
		return model.Prediction{}, err
	}

	short := indicator.NewSMA(m.Short)
	long := indicator.NewSMA(m.Long)
	n := len(bars)
	dirs := make([]float64, 0, agreementWindow)
	var gap float64
	for i := range bars {
		short.Update(bars[i].Close)
		long.Update(bars[i].Close)
		if i < n-agreementWindow {
			continue
		}
		s, l := short.Value(), long.Value()
		dirs = append(dirs, mathx.Sign(s-l))
		gap = (s - l) / l
	}

	current := dirs[len(dirs)-1]
	agree := 0
	for _, d := range dirs {
		if d == current {
			agree++
		}
	}

	strength := math.Min(math.Abs(gap), maxTrendStrength)
	price := bars[n-1].Close
	predicted := price * (1 + current*strength)
	confidence := math.Max(0.1, 0.8*float64(agree)/agreementWindow)
	return build(bars, horizon, m.Name(), predicted, predicted*(0.02+strength), confidence), nil
}
