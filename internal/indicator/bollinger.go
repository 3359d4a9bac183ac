package indicator

import (
	"trading-analysisv1/internal/mathx"
	"trading-analysisv1/internal/model"
)

// BollingerConfig configures CalculateBollinger.
type BollingerConfig struct {
	Period           int               `json:"period" yaml:"period"`
	StdDevMultiplier float64           `json:"std_dev_multiplier" yaml:"std_dev_multiplier"`
	Source           model.PriceSource `json:"source,omitempty" yaml:"source,omitempty"`
}

// DefaultBollingerConfig returns 20-period bands at 2 standard deviations.
func DefaultBollingerConfig() BollingerConfig {
	return BollingerConfig{Period: 20, StdDevMultiplier: 2, Source: model.SourceClose}
}

func (c BollingerConfig) Validate() error {
	if err := validatePeriod("bollinger.period", c.Period); err != nil {
		return err
	}
	if c.StdDevMultiplier <= 0 {
		return model.Invalid("bollinger.std_dev_multiplier", "must be positive, got %v", c.StdDevMultiplier)
	}
	return validateSource(c.Source)
}

// CalculateBollinger returns bands aligned like CalculateSMA. A window with
// zero deviation collapses to a flat band at the mean with PercentB 0.5.
func CalculateBollinger(bars []model.PriceBar, cfg BollingerConfig) ([]model.BollingerPoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(bars) < cfg.Period {
		return []model.BollingerPoint{}, nil
	}

	sma := NewSMA(cfg.Period)
	points := make([]model.BollingerPoint, 0, len(bars)-cfg.Period+1)
	for i := range bars {
		price := bars[i].Price(cfg.Source)
		sma.Update(price)
		if !sma.Ready() {
			continue
		}

		middle := sma.Mean()
		band := sma.StdDev() * cfg.StdDevMultiplier
		upper := middle + band
		lower := middle - band

		percentB := 0.5
		if band > 0 {
			percentB = (price - lower) / (upper - lower)
		}
		bandwidth := 0.0
		if middle != 0 {
			bandwidth = (upper - lower) / middle
		}

		points = append(points, model.BollingerPoint{
			Date:      bars[i].Date,
			Upper:     mathx.Round4(upper),
			Middle:    mathx.Round4(middle),
			Lower:     mathx.Round4(lower),
			Bandwidth: mathx.Round4(bandwidth),
			PercentB:  mathx.Round4(percentB),
		})
	}
	return points, nil
}
