package indicator

import "trading-analysisv1/internal/model"

// EMA calculates Exponential Moving Average.
// O(1) per update, seeded with the SMA of the first period values.
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
	sum        float64
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return "EMA" }

func (e *EMA) Update(price float64) {
	e.count++

	if e.count <= e.period {
		// Accumulate for initial SMA seed
		e.sum += price
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
		}
		return
	}

	// EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier))
	e.current = (price * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= e.period }

// emaValues returns the unrounded EMA of values, starting at index period-1.
func emaValues(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	return feed(NewEMA(period), values)
}

// CalculateEMA returns the EMA of src over bars, aligned like CalculateSMA.
func CalculateEMA(bars []model.PriceBar, period int, src model.PriceSource) ([]model.MovingAveragePoint, error) {
	if err := validatePeriod("ema.period", period); err != nil {
		return nil, err
	}
	if err := validateSource(src); err != nil {
		return nil, err
	}
	if len(bars) < period {
		return []model.MovingAveragePoint{}, nil
	}
	values := emaValues(model.Prices(bars, src), period)
	return movingAveragePoints(bars, values, period), nil
}
