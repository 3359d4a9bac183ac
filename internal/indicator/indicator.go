// Package indicator provides technical indicator calculations over price bars.
//
// Streaming primitives (SMA, EMA, SMMA, RSI) implement the Indicator
// interface and are fed one price at a time. The Calculate* functions wrap
// them into batch calculators that turn an ordered bar series into a
// date-aligned series of model indicator points. Short input yields an
// empty result, never an error; only invalid configuration is an error.
package indicator

import (
	"trading-analysisv1/internal/mathx"
	"trading-analysisv1/internal/model"
)

// Indicator is the interface for all streaming indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA", "RSI").
	Name() string

	// Update feeds the next price and recalculates.
	Update(price float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}

func validatePeriod(field string, period int) error {
	if period < 1 {
		return model.Invalid(field, "period must be >= 1, got %d", period)
	}
	return nil
}

func validateSource(src model.PriceSource) error {
	if !src.Valid() {
		return model.Invalid("source", "unknown price source %q", src)
	}
	return nil
}

// feed runs prices through ind and returns the values produced once it is
// ready, one per input from the first ready index on.
func feed(ind Indicator, prices []float64) []float64 {
	out := make([]float64, 0, len(prices))
	for _, p := range prices {
		ind.Update(p)
		if ind.Ready() {
			out = append(out, ind.Value())
		}
	}
	return out
}

func movingAveragePoints(bars []model.PriceBar, values []float64, period int) []model.MovingAveragePoint {
	offset := len(bars) - len(values)
	points := make([]model.MovingAveragePoint, len(values))
	for i, v := range values {
		points[i] = model.MovingAveragePoint{
			Date:   bars[offset+i].Date,
			Value:  mathx.Round4(v),
			Period: period,
		}
	}
	return points
}
