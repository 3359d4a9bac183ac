package indicator

import (
	"math"

	"trading-analysisv1/internal/model"
)

// SMA calculates Simple Moving Average over a rolling window.
// Uses a preallocated circular buffer so updates do not allocate.
type SMA struct {
	period  int
	buf     []float64 // preallocated circular buffer
	idx     int       // current write position
	count   int       // total values received
	sum     float64
	current float64
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		buf:    make([]float64, period),
	}
}

func (s *SMA) Name() string { return "SMA" }

func (s *SMA) Update(price float64) {
	if s.count >= s.period {
		// Subtract the oldest value being overwritten
		s.sum -= s.buf[s.idx]
	}

	s.buf[s.idx] = price
	s.sum += price
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count >= s.period {
		s.current = s.sum / float64(s.period)
	}
}

func (s *SMA) Value() float64 { return s.current }
func (s *SMA) Ready() bool    { return s.count >= s.period }

// StdDev returns the population standard deviation of the current window.
// It is recomputed from the buffer rather than from running sums so that it
// is exactly zero for a constant window.
func (s *SMA) StdDev() float64 {
	if !s.Ready() {
		return 0
	}
	mean := 0.0
	for _, v := range s.buf {
		mean += v
	}
	mean /= float64(s.period)
	ss := 0.0
	for _, v := range s.buf {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(s.period))
}

// Mean returns the window mean recomputed from the buffer.
func (s *SMA) Mean() float64 {
	if !s.Ready() {
		return 0
	}
	sum := 0.0
	for _, v := range s.buf {
		sum += v
	}
	return sum / float64(s.period)
}

// CalculateSMA returns the SMA of src over bars. The first point is aligned
// with bar period-1, so the output has len(bars)-period+1 points.
func CalculateSMA(bars []model.PriceBar, period int, src model.PriceSource) ([]model.MovingAveragePoint, error) {
	if err := validatePeriod("sma.period", period); err != nil {
		return nil, err
	}
	if err := validateSource(src); err != nil {
		return nil, err
	}
	if len(bars) < period {
		return []model.MovingAveragePoint{}, nil
	}
	values := feed(NewSMA(period), model.Prices(bars, src))
	return movingAveragePoints(bars, values, period), nil
}
