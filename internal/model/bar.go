package model

import (
	"fmt"
	"time"
)

// PriceBar is one OHLCV observation for a single trading period.
// Bars are owned by the caller; the engine never retains a series beyond a call.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Validate checks the OHLC invariants of a single bar.
func (b PriceBar) Validate() error {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return &InvalidConfigurationError{Field: "bar", Reason: fmt.Sprintf("%s: prices must be positive", b.Date.Format(DateLayout))}
	}
	if b.Volume < 0 {
		return &InvalidConfigurationError{Field: "bar", Reason: fmt.Sprintf("%s: negative volume", b.Date.Format(DateLayout))}
	}
	if b.High < b.Open || b.High < b.Close {
		return &InvalidConfigurationError{Field: "bar", Reason: fmt.Sprintf("%s: high below open/close", b.Date.Format(DateLayout))}
	}
	if b.Low > b.Open || b.Low > b.Close {
		return &InvalidConfigurationError{Field: "bar", Reason: fmt.Sprintf("%s: low above open/close", b.Date.Format(DateLayout))}
	}
	return nil
}

// DateLayout is the calendar-day layout used in keys, reports and storage.
const DateLayout = "2006-01-02"

// ValidateSeries checks every bar and that dates are strictly increasing.
func ValidateSeries(bars []PriceBar) error {
	for i := range bars {
		if err := bars[i].Validate(); err != nil {
			return err
		}
		if i > 0 && !bars[i].Date.After(bars[i-1].Date) {
			return &InvalidConfigurationError{
				Field:  "bars",
				Reason: fmt.Sprintf("dates must be strictly increasing (index %d: %s after %s)", i, bars[i].Date.Format(DateLayout), bars[i-1].Date.Format(DateLayout)),
			}
		}
	}
	return nil
}

// PriceSource selects which bar field a calculator reads.
type PriceSource string

const (
	SourceOpen  PriceSource = "open"
	SourceHigh  PriceSource = "high"
	SourceLow   PriceSource = "low"
	SourceClose PriceSource = "close"
)

// Valid reports whether s names a known field. The empty source means close.
func (s PriceSource) Valid() bool {
	switch s {
	case "", SourceOpen, SourceHigh, SourceLow, SourceClose:
		return true
	}
	return false
}

// Price returns the field of b selected by src.
func (b PriceBar) Price(src PriceSource) float64 {
	switch src {
	case SourceOpen:
		return b.Open
	case SourceHigh:
		return b.High
	case SourceLow:
		return b.Low
	default:
		return b.Close
	}
}

// Prices extracts the selected field of every bar.
func Prices(bars []PriceBar, src PriceSource) []float64 {
	out := make([]float64, len(bars))
	for i := range bars {
		out[i] = bars[i].Price(src)
	}
	return out
}

// Closes is Prices with the close field.
func Closes(bars []PriceBar) []float64 {
	return Prices(bars, SourceClose)
}
