package model

import "time"

// Prediction is a single future-price estimate with confidence bounds.
type Prediction struct {
	TargetDate     time.Time `json:"target_date"`
	PredictedPrice float64   `json:"predicted_price"`
	Confidence     float64   `json:"confidence"`
	UpperBound     float64   `json:"upper_bound"`
	LowerBound     float64   `json:"lower_bound"`
	Algorithm      string    `json:"algorithm"`
}
