package model

import "time"

// SignalType is the recommendation carried by a Signal.
type SignalType string

const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
	SignalHold SignalType = "hold"
)

// ComponentScores holds the six sub-scores, each in [-1, 1].
// Negative is bearish, positive bullish.
type ComponentScores struct {
	RSI               float64 `json:"rsi"`
	MACD              float64 `json:"macd"`
	Bollinger         float64 `json:"bollinger"`
	MovingAverage     float64 `json:"moving_average"`
	SupportResistance float64 `json:"support_resistance"`
	Volume            float64 `json:"volume"`
}

// Signal is a buy/sell/hold recommendation derived fresh on every call.
type Signal struct {
	Date       time.Time       `json:"date"`
	Type       SignalType      `json:"type"`
	Strength   Strength        `json:"strength"`
	Confidence float64         `json:"confidence"`
	Score      float64         `json:"score"`
	Reasoning  []string        `json:"reasoning"`
	Components ComponentScores `json:"component_scores"`
}

// Actionable reports whether the signal is a buy or sell that is not weak.
func (s Signal) Actionable() bool {
	return s.Type != SignalHold && s.Strength != StrengthWeak
}
