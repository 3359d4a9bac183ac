package model

import "time"

// IndicatorKind tags the IndicatorPoint variants.
type IndicatorKind string

const (
	KindMovingAverage IndicatorKind = "moving_average"
	KindRSI           IndicatorKind = "rsi"
	KindMACD          IndicatorKind = "macd"
	KindBollinger     IndicatorKind = "bollinger"
	KindLevel         IndicatorKind = "support_resistance"
)

// IndicatorPoint is implemented only by the point types in this file.
type IndicatorPoint interface {
	Kind() IndicatorKind
	At() time.Time
	isIndicatorPoint()
}

// Strength buckets shared by RSI points and signals.
type Strength string

const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
)

// RSIZone classifies an RSI value against its thresholds.
type RSIZone string

const (
	ZoneOverbought RSIZone = "overbought"
	ZoneOversold   RSIZone = "oversold"
	ZoneNeutral    RSIZone = "neutral"
)

// Trend is the MACD trend classification.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// LevelType distinguishes support from resistance.
type LevelType string

const (
	LevelSupport    LevelType = "support"
	LevelResistance LevelType = "resistance"
)

// MovingAveragePoint is one SMA or EMA value.
type MovingAveragePoint struct {
	Date   time.Time `json:"date"`
	Value  float64   `json:"value"`
	Period int       `json:"period"`
}

func (MovingAveragePoint) Kind() IndicatorKind { return KindMovingAverage }
func (p MovingAveragePoint) At() time.Time     { return p.Date }
func (MovingAveragePoint) isIndicatorPoint()   {}

// RSIPoint is one RSI value with its classification.
type RSIPoint struct {
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
	Signal   RSIZone   `json:"signal"`
	Strength Strength  `json:"strength"`
}

func (RSIPoint) Kind() IndicatorKind { return KindRSI }
func (p RSIPoint) At() time.Time     { return p.Date }
func (RSIPoint) isIndicatorPoint()   {}

// MACDPoint is one MACD/signal/histogram triple.
type MACDPoint struct {
	Date      time.Time `json:"date"`
	MACD      float64   `json:"macd"`
	Signal    float64   `json:"signal"`
	Histogram float64   `json:"histogram"`
	Trend     Trend     `json:"trend"`
}

func (MACDPoint) Kind() IndicatorKind { return KindMACD }
func (p MACDPoint) At() time.Time     { return p.Date }
func (MACDPoint) isIndicatorPoint()   {}

// BollingerPoint is one set of Bollinger bands.
type BollingerPoint struct {
	Date      time.Time `json:"date"`
	Upper     float64   `json:"upper"`
	Middle    float64   `json:"middle"`
	Lower     float64   `json:"lower"`
	Bandwidth float64   `json:"bandwidth"`
	PercentB  float64   `json:"percent_b"`
}

func (BollingerPoint) Kind() IndicatorKind { return KindBollinger }
func (p BollingerPoint) At() time.Time     { return p.Date }
func (BollingerPoint) isIndicatorPoint()   {}

// Level is a support or resistance zone.
type Level struct {
	Price     float64   `json:"price"`
	Type      LevelType `json:"type"`
	Strength  float64   `json:"strength"`
	Touches   int       `json:"touches"`
	LastTouch time.Time `json:"last_touch"`
}

func (Level) Kind() IndicatorKind { return KindLevel }
func (l Level) At() time.Time     { return l.LastTouch }
func (Level) isIndicatorPoint()   {}
