package signal

import (
	"log/slog"
	"math"
	"time"

	"trading-analysisv1/internal/indicator"
	"trading-analysisv1/internal/mathx"
	"trading-analysisv1/internal/model"
)

// Classification thresholds on the combined score.
const (
	actionThreshold = 0.3
	strongThreshold = 0.6
)

// Inputs are the indicator readings at one bar. Nil or zero fields score 0.
type Inputs struct {
	Date      time.Time
	Price     float64
	PrevPrice float64
	RSI       *model.RSIPoint
	MACD      []model.MACDPoint // recent points, latest last
	Bollinger *model.BollingerPoint
	SMA20     float64
	SMA50     float64
	Levels    []model.Level
	Volumes   []float64 // recent volumes, latest last
}

// Scorer combines indicator readings into a Signal. It holds only
// validated configuration and is safe for concurrent use.
type Scorer struct {
	cfg    Config
	logger *slog.Logger
}

// NewScorer validates cfg. A nil logger falls back to slog.Default().
func NewScorer(cfg Config, logger *slog.Logger) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{cfg: cfg, logger: logger}, nil
}

func (s *Scorer) Config() Config { return s.cfg }

// Score computes the indicators over bars and scores the latest bar.
func (s *Scorer) Score(bars []model.PriceBar) (model.Signal, error) {
	if len(bars) < MinBars {
		return model.Signal{}, &model.InsufficientDataError{Component: "signal", Required: MinBars, Got: len(bars)}
	}
	in, err := s.Inputs(bars)
	if err != nil {
		return model.Signal{}, err
	}
	return s.Evaluate(in), nil
}

// Inputs gathers the readings Evaluate needs at the latest bar.
func (s *Scorer) Inputs(bars []model.PriceBar) (Inputs, error) {
	n := len(bars)
	in := Inputs{Date: bars[n-1].Date, Price: bars[n-1].Close}
	if n > 1 {
		in.PrevPrice = bars[n-2].Close
	}

	rsi, err := indicator.CalculateRSI(bars, s.cfg.RSI)
	if err != nil {
		return in, err
	}
	if len(rsi) > 0 {
		in.RSI = &rsi[len(rsi)-1]
	}

	macd, err := indicator.CalculateMACD(bars, s.cfg.MACD)
	if err != nil {
		return in, err
	}
	in.MACD = macd[max(0, len(macd)-macdMagnitudeWindow):]

	bb, err := indicator.CalculateBollinger(bars, s.cfg.Bollinger)
	if err != nil {
		return in, err
	}
	if len(bb) > 0 {
		in.Bollinger = &bb[len(bb)-1]
	}

	in.SMA20 = lastMA(bars, 20)
	in.SMA50 = lastMA(bars, 50)

	if in.Levels, err = indicator.CalculateLevels(bars, s.cfg.Levels); err != nil {
		return in, err
	}

	tail := bars[max(0, n-volumeWindow-1):]
	in.Volumes = make([]float64, len(tail))
	for i, b := range tail {
		in.Volumes[i] = b.Volume
	}
	return in, nil
}

func lastMA(bars []model.PriceBar, period int) float64 {
	if len(bars) < period {
		return 0
	}
	sma := indicator.NewSMA(period)
	for _, b := range bars[len(bars)-period:] {
		sma.Update(b.Close)
	}
	return mathx.Round4(sma.Value())
}

// Components computes the six sub-scores for in.
func (s *Scorer) Components(in Inputs) model.ComponentScores {
	var c model.ComponentScores
	if in.RSI != nil {
		c.RSI = rsiScore(in.RSI.Value, s.cfg.RSI)
	}
	c.MACD = macdScore(in.MACD)
	c.Bollinger = bollingerScore(in.Bollinger)
	c.MovingAverage = movingAverageScore(in.Price, in.SMA20, in.SMA50)
	c.SupportResistance = levelScore(in.Price, in.Levels)
	direction := 0.0
	if in.PrevPrice > 0 {
		direction = mathx.Sign(in.Price - in.PrevPrice)
	}
	c.Volume = volumeScore(in.Volumes, direction)

	c.RSI = mathx.Round4(c.RSI)
	c.MACD = mathx.Round4(c.MACD)
	c.Bollinger = mathx.Round4(c.Bollinger)
	c.MovingAverage = mathx.Round4(c.MovingAverage)
	c.SupportResistance = mathx.Round4(c.SupportResistance)
	c.Volume = mathx.Round4(c.Volume)
	return c
}

// Evaluate scores a single set of readings.
func (s *Scorer) Evaluate(in Inputs) model.Signal {
	c := s.Components(in)
	sig := Classify(c, s.cfg.Weights)
	sig.Date = in.Date
	sig.Reasoning = s.reasoning(in, c)
	s.logger.Debug("signal scored",
		"date", in.Date.Format(model.DateLayout),
		"type", sig.Type,
		"strength", sig.Strength,
		"score", sig.Score,
	)
	return sig
}

// Classify combines component scores with weights and classifies the
// result. The returned signal carries no date or reasoning.
func Classify(c model.ComponentScores, w Weights) model.Signal {
	score := c.RSI*w.RSI +
		c.MACD*w.MACD +
		c.Bollinger*w.Bollinger +
		c.MovingAverage*w.MovingAverage +
		c.SupportResistance*w.SupportResistance +
		c.Volume*w.Volume
	score = mathx.Round4(mathx.Clamp(score, -1, 1))

	sig := model.Signal{
		Type:       model.SignalHold,
		Strength:   model.StrengthWeak,
		Score:      score,
		Confidence: mathx.Round4(math.Min(1, math.Abs(score))),
		Components: c,
	}
	switch {
	case score > actionThreshold:
		sig.Type = model.SignalBuy
	case score < -actionThreshold:
		sig.Type = model.SignalSell
	}
	switch abs := math.Abs(score); {
	case abs > strongThreshold:
		sig.Strength = model.StrengthStrong
	case abs > actionThreshold:
		sig.Strength = model.StrengthModerate
	}
	return sig
}
