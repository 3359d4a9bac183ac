package strategy

import (
	"log"

	"trading-analysisv1/internal/indicator"
	"trading-analysisv1/internal/model"
)

// SMACrossover implements a simple SMA crossover strategy.
//
// Buy signal: fast SMA crosses above slow SMA (golden cross)
// Sell signal: fast SMA crosses below slow SMA (death cross)
//
// Optional RSI filter prevents buying when overbought (>70)
// or selling when oversold (<30).
type SMACrossover struct {
	name       string
	fastPeriod int
	slowPeriod int
	rsiEnabled bool
	rsi        indicator.RSIConfig
}

// NewSMACrossover creates a new SMA crossover strategy.
// fastPeriod < slowPeriod (e.g., 9 and 21).
func NewSMACrossover(fastPeriod, slowPeriod int, enableRSI bool, rsiPeriod int) *SMACrossover {
	rsi := indicator.DefaultRSIConfig()
	rsi.Period = rsiPeriod
	return &SMACrossover{
		name:       NameSMACrossover,
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
		rsiEnabled: enableRSI,
		rsi:        rsi,
	}
}

func (s *SMACrossover) Name() string {
	return s.name
}

// Evaluate needs slowPeriod+1 bars so the previous bar's averages exist.
func (s *SMACrossover) Evaluate(bars []model.PriceBar) (model.Signal, error) {
	if s.fastPeriod < 1 || s.fastPeriod >= s.slowPeriod {
		return model.Signal{}, model.Invalid("sma_crossover", "need 1 <= fast < slow, got %d/%d", s.fastPeriod, s.slowPeriod)
	}
	if len(bars) < s.slowPeriod+1 {
		return model.Signal{}, &model.InsufficientDataError{Component: s.name, Required: s.slowPeriod + 1, Got: len(bars)}
	}

	fast := indicator.NewSMA(s.fastPeriod)
	slow := indicator.NewSMA(s.slowPeriod)
	var prevFast, prevSlow float64
	n := len(bars)
	for i, b := range bars[n-s.slowPeriod-1:] {
		if i == s.slowPeriod {
			prevFast, prevSlow = fast.Value(), slow.Value()
		}
		fast.Update(b.Close)
		slow.Update(b.Close)
	}
	fastSMA, slowSMA := fast.Value(), slow.Value()

	last := bars[n-1]
	sig := hold(last)

	lastRSI := 50.0
	if s.rsiEnabled {
		pts, err := indicator.CalculateRSI(bars, s.rsi)
		if err != nil {
			return model.Signal{}, err
		}
		if len(pts) > 0 {
			lastRSI = pts[len(pts)-1].Value
		}
	}

	// Golden cross: fast crosses above slow
	if prevFast <= prevSlow && fastSMA > slowSMA {
		if s.rsiEnabled && lastRSI > s.rsi.Overbought {
			log.Printf("[strategy] %s: golden cross filtered by RSI %.1f > %.0f", s.name, lastRSI, s.rsi.Overbought)
			return sig, nil
		}
		return crossSignal(sig, model.SignalBuy, "SMA golden cross (fast > slow)"), nil
	}

	// Death cross: fast crosses below slow
	if prevFast >= prevSlow && fastSMA < slowSMA {
		if s.rsiEnabled && lastRSI < s.rsi.Oversold {
			log.Printf("[strategy] %s: death cross filtered by RSI %.1f < %.0f", s.name, lastRSI, s.rsi.Oversold)
			return sig, nil
		}
		return crossSignal(sig, model.SignalSell, "SMA death cross (fast < slow)"), nil
	}

	return sig, nil
}

func crossSignal(sig model.Signal, typ model.SignalType, reason string) model.Signal {
	sig.Type = typ
	sig.Strength = model.StrengthModerate
	sig.Confidence = 0.5
	sig.Score = 0.5
	if typ == model.SignalSell {
		sig.Score = -0.5
	}
	sig.Reasoning = []string{reason}
	return sig
}
