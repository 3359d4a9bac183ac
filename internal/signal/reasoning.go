package signal

import (
	"fmt"
	"math"

	"trading-analysisv1/internal/model"
)

// Relevance thresholds above which a sub-score is explained.
const (
	rsiRelevance       = 0.5
	macdRelevance      = 0.5
	bollingerRelevance = 0.4
	maRelevance        = 0.3
	levelRelevance     = 0.2
	volumeRelevance    = 0.2
)

const noReasoning = "No indicator reading is decisive"

func (s *Scorer) reasoning(in Inputs, c model.ComponentScores) []string {
	var out []string

	if math.Abs(c.RSI) > rsiRelevance && in.RSI != nil {
		switch {
		case in.RSI.Signal == model.ZoneOverbought:
			out = append(out, fmt.Sprintf("RSI at %.2f is overbought (above %.0f)", in.RSI.Value, s.cfg.RSI.Overbought))
		case in.RSI.Signal == model.ZoneOversold:
			out = append(out, fmt.Sprintf("RSI at %.2f is oversold (below %.0f)", in.RSI.Value, s.cfg.RSI.Oversold))
		default:
			out = append(out, fmt.Sprintf("RSI at %.2f leans %s", in.RSI.Value, lean(c.RSI)))
		}
	}

	if math.Abs(c.MACD) > macdRelevance && len(in.MACD) > 0 {
		last := in.MACD[len(in.MACD)-1]
		out = append(out, fmt.Sprintf("MACD trend is %s with histogram %.4f", last.Trend, last.Histogram))
	}

	if math.Abs(c.Bollinger) > bollingerRelevance && in.Bollinger != nil {
		band := "upper"
		if c.Bollinger < 0 {
			band = "lower"
		}
		out = append(out, fmt.Sprintf("Price is near the %s Bollinger band (%%B %.2f)", band, in.Bollinger.PercentB))
	}

	if math.Abs(c.MovingAverage) > maRelevance {
		side := "above"
		if in.Price < in.SMA20 {
			side = "below"
		}
		out = append(out, fmt.Sprintf("Price %.2f is %s SMA20 %.2f (SMA50 %.2f)", in.Price, side, in.SMA20, in.SMA50))
	}

	if math.Abs(c.SupportResistance) > levelRelevance {
		if l, ok := dominantLevel(in.Price, in.Levels); ok {
			out = append(out, fmt.Sprintf("Price is near %s at %.2f (strength %.2f, %d touches)", l.Type, l.Price, l.Strength, l.Touches))
		}
	}

	if math.Abs(c.Volume) > volumeRelevance {
		ratio, _ := volumeRatio(in.Volumes)
		move := "rising"
		if c.Volume < 0 {
			move = "falling"
		}
		out = append(out, fmt.Sprintf("Volume is %.1fx its 5-bar average on a %s price", ratio, move))
	}

	if len(out) == 0 {
		out = append(out, noReasoning)
	}
	return out
}

func lean(score float64) string {
	if score > 0 {
		return "bullish"
	}
	return "bearish"
}

// dominantLevel returns the level contributing most to the S/R score.
func dominantLevel(price float64, levels []model.Level) (model.Level, bool) {
	best, found := model.Level{}, false
	bestAbs := 0.0
	for _, l := range levels {
		if a := math.Abs(levelContribution(price, l)); a > bestAbs {
			best, bestAbs, found = l, a, true
		}
	}
	return best, found
}
