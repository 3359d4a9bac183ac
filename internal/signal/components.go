package signal

import (
	"math"

	"trading-analysisv1/internal/indicator"
	"trading-analysisv1/internal/mathx"
	"trading-analysisv1/internal/model"
)

const (
	macdMagnitudeWindow = 10
	levelProximity      = 0.05 // distance at which a level stops mattering
	volumeWindow        = 5
	volumeSpike         = 1.5
)

// rsiScore is bearish in the overbought zone, bullish in the oversold zone
// and a mild lean toward the side of 50 in between.
func rsiScore(v float64, cfg indicator.RSIConfig) float64 {
	switch {
	case v >= cfg.Overbought:
		return -(0.6 + 0.4*(v-cfg.Overbought)/(100-cfg.Overbought))
	case v <= cfg.Oversold:
		return 0.6 + 0.4*(cfg.Oversold-v)/cfg.Oversold
	case v >= 50:
		return 0.4 * (v - 50) / (cfg.Overbought - 50)
	default:
		return -0.4 * (50 - v) / (50 - cfg.Oversold)
	}
}

// macdScore adds a ±0.5 trend base to a histogram term scaled by the mean
// absolute histogram over the recent window.
func macdScore(points []model.MACDPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	last := points[len(points)-1]
	base := 0.0
	switch last.Trend {
	case model.TrendBullish:
		base = 0.5
	case model.TrendBearish:
		base = -0.5
	}

	window := points[max(0, len(points)-macdMagnitudeWindow):]
	sum := 0.0
	for _, p := range window {
		sum += math.Abs(p.Histogram)
	}
	mean := sum / float64(len(window))
	magnitude := 0.0
	if mean > 0 {
		magnitude = math.Min(1, math.Abs(last.Histogram)/mean)
	}
	return mathx.Clamp(base+0.5*mathx.Sign(last.Histogram)*magnitude, -1, 1)
}

// bollingerScore maps %B onto [-1,1]: riding the upper band is bullish,
// the lower band bearish.
func bollingerScore(p *model.BollingerPoint) float64 {
	if p == nil {
		return 0
	}
	return mathx.Clamp(2*p.PercentB-1, -1, 1)
}

func movingAverageScore(price, sma20, sma50 float64) float64 {
	if sma20 <= 0 {
		return 0
	}
	score := 0.0
	if sma50 > 0 {
		score += 0.5 * mathx.Sign(sma20-sma50)
	}
	score += 0.5 * mathx.Sign(price-sma20)
	return score
}

// levelContribution is +strength·proximity for support and the negative for
// resistance; proximity decays linearly to zero at 5% distance.
func levelContribution(price float64, l model.Level) float64 {
	if price <= 0 {
		return 0
	}
	dist := math.Abs(price-l.Price) / price
	proximity := math.Max(0, 1-dist/levelProximity)
	c := l.Strength * proximity
	if l.Type == model.LevelResistance {
		return -c
	}
	return c
}

func levelScore(price float64, levels []model.Level) float64 {
	sum := 0.0
	for _, l := range levels {
		sum += levelContribution(price, l)
	}
	return mathx.Clamp(sum, -1, 1)
}

// volumeRatio is the latest volume over the mean of the five before it.
// It reports false when there is not enough history or the mean is zero.
func volumeRatio(volumes []float64) (float64, bool) {
	if len(volumes) < volumeWindow+1 {
		return 0, false
	}
	n := len(volumes)
	avg := mathx.Mean(volumes[n-1-volumeWindow : n-1])
	if avg <= 0 {
		return 0, false
	}
	return volumes[n-1] / avg, true
}

func volumeScore(volumes []float64, direction float64) float64 {
	ratio, ok := volumeRatio(volumes)
	if !ok || ratio <= volumeSpike {
		return 0
	}
	return direction * math.Min(1, ratio/3)
}
