package indicator

import (
	"math"
	"sort"

	"trading-analysisv1/internal/mathx"
	"trading-analysisv1/internal/model"
)

// LevelConfig configures CalculateLevels.
type LevelConfig struct {
	Lookback    int     `json:"lookback" yaml:"lookback"`         // bars scanned, counted back from the latest
	Tolerance   float64 `json:"tolerance" yaml:"tolerance"`       // relative distance for merging touches
	MaxLevels   int     `json:"max_levels" yaml:"max_levels"`     // levels returned
	MinStrength float64 `json:"min_strength" yaml:"min_strength"` // strength floor
	RecencyDays float64 `json:"recency_days" yaml:"recency_days"` // linear recency decay horizon
}

// DefaultLevelConfig scans 50 bars with 2% tolerance and keeps the top 5.
func DefaultLevelConfig() LevelConfig {
	return LevelConfig{
		Lookback:    50,
		Tolerance:   0.02,
		MaxLevels:   5,
		MinStrength: 0.3,
		RecencyDays: 30,
	}
}

func (c LevelConfig) Validate() error {
	if c.Lookback < 3 {
		return model.Invalid("levels.lookback", "must be >= 3, got %d", c.Lookback)
	}
	if c.Tolerance <= 0 || c.Tolerance >= 1 {
		return model.Invalid("levels.tolerance", "must be in (0,1), got %v", c.Tolerance)
	}
	if c.MaxLevels < 1 {
		return model.Invalid("levels.max_levels", "must be >= 1, got %d", c.MaxLevels)
	}
	if c.MinStrength < 0 || c.MinStrength > 1 {
		return model.Invalid("levels.min_strength", "must be in [0,1], got %v", c.MinStrength)
	}
	if c.RecencyDays <= 0 {
		return model.Invalid("levels.recency_days", "must be positive, got %v", c.RecencyDays)
	}
	return nil
}

const (
	touchWeight   = 0.6
	recencyWeight = 0.4
)

type levelAcc struct {
	typ       model.LevelType
	sum       float64
	touches   int
	lastTouch int // bar index
}

func (l *levelAcc) price() float64 { return l.sum / float64(l.touches) }

// CalculateLevels finds support (local minima of lows) and resistance (local
// maxima of highs) over the last Lookback bars using a 3-point neighborhood.
// A pivot within Tolerance of existing levels of the same type counts as
// another touch of the nearest one. Strength blends touch count, normalized by the most-touched
// level, with recency decaying linearly over RecencyDays.
func CalculateLevels(bars []model.PriceBar, cfg LevelConfig) ([]model.Level, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := len(bars) - cfg.Lookback
	if start < 0 {
		start = 0
	}
	window := bars[start:]
	if len(window) < 3 {
		return []model.Level{}, nil
	}

	var accs []*levelAcc
	touch := func(typ model.LevelType, price float64, idx int) {
		var (
			best     *levelAcc
			bestDist = math.Inf(1)
		)
		for _, l := range accs {
			if l.typ != typ {
				continue
			}
			ref := l.price()
			if d := math.Abs(price-ref) / ref; d <= cfg.Tolerance && d < bestDist {
				best, bestDist = l, d
			}
		}
		if best == nil {
			accs = append(accs, &levelAcc{typ: typ, sum: price, touches: 1, lastTouch: idx})
			return
		}
		best.sum += price
		best.touches++
		if idx > best.lastTouch {
			best.lastTouch = idx
		}
	}

	for i := 1; i < len(window)-1; i++ {
		prev, cur, next := window[i-1], window[i], window[i+1]
		if cur.Low < prev.Low && cur.Low < next.Low {
			touch(model.LevelSupport, cur.Low, i)
		}
		if cur.High > prev.High && cur.High > next.High {
			touch(model.LevelResistance, cur.High, i)
		}
	}
	if len(accs) == 0 {
		return []model.Level{}, nil
	}

	maxTouches := 0
	for _, l := range accs {
		if l.touches > maxTouches {
			maxTouches = l.touches
		}
	}

	latest := window[len(window)-1].Date
	levels := make([]model.Level, 0, len(accs))
	for _, l := range accs {
		last := window[l.lastTouch].Date
		days := latest.Sub(last).Hours() / 24
		recency := math.Max(0, 1-days/cfg.RecencyDays)
		strength := touchWeight*float64(l.touches)/float64(maxTouches) + recencyWeight*recency
		if strength < cfg.MinStrength {
			continue
		}
		levels = append(levels, model.Level{
			Price:     mathx.Round2(l.price()),
			Type:      l.typ,
			Strength:  mathx.Round4(strength),
			Touches:   l.touches,
			LastTouch: last,
		})
	}

	sort.SliceStable(levels, func(i, j int) bool {
		if levels[i].Strength != levels[j].Strength {
			return levels[i].Strength > levels[j].Strength
		}
		if levels[i].Touches != levels[j].Touches {
			return levels[i].Touches > levels[j].Touches
		}
		return levels[i].Price < levels[j].Price
	})
	if len(levels) > cfg.MaxLevels {
		levels = levels[:cfg.MaxLevels]
	}
	return levels, nil
}
