package backtest

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"trading-analysisv1/internal/model"
)

// Grid lists the values tried for each optimized parameter.
type Grid struct {
	PositionSizes []float64 `json:"position_sizes" yaml:"position_sizes"`
	StopLosses    []float64 `json:"stop_losses" yaml:"stop_losses"`
	TakeProfits   []float64 `json:"take_profits" yaml:"take_profits"`
}

// DefaultGrid spans conservative to aggressive sizing and exits.
func DefaultGrid() Grid {
	return Grid{
		PositionSizes: []float64{0.05, 0.10, 0.15, 0.20},
		StopLosses:    []float64{0.03, 0.05, 0.08},
		TakeProfits:   []float64{0.06, 0.10, 0.15},
	}
}

// Size is the number of configurations in the grid.
func (g Grid) Size() int {
	return len(g.PositionSizes) * len(g.StopLosses) * len(g.TakeProfits)
}

// Configs expands the grid over base in position size, stop-loss,
// take-profit order. Each configuration is validated.
func (g Grid) Configs(base Config) ([]Config, error) {
	if g.Size() == 0 {
		return nil, model.Invalid("grid", "every dimension needs at least one value")
	}
	out := make([]Config, 0, g.Size())
	for _, ps := range g.PositionSizes {
		for _, sl := range g.StopLosses {
			for _, tp := range g.TakeProfits {
				c := base
				c.PositionSizePct, c.StopLossPct, c.TakeProfitPct = ps, sl, tp
				if err := c.Validate(); err != nil {
					return nil, err
				}
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// Trial is one simulated grid point.
type Trial struct {
	Index  int                   `json:"index"`
	Config Config                `json:"config"`
	Result *model.BacktestResult `json:"result"`
}

// Progress is reported after each finished trial.
type Progress struct {
	Done  int   `json:"done"`
	Total int   `json:"total"`
	Trial Trial `json:"trial"`
}

// OptimizeOptions tune a grid search.
type OptimizeOptions struct {
	Concurrency int            // defaults to GOMAXPROCS
	OnProgress  func(Progress) // called serially, in completion order
}

// OptimizeResult holds every trial in grid order and the winner.
type OptimizeResult struct {
	Best   Trial   `json:"best"`
	Trials []Trial `json:"trials"`
}

// Ranked returns the trials by descending Sharpe ratio, grid order
// breaking ties.
func (r *OptimizeResult) Ranked() []Trial {
	trials := make([]Trial, len(r.Trials))
	copy(trials, r.Trials)
	sort.SliceStable(trials, func(i, j int) bool {
		return trials[i].Result.SharpeRatio > trials[j].Result.SharpeRatio
	})
	return trials
}

// Optimize grid-searches position size, stop-loss and take-profit around
// base. Signals are computed once with base's strategy and shared by every
// trial. The winner has the highest Sharpe ratio; ties go to the earlier
// grid point, so the choice does not depend on scheduling.
func Optimize(ctx context.Context, bars []model.PriceBar, base Config, grid Grid, engineOpts Options, opts OptimizeOptions) (*OptimizeResult, error) {
	configs, err := grid.Configs(base)
	if err != nil {
		return nil, err
	}
	eng, err := NewEngine(base, engineOpts)
	if err != nil {
		return nil, err
	}
	signals, err := eng.Signals(bars)
	if err != nil {
		return nil, err
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	trials := make([]Trial, len(configs))
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, cfg := range configs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := simulate(cfg, bars, signals, eng.logger)
			trials[i] = Trial{Index: i, Config: cfg, Result: res}
			eng.metrics.OptimizerRun()

			if opts.OnProgress != nil {
				mu.Lock()
				done++
				opts.OnProgress(Progress{Done: done, Total: len(configs), Trial: trials[i]})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := 0
	for i := 1; i < len(trials); i++ {
		if trials[i].Result.SharpeRatio > trials[best].Result.SharpeRatio {
			best = i
		}
	}
	eng.logger.Info("optimization finished",
		"trials", len(trials),
		"best_sharpe", trials[best].Result.SharpeRatio,
		"position_size_pct", trials[best].Config.PositionSizePct,
		"stop_loss_pct", trials[best].Config.StopLossPct,
		"take_profit_pct", trials[best].Config.TakeProfitPct,
	)
	return &OptimizeResult{Best: trials[best], Trials: trials}, nil
}
