package backtest

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"trading-analysisv1/internal/model"
)

// NamedConfig labels a configuration for comparison.
type NamedConfig struct {
	Name   string `json:"name" yaml:"name"`
	Config Config `json:"config" yaml:"config"`
}

// Comparison is one row of a side-by-side run.
type Comparison struct {
	Name   string                `json:"name"`
	Config Config                `json:"config"`
	Result *model.BacktestResult `json:"result"`
}

// Compare runs each configuration against the same bars, concurrently, and
// returns results in input order. The first failure cancels the rest.
func Compare(ctx context.Context, bars []model.PriceBar, configs []NamedConfig, opts Options) ([]Comparison, error) {
	if len(configs) == 0 {
		return nil, model.Invalid("configs", "nothing to compare")
	}
	engines := make([]*Engine, len(configs))
	for i, nc := range configs {
		eng, err := NewEngine(nc.Config, opts)
		if err != nil {
			return nil, err
		}
		engines[i] = eng
	}

	out := make([]Comparison, len(configs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, nc := range configs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := engines[i].Run(bars)
			if err != nil {
				return err
			}
			out[i] = Comparison{Name: nc.Name, Config: nc.Config, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
