// Package backtest replays a bar series through a strategy and simulates
// long positions with stop-loss, take-profit, sizing and trading costs.
//
// Signal generation and simulation are split: Signals walks the strategy
// over the series once, and Simulate runs the position state machine over
// those signals. The optimizer reuses one signal pass for a whole grid.
package backtest

import (
	"log/slog"
	"math"
	"time"

	"trading-analysisv1/internal/execution"
	"trading-analysisv1/internal/metrics"
	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/portfolio"
	"trading-analysisv1/internal/signal"
	"trading-analysisv1/internal/strategy"
)

// WarmupBars is the history needed before the first simulated bar.
const WarmupBars = 50

// Options supply optional collaborators.
type Options struct {
	Scorer    *signal.Scorer // default scorer when nil
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Horizon   int     // prediction strategies
	Threshold float64 // prediction strategies
}

// Engine runs one configuration. It holds no per-run state and may be
// shared across goroutines.
type Engine struct {
	cfg      Config
	strategy strategy.Strategy
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewEngine validates cfg and builds its strategy.
func NewEngine(cfg Config, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	scorer := opts.Scorer
	if scorer == nil {
		var err error
		if scorer, err = signal.NewScorer(signal.DefaultConfig(), logger); err != nil {
			return nil, err
		}
	}
	strat, err := strategy.New(cfg.Strategy, strategy.Options{
		Scorer:    scorer,
		Horizon:   opts.Horizon,
		Threshold: opts.Threshold,
	})
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, strategy: strat, logger: logger, metrics: opts.Metrics}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// StrategyName is the name of the strategy driving the run.
func (e *Engine) StrategyName() string { return e.strategy.Name() }

// Run generates signals and simulates them.
func (e *Engine) Run(bars []model.PriceBar) (res *model.BacktestResult, err error) {
	start := time.Now()
	defer func() { e.metrics.ObserveBacktest(start, err) }()

	signals, err := e.Signals(bars)
	if err != nil {
		return nil, err
	}
	return e.Simulate(bars, signals)
}

func checkSeries(bars []model.PriceBar) error {
	if len(bars) < WarmupBars {
		return &model.InsufficientDataError{Component: "backtest", Required: WarmupBars, Got: len(bars)}
	}
	return model.ValidateSeries(bars)
}

// Signals evaluates the strategy at every bar from the warmup on. The
// result is aligned with bars; warmup entries are holds.
func (e *Engine) Signals(bars []model.PriceBar) ([]model.Signal, error) {
	if err := checkSeries(bars); err != nil {
		return nil, err
	}
	return strategy.Walk(e.strategy, bars, WarmupBars-1)
}

// Simulate runs the position state machine over precomputed signals.
func (e *Engine) Simulate(bars []model.PriceBar, signals []model.Signal) (*model.BacktestResult, error) {
	if err := checkSeries(bars); err != nil {
		return nil, err
	}
	if len(signals) != len(bars) {
		return nil, model.Invalid("signals", "got %d signals for %d bars", len(signals), len(bars))
	}
	return simulate(e.cfg, bars, signals, e.logger), nil
}

func simulate(cfg Config, bars []model.PriceBar, signals []model.Signal, logger *slog.Logger) *model.BacktestResult {
	filler := execution.NewPaperFiller(cfg.SlippagePct, cfg.CommissionPct)
	limits := portfolio.RiskLimits{
		StopLossPct:   cfg.StopLossPct,
		TakeProfitPct: cfg.TakeProfitPct,
		MaxPositions:  cfg.MaxPositions,
	}
	pf := portfolio.New(cfg.InitialCapital)

	n := len(bars)
	curve := make([]model.EquityPoint, 0, n-WarmupBars+1)
	returns := make([]float64, 0, n-WarmupBars+1)
	prev := cfg.InitialCapital

	for i := WarmupBars - 1; i < n; i++ {
		bar := bars[i]
		price := bar.Close
		last := i == n-1

		// Exits are evaluated against the bar's close, newest entries kept in order.
		for j := 0; j < pf.OpenCount(); {
			pos := pf.Positions()[j]
			reason := model.ReasonEndOfData
			if !last {
				reason = portfolio.ExitReason(pos, price)
			}
			if reason == "" {
				j++
				continue
			}
			pf.Close(j, filler.Fill(model.ActionSell, bar.Date, price, pos.Quantity), reason)
		}

		if !last {
			sig := signals[i]
			switch {
			case sig.Type == model.SignalSell:
				for pf.OpenCount() > 0 {
					pos := pf.Positions()[0]
					pf.Close(0, filler.Fill(model.ActionSell, bar.Date, price, pos.Quantity), model.ReasonSellSignal)
				}
			case sig.Type == model.SignalBuy && sig.Strength != model.StrengthWeak && limits.CanOpen(pf):
				qty := math.Floor(pf.Cash() * cfg.PositionSizePct / price)
				if qty < 1 {
					logger.Debug("buy skipped: size below one unit", "date", bar.Date.Format(model.DateLayout), "cash", pf.Cash())
					break
				}
				if filler.BuyCost(price, qty) > pf.Cash() {
					logger.Debug("buy skipped: insufficient cash", "date", bar.Date.Format(model.DateLayout), "qty", qty)
					break
				}
				pf.Open(filler.Fill(model.ActionBuy, bar.Date, price, qty), limits)
			}
		}

		value := pf.Mark(price)
		curve = append(curve, model.EquityPoint{Date: bar.Date, Value: value})
		if prev != 0 {
			returns = append(returns, value/prev-1)
		}
		prev = value
	}

	res := summarize(cfg, bars, pf, curve, returns)
	logger.Debug("backtest finished",
		"bars", n,
		"trades", res.TradeCount,
		"total_return", res.TotalReturn,
		"sharpe", res.SharpeRatio,
	)
	return res
}

func summarize(cfg Config, bars []model.PriceBar, pf *portfolio.Portfolio, curve []model.EquityPoint, returns []float64) *model.BacktestResult {
	period := model.Period{Start: bars[0].Date, End: bars[len(bars)-1].Date}
	final := pf.Cash()
	total := (final - cfg.InitialCapital) / cfg.InitialCapital
	summary := pf.Ledger().Summary()

	return &model.BacktestResult{
		Period:           period,
		InitialCapital:   cfg.InitialCapital,
		FinalCapital:     final,
		TotalReturn:      total,
		AnnualizedReturn: annualize(total, period.Years()),
		MaxDrawdown:      pf.MaxDrawdown(),
		SharpeRatio:      sharpe(returns),
		TradeCount:       summary.RoundTrips,
		WinRate:          summary.WinRate,
		Trades:           pf.Ledger().Trades(),
		EquityCurve:      curve,
	}
}
