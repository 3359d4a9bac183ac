// Package analysis is the single entry point for analyzing a symbol and
// backtesting it. It runs the indicator, prediction and signal layers over
// a caller-supplied series and caches the encoded result for a short TTL,
// keyed by symbol and data window.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"trading-analysisv1/internal/backtest"
	"trading-analysisv1/internal/indicator"
	"trading-analysisv1/internal/logger"
	"trading-analysisv1/internal/metrics"
	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/notification"
	"trading-analysisv1/internal/prediction"
	"trading-analysisv1/internal/signal"
)

// DefaultHorizon is the prediction horizon in bars.
const DefaultHorizon = 5

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,14}$`)

// ValidateSymbol rejects symbols outside the accepted ticker alphabet.
func ValidateSymbol(symbol string) error {
	if !symbolPattern.MatchString(symbol) {
		return model.Invalid("symbol", "%q must match %s", symbol, symbolPattern.String())
	}
	return nil
}

// Options configure a Service. Zero fields take defaults.
type Options struct {
	Cache      Cache            // MemoryCache when nil
	TTL        time.Duration    // DefaultTTL when zero
	Signal     *signal.Config   // signal.DefaultConfig when nil
	Predictor  prediction.Model // default ensemble when nil
	Horizon    int              // DefaultHorizon when zero
	MaxHistory int              // bars kept from the end of a series; 0 keeps all
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Provider   model.BarProvider     // required by the *Symbol calls
	Recorder   model.RunRecorder     // journals computed backtests when set
	Notifier   notification.Notifier // alerted on computed actionable signals
}

// Analysis is the full reading for a symbol at its latest bar.
type Analysis struct {
	Symbol           string                `json:"symbol"`
	AsOf             time.Time             `json:"as_of"`
	Bars             int                   `json:"bars"`
	LatestPrice      float64               `json:"latest_price"`
	SMA20            float64               `json:"sma_20"`
	SMA50            float64               `json:"sma_50"`
	EMA12            float64               `json:"ema_12"`
	EMA26            float64               `json:"ema_26"`
	RSI              *model.RSIPoint       `json:"rsi,omitempty"`
	MACD             *model.MACDPoint      `json:"macd,omitempty"`
	Bollinger        *model.BollingerPoint `json:"bollinger,omitempty"`
	Levels           []model.Level         `json:"levels"`
	Prediction       *model.Prediction     `json:"prediction,omitempty"`
	ModelPredictions []model.Prediction    `json:"model_predictions,omitempty"`
	Signal           model.Signal          `json:"signal"`
}

// Service is safe for concurrent use. Its cache is the only state shared
// between calls.
type Service struct {
	cache      Cache
	ttl        time.Duration
	scorer     *signal.Scorer
	predictor  prediction.Model
	horizon    int
	maxHistory int
	logger     *slog.Logger
	metrics    *metrics.Metrics
	provider   model.BarProvider
	recorder   model.RunRecorder
	notifier   notification.Notifier

	flight singleflight.Group
}

// NewService validates opts and fills in defaults.
func NewService(opts Options) (*Service, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	cfg := signal.DefaultConfig()
	if opts.Signal != nil {
		cfg = *opts.Signal
	}
	scorer, err := signal.NewScorer(cfg, log)
	if err != nil {
		return nil, err
	}
	if opts.Horizon < 0 {
		return nil, model.Invalid("horizon", "must be positive, got %d", opts.Horizon)
	}
	if opts.MaxHistory < 0 {
		return nil, model.Invalid("max_history", "must not be negative, got %d", opts.MaxHistory)
	}
	if opts.MaxHistory > 0 && opts.MaxHistory < signal.MinBars {
		return nil, model.Invalid("max_history", "must keep at least %d bars, got %d", signal.MinBars, opts.MaxHistory)
	}

	s := &Service{
		cache:      opts.Cache,
		ttl:        opts.TTL,
		scorer:     scorer,
		predictor:  opts.Predictor,
		horizon:    opts.Horizon,
		maxHistory: opts.MaxHistory,
		logger:     log,
		metrics:    opts.Metrics,
		provider:   opts.Provider,
		recorder:   opts.Recorder,
		notifier:   opts.Notifier,
	}
	if s.cache == nil {
		s.cache = NewMemoryCache(nil)
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.predictor == nil {
		s.predictor = &prediction.Ensemble{Models: prediction.DefaultModels(), Logger: log}
	}
	if s.horizon == 0 {
		s.horizon = DefaultHorizon
	}
	return s, nil
}

// Scorer is the signal scorer the service analyzes with.
func (s *Service) Scorer() *signal.Scorer { return s.scorer }

// Horizon is the prediction horizon in bars.
func (s *Service) Horizon() int { return s.horizon }

// window validates the inputs and applies the history cap.
func (s *Service) window(symbol string, bars []model.PriceBar) ([]model.PriceBar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if s.maxHistory > 0 && len(bars) > s.maxHistory {
		bars = bars[len(bars)-s.maxHistory:]
	}
	if len(bars) < signal.MinBars {
		return nil, &model.InsufficientDataError{Component: "analysis", Required: signal.MinBars, Got: len(bars)}
	}
	if err := model.ValidateSeries(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func cacheKey(kind, symbol string, bars []model.PriceBar) string {
	return fmt.Sprintf("%s:%s:%d:%s", kind, symbol, len(bars), bars[len(bars)-1].Date.Format(model.DateLayout))
}

// cached returns the value under key, computing and storing it on a miss.
// Concurrent misses on one key share a single computation. Cache failures
// are logged and treated as misses.
func (s *Service) cached(ctx context.Context, key string, compute func() (any, error), out any) error {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", append(logger.LogWithTrace(ctx), "key", key, "error", err)...)
	}
	if ok {
		if err := json.Unmarshal(raw, out); err == nil {
			s.metrics.CacheLookup("hit")
			return nil
		}
		s.logger.Warn("cache entry undecodable", "key", key)
	}

	v, err, shared := s.flight.Do(key, func() (any, error) {
		res, err := compute()
		if err != nil {
			return nil, err
		}
		enc, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		if err := s.cache.Set(ctx, key, enc, s.ttl); err != nil {
			s.logger.Warn("cache write failed", append(logger.LogWithTrace(ctx), "key", key, "error", err)...)
		}
		return enc, nil
	})
	if shared {
		s.metrics.CacheLookup("shared")
	} else {
		s.metrics.CacheLookup("miss")
	}
	if err != nil {
		return err
	}
	// Every caller decodes its own copy of the shared encoding.
	return json.Unmarshal(v.([]byte), out)
}

// Analyze computes indicators, predictions and a signal at the latest bar
// of bars. bars must be chronologically ordered.
func (s *Service) Analyze(ctx context.Context, symbol string, bars []model.PriceBar) (res *Analysis, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveAnalysis(start, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bars, err = s.window(symbol, bars); err != nil {
		return nil, err
	}
	res = &Analysis{}
	err = s.cached(ctx, cacheKey("analysis", symbol, bars), func() (any, error) {
		a, err := s.compute(ctx, symbol, bars)
		if err == nil {
			s.metrics.Signal(string(a.Signal.Type))
			s.alert(ctx, a)
		}
		return a, err
	}, res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// alertTimeout bounds one notifier delivery.
const alertTimeout = 10 * time.Second

// alert hands an actionable signal to the notifier without holding up the
// analysis. Delivery outlives the request context.
func (s *Service) alert(ctx context.Context, a *Analysis) {
	if s.notifier == nil {
		return
	}
	al, ok := notification.SignalAlert(a.Symbol, a.LatestPrice, a.Signal)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	go func() {
		defer cancel()
		if err := s.notifier.Send(ctx, al); err != nil {
			s.logger.Warn("signal alert failed", append(logger.LogWithTrace(ctx), "symbol", a.Symbol, "error", err)...)
		}
	}()
}

func lastValue(points []model.MovingAveragePoint) float64 {
	if len(points) == 0 {
		return 0
	}
	return points[len(points)-1].Value
}

func (s *Service) compute(ctx context.Context, symbol string, bars []model.PriceBar) (*Analysis, error) {
	in, err := s.scorer.Inputs(bars)
	if err != nil {
		return nil, err
	}
	a := &Analysis{
		Symbol:      symbol,
		AsOf:        in.Date,
		Bars:        len(bars),
		LatestPrice: in.Price,
		SMA20:       in.SMA20,
		SMA50:       in.SMA50,
		RSI:         in.RSI,
		Bollinger:   in.Bollinger,
		Levels:      in.Levels,
		Signal:      s.scorer.Evaluate(in),
	}
	if len(in.MACD) > 0 {
		a.MACD = &in.MACD[len(in.MACD)-1]
	}
	for _, ema := range []struct {
		period int
		dst    *float64
	}{{12, &a.EMA12}, {26, &a.EMA26}} {
		points, err := indicator.CalculateEMA(bars, ema.period, model.SourceClose)
		if err != nil {
			return nil, err
		}
		*ema.dst = lastValue(points)
	}

	if err := s.predict(ctx, a, bars); err != nil {
		return nil, err
	}
	s.logger.Debug("analysis computed", append(logger.LogWithTrace(ctx),
		"symbol", symbol, "bars", len(bars), "signal", a.Signal.Type, "score", a.Signal.Score)...)
	return a, nil
}

// predict fills the prediction fields. A predictor without enough history
// leaves them empty rather than failing the analysis.
func (s *Service) predict(ctx context.Context, a *Analysis, bars []model.PriceBar) error {
	var (
		p       model.Prediction
		members []model.Prediction
		err     error
	)
	if ens, ok := s.predictor.(*prediction.Ensemble); ok {
		p, members, err = ens.PredictDetailed(bars, s.horizon)
	} else {
		p, err = s.predictor.Predict(bars, s.horizon)
	}

	var short *model.InsufficientDataError
	var none *model.NoModelsAvailableError
	switch {
	case err == nil:
		a.Prediction, a.ModelPredictions = &p, members
		return nil
	case errors.As(err, &short), errors.As(err, &none):
		s.logger.Info("prediction skipped", append(logger.LogWithTrace(ctx), "symbol", a.Symbol, "error", err)...)
		return nil
	default:
		return err
	}
}

func (s *Service) engineOptions() backtest.Options {
	return backtest.Options{
		Scorer:  s.scorer,
		Logger:  s.logger,
		Metrics: s.metrics,
		Horizon: s.horizon,
	}
}

// Backtest simulates cfg over bars. Results are cached per configuration
// and, when a Recorder is configured, each computed run is journaled.
func (s *Service) Backtest(ctx context.Context, symbol string, bars []model.PriceBar, cfg backtest.Config) (*model.BacktestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bars, err := s.window(symbol, bars)
	if err != nil {
		return nil, err
	}
	engine, err := backtest.NewEngine(cfg, s.engineOptions())
	if err != nil {
		return nil, err
	}

	key := cacheKey("backtest", symbol, bars) + ":" + cfg.Fingerprint()
	res := &model.BacktestResult{}
	err = s.cached(ctx, key, func() (any, error) {
		r, err := engine.Run(bars)
		if err != nil {
			return nil, err
		}
		s.record(ctx, symbol, engine.StrategyName(), cfg, r)
		return r, nil
	}, res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) record(ctx context.Context, symbol, label string, cfg backtest.Config, res *model.BacktestResult) {
	if s.recorder == nil {
		return
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		s.logger.Warn("journal encode failed", "symbol", symbol, "error", err)
		return
	}
	run := model.BacktestRun{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Label:     label,
		Config:    raw,
		Result:    res,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.recorder.RecordRun(ctx, run); err != nil {
		s.logger.Warn("journal write failed", append(logger.LogWithTrace(ctx), "symbol", symbol, "run_id", run.ID, "error", err)...)
		return
	}
	s.logger.Info("backtest journaled", append(logger.LogWithTrace(ctx), "symbol", symbol, "run_id", run.ID)...)
}

// Optimize grid-searches risk parameters over bars. Optimizations are not
// cached.
func (s *Service) Optimize(ctx context.Context, symbol string, bars []model.PriceBar, base backtest.Config, grid backtest.Grid, opts backtest.OptimizeOptions) (*backtest.OptimizeResult, error) {
	bars, err := s.window(symbol, bars)
	if err != nil {
		return nil, err
	}
	res, err := backtest.Optimize(ctx, bars, base, grid, s.engineOptions(), opts)
	if err != nil {
		return nil, err
	}
	if res.Best.Result != nil {
		s.record(ctx, symbol, "optimizer-best", res.Best.Config, res.Best.Result)
	}
	return res, nil
}

// Compare runs named configurations side by side over bars.
func (s *Service) Compare(ctx context.Context, symbol string, bars []model.PriceBar, configs []backtest.NamedConfig) ([]backtest.Comparison, error) {
	bars, err := s.window(symbol, bars)
	if err != nil {
		return nil, err
	}
	return backtest.Compare(ctx, bars, configs, s.engineOptions())
}

func (s *Service) history(ctx context.Context, symbol string) ([]model.PriceBar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, model.Invalid("provider", "no bar provider configured")
	}
	bars, err := s.provider.Bars(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("load %s bars: %w", symbol, err)
	}
	return bars, nil
}

// AnalyzeSymbol loads the symbol's history from the Provider and analyzes it.
func (s *Service) AnalyzeSymbol(ctx context.Context, symbol string) (*Analysis, error) {
	bars, err := s.history(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return s.Analyze(ctx, symbol, bars)
}

// BacktestSymbol loads the symbol's history from the Provider and backtests it.
func (s *Service) BacktestSymbol(ctx context.Context, symbol string, cfg backtest.Config) (*model.BacktestResult, error) {
	bars, err := s.history(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return s.Backtest(ctx, symbol, bars, cfg)
}

// OptimizeSymbol loads the symbol's history from the Provider and optimizes over it.
func (s *Service) OptimizeSymbol(ctx context.Context, symbol string, base backtest.Config, grid backtest.Grid, opts backtest.OptimizeOptions) (*backtest.OptimizeResult, error) {
	bars, err := s.history(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return s.Optimize(ctx, symbol, bars, base, grid, opts)
}
