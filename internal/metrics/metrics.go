package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the analysis engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Analysis façade
	AnalysisRequests *prometheus.CounterVec // labels: result=ok|error
	AnalysisDuration prometheus.Histogram
	CacheLookups     *prometheus.CounterVec // labels: outcome=hit|miss|shared

	// Backtesting
	BacktestRuns     *prometheus.CounterVec // labels: result=ok|error
	BacktestDuration prometheus.Histogram
	OptimizerRuns    prometheus.Counter

	// Signals emitted by analyses
	SignalsTotal *prometheus.CounterVec // labels: type=buy|sell|hold

	// Circuit breaker around the Redis cache
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
}

// NewMetrics registers and returns all metrics on reg.
// A nil reg registers on the Prometheus default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		AnalysisRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analysis_requests_total",
			Help: "Symbol analyses by outcome",
		}, []string{"result"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analysis_duration_seconds",
			Help:    "Time to compute an analysis on a cache miss",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analysis_cache_total",
			Help: "Result cache lookups by outcome",
		}, []string{"outcome"}),

		BacktestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_runs_total",
			Help: "Backtest runs by outcome",
		}, []string{"result"}),
		BacktestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_duration_seconds",
			Help:    "Backtest wall time including signal generation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		OptimizerRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optimizer_runs_total",
			Help: "Grid configurations simulated by the optimizer",
		}),

		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_total",
			Help: "Signals produced by analyses, by type",
		}, []string{"type"}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
	}

	reg.MustRegister(
		m.AnalysisRequests,
		m.AnalysisDuration,
		m.CacheLookups,
		m.BacktestRuns,
		m.BacktestDuration,
		m.OptimizerRuns,
		m.SignalsTotal,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
	)

	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveAnalysis records one façade analysis call.
func (m *Metrics) ObserveAnalysis(start time.Time, err error) {
	if m == nil {
		return
	}
	m.AnalysisRequests.WithLabelValues(result(err)).Inc()
	m.AnalysisDuration.Observe(time.Since(start).Seconds())
}

// CacheLookup records a cache outcome: "hit", "miss" or "shared".
func (m *Metrics) CacheLookup(outcome string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(outcome).Inc()
}

// ObserveBacktest records one backtest run.
func (m *Metrics) ObserveBacktest(start time.Time, err error) {
	if m == nil {
		return
	}
	m.BacktestRuns.WithLabelValues(result(err)).Inc()
	m.BacktestDuration.Observe(time.Since(start).Seconds())
}

// OptimizerRun counts one simulated grid configuration.
func (m *Metrics) OptimizerRun() {
	if m == nil {
		return
	}
	m.OptimizerRuns.Inc()
}

// Signal counts an emitted signal by type.
func (m *Metrics) Signal(typ string) {
	if m == nil {
		return
	}
	m.SignalsTotal.WithLabelValues(typ).Inc()
}

// BreakerState publishes the Redis circuit breaker state.
func (m *Metrics) BreakerState(state int, tripped bool) {
	if m == nil {
		return
	}
	m.RedisCircuitBreakerState.Set(float64(state))
	if tripped {
		m.RedisCircuitBreakerTrips.Inc()
	}
}
