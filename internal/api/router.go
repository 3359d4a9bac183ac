// Package api exposes the analysis service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"trading-analysisv1/internal/analysis"
	"trading-analysisv1/internal/backtest"
	"trading-analysisv1/internal/logger"
	"trading-analysisv1/internal/metrics"
	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/store/sqlite"
)

// Analyzer is the subset of the analysis service the API serves.
type Analyzer interface {
	AnalyzeSymbol(ctx context.Context, symbol string) (*analysis.Analysis, error)
	BacktestSymbol(ctx context.Context, symbol string, cfg backtest.Config) (*model.BacktestResult, error)
	OptimizeSymbol(ctx context.Context, symbol string, base backtest.Config, grid backtest.Grid, opts backtest.OptimizeOptions) (*backtest.OptimizeResult, error)
}

// RunStore reads the backtest journal.
type RunStore interface {
	ListRuns(ctx context.Context, symbol string, limit int) ([]sqlite.RunSummary, error)
	Run(ctx context.Context, id string) (*model.BacktestRun, error)
}

// Config wires the server's collaborators. Runs and Health are optional.
type Config struct {
	Addr     string
	Analyzer Analyzer
	Runs     RunStore
	Health   *metrics.HealthStatus
	Logger   *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	cfg    Config
	router *gin.Engine
	srv    *http.Server
	logger *slog.Logger
}

const traceHeader = "X-Trace-ID"

// NewServer builds the router. Call Start to listen.
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	lg := cfg.Logger
	if lg == nil {
		lg = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{cfg: cfg, router: router, logger: lg}
	router.Use(s.traceRequests)
	s.registerRoutes()

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.router.Group("/api/v1")
	v1.GET("/health", s.handleHealth)
	v1.GET("/analysis/:symbol", s.handleAnalysis)
	v1.POST("/backtest", s.handleBacktest)
	v1.POST("/optimize", s.handleOptimize)
	v1.GET("/optimize/stream", s.handleOptimizeStream)
	v1.GET("/runs", s.handleRuns)
	v1.GET("/runs/:id", s.handleRun)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[api] listening on %s", s.cfg.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[api] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Printf("[api] shutdown error: %v", err)
	}
}

// traceRequests assigns a trace id, echoes it in the response and logs
// the request once it completes.
func (s *Server) traceRequests(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()
	if tid := c.GetHeader(traceHeader); tid != "" {
		ctx = logger.WithTraceID(ctx, tid)
	} else {
		ctx = logger.EnsureTraceID(ctx)
	}
	c.Request = c.Request.WithContext(ctx)
	c.Header(traceHeader, logger.TraceID(ctx))

	c.Next()

	s.logger.Info("http request", append(logger.LogWithTrace(ctx),
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration_ms", time.Since(start).Milliseconds(),
	)...)
}

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	var (
		invalid *model.InvalidConfigurationError
		short   *model.InsufficientDataError
		none    *model.NoModelsAvailableError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &short), errors.As(err, &none):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sqlite.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", append(logger.LogWithTrace(c.Request.Context()), "path", c.FullPath(), "error", err)...)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func symbolParam(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.cfg.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	status, ok := s.cfg.Health.Healthy()
	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status})
}

func (s *Server) handleAnalysis(c *gin.Context) {
	res, err := s.cfg.Analyzer.AnalyzeSymbol(c.Request.Context(), symbolParam(c.Param("symbol")))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// backtestRequest carries a partial configuration laid over the defaults.
type backtestRequest struct {
	Symbol string          `json:"symbol"`
	Config json.RawMessage `json:"config"`
}

func overlay(raw json.RawMessage) (backtest.Config, error) {
	cfg := backtest.DefaultConfig()
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, model.Invalid("config", "%v", err)
	}
	return cfg, nil
}

func (s *Server) handleBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, model.Invalid("body", "%v", err))
		return
	}
	cfg, err := overlay(req.Config)
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.cfg.Analyzer.BacktestSymbol(c.Request.Context(), symbolParam(req.Symbol), cfg)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// optimizeRequest is shared by the REST and streaming endpoints.
type optimizeRequest struct {
	Symbol string          `json:"symbol"`
	Base   json.RawMessage `json:"base"`
	Grid   *backtest.Grid  `json:"grid"`
	Top    int             `json:"top"`
}

func (r optimizeRequest) params() (backtest.Config, backtest.Grid, error) {
	base, err := overlay(r.Base)
	if err != nil {
		return base, backtest.Grid{}, err
	}
	grid := backtest.DefaultGrid()
	if r.Grid != nil {
		grid = *r.Grid
	}
	return base, grid, nil
}

func (s *Server) handleOptimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, model.Invalid("body", "%v", err))
		return
	}
	base, grid, err := req.params()
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.cfg.Analyzer.OptimizeSymbol(c.Request.Context(), symbolParam(req.Symbol), base, grid, backtest.OptimizeOptions{})
	if err != nil {
		s.fail(c, err)
		return
	}
	trials := res.Trials
	if req.Top > 0 && req.Top < len(trials) {
		trials = res.Ranked()[:req.Top]
	}
	c.JSON(http.StatusOK, gin.H{"best": res.Best, "trials": trials})
}

func (s *Server) handleRuns(c *gin.Context) {
	if s.cfg.Runs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run journal not configured"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 500 {
		s.fail(c, model.Invalid("limit", "must be an integer in [1,500]"))
		return
	}
	symbol := symbolParam(c.Query("symbol"))
	if symbol != "" {
		if err := analysis.ValidateSymbol(symbol); err != nil {
			s.fail(c, err)
			return
		}
	}
	runs, err := s.cfg.Runs.ListRuns(c.Request.Context(), symbol, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRun(c *gin.Context) {
	if s.cfg.Runs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run journal not configured"})
		return
	}
	run, err := s.cfg.Runs.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}
