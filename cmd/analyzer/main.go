// cmd/analyzer serves symbol analyses, backtests and optimizations over
// HTTP, reading bars from SQLite and caching results in memory or Redis.
//
// Usage:
//
//	SQLITE_PATH=data/analysis.db CACHE_BACKEND=redis go run ./cmd/analyzer
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"trading-analysisv1/config"
	"trading-analysisv1/internal/analysis"
	"trading-analysisv1/internal/api"
	"trading-analysisv1/internal/logger"
	"trading-analysisv1/internal/metrics"
	"trading-analysisv1/internal/notification"
	redisstore "trading-analysisv1/internal/store/redis"
	sqlitestore "trading-analysisv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[analyzer] starting...")

	cfg := config.Load()
	slogger := logger.Init("analyzer", logger.ParseLevel(cfg.LogLevel))

	// ---- Setup context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Setup metrics & health ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus(cfg.CacheBackend)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health, reg)
	metricsSrv.Start()

	// ---- SQLite: bars + run journal ----
	if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
		os.MkdirAll(dir, 0o755)
	}
	store, err := sqlitestore.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[analyzer] sqlite init failed: %v", err)
	}
	defer store.Close()
	health.SetSQLiteOK(true)

	// ---- Result cache ----
	var (
		cache analysis.Cache
		rdb   *goredis.Client
	)
	if cfg.CacheBackend == config.CacheRedis {
		rc, err := redisstore.New(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, prom)
		if err != nil {
			log.Printf("[analyzer] WARNING: redis init failed: %v (falling back to memory cache)", err)
			health.SetRedisConnected(false)
		} else {
			defer rc.Close()
			cache, rdb = rc, rc.Client()
			health.SetRedisConnected(true)
		}
	}
	if cache == nil {
		mem := analysis.NewMemoryCache(nil)
		go sweep(ctx, mem, cfg.CacheTTL)
		cache = mem
	}

	health.StartLivenessChecker(ctx, rdb, store.DB(), 10*time.Second)

	// ---- Signal alerts ----
	var notifier notification.Notifier = &notification.LogNotifier{Logger: slogger}
	if cfg.AlertWebhookURL != "" {
		notifier = notification.NewWebhookNotifier(cfg.AlertWebhookURL)
	}

	// ---- Analysis service + API ----
	svc, err := analysis.NewService(analysis.Options{
		Cache:      cache,
		TTL:        cfg.CacheTTL,
		Horizon:    cfg.PredictionHorizon,
		MaxHistory: cfg.MaxHistory,
		Logger:     slogger,
		Metrics:    prom,
		Provider:   store,
		Recorder:   store,
		Notifier:   notifier,
	})
	if err != nil {
		log.Fatalf("[analyzer] service init failed: %v", err)
	}

	apiSrv := api.NewServer(api.Config{
		Addr:     cfg.HTTPAddr,
		Analyzer: svc,
		Runs:     store,
		Health:   health,
		Logger:   slogger,
	})
	apiSrv.Start()

	sig := <-sigCh
	log.Printf("[analyzer] received %v, shutting down", sig)
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	apiSrv.Stop(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	log.Println("[analyzer] stopped")
}

// sweep drops expired memory cache entries once per ttl.
func sweep(ctx context.Context, c *analysis.MemoryCache, ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				log.Printf("[analyzer] swept %d expired cache entries", n)
			}
		}
	}
}
