// Package config loads process configuration from the environment and
// backtest scenarios from YAML files.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Cache backends accepted in CACHE_BACKEND.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Servers
	HTTPAddr    string
	MetricsAddr string

	// Storage
	SQLitePath    string
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Engine
	LogLevel          string
	MaxHistory        int // bars kept per request, 0 keeps all
	PredictionHorizon int

	// Alerts
	AlertWebhookURL string // empty logs alerts instead of posting them
}

// Load reads configuration from environment variables with sensible
// defaults. Malformed values are logged and replaced by their default.
func Load() *Config {
	cfg := &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		SQLitePath:    getEnv("SQLITE_PATH", "data/analysis.db"),
		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", CacheMemory)),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),

		LogLevel:          getEnv("LOG_LEVEL", "info"),
		MaxHistory:        getEnvInt("MAX_HISTORY", 2000),
		PredictionHorizon: getEnvInt("PREDICTION_HORIZON", 5),

		AlertWebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),
	}

	if cfg.CacheBackend != CacheMemory && cfg.CacheBackend != CacheRedis {
		log.Printf("[config] unknown CACHE_BACKEND %q, using %s", cfg.CacheBackend, CacheMemory)
		cfg.CacheBackend = CacheMemory
	}
	if cfg.MaxHistory < 0 {
		log.Printf("[config] negative MAX_HISTORY %d, keeping all bars", cfg.MaxHistory)
		cfg.MaxHistory = 0
	}
	if cfg.PredictionHorizon < 1 {
		log.Printf("[config] PREDICTION_HORIZON %d must be positive, using 5", cfg.PredictionHorizon)
		cfg.PredictionHorizon = 5
	}
	return cfg
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return d
}
