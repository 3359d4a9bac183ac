// Package redis backs the analysis result cache with Redis, guarded by a
// circuit breaker so an unavailable server degrades to cache misses.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trading-analysisv1/internal/metrics"
)

const (
	defaultKeyPrefix   = "tav1:"
	defaultOpTimeout   = 500 * time.Millisecond
	breakerMaxFailures = 5
	breakerReset       = 10 * time.Second
)

// Config configures the Redis cache.
type Config struct {
	Addr      string // Redis address, e.g. "localhost:6379"
	Password  string
	DB        int
	KeyPrefix string        // defaults to "tav1:"
	OpTimeout time.Duration // per-command timeout, defaults to 500ms
}

// Cache stores encoded analyses and backtest results in Redis with a TTL.
type Cache struct {
	client  *goredis.Client
	prefix  string
	timeout time.Duration
	breaker *CircuitBreaker
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// Breaker returns the circuit breaker guarding the client.
func (c *Cache) Breaker() *CircuitBreaker { return c.breaker }

// New creates a Redis cache and pings the server. m may be nil.
func New(ctx context.Context, cfg Config, m *metrics.Metrics) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewWithClient(client, cfg, m), nil
}

// NewWithClient wraps an existing client without pinging it.
func NewWithClient(client *goredis.Client, cfg Config, m *metrics.Metrics) *Cache {
	c := &Cache{
		client:  client,
		prefix:  cfg.KeyPrefix,
		timeout: cfg.OpTimeout,
		breaker: NewCircuitBreaker(breakerMaxFailures, breakerReset),
	}
	if c.prefix == "" {
		c.prefix = defaultKeyPrefix
	}
	if c.timeout <= 0 {
		c.timeout = defaultOpTimeout
	}
	// A missing key is an answer, not an outage.
	c.breaker.IsFailure = func(err error) bool { return !errors.Is(err, goredis.Nil) }
	c.breaker.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit breaker %s -> %s", from, to)
		m.BreakerState(int(to), to == StateOpen)
	}
	return c
}

// Get returns the value stored under key. A missing key is a miss with a
// nil error.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var val []byte
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		var err error
		val, err = c.client.Get(ctx, c.prefix+key).Bytes()
		return err
	})
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
