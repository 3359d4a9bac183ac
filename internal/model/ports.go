package model

import (
	"context"
	"time"
)

// ── Port Interfaces ──
// These decouple the engine from concrete storage (SQLite, Redis).

// BarProvider supplies chronologically ordered bars for a symbol and
// inclusive date range. A zero from/to leaves that side open.
type BarProvider interface {
	Bars(ctx context.Context, symbol string, from, to time.Time) ([]PriceBar, error)
}

// BarWriter persists bars for later replay.
type BarWriter interface {
	WriteBars(ctx context.Context, symbol string, bars []PriceBar) error
}

// BacktestRun is one journaled backtest.
type BacktestRun struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Label     string          `json:"label"`
	Config    []byte          `json:"config"` // JSON-encoded backtest configuration
	Result    *BacktestResult `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// RunRecorder journals backtest runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run BacktestRun) error
}
