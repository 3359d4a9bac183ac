package sqlite

import (
	"context"
	"fmt"
	"time"

	"trading-analysisv1/internal/model"
)

// WriteBars upserts bars for symbol in a single transaction. A bar with an
// existing timestamp replaces the stored one.
func (s *Store) WriteBars(ctx context.Context, symbol string, bars []model.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if err := b.Validate(); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, symbol, b.Date.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("insert %s %s: %w", symbol, b.Date.Format(model.DateLayout), err)
		}
	}
	return tx.Commit()
}

// Bars returns symbol's bars in [from, to], oldest first. A zero from or to
// leaves that side open.
func (s *Store) Bars(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error) {
	lo, hi := int64(-1<<62), int64(1<<62)
	if !from.IsZero() {
		lo = from.Unix()
	}
	if !to.IsZero() {
		hi = to.Unix()
	}
	if lo > hi {
		return nil, model.Invalid("date range", "from %s is after to %s", from.Format(model.DateLayout), to.Format(model.DateLayout))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume FROM bars
		WHERE symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`, symbol, lo, hi)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PriceBar
	for rows.Next() {
		var b model.PriceBar
		var ts int64
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Date = time.Unix(ts, 0).UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// SymbolInfo summarizes the stored history of one symbol.
type SymbolInfo struct {
	Symbol string    `json:"symbol"`
	Bars   int       `json:"bars"`
	First  time.Time `json:"first"`
	Last   time.Time `json:"last"`
}

// Symbols lists every stored symbol with its bar count and date span.
func (s *Store) Symbols(ctx context.Context) ([]SymbolInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, COUNT(*), MIN(ts), MAX(ts) FROM bars
		GROUP BY symbol ORDER BY symbol
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SymbolInfo
	for rows.Next() {
		var info SymbolInfo
		var first, last int64
		if err := rows.Scan(&info.Symbol, &info.Bars, &first, &last); err != nil {
			return nil, err
		}
		info.First, info.Last = time.Unix(first, 0).UTC(), time.Unix(last, 0).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}
