package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"trading-analysisv1/internal/model"
)

// ErrRunNotFound is returned by Run for an unknown id.
var ErrRunNotFound = errors.New("backtest run not found")

// RecordRun persists run, its trades and equity curve in one transaction.
func (s *Store) RecordRun(ctx context.Context, run model.BacktestRun) error {
	if run.ID == "" || run.Result == nil {
		return model.Invalid("run", "id and result are required")
	}
	res := run.Result
	curve, err := json.Marshal(res.EquityCurve)
	if err != nil {
		return err
	}
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs (id, symbol, label, config, period_start, period_end,
			initial_capital, final_capital, total_return, annualized_return, max_drawdown,
			sharpe_ratio, trade_count, win_rate, equity_curve, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Symbol, run.Label, string(run.Config), res.Period.Start.Unix(), res.Period.End.Unix(),
		res.InitialCapital, res.FinalCapital, res.TotalReturn, res.AnnualizedReturn, res.MaxDrawdown,
		res.SharpeRatio, res.TradeCount, res.WinRate, string(curve), created.UnixNano())
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_trades (run_id, seq, ts, action, price, quantity, realized_pnl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range res.Trades {
		if _, err := stmt.ExecContext(ctx, run.ID, i, t.Date.Unix(), string(t.Action), t.Price, t.Quantity, t.RealizedPnL, t.Reason); err != nil {
			return fmt.Errorf("insert trade %d of run %s: %w", i, run.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[journal] recorded run %s (%s %s, %d trades)", run.ID, run.Symbol, run.Label, len(res.Trades))
	return nil
}

// RunSummary is a journaled run without its trades or equity curve.
type RunSummary struct {
	ID               string          `json:"id"`
	Symbol           string          `json:"symbol"`
	Label            string          `json:"label"`
	Config           json.RawMessage `json:"config"`
	Period           model.Period    `json:"period"`
	InitialCapital   float64         `json:"initial_capital"`
	FinalCapital     float64         `json:"final_capital"`
	TotalReturn      float64         `json:"total_return"`
	AnnualizedReturn float64         `json:"annualized_return"`
	MaxDrawdown      float64         `json:"max_drawdown"`
	SharpeRatio      float64         `json:"sharpe_ratio"`
	TradeCount       int             `json:"trade_count"`
	WinRate          float64         `json:"win_rate"`
	CreatedAt        time.Time       `json:"created_at"`
}

const runColumns = `id, symbol, label, config, period_start, period_end, initial_capital,
	final_capital, total_return, annualized_return, max_drawdown, sharpe_ratio,
	trade_count, win_rate, equity_curve, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunSummary, []byte, error) {
	var (
		r          RunSummary
		config     string
		curve      sql.NullString
		start, end int64
		created    int64
	)
	err := row.Scan(&r.ID, &r.Symbol, &r.Label, &config, &start, &end, &r.InitialCapital,
		&r.FinalCapital, &r.TotalReturn, &r.AnnualizedReturn, &r.MaxDrawdown, &r.SharpeRatio,
		&r.TradeCount, &r.WinRate, &curve, &created)
	if err != nil {
		return r, nil, err
	}
	r.Config = json.RawMessage(config)
	r.Period = model.Period{Start: time.Unix(start, 0).UTC(), End: time.Unix(end, 0).UTC()}
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, []byte(curve.String), nil
}

// ListRuns returns up to limit runs, newest first. symbol filters when set.
func (s *Store) ListRuns(ctx context.Context, symbol string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM backtest_runs
		WHERE ? = '' OR symbol = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, symbol, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		r, _, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run loads a full journaled run including trades and equity curve.
func (s *Store) Run(ctx context.Context, id string) (*model.BacktestRun, error) {
	sum, curve, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM backtest_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	res := &model.BacktestResult{
		Period:           sum.Period,
		InitialCapital:   sum.InitialCapital,
		FinalCapital:     sum.FinalCapital,
		TotalReturn:      sum.TotalReturn,
		AnnualizedReturn: sum.AnnualizedReturn,
		MaxDrawdown:      sum.MaxDrawdown,
		SharpeRatio:      sum.SharpeRatio,
		TradeCount:       sum.TradeCount,
		WinRate:          sum.WinRate,
		Trades:           []model.Trade{},
	}
	if len(curve) > 0 {
		if err := json.Unmarshal(curve, &res.EquityCurve); err != nil {
			return nil, fmt.Errorf("decode equity curve of run %s: %w", id, err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, action, price, quantity, realized_pnl, reason FROM backtest_trades
		WHERE run_id = ? ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t model.Trade
		var ts int64
		var action string
		if err := rows.Scan(&ts, &action, &t.Price, &t.Quantity, &t.RealizedPnL, &t.Reason); err != nil {
			return nil, err
		}
		t.Date, t.Action = time.Unix(ts, 0).UTC(), model.TradeAction(action)
		res.Trades = append(res.Trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &model.BacktestRun{
		ID:        sum.ID,
		Symbol:    sum.Symbol,
		Label:     sum.Label,
		Config:    sum.Config,
		Result:    res,
		CreatedAt: sum.CreatedAt,
	}, nil
}
