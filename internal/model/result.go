package model

import "time"

// Period is the calendar span covered by a backtest.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Years returns the span in calendar years.
func (p Period) Years() float64 {
	return p.End.Sub(p.Start).Hours() / 24 / 365.25
}

// EquityPoint is the marked-to-market portfolio value at a bar.
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// BacktestResult is produced once at the end of a simulation run.
type BacktestResult struct {
	Period           Period        `json:"period"`
	InitialCapital   float64       `json:"initial_capital"`
	FinalCapital     float64       `json:"final_capital"`
	TotalReturn      float64       `json:"total_return"`
	AnnualizedReturn float64       `json:"annualized_return"`
	MaxDrawdown      float64       `json:"max_drawdown"`
	SharpeRatio      float64       `json:"sharpe_ratio"`
	TradeCount       int           `json:"trade_count"`
	WinRate          float64       `json:"win_rate"`
	Trades           []Trade       `json:"trades"`
	EquityCurve      []EquityPoint `json:"equity_curve,omitempty"`
}

// RealizedPnL sums the ledger.
func (r *BacktestResult) RealizedPnL() float64 {
	sum := 0.0
	for _, t := range r.Trades {
		sum += t.RealizedPnL
	}
	return sum
}
