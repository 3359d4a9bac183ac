package model

import "time"

// Direction of a simulated position. Only long positions are simulated.
type Direction string

const DirectionLong Direction = "long"

// Position is an open simulated position inside a backtest run.
type Position struct {
	EntryDate       time.Time `json:"entry_date"`
	EntryPrice      float64   `json:"entry_price"` // fill price including slippage
	Quantity        float64   `json:"quantity"`
	StopLossPrice   float64   `json:"stop_loss_price"`
	TakeProfitPrice float64   `json:"take_profit_price"`
	Direction       Direction `json:"direction"`

	// CostBasis is the cash paid at entry, commission included.
	CostBasis float64 `json:"cost_basis"`
}

// MarketValue values the position at price.
func (p *Position) MarketValue(price float64) float64 {
	return p.Quantity * price
}

// UnrealizedPnL is the mark-to-market gain against the cost basis.
func (p *Position) UnrealizedPnL(price float64) float64 {
	return p.MarketValue(price) - p.CostBasis
}
