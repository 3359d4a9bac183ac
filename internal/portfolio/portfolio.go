// Package portfolio tracks cash, open positions, and mark-to-market value
// for one simulated account.
//
// A Portfolio belongs to a single backtest run and is not safe for
// concurrent use.
package portfolio

import (
	"trading-analysisv1/internal/execution"
	"trading-analysisv1/internal/model"
)

// Portfolio tracks cash and all open positions.
type Portfolio struct {
	cash      float64
	positions []model.Position
	ledger    *PnLTracker

	peak        float64
	maxDrawdown float64
}

// New creates a portfolio funded with cash.
func New(cash float64) *Portfolio {
	return &Portfolio{
		cash:   cash,
		ledger: NewPnLTracker(),
		peak:   cash,
	}
}

func (pf *Portfolio) Cash() float64 { return pf.cash }

// OpenCount is the number of open positions.
func (pf *Portfolio) OpenCount() int { return len(pf.positions) }

// Positions returns a snapshot of open positions in entry order.
func (pf *Portfolio) Positions() []model.Position {
	cp := make([]model.Position, len(pf.positions))
	copy(cp, pf.positions)
	return cp
}

// Ledger returns the trade tracker.
func (pf *Portfolio) Ledger() *PnLTracker { return pf.ledger }

// Open books a buy fill as a new long position with exits placed by limits.
func (pf *Portfolio) Open(fill execution.Fill, limits RiskLimits) model.Position {
	cost := -fill.CashDelta()
	pos := model.Position{
		EntryDate:       fill.Date,
		EntryPrice:      fill.Price,
		Quantity:        fill.Quantity,
		StopLossPrice:   fill.Price * (1 - limits.StopLossPct),
		TakeProfitPrice: fill.Price * (1 + limits.TakeProfitPct),
		Direction:       model.DirectionLong,
		CostBasis:       cost,
	}
	pf.cash -= cost
	pf.positions = append(pf.positions, pos)
	pf.ledger.Record(model.Trade{
		Date:     fill.Date,
		Action:   model.ActionBuy,
		Price:    fill.Price,
		Quantity: fill.Quantity,
		Reason:   model.ReasonSignal,
	})
	return pos
}

// Close books a sell fill against the open position at index i.
// Realized P&L is the sale proceeds less the position's cost basis.
func (pf *Portfolio) Close(i int, fill execution.Fill, reason string) model.Trade {
	pos := pf.positions[i]
	proceeds := fill.CashDelta()
	pf.cash += proceeds
	pf.positions = append(pf.positions[:i], pf.positions[i+1:]...)

	trade := model.Trade{
		Date:        fill.Date,
		Action:      model.ActionSell,
		Price:       fill.Price,
		Quantity:    fill.Quantity,
		RealizedPnL: proceeds - pos.CostBasis,
		Reason:      reason,
	}
	pf.ledger.Record(trade)
	return trade
}

// Value is cash plus the market value of every open position at price.
func (pf *Portfolio) Value(price float64) float64 {
	v := pf.cash
	for i := range pf.positions {
		v += pf.positions[i].MarketValue(price)
	}
	return v
}

// Mark values the portfolio at price and updates the running peak and
// maximum drawdown.
func (pf *Portfolio) Mark(price float64) float64 {
	v := pf.Value(price)
	if v > pf.peak {
		pf.peak = v
	}
	if pf.peak > 0 {
		if dd := (pf.peak - v) / pf.peak; dd > pf.maxDrawdown {
			pf.maxDrawdown = dd
		}
	}
	return v
}

// MaxDrawdown is the largest peak-to-trough decline seen by Mark, in [0,1].
func (pf *Portfolio) MaxDrawdown() float64 {
	if pf.maxDrawdown > 1 {
		return 1
	}
	return pf.maxDrawdown
}
