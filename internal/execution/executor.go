// Package execution simulates order fills for the backtester.
//
// A Filler turns a requested trade at a reference price into a Fill that
// carries the frictions a real execution would pay.
package execution

import (
	"time"

	"trading-analysisv1/internal/model"
)

// Fill represents a simulated execution.
type Fill struct {
	Date       time.Time         `json:"date"`
	Side       model.TradeAction `json:"side"`
	RefPrice   float64           `json:"ref_price"` // price the order was based on
	Price      float64           `json:"price"`     // fill price after slippage
	Quantity   float64           `json:"quantity"`
	Commission float64           `json:"commission"`
}

// Notional is fill price times quantity.
func (f Fill) Notional() float64 { return f.Price * f.Quantity }

// CashDelta is the signed cash movement: negative for buys, positive for sells.
func (f Fill) CashDelta() float64 {
	if f.Side == model.ActionBuy {
		return -(f.Notional() + f.Commission)
	}
	return f.Notional() - f.Commission
}

// Filler executes simulated orders.
type Filler interface {
	Fill(side model.TradeAction, date time.Time, price, qty float64) Fill
}
