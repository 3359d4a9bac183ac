package portfolio

import (
	"trading-analysisv1/internal/model"
)

// PnLTracker keeps the append-only trade ledger and realized P&L.
type PnLTracker struct {
	trades      []model.Trade
	realizedPnL float64
}

// NewPnLTracker creates an empty tracker.
func NewPnLTracker() *PnLTracker {
	return &PnLTracker{trades: make([]model.Trade, 0, 64)}
}

// Record appends a trade and accumulates its realized P&L.
func (p *PnLTracker) Record(trade model.Trade) {
	p.trades = append(p.trades, trade)
	p.realizedPnL += trade.RealizedPnL
}

// RealizedPnL returns total realized P&L.
func (p *PnLTracker) RealizedPnL() float64 { return p.realizedPnL }

// Trades returns a snapshot of the ledger in booking order.
func (p *PnLTracker) Trades() []model.Trade {
	cp := make([]model.Trade, len(p.trades))
	copy(cp, p.trades)
	return cp
}

// PnLSummary aggregates closed round trips.
type PnLSummary struct {
	RealizedPnL float64 `json:"realized_pnl"`
	RoundTrips  int     `json:"round_trips"`
	Wins        int     `json:"wins"`
	WinRate     float64 `json:"win_rate"`
}

// Summary counts every sell as a closed round trip and a sell with
// positive realized P&L as a win. WinRate is 0 with no round trips.
func (p *PnLTracker) Summary() PnLSummary {
	s := PnLSummary{RealizedPnL: p.realizedPnL}
	for _, t := range p.trades {
		if t.Action != model.ActionSell {
			continue
		}
		s.RoundTrips++
		if t.RealizedPnL > 0 {
			s.Wins++
		}
	}
	if s.RoundTrips > 0 {
		s.WinRate = float64(s.Wins) / float64(s.RoundTrips)
	}
	return s
}
