package portfolio

import (
	"trading-analysisv1/internal/model"
)

// RiskLimits defines the per-position exit levels and position cap.
type RiskLimits struct {
	StopLossPct   float64 `json:"stop_loss_pct"`
	TakeProfitPct float64 `json:"take_profit_pct"`
	MaxPositions  int     `json:"max_positions"`
}

// CanOpen reports whether another position fits under MaxPositions.
func (r RiskLimits) CanOpen(pf *Portfolio) bool {
	return pf.OpenCount() < r.MaxPositions
}

// ExitReason returns the exit a position hits at price, or "" if none.
// The stop-loss is checked before the take-profit.
func ExitReason(pos model.Position, price float64) string {
	switch {
	case price <= pos.StopLossPrice:
		return model.ReasonStopLoss
	case price >= pos.TakeProfitPrice:
		return model.ReasonTakeProfit
	}
	return ""
}
