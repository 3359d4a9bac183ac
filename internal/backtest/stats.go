package backtest

import (
	"math"

	"trading-analysisv1/internal/mathx"
)

// TradingDays annualizes per-bar statistics.
const TradingDays = 252

const minYears = 1 / 365.25

// annualize compounds total over years. Spans under a day return total.
func annualize(total, years float64) float64 {
	if years < minYears {
		return total
	}
	if total <= -1 {
		return -1
	}
	return math.Pow(1+total, 1/years) - 1
}

// sharpe is mean/population std of per-bar returns times √252, with a zero
// risk-free rate. A series without variance scores 0.
func sharpe(returns []float64) float64 {
	std := mathx.StdDev(returns)
	if std == 0 {
		return 0
	}
	return mathx.Mean(returns) / std * math.Sqrt(TradingDays)
}
