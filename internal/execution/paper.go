package execution

import (
	"time"

	"trading-analysisv1/internal/model"
)

// PaperFiller fills every order in full at the reference price moved
// against the trader by SlippagePct, and charges CommissionPct of the
// filled notional on both sides.
type PaperFiller struct {
	SlippagePct   float64
	CommissionPct float64
}

// NewPaperFiller creates a paper filler with the given frictions.
func NewPaperFiller(slippagePct, commissionPct float64) PaperFiller {
	return PaperFiller{SlippagePct: slippagePct, CommissionPct: commissionPct}
}

func (p PaperFiller) Fill(side model.TradeAction, date time.Time, price, qty float64) Fill {
	fillPrice := price * (1 + p.SlippagePct) // buy higher
	if side == model.ActionSell {
		fillPrice = price * (1 - p.SlippagePct) // sell lower
	}
	return Fill{
		Date:       date,
		Side:       side,
		RefPrice:   price,
		Price:      fillPrice,
		Quantity:   qty,
		Commission: fillPrice * qty * p.CommissionPct,
	}
}

// BuyCost is the cash a buy of qty at price would consume.
func (p PaperFiller) BuyCost(price, qty float64) float64 {
	return -p.Fill(model.ActionBuy, time.Time{}, price, qty).CashDelta()
}
