package model

import "time"

// TradeAction is the side of a ledger entry.
type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
)

// Reasons recorded on ledger entries.
const (
	ReasonSignal     = "signal"
	ReasonStopLoss   = "stop_loss"
	ReasonTakeProfit = "take_profit"
	ReasonSellSignal = "sell_signal"
	ReasonEndOfData  = "end_of_data"
)

// Trade is an immutable ledger entry. RealizedPnL is zero on buys and
// net of both legs' frictions on sells.
type Trade struct {
	Date        time.Time   `json:"date"`
	Action      TradeAction `json:"action"`
	Price       float64     `json:"price"`
	Quantity    float64     `json:"quantity"`
	RealizedPnL float64     `json:"realized_pnl"`
	Reason      string      `json:"reason"`
}
