package backtest

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"trading-analysisv1/internal/model"
)

func pct(v float64) string   { return fmt.Sprintf("%.2f%%", v*100) }
func money(v float64) string { return fmt.Sprintf("%.2f", v) }

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

// Report renders a result as a summary table followed by the trade ledger.
func Report(res *model.BacktestResult) string {
	var b strings.Builder

	summary := newTable("Backtest Summary")
	summary.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	summary.AppendRows([]table.Row{
		{"Period", res.Period.Start.Format(model.DateLayout) + " to " + res.Period.End.Format(model.DateLayout)},
		{"Initial capital", money(res.InitialCapital)},
		{"Final capital", money(res.FinalCapital)},
		{"Realized P&L", money(res.RealizedPnL())},
		{"Total return", pct(res.TotalReturn)},
		{"Annualized return", pct(res.AnnualizedReturn)},
		{"Max drawdown", pct(res.MaxDrawdown)},
		{"Sharpe ratio", fmt.Sprintf("%.3f", res.SharpeRatio)},
		{"Round trips", res.TradeCount},
		{"Win rate", pct(res.WinRate)},
	})
	b.WriteString(summary.Render())
	b.WriteString("\n")

	if len(res.Trades) == 0 {
		b.WriteString("No trades.\n")
		return b.String()
	}

	trades := newTable("Trades")
	trades.AppendHeader(table.Row{"#", "Date", "Action", "Price", "Qty", "P&L", "Reason"})
	trades.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	for i, tr := range res.Trades {
		pnl := ""
		if tr.Action == model.ActionSell {
			pnl = money(tr.RealizedPnL)
		}
		trades.AppendRow(table.Row{i + 1, tr.Date.Format(model.DateLayout), strings.ToUpper(string(tr.Action)),
			money(tr.Price), fmt.Sprintf("%.0f", tr.Quantity), pnl, tr.Reason})
	}
	b.WriteString(trades.Render())
	b.WriteString("\n")
	return b.String()
}

func resultRow(name string, res *model.BacktestResult) table.Row {
	return table.Row{name, money(res.FinalCapital), pct(res.TotalReturn), pct(res.AnnualizedReturn),
		pct(res.MaxDrawdown), fmt.Sprintf("%.3f", res.SharpeRatio), res.TradeCount, pct(res.WinRate)}
}

var resultHeader = table.Row{"Name", "Final", "Return", "Annualized", "Max DD", "Sharpe", "Trades", "Win rate"}

// ComparisonReport renders side-by-side results in input order.
func ComparisonReport(rows []Comparison) string {
	t := newTable("Strategy Comparison")
	t.AppendHeader(resultHeader)
	for _, r := range rows {
		t.AppendRow(resultRow(r.Name, r.Result))
	}
	return t.Render() + "\n"
}

// OptimizationReport renders the top trials by Sharpe ratio. top <= 0 shows all.
func OptimizationReport(res *OptimizeResult, top int) string {
	trials := res.Ranked()
	if top > 0 && top < len(trials) {
		trials = trials[:top]
	}

	t := newTable(fmt.Sprintf("Optimization (%d configurations)", len(res.Trials)))
	t.AppendHeader(append(table.Row{"Size / SL / TP"}, resultHeader[1:]...))
	for _, tr := range trials {
		label := fmt.Sprintf("%s / %s / %s", pct(tr.Config.PositionSizePct), pct(tr.Config.StopLossPct), pct(tr.Config.TakeProfitPct))
		if tr.Index == res.Best.Index {
			label += " *"
		}
		t.AppendRow(resultRow(label, tr.Result))
	}
	return t.Render() + "\n"
}
