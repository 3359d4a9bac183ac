package execution

import (
	"math"
	"testing"
	"time"

	"trading-analysisv1/internal/model"
)

func TestPaperFiller(t *testing.T) {
	f := NewPaperFiller(0.0005, 0.001)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	buy := f.Fill(model.ActionBuy, day, 100, 10)
	if math.Abs(buy.Price-100.05) > 1e-9 {
		t.Errorf("buy price %.6f", buy.Price)
	}
	if math.Abs(buy.Commission-1.0005) > 1e-9 {
		t.Errorf("buy commission %.6f", buy.Commission)
	}
	if math.Abs(buy.CashDelta()-(-1001.5005)) > 1e-9 {
		t.Errorf("buy cash %.6f", buy.CashDelta())
	}
	if math.Abs(f.BuyCost(100, 10)+buy.CashDelta()) > 1e-9 {
		t.Errorf("BuyCost %.6f", f.BuyCost(100, 10))
	}

	sell := f.Fill(model.ActionSell, day, 100, 10)
	if math.Abs(sell.Price-99.95) > 1e-9 {
		t.Errorf("sell price %.6f", sell.Price)
	}
	if math.Abs(sell.CashDelta()-(999.5-0.9995)) > 1e-9 {
		t.Errorf("sell cash %.6f", sell.CashDelta())
	}
	if !sell.Date.Equal(day) || sell.RefPrice != 100 {
		t.Errorf("fill metadata %+v", sell)
	}
}

func TestPaperFiller_Frictionless(t *testing.T) {
	var f Filler = PaperFiller{}
	fill := f.Fill(model.ActionSell, time.Time{}, 42, 3)
	if fill.Price != 42 || fill.Commission != 0 || fill.CashDelta() != 126 {
		t.Errorf("%+v", fill)
	}
}
