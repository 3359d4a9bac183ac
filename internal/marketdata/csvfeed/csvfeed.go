// Package csvfeed reads daily OHLCV bars from CSV files and loads them
// into a bar store.
package csvfeed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"trading-analysisv1/internal/model"
)

var dateLayouts = []string{
	model.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"20060102",
}

// columns maps required fields to header indexes.
type columns struct {
	date, open, high, low, close, volume int
}

func headerIndex(header []string) (columns, error) {
	cols := columns{-1, -1, -1, -1, -1, -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date", "time", "timestamp":
			cols.date = i
		case "open":
			cols.open = i
		case "high":
			cols.high = i
		case "low":
			cols.low = i
		case "close":
			cols.close = i
		case "volume", "vol":
			cols.volume = i
		}
	}
	for name, idx := range map[string]int{"date": cols.date, "open": cols.open, "high": cols.high, "low": cols.low, "close": cols.close} {
		if idx < 0 {
			return cols, model.Invalid("csv", "missing %s column", name)
		}
	}
	return cols, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Read parses a CSV with a header row naming date, open, high, low, close
// and optionally volume, in any order. Bars are returned oldest first;
// duplicate dates and invalid bars are rejected.
func Read(r io.Reader) ([]model.PriceBar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, model.Invalid("csv", "empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	cols, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	var bars []model.PriceBar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		b, err := parseRecord(rec, cols)
		if err != nil {
			return nil, model.Invalid("csv", "line %d: %v", line, err)
		}
		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	if err := model.ValidateSeries(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func parseRecord(rec []string, cols columns) (model.PriceBar, error) {
	field := func(idx int) (string, error) {
		if idx >= len(rec) {
			return "", fmt.Errorf("expected at least %d fields, got %d", idx+1, len(rec))
		}
		return strings.TrimSpace(rec[idx]), nil
	}
	num := func(idx int) (float64, error) {
		s, err := field(idx)
		if err != nil {
			return 0, err
		}
		return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	}

	var b model.PriceBar
	ds, err := field(cols.date)
	if err != nil {
		return b, err
	}
	if b.Date, err = parseDate(ds); err != nil {
		return b, err
	}
	for _, f := range []struct {
		idx int
		dst *float64
	}{{cols.open, &b.Open}, {cols.high, &b.High}, {cols.low, &b.Low}, {cols.close, &b.Close}} {
		if *f.dst, err = num(f.idx); err != nil {
			return b, err
		}
	}
	if cols.volume >= 0 {
		if s, _ := field(cols.volume); s != "" {
			if b.Volume, err = num(cols.volume); err != nil {
				return b, err
			}
		}
	}
	return b, nil
}

// ReadFile reads bars from the CSV at path.
func ReadFile(path string) ([]model.PriceBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// Import reads the CSV at path and writes its bars for symbol.
func Import(ctx context.Context, w model.BarWriter, symbol, path string) (int, error) {
	bars, err := ReadFile(path)
	if err != nil {
		return 0, err
	}
	if err := w.WriteBars(ctx, symbol, bars); err != nil {
		return 0, fmt.Errorf("import %s: %w", symbol, err)
	}
	if len(bars) > 0 {
		log.Printf("[csvfeed] imported %d %s bars (%s .. %s)", len(bars), symbol,
			bars[0].Date.Format(model.DateLayout), bars[len(bars)-1].Date.Format(model.DateLayout))
	}
	return len(bars), nil
}
