// Package notification delivers signal alerts to external channels.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"trading-analysisv1/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert is one notification about a symbol's signal.
type Alert struct {
	Level      AlertLevel       `json:"level"`
	Symbol     string           `json:"symbol"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	Signal     model.SignalType `json:"signal"`
	Strength   model.Strength   `json:"strength"`
	Confidence float64          `json:"confidence"`
	Price      float64          `json:"price"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// SignalAlert builds the alert for sig, or reports false when the signal
// is not worth one.
func SignalAlert(symbol string, price float64, sig model.Signal) (Alert, bool) {
	if !sig.Actionable() {
		return Alert{}, false
	}
	level := AlertInfo
	if sig.Strength == model.StrengthStrong {
		level = AlertWarning
	}
	msg := fmt.Sprintf("%s at %.2f, score %.3f, confidence %.0f%%", strings.ToUpper(string(sig.Type)), price, sig.Score, sig.Confidence*100)
	if len(sig.Reasoning) > 0 {
		msg += "\n" + strings.Join(sig.Reasoning, "\n")
	}
	return Alert{
		Level:      level,
		Symbol:     symbol,
		Title:      fmt.Sprintf("%s %s %s", symbol, sig.Strength, sig.Type),
		Message:    msg,
		Signal:     sig.Type,
		Strength:   sig.Strength,
		Confidence: sig.Confidence,
		Price:      price,
	}, true
}

// LogNotifier writes alerts to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	lg := n.Logger
	if lg == nil {
		lg = slog.Default()
	}
	lg.InfoContext(ctx, "signal alert",
		"level", alert.Level,
		"symbol", alert.Symbol,
		"title", alert.Title,
		"confidence", alert.Confidence,
	)
	return nil
}
