// Package notify pushes fired signals out-of-band. Real chat-provider
// integrations (Telegram, Discord) are external collaborators accessed
// only through this interface, per the system's scope boundary; only a
// log-only implementation is built here.
package notify

import (
	"context"

	"vn-signal-engine/internal/logging"
	"vn-signal-engine/internal/model"
)

// Notifier pushes a fired signal out-of-band.
type Notifier interface {
	Notify(ctx context.Context, signal model.Signal) error
}

// LogNotifier records every signal through the ambient logging stack. It
// is always available and never fails.
type LogNotifier struct{}

// NewLogNotifier builds the default notifier.
func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

// Notify logs the signal at info level.
func (n *LogNotifier) Notify(ctx context.Context, signal model.Signal) error {
	logging.SignalContext(signal.Symbol, string(signal.Type), signal.Entry).
		WithField("stop_loss", signal.StopLoss).
		WithField("take_profit", signal.TakeProfit).
		WithField("reason", signal.Reason).
		Info("signal fired")
	return nil
}

// GatedNotifier wraps a Notifier and only forwards when AUTO_TRADE_ENABLED
// is set, reinstating the reference system's auto-trade gate: when
// disabled the core still computes and persists signals, it just does not
// push them out-of-band.
type GatedNotifier struct {
	inner   Notifier
	enabled bool
}

// NewGatedNotifier wraps inner, gating delivery on enabled.
func NewGatedNotifier(inner Notifier, enabled bool) *GatedNotifier {
	return &GatedNotifier{inner: inner, enabled: enabled}
}

// Notify forwards to inner only when gating allows it.
func (g *GatedNotifier) Notify(ctx context.Context, signal model.Signal) error {
	if !g.enabled {
		return nil
	}
	return g.inner.Notify(ctx, signal)
}
