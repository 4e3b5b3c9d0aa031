package metrics

import (
	"context"

	"vn-signal-engine/internal/events"
	"vn-signal-engine/internal/model"
	"vn-signal-engine/internal/notify"
	"vn-signal-engine/internal/signalengine"
)

// InstrumentedSink wraps an events.Bus-backed sink so every bar and signal
// that flows through a worker also increments the matching counter and, for
// fired signals, reaches the out-of-band notifier.
type InstrumentedSink struct {
	bus      *events.Bus
	reg      *Registry
	notifier notify.Notifier
}

// NewInstrumentedSink builds a worker.Sink that forwards to bus, records
// metrics against reg, and pushes fired signals through notifier.
func NewInstrumentedSink(bus *events.Bus, reg *Registry, notifier notify.Notifier) *InstrumentedSink {
	return &InstrumentedSink{bus: bus, reg: reg, notifier: notifier}
}

// BarClosed forwards the bar event and increments the per-symbol counter.
func (s *InstrumentedSink) BarClosed(bar model.Bar) {
	s.reg.BarsProcessed.WithLabelValues(bar.Symbol).Inc()
	s.bus.PublishBarClosed(bar)
}

// SignalCheck forwards the analysis snapshot unchanged; it is not counted,
// only signals that actually fire are.
func (s *InstrumentedSink) SignalCheck(symbol string, result signalengine.CheckResult) {
	s.bus.PublishSignalCheck(symbol, events.BuildSignalCheckPayload(symbol, result))
}

// Signal forwards the signal event, increments the per-symbol counter, and
// pushes the signal to the out-of-band notifier. Notifier delivery is
// fire-and-forget relative to the worker goroutine that produced the
// signal; a notifier failure is logged by the notifier itself and never
// blocks bar processing.
func (s *InstrumentedSink) Signal(signal model.Signal) {
	s.reg.SignalsEmitted.WithLabelValues(signal.Symbol).Inc()
	s.bus.PublishSignal(signal)
	if s.notifier != nil {
		go func() { _ = s.notifier.Notify(context.Background(), signal) }()
	}
}
