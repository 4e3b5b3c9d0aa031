// Package worker implements the per-symbol pipeline: one bounded inbox, one
// bar history, one signalengine.Engine instance, each owned exclusively by
// a single goroutine so SymbolState never needs a lock.
package worker

import (
	"context"

	"vn-signal-engine/internal/logging"
	"vn-signal-engine/internal/model"
	"vn-signal-engine/internal/signalengine"
)

// inboxCapacity bounds the per-symbol bar queue. The producer (market-data
// feed) drops the oldest queued bar rather than blocking when a worker falls
// behind; this is documented, not accidental.
const inboxCapacity = 32

// HistoryLimit is the number of historical bars a worker seeds from on
// startup, mirroring the reference implementation's `limit=200`.
const HistoryLimit = 200

// Sink receives the events a worker emits while processing a bar. A single
// bar always produces, in order: BarClosed, then SignalCheck, then
// optionally Signal - matching the spec's per-bar event ordering guarantee.
type Sink interface {
	BarClosed(bar model.Bar)
	SignalCheck(symbol string, result signalengine.CheckResult)
	Signal(signal model.Signal)
}

// Persister is the subset of the store a worker needs. Kept minimal so the
// worker package does not import the store package directly.
type Persister interface {
	SaveBar(ctx context.Context, bar model.Bar) error
	SaveSignal(ctx context.Context, signal *model.Signal) error
}

// Worker owns exactly one symbol's pipeline: inbox, engine, and history.
// Nothing outside this goroutine may read or mutate its state; a read-only
// snapshot is obtained via Snapshot(), never by reaching into the struct.
type Worker struct {
	symbol string
	inbox  chan model.Bar
	done   chan struct{}

	snapshotReq chan chan signalengine.CheckResult

	engine *signalengine.Engine
	sink   Sink
	store  Persister
}

// New creates a worker for symbol. Call Start to begin consuming its inbox.
func New(symbol string, cfg signalengine.Config, sink Sink, store Persister) *Worker {
	return &Worker{
		symbol:      symbol,
		inbox:       make(chan model.Bar, inboxCapacity),
		done:        make(chan struct{}),
		snapshotReq: make(chan chan signalengine.CheckResult),
		engine:      signalengine.New(cfg),
		sink:        sink,
		store:       store,
	}
}

// Seed loads historical bars (oldest first, at most HistoryLimit) before the
// worker starts consuming live bars, so pivot/MACD lag state is correct for
// the first live bar.
func (w *Worker) Seed(bars []model.Bar) {
	if len(bars) > HistoryLimit {
		bars = bars[len(bars)-HistoryLimit:]
	}
	valid := bars[:0]
	for _, bar := range bars {
		if err := bar.Validate(); err != nil {
			logging.BarContext(bar.Symbol, bar.Timeframe, bar.Timestamp).WithError(err).Error("dropping malformed bar from history")
			continue
		}
		valid = append(valid, bar)
	}
	w.engine.LoadBars(valid)
}

// Enqueue hands a closed bar to the worker. If the inbox is full the oldest
// queued bar is dropped to make room - a bounded, oldest-drop inbox per the
// producer/consumer handoff the spec calls for, never a blocking producer.
func (w *Worker) Enqueue(bar model.Bar) {
	select {
	case w.inbox <- bar:
	default:
		select {
		case <-w.inbox:
		default:
		}
		select {
		case w.inbox <- bar:
		default:
		}
	}
}

// Start runs the worker's consume loop until ctx is cancelled or Stop is
// called. It must be run in its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	log := logging.WorkerContext(w.symbol)
	log.Info("worker started")
	defer log.Info("worker stopped")

	for {
		// Check for cancellation first: a select with several ready cases
		// picks one at random and could otherwise take a queued bar after Stop.
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case bar, ok := <-w.inbox:
			if !ok {
				return
			}
			w.process(ctx, bar)
		case reply := <-w.snapshotReq:
			reply <- w.engine.Snapshot()
		}
	}
}

// Snapshot asks the worker's own goroutine to compute the current
// diagnostic state, per the rule that nothing outside a worker may read
// its SymbolState directly. Returns false if the worker has stopped.
func (w *Worker) Snapshot(ctx context.Context) (signalengine.CheckResult, bool) {
	reply := make(chan signalengine.CheckResult, 1)
	select {
	case w.snapshotReq <- reply:
	case <-w.done:
		return signalengine.CheckResult{}, false
	case <-ctx.Done():
		return signalengine.CheckResult{}, false
	}

	select {
	case result := <-reply:
		return result, true
	case <-ctx.Done():
		return signalengine.CheckResult{}, false
	}
}

// Stop cancels the worker cooperatively; any bar already dequeued finishes
// processing, but no further bars are taken from the inbox afterward.
func (w *Worker) Stop() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}

func (w *Worker) process(ctx context.Context, bar model.Bar) {
	log := logging.BarContext(bar.Symbol, bar.Timeframe, bar.Timestamp)

	if err := bar.Validate(); err != nil {
		log.WithError(err).Error("dropping malformed bar")
		return
	}

	if err := w.store.SaveBar(ctx, bar); err != nil {
		log.WithError(err).Error("failed to persist bar")
	}

	w.sink.BarClosed(bar)

	result := w.engine.AddBar(bar)
	w.sink.SignalCheck(w.symbol, result)

	if result.ShouldSignal && result.Signal != nil {
		if err := w.store.SaveSignal(ctx, result.Signal); err != nil {
			log.WithError(err).Error("failed to persist signal")
		}
		log.Info("signal generated", "entry", result.Signal.Entry, "stop_loss", result.Signal.StopLoss, "take_profit", result.Signal.TakeProfit)
		w.sink.Signal(*result.Signal)
	}
}

// ForceDemoSignal bypasses the rule engine to synthesize and persist a
// signal immediately - the test/ops hook the demo flow needs.
func (w *Worker) ForceDemoSignal(ctx context.Context) *model.Signal {
	signal := w.engine.ForceDemoSignal()
	if signal == nil {
		return nil
	}
	if err := w.store.SaveSignal(ctx, signal); err != nil {
		logging.WorkerContext(w.symbol).WithError(err).Error("failed to persist demo signal")
	}
	w.sink.Signal(*signal)
	return signal
}

// Symbol returns the symbol this worker owns.
func (w *Worker) Symbol() string { return w.symbol }
