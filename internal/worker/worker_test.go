package worker

import (
	"context"
	"testing"
	"time"

	"vn-signal-engine/internal/model"
	"vn-signal-engine/internal/signalengine"
)

type fakeSink struct {
	barClosed    int
	signalCheck  int
	signalEvents int
}

func (f *fakeSink) BarClosed(bar model.Bar)                                     { f.barClosed++ }
func (f *fakeSink) SignalCheck(symbol string, result signalengine.CheckResult) { f.signalCheck++ }
func (f *fakeSink) Signal(signal model.Signal)                                 { f.signalEvents++ }

type fakePersister struct {
	savedBars int
}

func (f *fakePersister) SaveBar(ctx context.Context, bar model.Bar) error {
	f.savedBars++
	return nil
}

func (f *fakePersister) SaveSignal(ctx context.Context, signal *model.Signal) error {
	return nil
}

func TestProcessDropsMalformedBar(t *testing.T) {
	sink := &fakeSink{}
	store := &fakePersister{}
	w := New("VNM", signalengine.DefaultConfig(), sink, store)

	badBar := model.Bar{
		Symbol: "VNM", Timeframe: "1H", Timestamp: time.Now(),
		Open: 100, High: 95, Low: 90, Close: 102, Volume: 1000, // close > high
	}

	w.process(context.Background(), badBar)

	if store.savedBars != 0 {
		t.Errorf("expected malformed bar not to be persisted, got %d saves", store.savedBars)
	}
	if sink.barClosed != 0 {
		t.Errorf("expected malformed bar not to reach the sink, got %d BarClosed calls", sink.barClosed)
	}
}

func TestProcessAcceptsWellFormedBar(t *testing.T) {
	sink := &fakeSink{}
	store := &fakePersister{}
	w := New("VNM", signalengine.DefaultConfig(), sink, store)

	goodBar := model.Bar{
		Symbol: "VNM", Timeframe: "1H", Timestamp: time.Now(),
		Open: 100, High: 105, Low: 95, Close: 102, Volume: 1000,
	}

	w.process(context.Background(), goodBar)

	if store.savedBars != 1 {
		t.Errorf("expected bar to be persisted, got %d saves", store.savedBars)
	}
	if sink.barClosed != 1 {
		t.Errorf("expected bar to reach the sink, got %d BarClosed calls", sink.barClosed)
	}
}
