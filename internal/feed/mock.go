package feed

import (
	"context"
	"math"
	"time"

	"vn-signal-engine/internal/logging"
	"vn-signal-engine/internal/model"
)

// MockFeed synthesizes closed bars for the configured watchlist on a fixed
// tick interval. It reports connected when Subscribe is called and
// disconnected once ctx is cancelled.
type MockFeed struct {
	Timeframe string
	Interval  time.Duration
	observer  ConnectionObserver
}

// NewMockFeed builds a mock feed. observer may be nil.
func NewMockFeed(timeframe string, interval time.Duration, observer ConnectionObserver) *MockFeed {
	return &MockFeed{Timeframe: timeframe, Interval: interval, observer: observer}
}

// Subscribe starts one synthetic bar generator per symbol, all writing
// into a single shared output channel.
func (f *MockFeed) Subscribe(ctx context.Context, symbols []string) (<-chan model.Bar, error) {
	out := make(chan model.Bar, len(symbols)*4)

	if f.observer != nil {
		f.observer.OnConnectionChange(true)
	}

	for _, symbol := range symbols {
		go f.generate(ctx, symbol, out)
	}

	go func() {
		<-ctx.Done()
		if f.observer != nil {
			f.observer.OnConnectionChange(false)
		}
		close(out)
	}()

	return out, nil
}

// generate emits one bar per tick for symbol, drifting the close price with
// a deterministic sine wave so repeated runs are easy to reason about.
func (f *MockFeed) generate(ctx context.Context, symbol string, out chan<- model.Bar) {
	ticker := time.NewTicker(f.Interval)
	defer ticker.Stop()

	base := 20000.0
	var tick int

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			tick++
			drift := base * 0.01 * math.Sin(float64(tick)/5.0)
			open := base + drift
			closeP := open + base*0.002*math.Sin(float64(tick)/2.0)
			high := math.Max(open, closeP) + base*0.001
			low := math.Min(open, closeP) - base*0.001

			bar := model.Bar{
				Symbol:    symbol,
				Timeframe: f.Timeframe,
				Timestamp: t,
				Open:      scalePrice(open),
				High:      scalePrice(high),
				Low:       scalePrice(low),
				Close:     scalePrice(closeP),
				Volume:    100000,
			}

			if err := bar.Validate(); err != nil {
				logging.FeedContext("mock", symbol).WithError(err).Error("dropping malformed synthetic bar")
				continue
			}

			select {
			case out <- bar:
			case <-ctx.Done():
				return
			default:
				logging.FeedContext("mock", symbol).Warn("output channel full, dropping synthetic bar")
			}
		}
	}
}
