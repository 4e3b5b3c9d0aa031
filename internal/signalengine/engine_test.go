package signalengine

import (
	"math"
	"testing"
	"time"

	"vn-signal-engine/internal/model"
)

func closeEnough(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestFullBuySignal(t *testing.T) {
	var bars []model.Bar

	// Warm-up filler: ordinary bullish candles, bodies too large to be
	// classified as a reversal pattern, just building RSI/ATR history.
	for i := 0; i < 6; i++ {
		o := 80.0 + float64(i)
		bars = append(bars, model.Bar{Open: o, Close: o + 0.9, High: o + 1.0, Low: o - 0.3})
	}

	// Alternating Hammer / Shooting-Star bars with ascending pivot lows
	// (100,102,104,106) and ascending pivot highs (130,132,134,136).
	bars = append(bars,
		model.Bar{Open: 109.9, Close: 110, High: 110.1, Low: 100}, // H1 -> pivot low 100
		model.Bar{Open: 120.1, Close: 120, High: 130, Low: 119.9}, // S1 -> pivot high 130
		model.Bar{Open: 111.9, Close: 112, High: 112.1, Low: 102}, // H2 -> pivot low 102
		model.Bar{Open: 122.1, Close: 122, High: 132, Low: 121.9}, // S2 -> pivot high 132
		model.Bar{Open: 113.9, Close: 114, High: 114.1, Low: 104}, // H3 -> pivot low 104
		model.Bar{Open: 124.1, Close: 124, High: 134, Low: 123.9}, // S3 -> pivot high 134
		model.Bar{Open: 115.9, Close: 116, High: 116.1, Low: 106}, // H4 -> pivot low 106
		model.Bar{Open: 126.1, Close: 126, High: 136, Low: 125.9}, // S4 -> pivot high 136
		model.Bar{Open: 117.9, Close: 118, High: 118.1, Low: 108}, // H5 final -> pivot low 108, triggers BUY
	)

	for i := range bars {
		bars[i].Symbol = "VNM"
		bars[i].Timeframe = "1H"
		bars[i].Timestamp = time.Unix(0, 0).Add(time.Duration(i) * time.Hour)
	}

	engine := New(DefaultConfig())

	var last CheckResult
	var signalCount int
	for _, b := range bars {
		last = engine.AddBar(b)
		if last.ShouldSignal {
			signalCount++
		}
	}

	if signalCount != 1 {
		t.Fatalf("expected exactly one signal, got %d", signalCount)
	}
	if !last.ShouldSignal || last.Signal == nil {
		t.Fatal("expected the final bar to produce the signal")
	}

	sig := last.Signal
	const atr = 13.05 // mean of the 14 true ranges over the 15-bar history
	wantEntry := 118.0
	wantStopLoss := 106.0 - 0.05*atr
	wantTakeProfit := wantEntry + 2.0*(wantEntry-wantStopLoss)

	if !closeEnough(sig.Entry, wantEntry) {
		t.Errorf("entry = %v, want %v", sig.Entry, wantEntry)
	}
	if !closeEnough(sig.StopLoss, wantStopLoss) {
		t.Errorf("stopLoss = %v, want %v", sig.StopLoss, wantStopLoss)
	}
	if !closeEnough(sig.TakeProfit, wantTakeProfit) {
		t.Errorf("takeProfit = %v, want %v", sig.TakeProfit, wantTakeProfit)
	}
	if sig.Status != model.StatusActive {
		t.Errorf("status = %v, want Active", sig.Status)
	}
	if sig.StopLoss >= sig.Entry || sig.Entry >= sig.TakeProfit {
		t.Errorf("invariant violated: stopLoss < entry < takeProfit does not hold (%v, %v, %v)",
			sig.StopLoss, sig.Entry, sig.TakeProfit)
	}

	wantConditions := []string{"uptrend", "support zone", "reversal pattern", "crossover or RSI"}
	for _, want := range wantConditions {
		found := false
		for _, r := range last.Reasons {
			if containsFold(r, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected a passing reason mentioning %q, got %v", want, last.Reasons)
		}
	}
}

func containsFold(s, substr string) bool {
	sl, subl := []rune(s), []rune(substr)
	toLower := func(rs []rune) []rune {
		out := make([]rune, len(rs))
		for i, r := range rs {
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			out[i] = r
		}
		return out
	}
	sl, subl = toLower(sl), toLower(subl)
	for i := 0; i+len(subl) <= len(sl); i++ {
		match := true
		for j := range subl {
			if sl[i+j] != subl[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func TestNoSignalOnInsufficientHistory(t *testing.T) {
	engine := New(DefaultConfig())
	result := engine.AddBar(model.Bar{Symbol: "VNM", Timeframe: "1H", Timestamp: time.Unix(0, 0),
		Open: 100, High: 101, Low: 99, Close: 100.5})
	if result.ShouldSignal {
		t.Fatal("did not expect a signal from the very first bar")
	}
}

func TestViolatesStopLossInvariant(t *testing.T) {
	cases := []struct {
		name     string
		signal   model.Signal
		expected bool
	}{
		{"stop below entry is valid", model.NewSignal("VNM", model.SignalBuy, time.Unix(0, 0), 100, 95, 110, 1, ""), false},
		{"stop equal to entry is invalid", model.NewSignal("VNM", model.SignalBuy, time.Unix(0, 0), 100, 100, 110, 1, ""), true},
		{"stop above entry is invalid", model.NewSignal("VNM", model.SignalBuy, time.Unix(0, 0), 100, 105, 110, 1, ""), true},
	}
	for _, c := range cases {
		if got := violatesStopLossInvariant(c.signal); got != c.expected {
			t.Errorf("%s: violatesStopLossInvariant() = %v, want %v", c.name, got, c.expected)
		}
	}
}

func TestCreateSignalCanProduceStopLossInvariantViolation(t *testing.T) {
	engine := New(DefaultConfig())

	// A previous pivot low priced above the current bar's close drives
	// createSignal's stopLoss (prevLow - buffer*atr) to or above entry
	// (bar.Close), regardless of whether the four-condition rule passes.
	engine.pivots.LoadPivots([]model.Pivot{
		{Price: 201, Type: model.PivotLow, Timestamp: time.Unix(0, 0)},
		{Price: 200, Type: model.PivotLow, Timestamp: time.Unix(0, 1)},
	}, nil)

	bar := model.Bar{Symbol: "VNM", Timeframe: "1H", Timestamp: time.Unix(0, 2),
		Open: 99.9, High: 100.1, Low: 99, Close: 100}

	signal := engine.createSignal(bar, 1.0, model.PatternHammer, []string{"forced"})
	if !violatesStopLossInvariant(signal) {
		t.Fatalf("fixture did not reproduce the invariant violation: stopLoss=%v entry=%v", signal.StopLoss, signal.Entry)
	}
}

func TestForceDemoSignalRequiresAtLeastOneBar(t *testing.T) {
	engine := New(DefaultConfig())
	if sig := engine.ForceDemoSignal(); sig != nil {
		t.Fatal("expected nil demo signal with no bars loaded")
	}
	engine.AddBar(model.Bar{Symbol: "VNM", Timeframe: "1H", Timestamp: time.Unix(0, 0),
		Open: 100, High: 101, Low: 99, Close: 100.5})
	if sig := engine.ForceDemoSignal(); sig == nil {
		t.Fatal("expected a demo signal once a bar has been loaded")
	}
}
