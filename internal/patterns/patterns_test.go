package patterns

import (
	"testing"
	"time"

	"vn-signal-engine/internal/model"
)

func bar(open, high, low, close float64) model.Bar {
	return model.Bar{Symbol: "VNM", Timeframe: "1H", Timestamp: time.Unix(0, 0), Open: open, High: high, Low: low, Close: close}
}

func TestIsHammer(t *testing.T) {
	// Small body near the top, long lower shadow, little upper shadow
	h := bar(100, 101, 90, 100.5)
	if !IsHammer(h) {
		t.Error("expected hammer pattern to be detected")
	}

	notHammer := bar(100, 120, 99, 119)
	if IsHammer(notHammer) {
		t.Error("did not expect hammer pattern")
	}
}

func TestIsShootingStar(t *testing.T) {
	s := bar(100, 110, 99.6, 99.8)
	if !IsShootingStar(s) {
		t.Error("expected shooting star pattern to be detected")
	}
}

func TestIsBullishEngulfing(t *testing.T) {
	prev := bar(100, 102, 98, 99)   // bearish
	cur := bar(98, 105, 97, 104)    // bullish, engulfs prev's body
	if !IsBullishEngulfing(cur, prev) {
		t.Error("expected bullish engulfing pattern")
	}

	prevNotBearish := bar(99, 102, 98, 100)
	if IsBullishEngulfing(cur, prevNotBearish) {
		t.Error("did not expect pattern when previous candle is not bearish")
	}
}

func TestIsBearishEngulfing(t *testing.T) {
	prev := bar(99, 102, 98, 100) // bullish
	cur := bar(101, 103, 95, 96)  // bearish, engulfs prev's body
	if !IsBearishEngulfing(cur, prev) {
		t.Error("expected bearish engulfing pattern")
	}
}

func TestDetectBullishReversalPrefersHammer(t *testing.T) {
	// The last bar is a Hammer and also engulfs the previous bearish body.
	bars := []model.Bar{
		bar(100.4, 100.6, 99.9, 100.1),
		bar(100, 101, 90, 100.5),
	}
	if !IsBullishEngulfing(bars[1], bars[0]) {
		t.Fatal("fixture should also qualify as bullish engulfing")
	}
	if got := DetectBullishReversal(bars); got != model.PatternHammer {
		t.Errorf("expected hammer, got %v", got)
	}
}

func TestDetectBullishReversalFallsBackToEngulfing(t *testing.T) {
	bars := []model.Bar{
		bar(100, 102, 98, 99),
		bar(98, 105, 97, 104),
	}
	if got := DetectBullishReversal(bars); got != model.PatternBullishEngulfing {
		t.Errorf("expected bullish engulfing, got %v", got)
	}
}

func TestIsHammerLiteral(t *testing.T) {
	if !IsHammer(bar(100, 101, 95, 100.5)) {
		t.Error("expected (100,101,95,100.5) to be a hammer")
	}
	if IsHammer(bar(100, 102, 99.5, 100.5)) {
		t.Error("did not expect (100,102,99.5,100.5) to be a hammer")
	}
}

func TestIsBullishEngulfingLiteral(t *testing.T) {
	prev := bar(102, 103, 100, 100.5)
	cur := bar(99, 104, 98, 103)
	if !IsBullishEngulfing(cur, prev) {
		t.Error("expected engulfing to be detected")
	}

	prevBullish := bar(100, 103, 99, 102)
	if IsBullishEngulfing(cur, prevBullish) {
		t.Error("did not expect detection when previous candle is bullish")
	}
}

func TestDetectBullishReversalNone(t *testing.T) {
	bars := []model.Bar{
		bar(100, 101, 99, 100.5),
		bar(100.5, 101, 100, 100.8),
	}
	if got := DetectBullishReversal(bars); got != model.PatternNone {
		t.Errorf("expected no pattern, got %v", got)
	}
}
