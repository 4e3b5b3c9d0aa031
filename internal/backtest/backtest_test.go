package backtest

import (
	"math"
	"testing"
	"time"

	"vn-signal-engine/internal/model"
	"vn-signal-engine/internal/signalengine"
)

func TestRunEmptyBarsReturnsInitialCapital(t *testing.T) {
	e := NewEngine(signalengine.DefaultConfig(), 1_000_000, 10)
	result := e.Run(nil)

	if result.FinalCapital != 1_000_000 {
		t.Fatalf("expected final capital to equal initial capital, got %v", result.FinalCapital)
	}
	if result.TotalTrades != 0 {
		t.Fatalf("expected no trades, got %d", result.TotalTrades)
	}
}

func TestStopLossExitBeforeTakeProfit(t *testing.T) {
	e := NewEngine(signalengine.DefaultConfig(), 1_000_000, 10)
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	signal := model.NewSignal("VNM", model.SignalBuy, base, 100, 90, 120, 10, "test")
	e.positions["VNM"] = signal

	// The bar reaches both the stop loss (90) and the take profit (120).
	slBar := model.Bar{Symbol: "VNM", Timeframe: "1H", Timestamp: base.Add(time.Hour), Open: 95, High: 125, Low: 85, Close: 90}
	e.checkExits(slBar)

	if len(e.trades) != 1 {
		t.Fatalf("expected one trade after SL hit, got %d", len(e.trades))
	}
	if e.trades[0].ExitReason != "SL" {
		t.Fatalf("expected SL exit, got %s", e.trades[0].ExitReason)
	}
	if _, stillOpen := e.positions["VNM"]; stillOpen {
		t.Fatal("position should be closed after SL exit")
	}
}

func TestProfitFactorInfiniteWithNoLosses(t *testing.T) {
	result := Result{
		Trades: []Trade{
			{PnL: 100}, {PnL: 200},
		},
	}
	result.calculateMetrics()

	if !math.IsInf(result.ProfitFactor, 1) {
		t.Fatalf("expected +Inf profit factor with no losses, got %v", result.ProfitFactor)
	}
	if result.WinningTrades != 2 || result.LosingTrades != 0 {
		t.Fatalf("unexpected win/loss split: %+v", result)
	}
}

func TestPositionSizingFloorsToZeroSkipsOpen(t *testing.T) {
	e := NewEngine(signalengine.DefaultConfig(), 100, 10)
	signal := model.NewSignal("VNM", model.SignalBuy, time.Now(), 50000, 49000, 52000, 0, "test")

	e.openPosition(signal)

	if _, open := e.positions["VNM"]; open {
		t.Fatal("a position sized to zero quantity must not open")
	}
}
