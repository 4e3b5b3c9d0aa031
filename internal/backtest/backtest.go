// Package backtest replays a historical, chronologically sorted bar
// vector through one signalengine.Engine per symbol and simulates
// fills against each signal's stop-loss and take-profit, exactly
// mirroring what C7's live pipeline would have done bar by bar.
package backtest

import (
	"math"
	"sort"
	"time"

	"vn-signal-engine/internal/logging"
	"vn-signal-engine/internal/model"
	"vn-signal-engine/internal/signalengine"
)

// Trade is a completed backtest position.
type Trade struct {
	Signal     model.Signal
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	PnL        float64
	PnLPercent float64
	ExitReason string // "SL", "TP"
}

// EquityPoint is one sample of the running equity curve.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// Result is the backtest performance report.
type Result struct {
	StartDate     time.Time
	EndDate       time.Time
	InitialCapital float64
	FinalCapital   float64

	TotalTrades   int
	WinningTrades int
	LosingTrades  int

	TotalPnL        float64
	TotalPnLPercent float64

	MaxDrawdown        float64
	MaxDrawdownPercent float64

	WinRate      float64
	ProfitFactor float64
	AverageWin   float64
	AverageLoss  float64

	Trades      []Trade
	EquityCurve []EquityPoint
}

func (r *Result) calculateMetrics() {
	if len(r.Trades) == 0 {
		return
	}
	r.TotalTrades = len(r.Trades)

	var totalWins, totalLosses float64
	for _, t := range r.Trades {
		if t.PnL > 0 {
			r.WinningTrades++
			totalWins += t.PnL
		} else {
			r.LosingTrades++
			totalLosses += -t.PnL
		}
	}

	r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades) * 100

	if totalLosses > 0 {
		r.ProfitFactor = totalWins / totalLosses
	} else {
		r.ProfitFactor = math.Inf(1)
	}

	if r.WinningTrades > 0 {
		r.AverageWin = totalWins / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AverageLoss = totalLosses / float64(r.LosingTrades)
	}
}

// Engine runs a backtest: one signalengine.Engine per symbol, at most
// one open position per symbol, fixed-percent position sizing.
type Engine struct {
	cfg                 signalengine.Config
	initialCapital      float64
	positionSizePercent float64

	capital     float64
	peakCapital float64
	maxDrawdown float64

	positions map[string]model.Signal
	trades    []Trade
	equity    []EquityPoint
}

// NewEngine builds a backtest engine. cfg is shared by every symbol's
// per-symbol signalengine.Engine instance, exactly as a live pipeline
// shares one Config across all its workers.
func NewEngine(cfg signalengine.Config, initialCapital, positionSizePercent float64) *Engine {
	return &Engine{
		cfg:                 cfg,
		initialCapital:      initialCapital,
		positionSizePercent: positionSizePercent,
		capital:             initialCapital,
		peakCapital:         initialCapital,
		positions:           make(map[string]model.Signal),
	}
}

// Run replays bars (any symbol mix, not necessarily pre-sorted) and
// returns the performance report.
func (e *Engine) Run(bars []model.Bar) Result {
	if len(bars) == 0 {
		return Result{InitialCapital: e.initialCapital, FinalCapital: e.initialCapital}
	}

	sorted := make([]model.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	engines := make(map[string]*signalengine.Engine)

	for _, bar := range sorted {
		e.checkExits(bar)

		eng, ok := engines[bar.Symbol]
		if !ok {
			eng = signalengine.New(e.cfg)
			engines[bar.Symbol] = eng
		}

		result := eng.AddBar(bar)
		if result.ShouldSignal && result.Signal != nil {
			e.openPosition(*result.Signal)
		}

		e.equity = append(e.equity, EquityPoint{Timestamp: bar.Timestamp, Equity: e.capital})
		if e.capital > e.peakCapital {
			e.peakCapital = e.capital
		}
		if e.peakCapital > 0 {
			dd := (e.peakCapital - e.capital) / e.peakCapital
			if dd > e.maxDrawdown {
				e.maxDrawdown = dd
			}
		}
	}

	result := Result{
		StartDate:          sorted[0].Timestamp,
		EndDate:            sorted[len(sorted)-1].Timestamp,
		InitialCapital:     e.initialCapital,
		FinalCapital:       e.capital,
		TotalPnL:           e.capital - e.initialCapital,
		MaxDrawdown:        e.maxDrawdown * e.initialCapital,
		MaxDrawdownPercent: e.maxDrawdown * 100,
		Trades:             e.trades,
		EquityCurve:        e.equity,
	}
	if e.initialCapital > 0 {
		result.TotalPnLPercent = (e.capital - e.initialCapital) / e.initialCapital * 100
	}
	result.calculateMetrics()
	return result
}

// checkExits tests the open position for bar.Symbol (if any) against the
// current bar in strict SL-then-TP-then-breakeven order; at most one of
// these fires per bar since an exit and a breakeven move are mutually
// exclusive.
func (e *Engine) checkExits(bar model.Bar) {
	signal, ok := e.positions[bar.Symbol]
	if !ok {
		return
	}

	var exitPrice float64
	var exitReason string

	switch {
	case bar.Low <= signal.StopLoss:
		exitPrice, exitReason = signal.StopLoss, "SL"
	case bar.High >= signal.TakeProfit:
		exitPrice, exitReason = signal.TakeProfit, "TP"
	case signal.ShouldMoveToBreakeven(bar.High):
		signal.MoveToBreakeven()
		e.positions[bar.Symbol] = signal
		return
	default:
		return
	}

	pnl := (exitPrice - signal.Entry) * signal.Quantity
	pnlPercent := (exitPrice - signal.Entry) / signal.Entry * 100

	e.trades = append(e.trades, Trade{
		Signal:     signal,
		EntryTime:  signal.Timestamp,
		ExitTime:   bar.Timestamp,
		EntryPrice: signal.Entry,
		ExitPrice:  exitPrice,
		Quantity:   signal.Quantity,
		PnL:        pnl,
		PnLPercent: pnlPercent,
		ExitReason: exitReason,
	})
	e.capital += pnl
	delete(e.positions, bar.Symbol)

	logging.BacktestContext(bar.Symbol, signal.Timestamp, bar.Timestamp).
		WithField("pnl", pnl).WithField("reason", exitReason).Debug("closed backtest position")
}

// openPosition sizes and opens a new position, skipping symbols that
// already have one open and sizes that floor to zero.
func (e *Engine) openPosition(signal model.Signal) {
	if _, exists := e.positions[signal.Symbol]; exists {
		return
	}

	positionValue := e.capital * (e.positionSizePercent / 100)
	quantity := math.Floor(positionValue / signal.Entry)
	if quantity <= 0 {
		return
	}

	signal.Quantity = quantity
	e.positions[signal.Symbol] = signal
}
