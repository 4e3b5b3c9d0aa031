// Package signalengine implements the composite BUY rule and the
// persistent per-symbol state (bar history, pivots, trend, MACD lag) needed
// to evaluate it bar by bar.
package signalengine

import (
	"strings"

	"vn-signal-engine/internal/indicators"
	"vn-signal-engine/internal/logging"
	"vn-signal-engine/internal/model"
	"vn-signal-engine/internal/patterns"
	"vn-signal-engine/internal/pivot"
	"vn-signal-engine/internal/trend"
)

// Config holds the tunable thresholds for one engine instance, one per
// symbol, all seeded from the process configuration.
type Config struct {
	ZoneWidthATRMultiplier float64
	SLBufferATRMultiplier  float64
	RiskRewardRatio        float64
	DefaultQuantity        float64
	RSIPeriod              int
	MACDFast               int
	MACDSlow               int
	MACDSignal             int
	ATRPeriod              int
}

// DefaultConfig returns the reference defaults.
func DefaultConfig() Config {
	return Config{
		ZoneWidthATRMultiplier: 0.2,
		SLBufferATRMultiplier:  0.05,
		RiskRewardRatio:        2.0,
		DefaultQuantity:        1,
		RSIPeriod:              14,
		MACDFast:               12,
		MACDSlow:               26,
		MACDSignal:             9,
		ATRPeriod:              14,
	}
}

// CheckResult is the outcome of evaluating the rule for the latest bar. It
// always carries the full diagnostic snapshot the signal_check event needs,
// regardless of whether a signal fired.
type CheckResult struct {
	ShouldSignal     bool
	Signal           *model.Signal
	Reasons          []string
	FailedConditions []string

	Bar         model.Bar
	Indicators  model.IndicatorSnapshot
	Trend       trend.Result
	SupportZone *model.SupportZone
	PivotLows   []model.Pivot
	PivotHighs  []model.Pivot
	TotalBars   int
}

// Engine tracks one symbol's bar history and evaluates the composite BUY
// rule after each new bar. It is not safe for concurrent use; the owning
// worker is the single writer.
type Engine struct {
	cfg          Config
	bars         []model.Bar
	pivots       *pivot.Detector
	previousMACD *indicators.MACDResult
}

// New creates an engine for one symbol.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:    cfg,
		pivots: pivot.NewDetector(),
	}
}

// LoadBars seeds the engine from historical bars, replaying each one
// through pivot detection so MACD lag bookkeeping resumes correctly for the
// first live bar.
func (e *Engine) LoadBars(bars []model.Bar) {
	e.bars = nil
	e.pivots.Clear()
	e.previousMACD = nil
	for i, b := range bars {
		e.bars = append(e.bars, b)
		e.pivots.ProcessBar(e.bars, i)
	}
	if len(bars) > 0 {
		e.previousMACD = indicators.CalculateMACD(closesOf(bars), e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal)
	}
}

func closesOf(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// AddBar appends a bar, runs pivot detection, evaluates the rule, then
// rolls the MACD lag state forward for the next call.
func (e *Engine) AddBar(bar model.Bar) CheckResult {
	e.bars = append(e.bars, bar)
	barIndex := len(e.bars) - 1
	e.pivots.ProcessBar(e.bars, barIndex)

	result := e.checkSignal()

	e.previousMACD = indicators.CalculateMACD(closesOf(e.bars), e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal)

	return result
}

func (e *Engine) checkSignal() CheckResult {
	base := CheckResult{
		PivotLows:  e.pivots.RecentLows(5),
		PivotHighs: e.pivots.RecentHighs(5),
		TotalBars:  len(e.bars),
	}
	if len(e.bars) > 0 {
		base.Bar = e.bars[len(e.bars)-1]
	}

	if len(e.bars) < 2 {
		base.FailedConditions = []string{"Insufficient data"}
		return base
	}

	snap := indicators.Snapshot(e.bars, e.cfg.RSIPeriod, e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal, e.cfg.ATRPeriod)
	base.Indicators = snap
	base.Trend = trend.Analyze(e.pivots.PivotLows(), e.pivots.PivotHighs())

	if snap.ATR == nil {
		base.FailedConditions = []string{"ATR not available (need more data)"}
		return base
	}

	currentBar := e.bars[len(e.bars)-1]
	var reasons []string
	var failed []string

	// Condition 1: uptrend
	trendResult := base.Trend
	if trendResult.IsUptrend {
		reasons = append(reasons, trendResult.Reason)
	} else {
		failed = append(failed, trendResult.Reason)
	}

	// Condition 2: price inside the support zone anchored to the last pivot low
	zone := e.supportZone(*snap.ATR)
	base.SupportZone = zone
	if zone != nil && zone.ContainsPrice(currentBar.Low, currentBar.High) {
		reasons = append(reasons, "Price in support zone")
	} else {
		failed = append(failed, "Price not in support zone")
	}

	// Condition 3: a fresh bullish reversal pattern
	pattern := patterns.DetectBullishReversal(e.bars)
	if pattern != model.PatternNone {
		reasons = append(reasons, "Bullish reversal pattern: "+string(pattern))
	} else {
		failed = append(failed, "No bullish reversal pattern")
	}

	// Condition 4: MACD bullish crossover or RSI already above 50
	currentMACD := indicators.CalculateMACD(closesOf(e.bars), e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal)
	crossover := indicators.CheckMACDCrossover(currentMACD, e.previousMACD)
	if crossover || snap.RSIAbove50() {
		reasons = append(reasons, "MACD crossover or RSI confirmation")
	} else {
		failed = append(failed, "No MACD crossover and RSI <= 50")
	}

	base.Reasons = reasons
	base.FailedConditions = failed

	allPassed := len(failed) == 0 && len(reasons) >= 4
	if !allPassed {
		return base
	}

	signal := e.createSignal(currentBar, *snap.ATR, pattern, reasons)
	if violatesStopLossInvariant(signal) {
		logging.SignalContext(signal.Symbol, string(signal.Type), signal.Entry).
			WithField("stop_loss", signal.StopLoss).
			Error("signal invariant violation: stop loss >= entry, suppressing signal")
		return base
	}

	base.ShouldSignal = true
	base.Signal = &signal
	return base
}

// supportZone builds the zone from the most recent pivot low, widened by
// zoneWidthATRMultiplier * atr on each side. Returns nil if there is no
// pivot low yet.
func (e *Engine) supportZone(atr float64) *model.SupportZone {
	last := e.pivots.LastLow()
	if last == nil {
		return nil
	}
	width := e.cfg.ZoneWidthATRMultiplier * atr
	return &model.SupportZone{
		Pivot:    *last,
		ZoneLow:  last.Price - width,
		ZoneHigh: last.Price + width,
	}
}

// createSignal places the stop loss at the previous pivot low (one pivot
// behind the zone's anchor), falling back to the current bar's low when
// fewer than two pivot lows exist.
func (e *Engine) createSignal(bar model.Bar, atr float64, pattern model.CandlePattern, reasons []string) model.Signal {
	entry := bar.Close

	var stopLoss float64
	if prev := e.pivots.PreviousLow(); prev != nil {
		stopLoss = prev.Price - e.cfg.SLBufferATRMultiplier*atr
	} else {
		stopLoss = bar.Low - e.cfg.SLBufferATRMultiplier*atr
	}

	risk := entry - stopLoss
	takeProfit := entry + e.cfg.RiskRewardRatio*risk

	return model.NewSignal(bar.Symbol, model.SignalBuy, bar.Timestamp, entry, stopLoss, takeProfit,
		e.cfg.DefaultQuantity, strings.Join(reasons, "\n"))
}

// violatesStopLossInvariant reports a BUY signal priced so its stop loss
// has drifted to or above its entry - a malformed signal that must never
// reach persistence or broadcast.
func violatesStopLossInvariant(signal model.Signal) bool {
	return signal.StopLoss >= signal.Entry
}

// ForceDemoSignal synthesizes a signal directly from the latest bar,
// bypassing the four-condition rule. Intended as a test/ops hook to verify
// the downstream signal_check -> persistence -> broadcast path without
// waiting for real market conditions to satisfy the rule.
func (e *Engine) ForceDemoSignal() *model.Signal {
	if len(e.bars) == 0 {
		return nil
	}
	bar := e.bars[len(e.bars)-1]
	atr := e.cfg.SLBufferATRMultiplier * bar.Close * 0.01
	if snap := indicators.CalculateATR(e.bars, e.cfg.ATRPeriod); snap != nil {
		atr = *snap
	}
	signal := e.createSignal(bar, atr, model.PatternNone, []string{"Demo signal (test hook)"})
	signal.Reason = "Demo signal (test hook)"
	return &signal
}

// PivotDetector exposes the underlying detector for callers (e.g. worker
// state snapshots) that need direct access to pivot history.
func (e *Engine) PivotDetector() *pivot.Detector { return e.pivots }

// Snapshot recomputes the current diagnostic state without mutating the
// engine - the read-only view the indicators REST endpoint needs. Unlike
// AddBar it does not roll previousMACD forward.
func (e *Engine) Snapshot() CheckResult {
	return e.checkSignal()
}

// Reset clears all accumulated state.
func (e *Engine) Reset() {
	e.bars = nil
	e.pivots.Clear()
	e.previousMACD = nil
}
