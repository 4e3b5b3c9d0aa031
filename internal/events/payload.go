package events

import (
	"time"

	"vn-signal-engine/internal/model"
	"vn-signal-engine/internal/signalengine"
)

// IndicatorPayload is the `indicators` block of a signal_check event.
type IndicatorPayload struct {
	RSI        *float64 `json:"rsi"`
	MACD       *float64 `json:"macd"`
	MACDSignal *float64 `json:"macd_signal"`
	ATR        *float64 `json:"atr"`
}

// AnalysisPayload is the `analysis` block of a signal_check event.
type AnalysisPayload struct {
	PivotLows       []model.Pivot      `json:"pivot_lows"`
	PivotHighs      []model.Pivot      `json:"pivot_highs"`
	HigherLowsCount int                `json:"higher_lows_count"`
	HigherHighsCount int               `json:"higher_highs_count"`
	IsUptrend       bool               `json:"is_uptrend"`
	TrendReason     string             `json:"trend_reason"`
	SupportZone     *model.SupportZone `json:"support_zone"`
	BarLow          float64            `json:"bar_low"`
	BarHigh         float64            `json:"bar_high"`
	TotalBars       int                `json:"total_bars"`
}

// SignalCheckPayload is the full `data` object of a signal_check event, per
// the external event schema: always emitted after a bar is processed,
// whether or not the rule fired.
type SignalCheckPayload struct {
	Symbol           string            `json:"symbol"`
	Bar              model.Bar         `json:"bar"`
	ConditionsPassed int               `json:"conditions_passed"`
	TotalConditions  int               `json:"total_conditions"`
	Passed           []string          `json:"passed"`
	Failed           []string          `json:"failed"`
	Indicators       IndicatorPayload  `json:"indicators"`
	Analysis         AnalysisPayload   `json:"analysis"`
	Timestamp        time.Time         `json:"timestamp"`
}

// BuildSignalCheckPayload assembles the wire payload from a rule evaluation
// result. It is always buildable, even when the result stopped early for
// insufficient data, so a signal_check event can be emitted unconditionally.
func BuildSignalCheckPayload(symbol string, result signalengine.CheckResult) SignalCheckPayload {
	return SignalCheckPayload{
		Symbol:           symbol,
		Bar:              result.Bar,
		ConditionsPassed: len(result.Reasons),
		TotalConditions:  4,
		Passed:           result.Reasons,
		Failed:           result.FailedConditions,
		Indicators: IndicatorPayload{
			RSI:        result.Indicators.RSI,
			MACD:       result.Indicators.MACDLine,
			MACDSignal: result.Indicators.MACDSignal,
			ATR:        result.Indicators.ATR,
		},
		Analysis: AnalysisPayload{
			PivotLows:        result.PivotLows,
			PivotHighs:       result.PivotHighs,
			HigherLowsCount:  result.Trend.HigherLowsCount,
			HigherHighsCount: result.Trend.HigherHighsCount,
			IsUptrend:        result.Trend.IsUptrend,
			TrendReason:      result.Trend.Reason,
			SupportZone:      result.SupportZone,
			BarLow:           result.Bar.Low,
			BarHigh:          result.Bar.High,
			TotalBars:        result.TotalBars,
		},
		Timestamp: time.Now(),
	}
}
