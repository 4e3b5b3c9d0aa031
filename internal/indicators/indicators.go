// Package indicators computes RSI, MACD and ATR from a bar series. Values
// are reported as *float64 so "undefined during warm-up" can be
// distinguished from a genuine zero.
package indicators

import "vn-signal-engine/internal/model"

func closes(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// CalculateRSI computes the Wilder-smoothed RSI over period, seeded with a
// simple average of the first period gains/losses. Returns nil if there are
// fewer than period+1 closes.
func CalculateRSI(closePrices []float64, period int) *float64 {
	if len(closePrices) < period+1 {
		return nil
	}

	gains := make([]float64, 0, len(closePrices)-1)
	losses := make([]float64, 0, len(closePrices)-1)
	for i := 1; i < len(closePrices); i++ {
		delta := closePrices[i] - closePrices[i-1]
		if delta > 0 {
			gains = append(gains, delta)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -delta)
		}
	}

	avgGain := mean(gains[:period])
	avgLoss := mean(losses[:period])

	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
	}

	var rsi float64
	if avgLoss == 0 {
		rsi = 100.0
	} else {
		rsi = 100 - 100/(1+avgGain/avgLoss)
	}
	rsi = roundTo(rsi, 2)
	return &rsi
}

// CalculateEMA returns the exponential moving average series over period,
// seeded with a simple average of the first period values. Returns an empty
// slice if there is not enough data.
func CalculateEMA(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	multiplier := 2.0 / float64(period+1)
	ema := make([]float64, 0, len(values)-period+1)
	ema = append(ema, mean(values[:period]))
	for i := period; i < len(values); i++ {
		next := values[i]*multiplier + ema[len(ema)-1]*(1-multiplier)
		ema = append(ema, next)
	}
	return ema
}

// MACDResult holds the line/signal/histogram values, already scaled down by
// 1000 the way the reference implementation displays them.
type MACDResult struct {
	MACDLine  float64
	Signal    float64
	Histogram float64
}

// CalculateMACD computes the true EMA-of-EMA-difference MACD signal line,
// not a shortcut approximation. Returns nil when there isn't enough data
// for the slow EMA plus the signal EMA.
func CalculateMACD(closePrices []float64, fast, slow, signal int) *MACDResult {
	if len(closePrices) < slow+signal {
		return nil
	}

	fastEMA := CalculateEMA(closePrices, fast)
	slowEMA := CalculateEMA(closePrices, slow)
	if len(fastEMA) == 0 || len(slowEMA) == 0 {
		return nil
	}

	offset := slow - fast
	macdLineValues := make([]float64, len(slowEMA))
	for i := range slowEMA {
		macdLineValues[i] = fastEMA[i+offset] - slowEMA[i]
	}

	if len(macdLineValues) < signal {
		return nil
	}

	signalEMA := CalculateEMA(macdLineValues, signal)
	if len(signalEMA) == 0 {
		return nil
	}

	macdLine := macdLineValues[len(macdLineValues)-1]
	signalLine := signalEMA[len(signalEMA)-1]
	histogram := macdLine - signalLine

	// Normalize to thousands, matching how the indicator is displayed.
	return &MACDResult{
		MACDLine:  macdLine / 1000,
		Signal:    signalLine / 1000,
		Histogram: histogram / 1000,
	}
}

// CheckMACDCrossover reports whether current crossed above signal between
// the previous and current reading. Either argument being nil (warm-up)
// means no crossover.
func CheckMACDCrossover(current, previous *MACDResult) bool {
	if current == nil || previous == nil {
		return false
	}
	return previous.MACDLine <= previous.Signal && current.MACDLine > current.Signal
}

func trueRanges(bars []model.Bar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	trs := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		high, low, prevClose := bars[i].High, bars[i].Low, bars[i-1].Close
		tr := high - low
		if d := absf(high - prevClose); d > tr {
			tr = d
		}
		if d := absf(low - prevClose); d > tr {
			tr = d
		}
		trs = append(trs, tr)
	}
	return trs
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// CalculateATR returns the simple mean of the last period true ranges. This
// is the single-value convention used by the signal engine, in live runs and
// in the backtester alike; CalculateATRSeries is the Wilder-smoothed series
// after an SMA seed. The two are not interchangeable.
func CalculateATR(bars []model.Bar, period int) *float64 {
	if len(bars) < period+1 {
		return nil
	}
	trs := trueRanges(bars)
	atr := mean(trs[len(trs)-period:])
	return &atr
}

// CalculateATRSeries returns the ATR series from the end of warm-up onward:
// element i holds the ATR as of bars[period+i], so the slice has
// len(bars)-period elements. Returns nil with fewer than period+1 bars.
func CalculateATRSeries(bars []model.Bar, period int) []float64 {
	if len(bars) < period+1 {
		return nil
	}
	trs := trueRanges(bars)
	series := make([]float64, len(trs)-period+1)
	series[0] = mean(trs[:period])
	for i := 1; i < len(series); i++ {
		series[i] = (series[i-1]*float64(period-1) + trs[period+i-1]) / float64(period)
	}
	return series
}

func roundTo(v float64, places int) float64 {
	scale := 1.0
	for i := 0; i < places; i++ {
		scale *= 10
	}
	return float64(int64(v*scale+sign(v)*0.5)) / scale
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// Snapshot computes the full IndicatorSnapshot for the given bars using the
// configured periods. Any indicator still in warm-up is left nil.
func Snapshot(bars []model.Bar, rsiPeriod, macdFast, macdSlow, macdSignal, atrPeriod int) model.IndicatorSnapshot {
	cls := closes(bars)
	snap := model.IndicatorSnapshot{
		RSI: CalculateRSI(cls, rsiPeriod),
		ATR: CalculateATR(bars, atrPeriod),
	}
	if macd := CalculateMACD(cls, macdFast, macdSlow, macdSignal); macd != nil {
		snap.MACDLine = &macd.MACDLine
		snap.MACDSignal = &macd.Signal
		snap.MACDHistogram = &macd.Histogram
	}
	return snap
}
