package model

// IndicatorSnapshot holds the indicator values computed for the most recent
// bar of a symbol. Any field may be nil while its warm-up period has not
// yet elapsed; callers must treat a nil field as "undefined", never as zero.
type IndicatorSnapshot struct {
	RSI            *float64
	MACDLine       *float64
	MACDSignal     *float64
	MACDHistogram  *float64
	ATR            *float64
}

// RSIAbove50 reports whether RSI is defined and above the neutral midpoint.
func (s IndicatorSnapshot) RSIAbove50() bool {
	return s.RSI != nil && *s.RSI > 50
}

// MACDDefined reports whether both MACD line and signal are available.
func (s IndicatorSnapshot) MACDDefined() bool {
	return s.MACDLine != nil && s.MACDSignal != nil
}
