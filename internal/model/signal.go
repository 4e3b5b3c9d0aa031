package model

import "time"

// SignalType is the direction of a generated trading signal. The rule
// engine only ever produces BUY signals; SELL is reserved for symmetry and
// manual/demo signal creation.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
)

// SignalStatus tracks a signal's lifecycle after it is created.
type SignalStatus string

const (
	StatusActive     SignalStatus = "ACTIVE"
	StatusTPHit      SignalStatus = "TP_HIT"
	StatusSLHit      SignalStatus = "SL_HIT"
	StatusCancelled  SignalStatus = "CANCELLED"
	StatusBreakeven  SignalStatus = "BREAKEVEN"
)

// Signal is a single trade idea produced by the rule engine (or the demo
// hook), complete with risk management levels.
type Signal struct {
	ID         int64        `json:"id,omitempty"`
	Symbol     string       `json:"symbol"`
	Type       SignalType   `json:"signal_type"`
	Timestamp  time.Time    `json:"timestamp"`
	Entry      float64      `json:"entry"`
	StopLoss   float64      `json:"stop_loss"`
	TakeProfit float64      `json:"take_profit"`
	Quantity   float64      `json:"quantity"`
	Status     SignalStatus `json:"status"`
	Reason     string       `json:"reason"`
	OriginalSL float64      `json:"original_sl"`
}

// NewSignal builds a Signal with OriginalSL seeded from StopLoss, matching
// the reference implementation's post-init defaulting.
func NewSignal(symbol string, typ SignalType, ts time.Time, entry, stopLoss, takeProfit, quantity float64, reason string) Signal {
	return Signal{
		Symbol:     symbol,
		Type:       typ,
		Timestamp:  ts,
		Entry:      entry,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Quantity:   quantity,
		Status:     StatusActive,
		Reason:     reason,
		OriginalSL: stopLoss,
	}
}

// Risk is the distance between entry and stop loss.
func (s Signal) Risk() float64 { return s.Entry - s.StopLoss }

// Reward is the distance between take profit and entry.
func (s Signal) Reward() float64 { return s.TakeProfit - s.Entry }

// RiskRewardRatio is Reward/Risk, or zero when risk is zero.
func (s Signal) RiskRewardRatio() float64 {
	risk := s.Risk()
	if risk == 0 {
		return 0
	}
	return s.Reward() / risk
}

// BreakevenPrice is the price at which the stop should move to entry.
func (s Signal) BreakevenPrice() float64 { return s.Entry + s.Risk() }

// ShouldMoveToBreakeven reports whether the current high has reached the
// breakeven trigger and the stop has not already moved there.
func (s Signal) ShouldMoveToBreakeven(currentPrice float64) bool {
	if s.Status != StatusActive {
		return false
	}
	if s.StopLoss >= s.Entry {
		return false
	}
	return currentPrice >= s.BreakevenPrice()
}

// MoveToBreakeven advances the stop to entry and marks the signal as such.
func (s *Signal) MoveToBreakeven() {
	s.StopLoss = s.Entry
	s.Status = StatusBreakeven
}
