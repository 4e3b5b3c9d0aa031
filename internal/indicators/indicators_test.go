package indicators

import "testing"

func closesStep(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestCalculateRSIOverbought(t *testing.T) {
	cls := closesStep(100, 2, 15)
	rsi := CalculateRSI(cls, 14)
	if rsi == nil {
		t.Fatal("expected RSI to be defined")
	}
	if *rsi <= 70 {
		t.Errorf("expected RSI > 70, got %v", *rsi)
	}
}

func TestCalculateRSIOversold(t *testing.T) {
	cls := closesStep(100, -2, 15)
	rsi := CalculateRSI(cls, 14)
	if rsi == nil {
		t.Fatal("expected RSI to be defined")
	}
	if *rsi >= 30 {
		t.Errorf("expected RSI < 30, got %v", *rsi)
	}
}

func TestCalculateRSIUndefinedDuringWarmup(t *testing.T) {
	cls := closesStep(100, 2, 10)
	if rsi := CalculateRSI(cls, 14); rsi != nil {
		t.Errorf("expected nil RSI with insufficient closes, got %v", *rsi)
	}
}

func TestCheckMACDCrossover(t *testing.T) {
	prev := &MACDResult{MACDLine: -0.5, Signal: 0.0}
	cur := &MACDResult{MACDLine: 0.5, Signal: 0.0}
	if !CheckMACDCrossover(cur, prev) {
		t.Error("expected crossover to be detected")
	}

	prev2 := &MACDResult{MACDLine: 0.5, Signal: 0.0}
	cur2 := &MACDResult{MACDLine: 0.6, Signal: 0.0}
	if CheckMACDCrossover(cur2, prev2) {
		t.Error("did not expect a crossover when already above signal")
	}
}

func TestCheckMACDCrossoverUndefined(t *testing.T) {
	if CheckMACDCrossover(nil, &MACDResult{}) {
		t.Error("expected no crossover when current is nil")
	}
	if CheckMACDCrossover(&MACDResult{}, nil) {
		t.Error("expected no crossover when previous is nil")
	}
}

func TestCalculateMACDUndefinedDuringWarmup(t *testing.T) {
	cls := closesStep(100, 1, 20)
	if macd := CalculateMACD(cls, 12, 26, 9); macd != nil {
		t.Errorf("expected nil MACD with insufficient closes, got %+v", *macd)
	}
}
