package model

import (
	"math"
	"testing"
)

func validBar() Bar {
	return Bar{Symbol: "VNM", Timeframe: "1H", Open: 100, High: 105, Low: 95, Close: 102, Volume: 1000}
}

func TestValidateAcceptsWellFormedBar(t *testing.T) {
	if err := validBar().Validate(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestValidateRejectsCloseAboveHigh(t *testing.T) {
	bar := validBar()
	bar.Close = 110
	if err := bar.Validate(); err == nil {
		t.Error("expected error when close exceeds high")
	}
}

func TestValidateRejectsOpenBelowLow(t *testing.T) {
	bar := validBar()
	bar.Open = 90
	if err := bar.Validate(); err == nil {
		t.Error("expected error when open is below low")
	}
}

func TestValidateRejectsLowAboveHigh(t *testing.T) {
	bar := validBar()
	bar.Low = 110
	bar.High = 95
	if err := bar.Validate(); err == nil {
		t.Error("expected error when low exceeds high")
	}
}

func TestValidateRejectsNonFiniteValues(t *testing.T) {
	cases := []Bar{}
	nanBar := validBar()
	nanBar.Close = math.NaN()
	cases = append(cases, nanBar)

	infBar := validBar()
	infBar.High = math.Inf(1)
	cases = append(cases, infBar)

	for _, bar := range cases {
		if err := bar.Validate(); err == nil {
			t.Errorf("expected error for bar with non-finite value: %+v", bar)
		}
	}
}
