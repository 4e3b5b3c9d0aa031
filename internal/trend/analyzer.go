// Package trend implements the zig-zag trend analysis that confirms an
// uptrend from a run of ascending pivot lows and pivot highs.
package trend

import (
	"fmt"

	"vn-signal-engine/internal/model"
)

// RequiredPairs is the number of consecutive ascending pivot pairs needed
// on both pivot-low and pivot-high series for an uptrend to be confirmed.
const RequiredPairs = 3

// Result summarizes the outcome of an uptrend check.
type Result struct {
	IsUptrend       bool
	HigherLowsCount int
	HigherHighsCount int
	Reason          string
}

// Analyze inspects the tails of pivotLows and pivotHighs and reports
// whether both show RequiredPairs consecutive ascending pairs.
func Analyze(pivotLows, pivotHighs []model.Pivot) Result {
	higherLows := countHigherPairs(pivotLows)
	higherHighs := countHigherPairs(pivotHighs)
	isUptrend := higherLows >= RequiredPairs && higherHighs >= RequiredPairs

	var reason string
	if isUptrend {
		reason = fmt.Sprintf("Uptrend confirmed: %d higher lows + %d higher highs", higherLows, higherHighs)
	} else {
		reason = fmt.Sprintf("No uptrend: insufficient higher lows (%d/%d), higher highs (%d/%d)",
			higherLows, RequiredPairs, higherHighs, RequiredPairs)
	}

	return Result{
		IsUptrend:        isUptrend,
		HigherLowsCount:  higherLows,
		HigherHighsCount: higherHighs,
		Reason:           reason,
	}
}

// countHigherPairs walks pivots from the tail backward, counting
// consecutive strictly-ascending adjacent pairs. It stops at the first pair
// that is not strictly ascending.
func countHigherPairs(pivots []model.Pivot) int {
	if len(pivots) < 2 {
		return 0
	}
	count := 0
	for i := len(pivots) - 1; i > 0; i-- {
		if pivots[i].Price > pivots[i-1].Price {
			count++
		} else {
			break
		}
	}
	return count
}

// IsUptrend is a convenience wrapper returning only the boolean verdict.
func IsUptrend(pivotLows, pivotHighs []model.Pivot) bool {
	return Analyze(pivotLows, pivotHighs).IsUptrend
}
