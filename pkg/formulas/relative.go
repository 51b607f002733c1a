// Package formulas provides price-series calculations shared by the universe
// refresh and the CLI.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// Trading-day lookbacks for the standard performance windows
const (
	Lookback1M = 21
	Lookback3M = 63
	Lookback6M = 126
	Lookback1Y = 252
)

// RateOfChange returns the percentage change over the last lookback closes.
// Returns nil when there is not enough history or the base price is zero.
func RateOfChange(closes []float64, lookback int) *float64 {
	if lookback <= 0 || len(closes) <= lookback {
		return nil
	}
	if closes[len(closes)-1-lookback] == 0 {
		return nil
	}

	roc := talib.Roc(closes, lookback)
	last := roc[len(roc)-1]
	if math.IsNaN(last) || math.IsInf(last, 0) {
		return nil
	}
	return &last
}

// RelativePerformance returns the series' rate of change minus the benchmark's
// over the same lookback. Both series must be aligned on the same dates and
// end on the same day.
//
// Formula: ROC(series) - ROC(benchmark), both in percent
func RelativePerformance(series, benchmark []float64, lookback int) *float64 {
	own := RateOfChange(series, lookback)
	bench := RateOfChange(benchmark, lookback)
	if own == nil || bench == nil {
		return nil
	}
	rel := *own - *bench
	return &rel
}

// SectorTrend classifies a sector from its 1M and 3M relative performance.
// Improving needs 1M above +2 with positive 3M; Deteriorating needs 1M below
// -2 with negative 3M; everything else is Stable.
func SectorTrend(relPerf1M, relPerf3M float64) string {
	switch {
	case relPerf1M > 2 && relPerf3M > 0:
		return "Improving"
	case relPerf1M < -2 && relPerf3M < 0:
		return "Deteriorating"
	default:
		return "Stable"
	}
}
