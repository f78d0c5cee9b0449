package patterns

import (
	"fmt"
	"math"

	"stockwatch/internal/analysis"
	"stockwatch/internal/analysis/indicators"
)

const (
	consolidationRangePercent = 3.0
	gapPercent                = 2.0
)

// detectConsolidation fires when the last ten closes span less than 3% of the
// window's mean close.
func detectConsolidation(w window) *analysis.Pattern {
	short := lastN(w.closes, w.shortLen)
	mean := indicators.Mean(w.closes)
	if mean == 0 {
		return nil
	}
	rangePct := (highest(short) - lowest(short)) / mean * 100
	if rangePct < consolidationRangePercent {
		return &analysis.Pattern{
			Name:        "Consolidation",
			Type:        analysis.PatternNeutral,
			Description: "Price trading in tight range - potential breakout coming",
			Confidence:  75,
		}
	}
	return nil
}

// detectGap compares the last open with the previous close.
func detectGap(w window) *analysis.Pattern {
	n := len(w.candles)
	if n < 2 {
		return nil
	}
	prevClose := w.candles[n-2].Close
	if prevClose == 0 {
		return nil
	}
	gap := (w.candles[n-1].Open - prevClose) / prevClose * 100

	switch {
	case gap > gapPercent:
		return &analysis.Pattern{
			Name:        "Gap Up",
			Type:        analysis.PatternBullish,
			Description: fmt.Sprintf("Price opened %.2f%% higher - strong bullish sentiment", gap),
			Confidence:  75,
		}
	case gap < -gapPercent:
		return &analysis.Pattern{
			Name:        "Gap Down",
			Type:        analysis.PatternBearish,
			Description: fmt.Sprintf("Price opened %.2f%% lower - strong bearish sentiment", math.Abs(gap)),
			Confidence:  75,
		}
	}
	return nil
}
