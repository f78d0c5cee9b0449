package patterns

import (
	"stockwatch/internal/analysis"
	"stockwatch/internal/analysis/indicators"
)

const (
	divergenceBars      = 10
	divergenceRSIChange = 5.0
)

// detectDivergence compares the RSI change over its last ten points with the
// close change over the last ten bars. A flat price never diverges.
func detectDivergence(w window, rsi indicators.Series) *analysis.Pattern {
	if rsi.Len() < divergenceBars || len(w.closes) < divergenceBars {
		return nil
	}

	first, _ := rsi.FromEnd(divergenceBars)
	last, _ := rsi.Last()
	rsiTrend := last - first
	priceTrend := w.lastClose() - w.closes[len(w.closes)-divergenceBars]

	switch {
	case priceTrend < 0 && rsiTrend > divergenceRSIChange:
		return &analysis.Pattern{
			Name:        "Bullish Divergence",
			Type:        analysis.PatternBullish,
			Description: "RSI rising while price falling - potential reversal up",
			Confidence:  80,
		}
	case priceTrend > 0 && rsiTrend < -divergenceRSIChange:
		return &analysis.Pattern{
			Name:        "Bearish Divergence",
			Type:        analysis.PatternBearish,
			Description: "RSI falling while price rising - potential reversal down",
			Confidence:  80,
		}
	}
	return nil
}
