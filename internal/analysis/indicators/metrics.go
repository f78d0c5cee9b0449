package indicators

import (
	"stockwatch/internal/analysis"
	"stockwatch/internal/models"
)

// CalculateMetrics summarises the available history: range high/low of closes,
// average volume, volatility as a percent of the mean close, and the current
// price's distance from the range extremes. quote may be nil, in which case the
// last close stands in for the current price.
func CalculateMetrics(candles []models.Candle, quote *models.Quote) analysis.Metrics {
	if len(candles) == 0 {
		return analysis.Metrics{}
	}

	closes := models.Closes(candles)
	high := Highest(closes)
	low := Lowest(closes)
	avgPrice := Mean(closes)

	m := analysis.Metrics{
		High52w:   high,
		Low52w:    low,
		AvgVolume: Mean(models.Volumes(candles)),
	}
	if avgPrice != 0 {
		m.Volatility = StdDev(closes) / avgPrice * 100
	}

	current := closes[len(closes)-1]
	if quote != nil && quote.Price > 0 {
		current = quote.Price
	}
	if high != 0 {
		m.From52wHigh = (current - high) / high * 100
	}
	if low != 0 {
		m.From52wLow = (current - low) / low * 100
	}
	return m
}
