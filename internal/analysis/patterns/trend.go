// Package patterns provides trend classification, support/resistance levels and
// pattern detection over recent candles.
package patterns

import (
	"math"

	"stockwatch/internal/analysis"
	"stockwatch/internal/analysis/indicators"
	"stockwatch/internal/models"
)

// Slope thresholds in percent of the mean close per bar.
const (
	strongSlopePercent = 0.5
	slopePercent       = 0.1
	sidewaysStrength   = 50.0
)

// TrendAnalyzer classifies direction from a least-squares fit over recent closes.
type TrendAnalyzer struct {
	window int
}

// NewTrendAnalyzer creates a trend analyzer over the last 20 closes.
func NewTrendAnalyzer() *TrendAnalyzer {
	return &TrendAnalyzer{window: 20}
}

func (t *TrendAnalyzer) Name() string {
	return "TrendAnalyzer"
}

// Analyze fits closes against bar index. Fewer than window candles yields Unknown.
func (t *TrendAnalyzer) Analyze(candles []models.Candle) analysis.TrendResult {
	if len(candles) < t.window {
		return analysis.TrendResult{Trend: analysis.TrendUnknown}
	}

	closes := models.Closes(candles[len(candles)-t.window:])
	slope := regressionSlope(closes)
	mean := indicators.Mean(closes)
	if mean == 0 {
		return analysis.TrendResult{Trend: analysis.TrendSideways, Strength: sidewaysStrength}
	}
	pct := slope / mean * 100

	result := analysis.TrendResult{
		Slope:    pct,
		Strength: math.Min(100, math.Abs(pct)*20),
	}
	switch {
	case pct > strongSlopePercent:
		result.Trend = analysis.TrendStrongUp
	case pct > slopePercent:
		result.Trend = analysis.TrendUp
	case pct < -strongSlopePercent:
		result.Trend = analysis.TrendStrongDown
	case pct < -slopePercent:
		result.Trend = analysis.TrendDown
	default:
		result.Trend = analysis.TrendSideways
		result.Strength = sidewaysStrength
	}
	return result
}

// regressionSlope returns the OLS slope of values against indices 0..n-1.
func regressionSlope(values []float64) float64 {
	n := float64(len(values))
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
