package patterns

import (
	"sort"

	"stockwatch/internal/analysis"
	"stockwatch/internal/models"
)

// SupportResistanceCalculator derives levels from order statistics of recent
// lows and highs.
type SupportResistanceCalculator struct {
	minCandles int
	lookback   int
	percentile float64
}

// NewSupportResistanceCalculator uses the last 50 candles and the 10th percentile.
func NewSupportResistanceCalculator() *SupportResistanceCalculator {
	return &SupportResistanceCalculator{
		minCandles: 20,
		lookback:   50,
		percentile: 0.1,
	}
}

func (s *SupportResistanceCalculator) Name() string {
	return "SupportResistance"
}

// Calculate returns support from ascending lows and resistance from descending
// highs, both at index floor(n*percentile). No interpolation is applied.
func (s *SupportResistanceCalculator) Calculate(candles []models.Candle) analysis.SupportResistance {
	if len(candles) < s.minCandles {
		return analysis.SupportResistance{}
	}

	recent := candles
	if len(recent) > s.lookback {
		recent = recent[len(recent)-s.lookback:]
	}

	lows := make([]float64, len(recent))
	highs := make([]float64, len(recent))
	for i, c := range recent {
		lows[i] = c.Low
		highs[i] = c.High
	}
	sort.Float64s(lows)
	sort.Sort(sort.Reverse(sort.Float64Slice(highs)))

	idx := int(float64(len(recent)) * s.percentile)
	support := lows[idx]
	resistance := highs[idx]
	return analysis.SupportResistance{Support: &support, Resistance: &resistance}
}
