package patterns

import (
	"stockwatch/internal/analysis"
	"stockwatch/internal/analysis/indicators"
	"stockwatch/internal/models"
)

// window is the recent slice of history every pattern rule reads.
type window struct {
	candles   []models.Candle
	closes    []float64
	volumes   []float64
	avgVolume float64
	shortLen  int
}

func (w window) lastClose() float64  { return w.closes[len(w.closes)-1] }
func (w window) lastVolume() float64 { return w.volumes[len(w.volumes)-1] }

// Detector runs the pattern rules independently over the last candles.
type Detector struct {
	window   int
	shortLen int
}

// NewDetector creates a detector over a 20-candle window with a 10-bar short range.
func NewDetector() *Detector {
	return &Detector{window: 20, shortLen: 10}
}

func (d *Detector) Name() string {
	return "PatternDetector"
}

// Detect returns every pattern that fires, in rule order: breakout, volume
// surge, consolidation, RSI divergence, gap. bundle may be nil, which skips
// divergence. Fewer than 20 candles yields no patterns.
func (d *Detector) Detect(candles []models.Candle, bundle *indicators.Bundle) []analysis.Pattern {
	patterns := []analysis.Pattern{}
	if len(candles) < d.window {
		return patterns
	}

	recent := candles[len(candles)-d.window:]
	volumes := models.Volumes(recent)
	w := window{
		candles:   recent,
		closes:    models.Closes(recent),
		volumes:   volumes,
		avgVolume: indicators.Mean(volumes),
		shortLen:  d.shortLen,
	}

	var rsi indicators.Series
	if bundle != nil {
		rsi = bundle.RSI
	}

	for _, p := range []*analysis.Pattern{
		detectBreakout(w),
		detectVolumeSurge(w),
		detectConsolidation(w),
		detectDivergence(w, rsi),
		detectGap(w),
	} {
		if p != nil {
			patterns = append(patterns, *p)
		}
	}
	return patterns
}

func lastN(values []float64, n int) []float64 {
	if n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}

func highest(values []float64) float64 { return indicators.Highest(values) }
func lowest(values []float64) float64  { return indicators.Lowest(values) }
