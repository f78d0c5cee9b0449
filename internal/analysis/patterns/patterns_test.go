package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/analysis"
	"stockwatch/internal/analysis/indicators"
	"stockwatch/internal/models"
)

// flatCandles builds candles whose open equals close, so no gaps appear.
func flatCandles(closes []float64, volumes []float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		vol := 1000.0
		if volumes != nil {
			vol = volumes[i]
		}
		candles[i] = models.Candle{
			Time:   int64(1700000000 + i*86400),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: vol,
		}
	}
	return candles
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func names(patterns []analysis.Pattern) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = p.Name
	}
	return out
}

func TestTrendAnalyzer(t *testing.T) {
	analyzer := NewTrendAnalyzer()

	t.Run("nineteen closes is unknown", func(t *testing.T) {
		got := analyzer.Analyze(flatCandles(linear(19, 100, 1), nil))
		assert.Equal(t, analysis.TrendResult{Trend: analysis.TrendUnknown}, got)
	})

	tests := []struct {
		name     string
		closes   []float64
		trend    analysis.Trend
		strength float64
	}{
		// slope 1 over mean 109.5
		{"strong uptrend", linear(20, 100, 1), analysis.TrendStrongUp, 1 / 109.5 * 100 * 20},
		// slope 0.2 over mean 101.9
		{"uptrend", linear(20, 100, 0.2), analysis.TrendUp, 0.2 / 101.9 * 100 * 20},
		{"sideways", linear(20, 100, 0), analysis.TrendSideways, 50},
		// slope -0.2 over mean 98.1
		{"downtrend", linear(20, 100, -0.2), analysis.TrendDown, 0.2 / 98.1 * 100 * 20},
		{"strong downtrend", linear(20, 100, -1), analysis.TrendStrongDown, 1 / 90.5 * 100 * 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analyzer.Analyze(flatCandles(tt.closes, nil))
			assert.Equal(t, tt.trend, got.Trend)
			assert.InDelta(t, tt.strength, got.Strength, 1e-9)
		})
	}

	t.Run("only the last twenty closes count", func(t *testing.T) {
		closes := append(linear(30, 500, -10), linear(20, 100, 1)...)
		got := analyzer.Analyze(flatCandles(closes, nil))
		assert.Equal(t, analysis.TrendStrongUp, got.Trend)
		assert.InDelta(t, 1/109.5*100, got.Slope, 1e-9)
	})

	t.Run("strength caps at 100", func(t *testing.T) {
		got := analyzer.Analyze(flatCandles(linear(20, 10, 5), nil))
		assert.Equal(t, 100.0, got.Strength)
	})
}

func TestSupportResistance(t *testing.T) {
	calc := NewSupportResistanceCalculator()

	build := func(n int) []models.Candle {
		candles := make([]models.Candle, n)
		for i := range candles {
			low := float64(i + 1)
			candles[i] = models.Candle{Low: low, High: low + 10, Open: low, Close: low}
		}
		return candles
	}

	t.Run("too short", func(t *testing.T) {
		got := calc.Calculate(build(19))
		assert.Nil(t, got.Support)
		assert.Nil(t, got.Resistance)
		assert.False(t, got.Valid())
	})

	t.Run("twenty candles index two", func(t *testing.T) {
		got := calc.Calculate(build(20))
		require.NotNil(t, got.Support)
		require.NotNil(t, got.Resistance)
		assert.Equal(t, 3.0, *got.Support)
		assert.Equal(t, 28.0, *got.Resistance)
		assert.True(t, got.Valid())
	})

	t.Run("only the last fifty candles count", func(t *testing.T) {
		got := calc.Calculate(build(60))
		// lows 11..60 and highs 21..70, index 5
		assert.Equal(t, 16.0, *got.Support)
		assert.Equal(t, 65.0, *got.Resistance)
	})

	t.Run("input is not reordered", func(t *testing.T) {
		candles := build(25)
		before := append([]models.Candle(nil), candles...)
		calc.Calculate(candles)
		assert.Equal(t, before, candles)
	})
}

func TestDetectorBreakout(t *testing.T) {
	closes := append(linear(19, 10, 0), 11)
	volumes := append(linear(19, 10, 0), 20)
	candles := flatCandles(closes, volumes)
	candles[19].Open = 10

	got := NewDetector().Detect(candles, nil)
	require.Len(t, got, 1)
	assert.Equal(t, analysis.Pattern{
		Name:        "Breakout",
		Type:        analysis.PatternBullish,
		Description: "Price breaking above resistance with strong volume",
		Confidence:  85,
	}, got[0])
}

func TestDetectorVolumeSurge(t *testing.T) {
	closes := linear(20, 100, 1)
	volumes := append(linear(19, 100, 0), 1000)

	got := NewDetector().Detect(flatCandles(closes, volumes), nil)
	assert.Equal(t, []string{"Volume Surge"}, names(got))
	assert.Equal(t, analysis.PatternNeutral, got[0].Type)
	assert.Equal(t, 70, got[0].Confidence)
}

func TestDetectorConsolidation(t *testing.T) {
	closes := linear(20, 100, 0.1)

	got := NewDetector().Detect(flatCandles(closes, nil), nil)
	assert.Equal(t, []string{"Consolidation"}, names(got))
	assert.Equal(t, 75, got[0].Confidence)
}

func TestDetectorDivergence(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		rsi    []float64
		want   []string
	}{
		{"bullish", linear(20, 100, -0.5), linear(10, 40, 6.0/9), []string{"Bullish Divergence"}},
		{"bearish", linear(20, 100, 0.5), linear(10, 60, -10.0/9), []string{"Bearish Divergence"}},
		{"rsi change at threshold", linear(20, 100, -0.5), []float64{40, 41, 41, 42, 42, 43, 43, 44, 44, 45}, []string{}},
		{"nine rsi points", linear(20, 100, -0.5), linear(9, 40, 1), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle := &indicators.Bundle{RSI: indicators.Series{Values: tt.rsi, Offset: 20 - len(tt.rsi)}}
			got := NewDetector().Detect(flatCandles(tt.closes, nil), bundle)
			assert.Equal(t, tt.want, names(got))
		})
	}

	t.Run("divergence confidence", func(t *testing.T) {
		bundle := &indicators.Bundle{RSI: indicators.Series{Values: linear(10, 40, 6.0/9), Offset: 10}}
		got := NewDetector().Detect(flatCandles(linear(20, 100, -0.5), nil), bundle)
		require.Len(t, got, 1)
		assert.Equal(t, analysis.PatternBullish, got[0].Type)
		assert.Equal(t, 80, got[0].Confidence)
	})
}

func TestDetectorGaps(t *testing.T) {
	closes := linear(20, 100, 1)

	t.Run("gap down", func(t *testing.T) {
		candles := flatCandles(closes, nil)
		candles[19].Open = candles[18].Close * 0.97

		got := NewDetector().Detect(candles, nil)
		require.Len(t, got, 1)
		assert.Equal(t, "Gap Down", got[0].Name)
		assert.Equal(t, analysis.PatternBearish, got[0].Type)
		assert.Equal(t, 75, got[0].Confidence)
		assert.Equal(t, "Price opened 3.00% lower - strong bearish sentiment", got[0].Description)
	})

	t.Run("gap up", func(t *testing.T) {
		candles := flatCandles(closes, nil)
		candles[19].Open = candles[18].Close * 1.05

		got := NewDetector().Detect(candles, nil)
		require.Len(t, got, 1)
		assert.Equal(t, "Gap Up", got[0].Name)
		assert.Equal(t, "Price opened 5.00% higher - strong bullish sentiment", got[0].Description)
	})
}

func TestDetectorShortHistory(t *testing.T) {
	got := NewDetector().Detect(flatCandles(linear(19, 100, 0), nil), nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
