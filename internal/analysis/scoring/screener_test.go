package scoring

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/analysis"
	"stockwatch/internal/analysis/indicators"
	"stockwatch/internal/models"
)

func wave(n int, base float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + base*0.05*math.Sin(float64(i)/3)
	}
	return out
}

func TestAnalyzerReport(t *testing.T) {
	analyzer := NewAnalyzer(indicators.DefaultConfig(), zerolog.Nop())
	fixed := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	analyzer.now = func() time.Time { return fixed }

	candles := candlesFromCloses(wave(80, 20))
	quote := &models.Quote{Symbol: "1155", Price: candles[79].Close, Volume: 5000}

	report := analyzer.Analyze("1155", candles, quote)

	assert.Equal(t, "1155", report.Symbol)
	assert.Equal(t, fixed, report.GeneratedAt)
	assert.Equal(t, 80, report.Candles)
	assert.Equal(t, 80, report.Indicators.RSI.SourceLen())
	require.NotNil(t, report.Levels.Support)
	require.NotNil(t, report.Levels.Resistance)
	assert.NotEqual(t, analysis.TrendUnknown, report.Trend.Trend)
	assert.NotEmpty(t, report.Recommendation.Reasons)
	assert.LessOrEqual(t, len(report.Recommendation.Reasons), 4)

	again := analyzer.Analyze("1155", candles, quote)
	assert.Equal(t, report, again)
}

func TestAnalyzerWithoutQuote(t *testing.T) {
	analyzer := NewAnalyzer(indicators.DefaultConfig(), zerolog.Nop())
	report := analyzer.Analyze("AAPL", candlesFromCloses(wave(30, 150)), nil)

	assert.Equal(t, analysis.ActionHold, report.Recommendation.Action)
	assert.Equal(t, 0, report.Recommendation.Confidence)
	assert.Equal(t, []string{InsufficientDataReason}, report.Recommendation.Reasons)
}

type fakeSource map[string]*models.Quote

func (f fakeSource) load(_ context.Context, symbol string) ([]models.Candle, *models.Quote, error) {
	q, ok := f[symbol]
	if !ok {
		return nil, nil, errors.New("no data")
	}
	return candlesFromCloses(wave(40, q.Price)), q, nil
}

func testSource() fakeSource {
	return fakeSource{
		"AAA": {Symbol: "AAA", Price: 10, ChangePercent: 3.5, Volume: 6_000_000},
		"BBB": {Symbol: "BBB", Price: 25, ChangePercent: -4, Volume: 1_000_000},
		"CCC": {Symbol: "CCC", Price: 4, ChangePercent: 6, Volume: 12_000_000},
		"DDD": {Symbol: "DDD", Price: 80, ChangePercent: 0.5, Volume: 300_000},
	}
}

func passedSymbols(results []ScreenerResult) []string {
	var out []string
	for _, r := range results {
		if r.Passed {
			out = append(out, r.Symbol)
		}
	}
	return out
}

func TestScreenerPresets(t *testing.T) {
	analyzer := NewAnalyzer(indicators.DefaultConfig(), zerolog.Nop())
	screener := NewScreener(analyzer, testSource().load, 2)
	symbols := []string{"AAA", "BBB", "CCC", "DDD", "ZZZ"}

	tests := []struct {
		preset string
		want   []string
	}{
		{"Top Gainers", []string{"CCC", "AAA"}},
		{"top losers", []string{"BBB"}},
		{"High Volume", []string{"CCC", "AAA"}},
		{"Breakout Stocks", []string{"CCC"}},
	}
	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			preset, ok := FindPreset(tt.preset)
			require.True(t, ok)

			results, err := screener.Scan(context.Background(), symbols, preset.Criteria)
			require.NoError(t, err)
			assert.Len(t, results, len(symbols))
			assert.Equal(t, tt.want, passedSymbols(results))
		})
	}
}

func TestScreenerRecordsErrors(t *testing.T) {
	analyzer := NewAnalyzer(indicators.DefaultConfig(), zerolog.Nop())
	screener := NewScreener(analyzer, testSource().load, 0)

	results, err := screener.Scan(context.Background(), []string{"ZZZ", "DDD"}, Criteria{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// passed results sort first
	assert.Equal(t, "DDD", results[0].Symbol)
	assert.True(t, results[0].Passed)
	assert.Equal(t, "ZZZ", results[1].Symbol)
	assert.False(t, results[1].Passed)
	assert.Error(t, results[1].Err)
}

func TestScreenerPriceAndSort(t *testing.T) {
	analyzer := NewAnalyzer(indicators.DefaultConfig(), zerolog.Nop())
	screener := NewScreener(analyzer, testSource().load, 3)

	results, err := screener.Scan(context.Background(), []string{"AAA", "BBB", "CCC", "DDD"}, Criteria{
		MaxPrice:  ptr(30),
		SortBy:    SortPrice,
		Ascending: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"CCC", "AAA", "BBB"}, passedSymbols(results))
}

func TestScreenerCancelled(t *testing.T) {
	analyzer := NewAnalyzer(indicators.DefaultConfig(), zerolog.Nop())
	screener := NewScreener(analyzer, testSource().load, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := screener.Scan(ctx, []string{"AAA", "BBB"}, Criteria{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCriteriaRSIFilter(t *testing.T) {
	report := Report{
		Quote:      &models.Quote{Price: 10},
		Indicators: indicators.Bundle{RSI: indicators.Series{Values: []float64{28}}},
	}

	assert.True(t, Criteria{RSIBelow: ptr(30)}.Match(report))
	assert.False(t, Criteria{RSIAbove: ptr(30)}.Match(report))
	assert.False(t, Criteria{RSIBelow: ptr(30)}.Match(Report{Quote: &models.Quote{}}))
	assert.False(t, Criteria{Action: analysis.ActionBuy}.Match(report))
}
