// Package mtf compares trend and recommendation across daily, weekly and
// monthly bars.
package mtf

import (
	"context"
	"fmt"
	"sync"

	"stockwatch/internal/analysis"
	"stockwatch/internal/analysis/scoring"
	"stockwatch/internal/models"
)

// minCandles is the shortest history the trend fit accepts.
const minCandles = 20

// Timeframe is one bar interval with the history range fetched for it.
type Timeframe struct {
	Interval string `json:"interval"`
	Range    string `json:"range"`
}

// DefaultTimeframes returns daily, weekly and monthly bars, each with enough
// history for the trend window.
func DefaultTimeframes() []Timeframe {
	return []Timeframe{
		{Interval: "1d", Range: "6mo"},
		{Interval: "1wk", Range: "2y"},
		{Interval: "1mo", Range: "5y"},
	}
}

// Confluence grades how many timeframes agree on direction.
type Confluence string

const (
	ConfluenceStrong   Confluence = "STRONG"
	ConfluenceModerate Confluence = "MODERATE"
	ConfluenceWeak     Confluence = "WEAK"
	ConfluenceNone     Confluence = "NONE"
)

// Loader fetches candles and a quote for one timeframe.
type Loader func(ctx context.Context, symbol, rng, interval string) ([]models.Candle, *models.Quote, error)

// TimeframeResult is the analysis of a single timeframe. Error is set and the
// other fields are zero when the timeframe could not be analyzed.
type TimeframeResult struct {
	Timeframe
	Candles    int                  `json:"candles"`
	Trend      analysis.TrendResult `json:"trend"`
	Action     analysis.Action      `json:"action,omitempty"`
	Confidence int                  `json:"confidence"`
	RSI        *float64             `json:"rsi,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// Result is the multi-timeframe view of one symbol.
type Result struct {
	Symbol     string            `json:"symbol"`
	Timeframes []TimeframeResult `json:"timeframes"`
	Bullish    int               `json:"bullish"`
	Bearish    int               `json:"bearish"`
	Neutral    int               `json:"neutral"`
	Confluence Confluence        `json:"confluence"`
	Aligned    bool              `json:"aligned"`
	Overall    analysis.Trend    `json:"overall"`
}

// Analyzed returns the number of timeframes without an error.
func (r *Result) Analyzed() int {
	return r.Bullish + r.Bearish + r.Neutral
}

// Analyzer runs the single-timeframe analyzer once per timeframe.
type Analyzer struct {
	analyzer *scoring.Analyzer
}

// NewAnalyzer creates a multi-timeframe analyzer.
func NewAnalyzer(a *scoring.Analyzer) *Analyzer {
	return &Analyzer{analyzer: a}
}

// Analyze loads and analyzes every timeframe concurrently. Results keep the
// order of timeframes. The error is non-nil only when no timeframe could be
// analyzed, and is then the first timeframe's error.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, load Loader, timeframes []Timeframe) (*Result, error) {
	result := &Result{
		Symbol:     symbol,
		Timeframes: make([]TimeframeResult, len(timeframes)),
	}
	errs := make([]error, len(timeframes))

	var wg sync.WaitGroup
	for i, tf := range timeframes {
		wg.Add(1)
		go func(i int, tf Timeframe) {
			defer wg.Done()
			result.Timeframes[i], errs[i] = a.analyzeTimeframe(ctx, symbol, load, tf)
		}(i, tf)
	}
	wg.Wait()

	Summarize(result)
	if result.Analyzed() == 0 && len(errs) > 0 {
		return result, errs[0]
	}
	return result, nil
}

func (a *Analyzer) analyzeTimeframe(ctx context.Context, symbol string, load Loader, tf Timeframe) (TimeframeResult, error) {
	out := TimeframeResult{Timeframe: tf}

	candles, quote, err := load(ctx, symbol, tf.Range, tf.Interval)
	if err != nil {
		out.Error = err.Error()
		return out, fmt.Errorf("%s bars: %w", tf.Interval, err)
	}
	out.Candles = len(candles)
	if len(candles) < minCandles {
		err := fmt.Errorf("%s bars: insufficient data: got %d candles, need at least %d", tf.Interval, len(candles), minCandles)
		out.Error = err.Error()
		return out, err
	}

	report := a.analyzer.Analyze(symbol, candles, quote)
	out.Trend = report.Trend
	out.Action = report.Recommendation.Action
	out.Confidence = report.Recommendation.Confidence
	if rsi, ok := report.Indicators.RSI.Last(); ok {
		out.RSI = &rsi
	}
	return out, nil
}

// Summarize fills the direction counts, confluence, alignment and overall
// trend from r.Timeframes.
func Summarize(r *Result) {
	r.Bullish, r.Bearish, r.Neutral = 0, 0, 0
	for _, tf := range r.Timeframes {
		if tf.Error != "" {
			continue
		}
		switch direction(tf.Trend.Trend) {
		case 1:
			r.Bullish++
		case -1:
			r.Bearish++
		default:
			r.Neutral++
		}
	}

	total := r.Analyzed()
	agree := max(r.Bullish, r.Bearish)
	switch {
	case total >= 2 && agree == total:
		r.Confluence = ConfluenceStrong
	case agree*2 > total:
		r.Confluence = ConfluenceModerate
	case agree > 0:
		r.Confluence = ConfluenceWeak
	default:
		r.Confluence = ConfluenceNone
	}
	r.Aligned = r.Confluence == ConfluenceStrong

	switch {
	case total == 0:
		r.Overall = analysis.TrendUnknown
	case r.Bullish > r.Bearish:
		r.Overall = analysis.TrendUp
	case r.Bearish > r.Bullish:
		r.Overall = analysis.TrendDown
	default:
		r.Overall = analysis.TrendSideways
	}
}

func direction(t analysis.Trend) int {
	switch t {
	case analysis.TrendStrongUp, analysis.TrendUp:
		return 1
	case analysis.TrendStrongDown, analysis.TrendDown:
		return -1
	}
	return 0
}
