package scoring

import (
	"time"

	"github.com/rs/zerolog"

	"stockwatch/internal/analysis"
	"stockwatch/internal/analysis/indicators"
	"stockwatch/internal/analysis/patterns"
	"stockwatch/internal/models"
)

// Report is the complete analysis of one symbol.
type Report struct {
	Symbol         string                     `json:"symbol"`
	GeneratedAt    time.Time                  `json:"generatedAt"`
	Quote          *models.Quote              `json:"quote,omitempty"`
	Candles        int                        `json:"candles"`
	Indicators     indicators.Bundle          `json:"indicators"`
	Patterns       []analysis.Pattern         `json:"patterns"`
	Trend          analysis.TrendResult       `json:"trend"`
	Levels         analysis.SupportResistance `json:"supportResistance"`
	Metrics        analysis.Metrics           `json:"metrics"`
	Recommendation analysis.Recommendation    `json:"recommendation"`
}

// Analyzer runs the full pipeline: indicators, patterns, trend, levels,
// metrics, then the recommendation. It is safe for concurrent use.
type Analyzer struct {
	engine      *indicators.Engine
	detector    *patterns.Detector
	trend       *patterns.TrendAnalyzer
	levels      *patterns.SupportResistanceCalculator
	recommender *Recommender
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAnalyzer creates an analyzer for the given indicator configuration.
func NewAnalyzer(cfg indicators.Config, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		engine:      indicators.NewEngine(cfg),
		detector:    patterns.NewDetector(),
		trend:       patterns.NewTrendAnalyzer(),
		levels:      patterns.NewSupportResistanceCalculator(),
		recommender: NewRecommender(),
		logger:      logger,
		now:         time.Now,
	}
}

// Engine returns the indicator engine used by the analyzer.
func (a *Analyzer) Engine() *indicators.Engine {
	return a.engine
}

// Analyze computes the report for chronological candles. quote may be nil, in
// which case the recommendation reports insufficient data.
func (a *Analyzer) Analyze(symbol string, candles []models.Candle, quote *models.Quote) Report {
	bundle := a.engine.CalculateCandles(candles)
	found := a.detector.Detect(candles, &bundle)
	levels := a.levels.Calculate(candles)

	report := Report{
		Symbol:      symbol,
		GeneratedAt: a.now(),
		Quote:       quote,
		Candles:     len(candles),
		Indicators:  bundle,
		Patterns:    found,
		Trend:       a.trend.Analyze(candles),
		Levels:      levels,
		Metrics:     indicators.CalculateMetrics(candles, quote),
		Recommendation: a.recommender.Recommend(Context{
			Quote:    quote,
			Bundle:   &bundle,
			Patterns: found,
			Levels:   levels,
		}),
	}

	a.logger.Debug().
		Str("symbol", symbol).
		Int("candles", len(candles)).
		Int("patterns", len(found)).
		Str("trend", string(report.Trend.Trend)).
		Str("action", string(report.Recommendation.Action)).
		Int("confidence", report.Recommendation.Confidence).
		Msg("Analysis complete")

	return report
}
