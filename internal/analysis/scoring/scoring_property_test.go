package scoring

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"stockwatch/internal/analysis"
	"stockwatch/internal/analysis/indicators"
	"stockwatch/internal/models"
)

func candlesFromCloses(closes []float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		candles[i] = models.Candle{
			Time:   int64(1700000000 + i*86400),
			Open:   open,
			High:   c * 1.02,
			Low:    c * 0.98,
			Close:  c,
			Volume: float64(10000 + (i*7919)%50000),
		}
	}
	return candles
}

func newParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	return parameters
}

func TestProperty_ClassifyMatchesBullishPercent(t *testing.T) {
	properties := gopter.NewProperties(newParameters())

	properties.Property("action follows the bullish share", prop.ForAll(
		func(bullish, bearish float64) bool {
			action, confidence := Classify(bullish, bearish)
			bp := BullishPercent(bullish, bearish)
			if confidence < 0 || confidence > 100 {
				return false
			}
			switch {
			case bp >= 70:
				return action == analysis.ActionBuy && confidence <= 95
			case bp <= 30:
				return action == analysis.ActionSell && confidence <= 95
			default:
				return action == analysis.ActionHold && confidence >= 50 && confidence < 70
			}
		},
		gen.Float64Range(0, 200),
		gen.Float64Range(0, 200),
	))

	properties.TestingRun(t)
}

func TestProperty_AnalyzerRecommendationBounded(t *testing.T) {
	properties := gopter.NewProperties(newParameters())
	analyzer := NewAnalyzer(indicators.DefaultConfig(), zerolog.Nop())

	properties.Property("confidence within [0, 95] and at most four reasons", prop.ForAll(
		func(closes []float64, volume float64) bool {
			candles := candlesFromCloses(closes)
			quote := &models.Quote{Symbol: "TEST", Price: closes[len(closes)-1], Volume: volume}
			rec := analyzer.Analyze("TEST", candles, quote).Recommendation
			return rec.Confidence >= 0 && rec.Confidence <= 95 &&
				len(rec.Reasons) <= 4 &&
				rec.BullishScore >= 0 && rec.BearishScore >= 0
		},
		gen.SliceOfN(60, gen.Float64Range(5, 500)).SuchThat(func(v []float64) bool { return len(v) > 0 }),
		gen.Float64Range(0, 1e6),
	))

	properties.TestingRun(t)
}
