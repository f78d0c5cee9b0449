package patterns

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"stockwatch/internal/analysis/indicators"
	"stockwatch/internal/models"
)

// candleSliceGen generates n candles with Low <= Open, Close <= High.
func candleSliceGen(n int) gopter.Gen {
	return gen.SliceOfN(n, gen.Float64Range(1.0, 1000.0)).Map(func(closes []float64) []models.Candle {
		candles := make([]models.Candle, len(closes))
		for i, c := range closes {
			open := c
			if i > 0 {
				open = closes[i-1]
			}
			hi, lo := c, open
			if open > c {
				hi, lo = open, c
			}
			candles[i] = models.Candle{
				Time:   int64(1700000000 + i*86400),
				Open:   open,
				High:   hi * 1.01,
				Low:    lo * 0.99,
				Close:  c,
				Volume: float64(1000 + (i*7919)%5000),
			}
		}
		return candles
	})
}

func newParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	return parameters
}

func TestProperty_SupportBelowResistance(t *testing.T) {
	properties := gopter.NewProperties(newParameters())
	calc := NewSupportResistanceCalculator()

	properties.Property("support never exceeds resistance", prop.ForAll(
		func(candles []models.Candle) bool {
			sr := calc.Calculate(candles)
			if len(candles) < 20 {
				return sr.Support == nil && sr.Resistance == nil
			}
			return sr.Support != nil && sr.Resistance != nil && *sr.Support <= *sr.Resistance
		},
		candleSliceGen(60),
	))

	properties.TestingRun(t)
}

func TestProperty_TrendStrengthBounded(t *testing.T) {
	properties := gopter.NewProperties(newParameters())
	analyzer := NewTrendAnalyzer()

	properties.Property("trend strength is within [0, 100]", prop.ForAll(
		func(candles []models.Candle) bool {
			r := analyzer.Analyze(candles)
			return r.Strength >= 0 && r.Strength <= 100
		},
		candleSliceGen(30),
	))

	properties.TestingRun(t)
}

func TestProperty_DetectorDeterministic(t *testing.T) {
	properties := gopter.NewProperties(newParameters())
	engine := indicators.NewEngine(indicators.DefaultConfig())
	detector := NewDetector()

	properties.Property("same input yields the same patterns", prop.ForAll(
		func(candles []models.Candle) bool {
			bundle := engine.CalculateCandles(candles)
			first := detector.Detect(candles, &bundle)
			second := detector.Detect(candles, &bundle)
			if !reflect.DeepEqual(first, second) {
				return false
			}
			for _, p := range first {
				if p.Confidence < 0 || p.Confidence > 100 {
					return false
				}
			}
			return true
		},
		candleSliceGen(40),
	))

	properties.TestingRun(t)
}
