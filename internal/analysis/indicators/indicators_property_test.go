package indicators

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"stockwatch/internal/models"
)

// priceSliceGen generates positive closing prices of bounded length.
func priceSliceGen(maxLen int) gopter.Gen {
	return gen.IntRange(0, maxLen).FlatMap(func(v interface{}) gopter.Gen {
		return gen.SliceOfN(v.(int), gen.Float64Range(1.0, 1000.0))
	}, reflect.TypeOf([]float64{}))
}

// candleSliceGen generates chronological candles with consistent OHLC ranges.
func candleSliceGen(n int) gopter.Gen {
	return gen.SliceOfN(n, gen.Float64Range(1.0, 1000.0)).Map(func(closes []float64) []models.Candle {
		start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
		candles := make([]models.Candle, len(closes))
		for i, c := range closes {
			candles[i] = models.Candle{
				Time:   start.AddDate(0, 0, i).Unix(),
				Open:   c,
				High:   c * 1.01,
				Low:    c * 0.99,
				Close:  c,
				Volume: float64(1000 + i*10),
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

func TestProperty_RSIWithinBounds(t *testing.T) {
	properties := gopter.NewProperties(newParameters())

	properties.Property("RSI values are within [0, 100)", prop.ForAll(
		func(prices []float64) bool {
			for _, v := range NewRSI(14).Calculate(prices).Values {
				if v < 0 || v >= 100 {
					return false
				}
			}
			return true
		},
		priceSliceGen(80),
	))

	properties.TestingRun(t)
}

func TestProperty_SeriesLengths(t *testing.T) {
	properties := gopter.NewProperties(newParameters())

	properties.Property("series lengths follow their windows", prop.ForAll(
		func(prices []float64) bool {
			n := len(prices)
			cfg := DefaultConfig()
			b := NewEngine(cfg).Calculate(prices, prices)

			for _, s := range []Series{b.SMA, b.EMA, b.RSI, b.VolumeMA,
				b.BollingerBands.Upper, b.BollingerBands.Middle, b.BollingerBands.Lower,
				b.MACD.MACD, b.MACD.Signal, b.MACD.Histogram} {
				if s.SourceLen() != n {
					return false
				}
			}
			if b.EMA.Len() != n {
				return false
			}
			if b.SMA.Len() != max(0, n-cfg.SMAPeriod+1) {
				return false
			}
			if b.RSI.Len() != max(0, n-cfg.RSIPeriod) {
				return false
			}
			if n >= cfg.MACDSlow && b.MACD.Histogram.Len() != n-(cfg.MACDSlow-cfg.MACDFast) {
				return false
			}
			return b.BollingerBands.Upper.Len() == b.BollingerBands.Middle.Len() &&
				b.BollingerBands.Lower.Len() == b.BollingerBands.Middle.Len()
		},
		priceSliceGen(80),
	))

	properties.TestingRun(t)
}

func TestProperty_BollingerOrdering(t *testing.T) {
	properties := gopter.NewProperties(newParameters())

	properties.Property("lower <= middle <= upper", prop.ForAll(
		func(prices []float64) bool {
			bb := NewBollingerBands(20, 2).Calculate(prices)
			for i, mid := range bb.Middle.Values {
				if bb.Lower.Values[i] > mid+1e-9 || mid > bb.Upper.Values[i]+1e-9 {
					return false
				}
			}
			return true
		},
		priceSliceGen(80),
	))

	properties.TestingRun(t)
}

func TestProperty_MACDHistogramIdentity(t *testing.T) {
	properties := gopter.NewProperties(newParameters())

	properties.Property("histogram equals macd minus signal at the same index", prop.ForAll(
		func(prices []float64) bool {
			r := NewMACD(12, 26, 9).Calculate(prices)
			for i, h := range r.Histogram.Values {
				src := i + r.Histogram.Offset
				m, ok1 := r.MACD.At(src)
				s, ok2 := r.Signal.At(src)
				if !ok1 || !ok2 || math.Abs(m-s-h) > 1e-9 {
					return false
				}
			}
			return true
		},
		priceSliceGen(80),
	))

	properties.TestingRun(t)
}

func TestProperty_EngineDeterministic(t *testing.T) {
	properties := gopter.NewProperties(newParameters())
	engine := NewEngine(DefaultConfig())

	properties.Property("same candles produce the same bundle", prop.ForAll(
		func(candles []models.Candle) bool {
			return reflect.DeepEqual(engine.CalculateCandles(candles), engine.CalculateCandles(candles))
		},
		candleSliceGen(40),
	))

	properties.TestingRun(t)
}

func TestProperty_MetricsRange(t *testing.T) {
	properties := gopter.NewProperties(newParameters())

	properties.Property("current price sits between the range extremes", prop.ForAll(
		func(candles []models.Candle) bool {
			m := CalculateMetrics(candles, nil)
			return m.Low52w <= m.High52w &&
				m.From52wHigh <= 1e-9 &&
				m.From52wLow >= -1e-9 &&
				m.Volatility >= 0
		},
		candleSliceGen(30),
	))

	properties.TestingRun(t)
}
