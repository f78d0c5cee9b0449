package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/analysis"
	"stockwatch/internal/models"
)

func constantPrices(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSMA(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		period int
		want   []float64
		offset int
	}{
		{"three windows", []float64{1, 2, 3, 4, 5}, 3, []float64{2, 3, 4}, 2},
		{"period equals length", []float64{2, 4}, 2, []float64{3}, 1},
		{"too short", []float64{1, 2}, 3, []float64{}, 2},
		{"zero period", []float64{1, 2}, 0, []float64{}, 2},
		{"nil input", nil, 5, []float64{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SMA(tt.values, tt.period)
			assert.InDeltaSlice(t, tt.want, got.Values, 1e-12)
			assert.Len(t, got.Values, len(tt.want))
			assert.Equal(t, tt.offset, got.Offset)
			assert.Equal(t, len(tt.values), got.SourceLen())
		})
	}
}

func TestEMA(t *testing.T) {
	got := EMA([]float64{2, 4, 4}, 3)
	require.Equal(t, 3, got.Len())
	assert.Equal(t, 0, got.Offset)
	// k = 0.5: 2, 3, 3.5
	assert.InDeltaSlice(t, []float64{2, 3, 3.5}, got.Values, 1e-12)

	assert.True(t, EMA(nil, 12).Empty())
	assert.Equal(t, []float64{7}, EMA([]float64{7}, 12).Values)
}

func TestBollingerMatchesWindowDeviation(t *testing.T) {
	prices := make([]float64, 45)
	for i := range prices {
		prices[i] = 100 + 5*math.Sin(float64(i)/3)
	}
	got := NewBollingerBands(20, 2).Calculate(prices)
	require.Equal(t, 26, got.Middle.Len())
	for i, mid := range got.Middle.Values {
		window := prices[i : i+20]
		assert.InDelta(t, Mean(window), mid, 1e-9)
		assert.InDelta(t, mid+2*StdDev(window), got.Upper.Values[i], 1e-6)
		assert.InDelta(t, mid-2*StdDev(window), got.Lower.Values[i], 1e-6)
	}
}

func TestStdDevIsPopulation(t *testing.T) {
	assert.InDelta(t, math.Sqrt(2), StdDev([]float64{1, 2, 3, 4, 5}), 1e-12)
	assert.Equal(t, 0.0, StdDev(nil))
}

func TestSeriesAccessors(t *testing.T) {
	s := Series{Values: []float64{10, 20, 30}, Offset: 2}

	v, ok := s.At(3)
	require.True(t, ok)
	assert.Equal(t, 20.0, v)

	_, ok = s.At(1)
	assert.False(t, ok)

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 30.0, last)

	_, ok = s.FromEnd(4)
	assert.False(t, ok)
	assert.Equal(t, []float64{20, 30}, s.Tail(2))
	assert.Equal(t, 5, s.SourceLen())
}

func TestRSI(t *testing.T) {
	t.Run("window averages", func(t *testing.T) {
		// changes: +1, +1, -1
		got := NewRSI(2).Calculate([]float64{1, 2, 3, 2})
		require.Equal(t, 2, got.Len())
		assert.Equal(t, 2, got.Offset)
		assert.InDelta(t, 100-100/101.0, got.Values[0], 1e-9)
		assert.InDelta(t, 50.0, got.Values[1], 1e-9)
	})

	t.Run("all losses", func(t *testing.T) {
		got := NewRSI(3).Calculate([]float64{10, 9, 8, 7})
		require.Equal(t, 1, got.Len())
		assert.InDelta(t, 0.0, got.Values[0], 1e-9)
	})

	t.Run("insufficient history", func(t *testing.T) {
		got := NewRSI(14).Calculate(constantPrices(14, 10))
		assert.True(t, got.Empty())
		assert.Equal(t, 14, got.Offset)
	})
}

func TestConstantPrices(t *testing.T) {
	prices := constantPrices(40, 10)
	bundle := NewEngine(DefaultConfig()).Calculate(prices, nil)

	require.False(t, bundle.MACD.Histogram.Empty())
	for _, h := range bundle.MACD.Histogram.Values {
		assert.InDelta(t, 0.0, h, 1e-9)
	}

	require.False(t, bundle.RSI.Empty())
	for _, r := range bundle.RSI.Values {
		assert.InDelta(t, 99.0099, r, 1e-4)
	}

	for i := range bundle.BollingerBands.Middle.Values {
		assert.InDelta(t, 10.0, bundle.BollingerBands.Upper.Values[i], 1e-9)
		assert.InDelta(t, 10.0, bundle.BollingerBands.Lower.Values[i], 1e-9)
	}
	assert.True(t, bundle.VolumeMA.Empty())

	// RSI ~99 sits above the overbought line.
	require.NotEmpty(t, bundle.Signals)
	assert.Equal(t, analysis.SignalSell, bundle.Signals[0].Type)
	assert.Equal(t, analysis.IndicatorRSI, bundle.Signals[0].Indicator)
}

func TestMACDAlignment(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + 5*math.Sin(float64(i)/4)
	}
	result := NewMACD(12, 26, 9).Calculate(prices)

	assert.Equal(t, 14, result.MACD.Offset)
	assert.Equal(t, len(prices)-14, result.MACD.Len())
	assert.Equal(t, result.MACD.Len(), result.Signal.Len())
	assert.Equal(t, result.Signal.Len(), result.Histogram.Len())

	fast := EMA(prices, 12)
	slow := EMA(prices, 26)
	for i, v := range result.MACD.Values {
		src := i + result.MACD.Offset
		assert.InDelta(t, fast.Values[src]-slow.Values[i], v, 1e-12)
	}
	for i, h := range result.Histogram.Values {
		src := i + result.Histogram.Offset
		m, ok := result.MACD.At(src)
		require.True(t, ok)
		s, ok := result.Signal.At(src)
		require.True(t, ok)
		assert.InDelta(t, m-s, h, 1e-12)
	}
}

func TestMACDOnRamp(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	result := NewMACD(12, 26, 9).Calculate(prices)
	require.Equal(t, 26, result.MACD.Len())

	fast := EMA(prices, 12)
	slow := EMA(prices, 26)
	assert.InDelta(t, fast.Values[14]-slow.Values[0], result.MACD.Values[0], 1e-9)
	assert.InDelta(t, fast.Values[39]-slow.Values[25], result.MACD.Values[25], 1e-9)
	// The fast EMA leads the slow one on a rising ramp.
	for _, v := range result.MACD.Values {
		assert.Greater(t, v, 0.0)
	}
}

func TestMACDShortInput(t *testing.T) {
	result := NewMACD(12, 26, 9).Calculate(constantPrices(25, 1))
	assert.True(t, result.MACD.Empty())
	assert.True(t, result.Signal.Empty())
	assert.True(t, result.Histogram.Empty())
}

func TestBollingerBands(t *testing.T) {
	got := NewBollingerBands(5, 2).Calculate([]float64{1, 2, 3, 4, 5, 6})
	require.Equal(t, 2, got.Middle.Len())
	assert.Equal(t, 4, got.Upper.Offset)
	assert.InDelta(t, 3.0, got.Middle.Values[0], 1e-12)
	assert.InDelta(t, 3+2*math.Sqrt(2), got.Upper.Values[0], 1e-12)
	assert.InDelta(t, 3-2*math.Sqrt(2), got.Lower.Values[0], 1e-12)
	assert.InDelta(t, 4.0, got.Middle.Values[1], 1e-12)
}

func TestVolumeMA(t *testing.T) {
	vols := constantPrices(25, 1000)
	got := NewVolumeMA(20).Calculate(vols)
	assert.Equal(t, 6, got.Len())
	assert.InDelta(t, 1000.0, got.Values[0], 1e-9)
	assert.True(t, NewVolumeMA(20).Calculate(nil).Empty())
}

func TestDetectSignals(t *testing.T) {
	tests := []struct {
		name string
		rsi  []float64
		hist []float64
		want []analysis.SignalRecord
	}{
		{
			name: "oversold and bullish cross",
			rsi:  []float64{40, 25},
			hist: []float64{-0.2, 0.1},
			want: []analysis.SignalRecord{
				{Type: analysis.SignalBuy, Indicator: analysis.IndicatorRSI, Reason: "Oversold (RSI < 30)", Strength: analysis.StrengthStrong},
				{Type: analysis.SignalBuy, Indicator: analysis.IndicatorMACD, Reason: "Bullish crossover", Strength: analysis.StrengthMedium},
			},
		},
		{
			name: "overbought and bearish cross",
			rsi:  []float64{75},
			hist: []float64{0.3, -0.1},
			want: []analysis.SignalRecord{
				{Type: analysis.SignalSell, Indicator: analysis.IndicatorRSI, Reason: "Overbought (RSI > 70)", Strength: analysis.StrengthStrong},
				{Type: analysis.SignalSell, Indicator: analysis.IndicatorMACD, Reason: "Bearish crossover", Strength: analysis.StrengthMedium},
			},
		},
		{
			name: "boundaries do not fire",
			rsi:  []float64{30, 70},
			hist: []float64{0, 0.5},
			want: []analysis.SignalRecord{},
		},
		{
			name: "empty inputs",
			want: []analysis.SignalRecord{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectSignals(
				Series{Values: tt.rsi},
				MACDResult{Histogram: Series{Values: tt.hist}},
			)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateMetrics(t *testing.T) {
	candles := []models.Candle{
		{Close: 10, Volume: 100},
		{Close: 20, Volume: 300},
	}

	m := CalculateMetrics(candles, nil)
	assert.Equal(t, 20.0, m.High52w)
	assert.Equal(t, 10.0, m.Low52w)
	assert.Equal(t, 200.0, m.AvgVolume)
	// sd 5 over mean 15
	assert.InDelta(t, 5.0/15*100, m.Volatility, 1e-9)
	assert.InDelta(t, 0.0, m.From52wHigh, 1e-9)
	assert.InDelta(t, 100.0, m.From52wLow, 1e-9)

	m = CalculateMetrics(candles, &models.Quote{Price: 15})
	assert.InDelta(t, -25.0, m.From52wHigh, 1e-9)
	assert.InDelta(t, 50.0, m.From52wLow, 1e-9)

	assert.Equal(t, analysis.Metrics{}, CalculateMetrics(nil, nil))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MACDFast = 26
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RSIPeriod = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.BBStdDev = 0
	assert.Error(t, cfg.Validate())
}
