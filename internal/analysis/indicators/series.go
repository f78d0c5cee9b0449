// Package indicators provides windowed series math and the indicator engine
// (SMA, EMA, RSI, MACD, Bollinger Bands, volume MA) over closing prices.
package indicators

import (
	"github.com/markcheno/go-talib"
)

// Series is a right-aligned derived sequence. Offset is the number of leading
// source elements that have no value, so Values[i] belongs to source index
// i+Offset and len(source) == Offset+len(Values).
type Series struct {
	Values []float64 `json:"values"`
	Offset int       `json:"offset"`
}

// emptySeries is the degraded result for a source of length n with no values.
func emptySeries(n int) Series {
	return Series{Values: []float64{}, Offset: n}
}

// Len returns the number of values.
func (s Series) Len() int {
	return len(s.Values)
}

// Empty reports whether the series has no values.
func (s Series) Empty() bool {
	return len(s.Values) == 0
}

// SourceLen returns the length of the source the series was derived from.
func (s Series) SourceLen() int {
	return s.Offset + len(s.Values)
}

// Last returns the final value.
func (s Series) Last() (float64, bool) {
	return s.FromEnd(1)
}

// FromEnd returns the k-th value counted from the end (k=1 is the last value).
func (s Series) FromEnd(k int) (float64, bool) {
	if k <= 0 || k > len(s.Values) {
		return 0, false
	}
	return s.Values[len(s.Values)-k], true
}

// At returns the value aligned with the given source index.
func (s Series) At(sourceIndex int) (float64, bool) {
	i := sourceIndex - s.Offset
	if i < 0 || i >= len(s.Values) {
		return 0, false
	}
	return s.Values[i], true
}

// Tail returns the trailing n values (all of them when fewer exist).
func (s Series) Tail(n int) []float64 {
	return lastN(s.Values, n)
}

// SMA computes the simple moving average of every window of period consecutive
// values. The result has max(0, len(values)-period+1) values.
func SMA(values []float64, period int) Series {
	n := len(values)
	if period <= 0 || n < period {
		return emptySeries(n)
	}

	// talib pads the lookback with zeros.
	out := talib.Sma(values, period)
	return Series{Values: out[period-1:], Offset: period - 1}
}

// EMA computes the exponential moving average seeded with the first value. It
// yields one value per input element, unlike SMA, so its Offset is always 0.
func EMA(values []float64, period int) Series {
	n := len(values)
	if n == 0 || period <= 0 {
		return emptySeries(n)
	}

	k := 2.0 / float64(period+1)
	out := make([]float64, n)
	out[0] = values[0]
	for i := 1; i < n; i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return Series{Values: out}
}
