package indicators

import (
	"fmt"
)

// MovingAverage calculates a simple or exponential moving average over closes.
type MovingAverage struct {
	period      int
	exponential bool
}

// NewSMA creates a simple moving average indicator.
func NewSMA(period int) *MovingAverage {
	return &MovingAverage{period: period}
}

// NewEMA creates an exponential moving average indicator.
func NewEMA(period int) *MovingAverage {
	return &MovingAverage{period: period, exponential: true}
}

func (m *MovingAverage) Name() string {
	if m.exponential {
		return fmt.Sprintf("EMA_%d", m.period)
	}
	return fmt.Sprintf("SMA_%d", m.period)
}

func (m *MovingAverage) Period() int {
	return m.period
}

func (m *MovingAverage) Calculate(values []float64) Series {
	if m.exponential {
		return EMA(values, m.period)
	}
	return SMA(values, m.period)
}

// MACDResult holds the three MACD lines. All three share the same Offset.
type MACDResult struct {
	MACD      Series `json:"macd"`
	Signal    Series `json:"signal"`
	Histogram Series `json:"histogram"`
}

// MACD calculates Moving Average Convergence Divergence.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD indicator (conventionally 12, 26, 9).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD_%d_%d_%d", m.fastPeriod, m.slowPeriod, m.signalPeriod)
}

func (m *MACD) Period() int {
	return m.slowPeriod
}

// Calculate returns the MACD line, its signal line and the histogram. The MACD
// line starts slow-fast bars in and pairs fast EMA i with slow EMA i-(slow-fast).
func (m *MACD) Calculate(closes []float64) MACDResult {
	n := len(closes)
	if m.fastPeriod <= 0 || m.slowPeriod <= 0 || n < m.slowPeriod {
		return MACDResult{MACD: emptySeries(n), Signal: emptySeries(n), Histogram: emptySeries(n)}
	}

	fastEMA := EMA(closes, m.fastPeriod)
	slowEMA := EMA(closes, m.slowPeriod)

	start := m.slowPeriod - m.fastPeriod
	if start < 0 {
		start = 0
	}

	// MACD Line = Fast EMA - Slow EMA
	macdLine := make([]float64, 0, n-start)
	for i := start; i < n; i++ {
		macdLine = append(macdLine, fastEMA.Values[i]-slowEMA.Values[i-start])
	}

	// Signal Line = EMA of MACD Line
	signal := EMA(macdLine, m.signalPeriod)

	// Histogram = MACD Line - Signal Line, aligned to the signal start
	signalStart := len(macdLine) - signal.Len()
	histogram := make([]float64, signal.Len())
	for i := range histogram {
		histogram[i] = macdLine[i+signalStart] - signal.Values[i]
	}

	return MACDResult{
		MACD:      Series{Values: macdLine, Offset: start},
		Signal:    Series{Values: signal.Values, Offset: start + signal.Offset},
		Histogram: Series{Values: histogram, Offset: start + signalStart},
	}
}
