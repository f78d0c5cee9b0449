package indicators

import (
	"fmt"

	"github.com/markcheno/go-talib"
)

// BollingerResult holds the three bands. All share the SMA's Offset.
type BollingerResult struct {
	Upper  Series `json:"upper"`
	Middle Series `json:"middle"`
	Lower  Series `json:"lower"`
}

// BollingerBands calculates Bollinger Bands.
type BollingerBands struct {
	period    int
	stdDevMul float64
}

// NewBollingerBands creates a new Bollinger Bands indicator.
func NewBollingerBands(period int, stdDevMul float64) *BollingerBands {
	return &BollingerBands{
		period:    period,
		stdDevMul: stdDevMul,
	}
}

func (b *BollingerBands) Name() string {
	return fmt.Sprintf("BollingerBands_%d_%.1f", b.period, b.stdDevMul)
}

func (b *BollingerBands) Period() int {
	return b.period
}

func (b *BollingerBands) Calculate(closes []float64) BollingerResult {
	middle := SMA(closes, b.period)
	if middle.Empty() {
		n := len(closes)
		return BollingerResult{Upper: emptySeries(n), Middle: middle, Lower: emptySeries(n)}
	}

	// Population deviation per window, zero-padded over the lookback like Sma.
	sd := talib.StdDev(closes, b.period, 1.0)
	upper := make([]float64, middle.Len())
	lower := make([]float64, middle.Len())
	for i, sma := range middle.Values {
		dev := sd[i+middle.Offset]
		upper[i] = sma + b.stdDevMul*dev
		lower[i] = sma - b.stdDevMul*dev
	}

	return BollingerResult{
		Upper:  Series{Values: upper, Offset: middle.Offset},
		Middle: middle,
		Lower:  Series{Values: lower, Offset: middle.Offset},
	}
}
