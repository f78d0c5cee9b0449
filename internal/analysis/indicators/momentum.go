package indicators

import (
	"fmt"
)

// rsiFlatRS is substituted for RS when a window has no losses. It caps RSI at
// 100 - 100/101 (about 99.01) instead of 100.
const rsiFlatRS = 100.0

// RSI calculates the Relative Strength Index from simple window averages of
// gains and losses (no Wilder smoothing).
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d", r.period)
}

func (r *RSI) Period() int {
	return r.period
}

// Calculate returns len(closes)-period values, one per trailing window of
// period deltas. Fewer than period+1 closes yields an empty series.
func (r *RSI) Calculate(closes []float64) Series {
	n := len(closes)
	if r.period <= 0 || n < r.period+1 {
		return emptySeries(n)
	}

	changes := make([]float64, n-1)
	for i := 1; i < n; i++ {
		changes[i-1] = closes[i] - closes[i-1]
	}

	out := make([]float64, 0, len(changes)-r.period+1)
	for i := r.period; i <= len(changes); i++ {
		var gains, losses float64
		for _, c := range changes[i-r.period : i] {
			if c > 0 {
				gains += c
			} else if c < 0 {
				losses -= c
			}
		}
		avgGain := gains / float64(r.period)
		avgLoss := losses / float64(r.period)

		rs := rsiFlatRS
		if avgLoss != 0 {
			rs = avgGain / avgLoss
		}
		out = append(out, 100-(100/(1+rs)))
	}

	return Series{Values: out, Offset: n - len(out)}
}
