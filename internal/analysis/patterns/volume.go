package patterns

import (
	"stockwatch/internal/analysis"
)

const (
	breakoutPriceMul  = 1.02
	breakoutVolumeMul = 1.5
	surgeVolumeMul    = 2.0
)

// detectBreakout fires when the last close clears the prior ten closes by 2%
// on volume 1.5x the window average.
func detectBreakout(w window) *analysis.Pattern {
	prior := w.closes[:len(w.closes)-1]
	recentHigh := highest(lastN(prior, w.shortLen))
	if w.lastClose() > recentHigh*breakoutPriceMul && w.lastVolume() > w.avgVolume*breakoutVolumeMul {
		return &analysis.Pattern{
			Name:        "Breakout",
			Type:        analysis.PatternBullish,
			Description: "Price breaking above resistance with strong volume",
			Confidence:  85,
		}
	}
	return nil
}

func detectVolumeSurge(w window) *analysis.Pattern {
	if w.lastVolume() > w.avgVolume*surgeVolumeMul {
		return &analysis.Pattern{
			Name:        "Volume Surge",
			Type:        analysis.PatternNeutral,
			Description: "Unusual trading volume detected - potential trend change",
			Confidence:  70,
		}
	}
	return nil
}
