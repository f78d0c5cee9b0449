package indicators

import (
	"stockwatch/internal/analysis"
)

// RSI thresholds shared by signal detection and recommendation scoring.
const (
	RSIOversold   = 30.0
	RSIOverbought = 70.0
)

// DetectSignals emits at most one RSI and one MACD signal from the latest values.
func DetectSignals(rsi Series, macd MACDResult) []analysis.SignalRecord {
	signals := make([]analysis.SignalRecord, 0, 2)

	if latest, ok := rsi.Last(); ok {
		if latest < RSIOversold {
			signals = append(signals, analysis.SignalRecord{
				Type:      analysis.SignalBuy,
				Indicator: analysis.IndicatorRSI,
				Reason:    "Oversold (RSI < 30)",
				Strength:  analysis.StrengthStrong,
			})
		} else if latest > RSIOverbought {
			signals = append(signals, analysis.SignalRecord{
				Type:      analysis.SignalSell,
				Indicator: analysis.IndicatorRSI,
				Reason:    "Overbought (RSI > 70)",
				Strength:  analysis.StrengthStrong,
			})
		}
	}

	switch HistogramCross(macd.Histogram) {
	case CrossBullish:
		signals = append(signals, analysis.SignalRecord{
			Type:      analysis.SignalBuy,
			Indicator: analysis.IndicatorMACD,
			Reason:    "Bullish crossover",
			Strength:  analysis.StrengthMedium,
		})
	case CrossBearish:
		signals = append(signals, analysis.SignalRecord{
			Type:      analysis.SignalSell,
			Indicator: analysis.IndicatorMACD,
			Reason:    "Bearish crossover",
			Strength:  analysis.StrengthMedium,
		})
	}

	return signals
}

// Cross describes a sign change between the last two histogram values.
type Cross int

const (
	CrossNone Cross = iota
	CrossBullish
	CrossBearish
)

// HistogramCross compares the last two histogram values for a zero-line cross.
func HistogramCross(histogram Series) Cross {
	current, ok := histogram.FromEnd(1)
	if !ok {
		return CrossNone
	}
	previous, ok := histogram.FromEnd(2)
	if !ok {
		return CrossNone
	}
	switch {
	case previous < 0 && current > 0:
		return CrossBullish
	case previous > 0 && current < 0:
		return CrossBearish
	}
	return CrossNone
}
