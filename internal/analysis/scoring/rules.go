package scoring

import (
	"fmt"

	"stockwatch/internal/analysis"
	"stockwatch/internal/analysis/indicators"
	"stockwatch/internal/models"
)

// Side is the accumulator a contribution is added to.
type Side int

const (
	Bullish Side = iota
	Bearish
)

func (s Side) String() string {
	if s == Bearish {
		return "bearish"
	}
	return "bullish"
}

// Contribution is one rule's effect on the score.
type Contribution struct {
	Side   Side
	Amount float64
	Reason string
}

// Context is everything the rules read. It is never mutated by a rule.
type Context struct {
	Quote    *models.Quote
	Bundle   *indicators.Bundle
	Patterns []analysis.Pattern
	Levels   analysis.SupportResistance
}

// Rule is a pure scoring function.
type Rule func(Context) []Contribution

// Rule weights.
const (
	rsiExtremeScore   = 30.0
	rsiHealthyScore   = 10.0
	macdCrossScore    = 25.0
	macdMomentumScore = 10.0
	levelScore        = 20.0
	levelDistancePct  = 2.0
	patternWeight     = 0.2
	activeVolumeScore = 5.0
)

// DefaultRules returns the rules in evaluation order. Order decides which
// reasons survive the cut to four.
func DefaultRules() []Rule {
	return []Rule{RSIRule, MACDRule, LevelsRule, PatternRule, VolumeRule}
}

// RSIRule scores the latest RSI: oversold, overbought, or the 50-60 band.
func RSIRule(c Context) []Contribution {
	rsi, ok := c.Bundle.RSI.Last()
	if !ok {
		return nil
	}
	switch {
	case rsi < indicators.RSIOversold:
		return one(Bullish, rsiExtremeScore, fmt.Sprintf("RSI oversold (%.1f) - potential bounce", rsi))
	case rsi > indicators.RSIOverbought:
		return one(Bearish, rsiExtremeScore, fmt.Sprintf("RSI overbought (%.1f) - potential pullback", rsi))
	case rsi >= 50 && rsi <= 60:
		return one(Bullish, rsiHealthyScore, fmt.Sprintf("RSI healthy (%.1f) - room for upside", rsi))
	}
	return nil
}

// MACDRule scores a histogram crossover, falling back to its sign. A zero
// histogram counts as bearish momentum.
func MACDRule(c Context) []Contribution {
	hist := c.Bundle.MACD.Histogram
	if hist.Len() < 2 {
		return nil
	}
	switch indicators.HistogramCross(hist) {
	case indicators.CrossBullish:
		return one(Bullish, macdCrossScore, "MACD bullish crossover - upward momentum")
	case indicators.CrossBearish:
		return one(Bearish, macdCrossScore, "MACD bearish crossover - downward momentum")
	}
	if current, _ := hist.Last(); current > 0 {
		return one(Bullish, macdMomentumScore, "MACD positive - bullish momentum")
	}
	return one(Bearish, macdMomentumScore, "MACD negative - bearish momentum")
}

// LevelsRule scores proximity to support, else to resistance. Support is
// measured relative to the support level, resistance relative to the price.
func LevelsRule(c Context) []Contribution {
	if !c.Levels.Valid() || c.Quote.Price == 0 {
		return nil
	}
	support, resistance := *c.Levels.Support, *c.Levels.Resistance
	toSupport := (c.Quote.Price - support) / support * 100
	toResistance := (resistance - c.Quote.Price) / c.Quote.Price * 100

	if toSupport < levelDistancePct {
		return one(Bullish, levelScore, "Price near support - good risk/reward for long")
	}
	if toResistance < levelDistancePct {
		return one(Bearish, levelScore, "Price near resistance - potential rejection")
	}
	return nil
}

// PatternRule adds a fifth of each directional pattern's confidence.
func PatternRule(c Context) []Contribution {
	var out []Contribution
	for _, p := range c.Patterns {
		reason := fmt.Sprintf("%s detected - %s", p.Name, p.Description)
		amount := float64(p.Confidence) * patternWeight
		switch p.Type {
		case analysis.PatternBullish:
			out = append(out, Contribution{Side: Bullish, Amount: amount, Reason: reason})
		case analysis.PatternBearish:
			out = append(out, Contribution{Side: Bearish, Amount: amount, Reason: reason})
		}
	}
	return out
}

// VolumeRule adds a fixed bullish bonus whenever the quote shows volume.
func VolumeRule(c Context) []Contribution {
	if c.Quote.Volume > 0 {
		return one(Bullish, activeVolumeScore, "Active trading volume")
	}
	return nil
}

func one(side Side, amount float64, reason string) []Contribution {
	return []Contribution{{Side: side, Amount: amount, Reason: reason}}
}
