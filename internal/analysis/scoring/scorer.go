// Package scoring folds indicator, level and pattern evidence into a
// BUY/SELL/HOLD recommendation, and screens many symbols at once.
package scoring

import (
	"math"

	"stockwatch/internal/analysis"
)

const (
	buyThreshold  = 70.0
	sellThreshold = 30.0
	maxConfidence = 95.0
	maxReasons    = 4
)

// InsufficientDataReason is the only reason given when there is nothing to score.
const InsufficientDataReason = "Insufficient data for analysis"

// Recommender applies an ordered list of rules and classifies the result.
type Recommender struct {
	rules []Rule
}

// NewRecommender creates a recommender with DefaultRules.
func NewRecommender() *Recommender {
	return NewRecommenderWithRules(DefaultRules()...)
}

// NewRecommenderWithRules creates a recommender with custom rules, applied in order.
func NewRecommenderWithRules(rules ...Rule) *Recommender {
	return &Recommender{rules: rules}
}

// Recommend never fails. Without a quote or an indicator bundle it returns HOLD
// with zero confidence.
func (r *Recommender) Recommend(c Context) analysis.Recommendation {
	if c.Quote == nil || c.Bundle == nil {
		return analysis.Recommendation{
			Action:  analysis.ActionHold,
			Reasons: []string{InsufficientDataReason},
		}
	}

	var bullish, bearish float64
	reasons := make([]string, 0, maxReasons)
	for _, rule := range r.rules {
		for _, contrib := range rule(c) {
			if contrib.Side == Bullish {
				bullish += contrib.Amount
			} else {
				bearish += contrib.Amount
			}
			if len(reasons) < maxReasons {
				reasons = append(reasons, contrib.Reason)
			}
		}
	}

	action, confidence := Classify(bullish, bearish)
	return analysis.Recommendation{
		Action:       action,
		Confidence:   int(roundHalfUp(confidence)),
		BullishScore: roundHalfUp(bullish),
		BearishScore: roundHalfUp(bearish),
		Reasons:      reasons,
	}
}

// BullishPercent is the bullish share of the total score, 50 when both are zero.
func BullishPercent(bullish, bearish float64) float64 {
	total := bullish + bearish
	if total <= 0 {
		return 50
	}
	return bullish / total * 100
}

// Classify maps the scores to an action and unrounded confidence. Both
// thresholds are inclusive.
func Classify(bullish, bearish float64) (analysis.Action, float64) {
	bp := BullishPercent(bullish, bearish)
	switch {
	case bp >= buyThreshold:
		return analysis.ActionBuy, math.Min(maxConfidence, bp)
	case bp <= sellThreshold:
		return analysis.ActionSell, math.Min(maxConfidence, 100-bp)
	default:
		return analysis.ActionHold, 50 + math.Abs(50-bp)
	}
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
