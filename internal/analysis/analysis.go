// Package analysis provides the shared result types of the technical-analysis
// engine: signals, patterns, trend, levels, metrics and recommendations.
package analysis

// SignalType is the direction of a discrete indicator signal.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
)

// SignalIndicator names the indicator that produced a signal.
type SignalIndicator string

const (
	IndicatorRSI  SignalIndicator = "RSI"
	IndicatorMACD SignalIndicator = "MACD"
)

// SignalStrength labels how much weight a signal carries.
type SignalStrength string

const (
	StrengthStrong SignalStrength = "Strong"
	StrengthMedium SignalStrength = "Medium"
)

// SignalRecord is a single BUY/SELL signal emitted from the latest indicator values.
type SignalRecord struct {
	Type      SignalType      `json:"type"`
	Indicator SignalIndicator `json:"indicator"`
	Reason    string          `json:"reason"`
	Strength  SignalStrength  `json:"strength"`
}

// PatternDirection represents the expected direction of a pattern.
type PatternDirection string

const (
	PatternBullish PatternDirection = "bullish"
	PatternBearish PatternDirection = "bearish"
	PatternNeutral PatternDirection = "neutral"
)

// Pattern represents a detected chart pattern.
type Pattern struct {
	Name        string           `json:"name"`
	Type        PatternDirection `json:"type"`
	Description string           `json:"description"`
	Confidence  int              `json:"confidence"`
}

// Trend classifies the direction of the recent regression slope.
type Trend string

const (
	TrendStrongUp   Trend = "Strong Uptrend"
	TrendUp         Trend = "Uptrend"
	TrendSideways   Trend = "Sideways"
	TrendDown       Trend = "Downtrend"
	TrendStrongDown Trend = "Strong Downtrend"
	TrendUnknown    Trend = "Unknown"
)

// TrendResult is the output of trend detection. Slope is percent per bar.
type TrendResult struct {
	Trend    Trend   `json:"trend"`
	Strength float64 `json:"strength"`
	Slope    float64 `json:"slope"`
}

// SupportResistance holds the derived price levels. Both are nil when history is too short.
type SupportResistance struct {
	Support    *float64 `json:"support"`
	Resistance *float64 `json:"resistance"`
}

// Valid reports whether both levels are present and non-zero.
func (sr SupportResistance) Valid() bool {
	return sr.Support != nil && sr.Resistance != nil && *sr.Support != 0 && *sr.Resistance != 0
}

// Metrics summarises the fetched price history.
type Metrics struct {
	High52w     float64 `json:"high52w"`
	Low52w      float64 `json:"low52w"`
	AvgVolume   float64 `json:"avgVolume"`
	Volatility  float64 `json:"volatility"`
	From52wHigh float64 `json:"from52wHigh"`
	From52wLow  float64 `json:"from52wLow"`
}

// Action is the final recommendation.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Recommendation is the aggregated BUY/SELL/HOLD verdict.
type Recommendation struct {
	Action       Action   `json:"action"`
	Confidence   int      `json:"confidence"`
	BullishScore float64  `json:"bullishScore"`
	BearishScore float64  `json:"bearishScore"`
	Reasons      []string `json:"reasons"`
}
