// Package quotes fetches price history and current quotes from upstream
// market data sources, with caching and an offline fallback to the local store.
package quotes

import (
	"context"
	"strings"
	"time"

	"stockwatch/internal/models"
)

// Provider supplies candles and current quotes for a symbol.
type Provider interface {
	Candles(ctx context.Context, symbol, rng, interval string) ([]models.Candle, error)
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// IndexSymbol is the FTSE Bursa Malaysia KLCI index.
const IndexSymbol = "KLCI"

// YahooSymbol maps a stock code to its Yahoo ticker. Bursa codes get the .KL
// suffix; the KLCI alias maps to ^KLSE.
func YahooSymbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == IndexSymbol {
		return "^KLSE"
	}
	if models.DetectMarket(code) == models.MarketBursa {
		return code + ".KL"
	}
	return code
}

var rangeDurations = map[string]time.Duration{
	"1d":  24 * time.Hour,
	"5d":  5 * 24 * time.Hour,
	"1mo": 31 * 24 * time.Hour,
	"3mo": 92 * 24 * time.Hour,
	"6mo": 183 * 24 * time.Hour,
	"1y":  366 * 24 * time.Hour,
	"2y":  2 * 366 * 24 * time.Hour,
	"5y":  5 * 366 * 24 * time.Hour,
}

// RangeDuration converts a Yahoo range string to a duration. Unknown ranges
// return 0, meaning unbounded.
func RangeDuration(rng string) time.Duration {
	return rangeDurations[rng]
}

// ValidRange reports whether rng is a range the providers understand.
func ValidRange(rng string) bool {
	_, ok := rangeDurations[rng]
	return ok || rng == "max"
}

// ValidInterval reports whether interval is a supported bar interval.
func ValidInterval(interval string) bool {
	switch interval {
	case "1h", "1d", "1wk", "1mo":
		return true
	}
	return false
}
