// Package models provides domain models for the watchlist application.
package models

import (
	"regexp"
	"time"
)

// Market identifies the exchange family a symbol trades on.
type Market string

const (
	MarketBursa Market = "MY" // Bursa Malaysia, numeric stock codes
	MarketUS    Market = "US"
)

// MarketStatus represents the current market status.
type MarketStatus string

const (
	MarketOpen    MarketStatus = "OPEN"
	MarketLunch   MarketStatus = "LUNCH_BREAK"
	MarketClosed  MarketStatus = "CLOSED"
	MarketWeekend MarketStatus = "WEEKEND"
)

var bursaCode = regexp.MustCompile(`^\d+$`)

// DetectMarket reports the market of a stock code. Bursa codes are numeric (1155, 5347).
func DetectMarket(code string) Market {
	if bursaCode.MatchString(code) {
		return MarketBursa
	}
	return MarketUS
}

// Candle represents OHLCV data for one interval. Time is epoch seconds.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Timestamp returns the candle time as a time.Time.
func (c Candle) Timestamp() time.Time {
	return time.Unix(c.Time, 0)
}

// Quote represents a current-quote snapshot.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Volume        float64   `json:"volume"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PrevClose     float64   `json:"prevClose"`
	Timestamp     time.Time `json:"timestamp"`
}

// Closes extracts close prices from candles.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts volumes from candles.
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
