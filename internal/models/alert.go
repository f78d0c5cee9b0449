package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertType is the condition a custom alert watches.
type AlertType string

const (
	AlertPriceAbove  AlertType = "price_above"
	AlertPriceBelow  AlertType = "price_below"
	AlertPercentGain AlertType = "percent_gain"
	AlertPercentLoss AlertType = "percent_loss"
)

// Valid reports whether t is a known alert type.
func (t AlertType) Valid() bool {
	switch t {
	case AlertPriceAbove, AlertPriceBelow, AlertPercentGain, AlertPercentLoss:
		return true
	}
	return false
}

// Alert represents a user-defined price alert. Target is a price for the price_*
// types and a percentage for the percent_* types.
type Alert struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Type        AlertType       `json:"type"`
	Target      decimal.Decimal `json:"target"`
	Enabled     bool            `json:"enabled"`
	Triggered   bool            `json:"triggered"`
	CreatedAt   time.Time       `json:"created_at"`
	TriggeredAt *time.Time      `json:"triggered_at,omitempty"`
}

// AlertPriority mirrors the dashboard badge levels.
type AlertPriority string

const (
	PriorityHigh   AlertPriority = "high"
	PriorityMedium AlertPriority = "medium"
	PriorityLow    AlertPriority = "low"
)

// AlertEvent is a fired alert, either custom or a built-in movement alert.
type AlertEvent struct {
	AlertID   string        `json:"alert_id,omitempty"`
	Kind      string        `json:"kind"` // custom, breakout, breakdown, volume, market
	Symbol    string        `json:"symbol"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Priority  AlertPriority `json:"priority"`
	Price     float64       `json:"price"`
	Timestamp time.Time     `json:"timestamp"`
}
