package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BuyDateLayout is the calendar-date format of Holding.BuyDate.
const BuyDateLayout = "2006-01-02"

// Holding is a lot of shares the user owns, bought at BuyPrice.
type Holding struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	BuyPrice  decimal.Decimal `json:"buy_price"`
	BuyDate   string          `json:"buy_date"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
