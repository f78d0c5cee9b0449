// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"math"
	"strings"

	"stockwatch/internal/models"
)

// CurrencySymbol returns RM for Bursa codes and $ otherwise.
func CurrencySymbol(symbol string) string {
	if models.DetectMarket(symbol) == models.MarketBursa {
		return "RM"
	}
	return "$"
}

// FormatPrice formats a price in the currency of the symbol's market. Bursa
// prices keep three decimals, matching the exchange tick size for penny stocks.
func FormatPrice(symbol string, price float64) string {
	if models.DetectMarket(symbol) == models.MarketBursa {
		return fmt.Sprintf("RM %.3f", price)
	}
	return "$" + formatThousands(price, 2)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatVolume formats a share count in compact form (K/M/B).
func FormatVolume(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	}
	return fmt.Sprintf("%.0f", v)
}

// formatThousands formats a number with comma grouping.
func formatThousands(amount float64, decimals int) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.*f", decimals, amount)
	intPart, decPart, _ := strings.Cut(str, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	result := b.String()
	if decPart != "" {
		result += "." + decPart
	}
	if negative {
		result = "-" + result
	}
	return result
}
