package utils

import (
	"time"

	"stockwatch/internal/models"
)

// BursaLocation is the timezone for Bursa Malaysia.
var BursaLocation *time.Location

func init() {
	var err error
	BursaLocation, err = time.LoadLocation("Asia/Kuala_Lumpur")
	if err != nil {
		// Fallback to UTC+8
		BursaLocation = time.FixedZone("MYT", 8*60*60)
	}
}

// Session boundaries in minutes after midnight, local time.
const (
	morningOpen    = 9 * 60
	morningClose   = 12*60 + 30
	afternoonOpen  = 14*60 + 30
	afternoonClose = 17 * 60
)

// MarketStatusAt returns the Bursa session state at t.
func MarketStatusAt(t time.Time) models.MarketStatus {
	now := t.In(BursaLocation)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return models.MarketWeekend
	}

	minutes := now.Hour()*60 + now.Minute()
	switch {
	case minutes >= morningOpen && minutes < morningClose:
		return models.MarketOpen
	case minutes >= morningClose && minutes < afternoonOpen:
		return models.MarketLunch
	case minutes >= afternoonOpen && minutes < afternoonClose:
		return models.MarketOpen
	}
	return models.MarketClosed
}

// GetMarketStatus returns the current market status.
func GetMarketStatus() models.MarketStatus {
	return MarketStatusAt(time.Now())
}

// IsMarketOpen returns true if the market is currently open.
func IsMarketOpen() bool {
	return GetMarketStatus() == models.MarketOpen
}

// NextMarketOpenAfter returns the next session start strictly after t,
// including the afternoon session when called during the lunch break.
func NextMarketOpenAfter(t time.Time) time.Time {
	now := t.In(BursaLocation)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, BursaLocation)

	for i := 0; i < 8; i++ {
		d := day.AddDate(0, 0, i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		for _, open := range []int{morningOpen, afternoonOpen} {
			start := d.Add(time.Duration(open) * time.Minute)
			if start.After(now) {
				return start
			}
		}
	}
	return day.AddDate(0, 0, 8)
}

// GetNextMarketOpen returns the next market opening time.
func GetNextMarketOpen() time.Time {
	return NextMarketOpenAfter(time.Now())
}
