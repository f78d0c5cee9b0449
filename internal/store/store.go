// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"stockwatch/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Candles
	SaveCandles(ctx context.Context, symbol, interval string, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol, interval string, filter CandleFilter) ([]models.Candle, error)
	LatestCandleTime(ctx context.Context, symbol, interval string) (int64, error)

	// Watchlist
	AddToWatchlist(ctx context.Context, symbol, listName string) error
	RemoveFromWatchlist(ctx context.Context, symbol, listName string) error
	GetWatchlist(ctx context.Context, listName string) ([]string, error)
	GetAllWatchlists(ctx context.Context) (map[string][]string, error)

	// Alerts
	SaveAlert(ctx context.Context, alert *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	GetAlerts(ctx context.Context, filter AlertFilter) ([]models.Alert, error)
	DeleteAlert(ctx context.Context, id string) error
	ToggleAlert(ctx context.Context, id string) (bool, error)
	MarkAlertTriggered(ctx context.Context, id string) error

	// Portfolio
	SaveHolding(ctx context.Context, holding *models.Holding) error
	GetHolding(ctx context.Context, id string) (*models.Holding, error)
	GetHoldings(ctx context.Context) ([]models.Holding, error)
	DeleteHolding(ctx context.Context, id string) error

	// Lifecycle
	Close() error
}

// CandleFilter narrows a candle query. Zero values mean no bound.
type CandleFilter struct {
	From  int64 // epoch seconds, inclusive
	To    int64 // epoch seconds, inclusive
	Limit int   // most recent N, still returned oldest first
}

// AlertFilter represents filters for querying alerts.
type AlertFilter struct {
	Symbol     string
	ActiveOnly bool // enabled and not yet triggered
}
