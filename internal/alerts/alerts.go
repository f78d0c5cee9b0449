// Package alerts evaluates user price alerts and built-in movement alerts
// against live quotes.
package alerts

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/logging"
	"stockwatch/internal/models"
	"stockwatch/internal/notify"
	"stockwatch/internal/quotes"
	"stockwatch/internal/store"
	"stockwatch/internal/watchlist"
	"stockwatch/pkg/utils"
)

// Movement thresholds, in percent.
const (
	BreakoutThreshold    = 2.0
	LargeChangeThreshold = 5.0
	IndexMoveThreshold   = 0.5
	IndexHighThreshold   = 1.0
)

// Volume surge fires when a quote trades more than VolumeSurgeMultiple times
// VolumeBaseline shares.
const (
	VolumeBaseline      = 5_000_000.0
	VolumeSurgeMultiple = 2.0
)

// New validates input and builds an enabled alert with a fresh ID.
func New(symbol string, typ models.AlertType, target string, now time.Time) (*models.Alert, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, apperrors.NewValidationError("symbol", symbol, "must not be empty")
	}
	if !typ.Valid() {
		return nil, apperrors.NewValidationError("type", typ, "must be one of price_above, price_below, percent_gain, percent_loss")
	}
	t, err := decimal.NewFromString(strings.TrimSpace(target))
	if err != nil {
		return nil, apperrors.NewValidationError("target", target, "must be a number")
	}
	if !t.IsPositive() {
		return nil, apperrors.NewValidationError("target", target, "must be positive")
	}

	return &models.Alert{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Type:      typ,
		Target:    t,
		Enabled:   true,
		CreatedAt: now,
	}, nil
}

// Evaluate reports whether alert fires for quote, with a message describing why.
// Price comparisons use the quote price rounded to 4 places.
func Evaluate(alert models.Alert, quote models.Quote) (bool, string) {
	price := decimal.NewFromFloat(quote.Price).Round(4)
	change := decimal.NewFromFloat(quote.ChangePercent).Round(4)
	cur := utils.CurrencySymbol(alert.Symbol)

	switch alert.Type {
	case models.AlertPriceAbove:
		if price.GreaterThanOrEqual(alert.Target) {
			return true, fmt.Sprintf("Price reached %s%.2f (target: %s%s)", cur, quote.Price, cur, alert.Target.String())
		}
	case models.AlertPriceBelow:
		if price.LessThanOrEqual(alert.Target) {
			return true, fmt.Sprintf("Price dropped to %s%.2f (target: %s%s)", cur, quote.Price, cur, alert.Target.String())
		}
	case models.AlertPercentGain:
		if change.GreaterThanOrEqual(alert.Target) {
			return true, fmt.Sprintf("Stock gained %.2f%% today (target: %s%%)", quote.ChangePercent, alert.Target.String())
		}
	case models.AlertPercentLoss:
		if change.LessThanOrEqual(alert.Target.Neg()) {
			return true, fmt.Sprintf("Stock dropped %.2f%% today (target: %s%%)", math.Abs(quote.ChangePercent), alert.Target.String())
		}
	}
	return false, ""
}

// Movement returns the built-in breakout or breakdown alert for a quote whose
// absolute change is at least BreakoutThreshold.
func Movement(quote models.Quote) (models.AlertEvent, bool) {
	abs := math.Abs(quote.ChangePercent)
	if abs < BreakoutThreshold {
		return models.AlertEvent{}, false
	}

	up := quote.ChangePercent > 0
	kind, title, verb := "breakdown", "Breakdown", "dropped"
	if up {
		kind, title, verb = "breakout", "Breakout", "surged"
	}
	priority := models.PriorityMedium
	if abs >= LargeChangeThreshold {
		priority = models.PriorityHigh
	}

	return models.AlertEvent{
		Kind:      kind,
		Symbol:    quote.Symbol,
		Title:     fmt.Sprintf("%s Price %s", watchlist.DisplayName(quote.Symbol), title),
		Message:   fmt.Sprintf("Stock %s %.2f%% to %s", verb, abs, utils.FormatPrice(quote.Symbol, quote.Price)),
		Priority:  priority,
		Price:     quote.Price,
		Timestamp: quote.Timestamp,
	}, true
}

// VolumeSurge returns the built-in volume alert for a quote trading above the
// surge level.
func VolumeSurge(quote models.Quote) (models.AlertEvent, bool) {
	if quote.Volume <= VolumeBaseline*VolumeSurgeMultiple {
		return models.AlertEvent{}, false
	}
	return models.AlertEvent{
		Kind:      "volume",
		Symbol:    quote.Symbol,
		Title:     fmt.Sprintf("%s Volume Surge", watchlist.DisplayName(quote.Symbol)),
		Message:   fmt.Sprintf("Trading volume %.1fx above average at %.2fM", quote.Volume/VolumeBaseline, quote.Volume/1e6),
		Priority:  models.PriorityMedium,
		Price:     quote.Price,
		Timestamp: quote.Timestamp,
	}, true
}

// IndexMove returns the market alert for a KLCI quote that moved at least
// IndexMoveThreshold percent.
func IndexMove(quote models.Quote) (models.AlertEvent, bool) {
	abs := math.Abs(quote.ChangePercent)
	if abs < IndexMoveThreshold {
		return models.AlertEvent{}, false
	}

	title, dir := "Decline", "down"
	if quote.ChangePercent > 0 {
		title, dir = "Rally", "up"
	}
	priority := models.PriorityLow
	if abs >= IndexHighThreshold {
		priority = models.PriorityHigh
	}

	return models.AlertEvent{
		Kind:      "market",
		Symbol:    quote.Symbol,
		Title:     "KLCI Market " + title,
		Message:   fmt.Sprintf("FTSE Bursa Malaysia KLCI %s %.2f%% at %.2f points", dir, abs, quote.Price),
		Priority:  priority,
		Price:     quote.Price,
		Timestamp: quote.Timestamp,
	}, true
}

// Monitor checks stored alerts against quotes and sends what fires.
type Monitor struct {
	store    store.DataStore
	notifier notify.Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewMonitor creates a Monitor. notifier may be nil.
func NewMonitor(st store.DataStore, notifier notify.Notifier, logger zerolog.Logger) *Monitor {
	return &Monitor{store: st, notifier: notifier, logger: logger, now: time.Now}
}

// Check evaluates every enabled, untriggered alert against latest (keyed by
// symbol), marks fired alerts triggered, and adds the built-in alerts. Custom
// alerts come first, in creation order. Movement and volume alerts follow in
// quote order. A KLCI quote yields only the market alert, which goes last.
func (m *Monitor) Check(ctx context.Context, latest []models.Quote) ([]models.AlertEvent, error) {
	bySymbol := make(map[string]models.Quote, len(latest))
	for _, q := range latest {
		bySymbol[strings.ToUpper(q.Symbol)] = q
	}

	active, err := m.store.GetAlerts(ctx, store.AlertFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("loading alerts: %w", err)
	}

	var events []models.AlertEvent
	for _, a := range active {
		q, ok := bySymbol[a.Symbol]
		if !ok {
			continue
		}
		fired, msg := Evaluate(a, q)
		if !fired {
			continue
		}
		if err := m.store.MarkAlertTriggered(ctx, a.ID); err != nil {
			return events, fmt.Errorf("marking alert %s: %w", a.ID, err)
		}

		ts := q.Timestamp
		if ts.IsZero() {
			ts = m.now()
		}
		event := models.AlertEvent{
			AlertID:   a.ID,
			Kind:      "custom",
			Symbol:    a.Symbol,
			Title:     fmt.Sprintf("%s Alert Triggered", watchlist.DisplayName(a.Symbol)),
			Message:   msg,
			Priority:  models.PriorityHigh,
			Price:     q.Price,
			Timestamp: ts,
		}
		logging.LogAlert(m.logger, a.ID, a.Symbol, string(a.Type), q.Price)
		events = append(events, event)
	}

	var market []models.AlertEvent
	for _, q := range latest {
		if strings.EqualFold(q.Symbol, quotes.IndexSymbol) {
			if event, ok := IndexMove(q); ok {
				market = append(market, m.stamp(event))
			}
			continue
		}
		if event, ok := Movement(q); ok {
			events = append(events, m.stamp(event))
		}
		if event, ok := VolumeSurge(q); ok {
			events = append(events, m.stamp(event))
		}
	}
	events = append(events, market...)

	if m.notifier != nil {
		for _, e := range events {
			if err := m.notifier.SendAlert(ctx, e); err != nil {
				m.logger.Warn().Err(err).Str("symbol", e.Symbol).Msg("Failed to send alert")
			}
		}
	}

	return events, nil
}

func (m *Monitor) stamp(e models.AlertEvent) models.AlertEvent {
	if e.Timestamp.IsZero() {
		e.Timestamp = m.now()
	}
	return e
}
