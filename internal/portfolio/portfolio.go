// Package portfolio tracks owned holdings and values them against live quotes.
package portfolio

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/models"
	"stockwatch/internal/store"
	"stockwatch/internal/watchlist"
	"stockwatch/pkg/utils"
)

var hundred = decimal.NewFromInt(100)

// Input is a new holding as entered by the user. Numbers are decimal strings.
type Input struct {
	Symbol   string
	Quantity string
	BuyPrice string
	BuyDate  string // YYYY-MM-DD, defaults to today in Kuala Lumpur
	Notes    string
}

// Update changes the non-nil fields of a holding.
type Update struct {
	Quantity *string
	BuyPrice *string
	BuyDate  *string
	Notes    *string
}

// New validates in and builds a holding with a fresh ID.
func New(in Input, now time.Time) (*models.Holding, error) {
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if symbol == "" {
		return nil, apperrors.NewValidationError("symbol", in.Symbol, "must not be empty")
	}
	qty, err := positive("quantity", in.Quantity)
	if err != nil {
		return nil, err
	}
	price, err := positive("buy_price", in.BuyPrice)
	if err != nil {
		return nil, err
	}
	date := strings.TrimSpace(in.BuyDate)
	if date == "" {
		date = now.In(utils.BursaLocation).Format(models.BuyDateLayout)
	} else if err := validDate(date); err != nil {
		return nil, err
	}

	h := &models.Holding{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Quantity:  qty,
		BuyPrice:  price,
		BuyDate:   date,
		Notes:     strings.TrimSpace(in.Notes),
		CreatedAt: now,
	}
	if name := watchlist.DisplayName(symbol); name != symbol {
		h.Name = name
	}
	return h, nil
}

// Apply validates u and writes it onto h. h is unchanged on error.
func Apply(h *models.Holding, u Update) error {
	next := *h
	if u.Quantity != nil {
		qty, err := positive("quantity", *u.Quantity)
		if err != nil {
			return err
		}
		next.Quantity = qty
	}
	if u.BuyPrice != nil {
		price, err := positive("buy_price", *u.BuyPrice)
		if err != nil {
			return err
		}
		next.BuyPrice = price
	}
	if u.BuyDate != nil {
		date := strings.TrimSpace(*u.BuyDate)
		if err := validDate(date); err != nil {
			return err
		}
		next.BuyDate = date
	}
	if u.Notes != nil {
		next.Notes = strings.TrimSpace(*u.Notes)
	}
	*h = next
	return nil
}

func positive(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, apperrors.NewValidationError(field, raw, "must be a number")
	}
	if !d.IsPositive() {
		return decimal.Zero, apperrors.NewValidationError(field, raw, "must be positive")
	}
	return d, nil
}

func validDate(date string) error {
	if _, err := time.Parse(models.BuyDateLayout, date); err != nil {
		return apperrors.NewValidationError("buy_date", date, "must be YYYY-MM-DD")
	}
	return nil
}

// HoldingStats is a holding valued at its current price. A holding without a
// quote has zero current price and value.
type HoldingStats struct {
	models.Holding
	CurrentPrice    decimal.Decimal `json:"current_price"`
	InvestedAmount  decimal.Decimal `json:"invested_amount"`
	CurrentValue    decimal.Decimal `json:"current_value"`
	GainLoss        decimal.Decimal `json:"gain_loss"`
	GainLossPercent decimal.Decimal `json:"gain_loss_percent"`
	Change          float64         `json:"change"`
	ChangePercent   float64         `json:"change_percent"`
}

// Stats is the valued portfolio with totals.
type Stats struct {
	Holdings             []HoldingStats  `json:"holdings"`
	TotalInvestment      decimal.Decimal `json:"total_investment"`
	TotalCurrentValue    decimal.Decimal `json:"total_current_value"`
	TotalGainLoss        decimal.Decimal `json:"total_gain_loss"`
	TotalGainLossPercent decimal.Decimal `json:"total_gain_loss_percent"`
	TotalHoldings        int             `json:"total_holdings"`
}

// Calculate values holdings against prices keyed by symbol. Percentages are
// rounded to 2 places and are 0 when nothing was invested.
func Calculate(holdings []models.Holding, prices map[string]models.Quote) Stats {
	stats := Stats{
		Holdings:      make([]HoldingStats, 0, len(holdings)),
		TotalHoldings: len(holdings),
	}

	for _, h := range holdings {
		hs := HoldingStats{Holding: h}
		hs.InvestedAmount = h.Quantity.Mul(h.BuyPrice)
		if q, ok := prices[h.Symbol]; ok {
			hs.CurrentPrice = decimal.NewFromFloat(q.Price)
			hs.CurrentValue = h.Quantity.Mul(hs.CurrentPrice)
			hs.Change = q.Change
			hs.ChangePercent = q.ChangePercent
		}
		hs.GainLoss = hs.CurrentValue.Sub(hs.InvestedAmount)
		hs.GainLossPercent = percentOf(hs.GainLoss, hs.InvestedAmount)

		stats.TotalInvestment = stats.TotalInvestment.Add(hs.InvestedAmount)
		stats.TotalCurrentValue = stats.TotalCurrentValue.Add(hs.CurrentValue)
		stats.TotalGainLoss = stats.TotalGainLoss.Add(hs.GainLoss)
		stats.Holdings = append(stats.Holdings, hs)
	}

	stats.TotalGainLossPercent = percentOf(stats.TotalGainLoss, stats.TotalInvestment)
	return stats
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// Symbols returns the distinct symbols of holdings in first-seen order.
func Symbols(holdings []models.Holding) []string {
	seen := make(map[string]bool, len(holdings))
	var out []string
	for _, h := range holdings {
		if !seen[h.Symbol] {
			seen[h.Symbol] = true
			out = append(out, h.Symbol)
		}
	}
	return out
}

// QuoteSource fetches quotes for many symbols, skipping the ones that fail.
type QuoteSource interface {
	Quotes(ctx context.Context, symbols []string) []models.Quote
}

// Tracker persists holdings and values them.
type Tracker struct {
	store  store.DataStore
	quotes QuoteSource
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a Tracker. quotes may be nil when only CRUD is needed.
func NewTracker(st store.DataStore, quotes QuoteSource, logger zerolog.Logger) *Tracker {
	return &Tracker{store: st, quotes: quotes, logger: logger, now: time.Now}
}

// Add validates and stores a new holding.
func (t *Tracker) Add(ctx context.Context, in Input) (*models.Holding, error) {
	h, err := New(in, t.now())
	if err != nil {
		return nil, err
	}
	if err := t.store.SaveHolding(ctx, h); err != nil {
		return nil, err
	}
	t.logger.Info().Str("id", h.ID).Str("symbol", h.Symbol).Str("quantity", h.Quantity.String()).Msg("Holding added")
	return h, nil
}

// Update applies u to the holding with id.
func (t *Tracker) Update(ctx context.Context, id string, u Update) (*models.Holding, error) {
	h, err := t.store.GetHolding(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Apply(h, u); err != nil {
		return nil, err
	}
	if err := t.store.SaveHolding(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Remove deletes the holding with id.
func (t *Tracker) Remove(ctx context.Context, id string) error {
	return t.store.DeleteHolding(ctx, id)
}

// List returns every holding, oldest first.
func (t *Tracker) List(ctx context.Context) ([]models.Holding, error) {
	return t.store.GetHoldings(ctx)
}

// Summary values every holding against fresh quotes.
func (t *Tracker) Summary(ctx context.Context) (Stats, error) {
	holdings, err := t.store.GetHoldings(ctx)
	if err != nil {
		return Stats{}, err
	}

	prices := make(map[string]models.Quote)
	if t.quotes != nil && len(holdings) > 0 {
		symbols := Symbols(holdings)
		for _, q := range t.quotes.Quotes(ctx, symbols) {
			prices[strings.ToUpper(q.Symbol)] = q
		}
		if missing := len(symbols) - len(prices); missing > 0 {
			t.logger.Warn().Int("missing", missing).Msg("Some holdings have no quote")
		}
	}
	return Calculate(holdings, prices), nil
}

// ResolveID expands a unique ID prefix to the full holding ID.
func (t *Tracker) ResolveID(ctx context.Context, prefix string) (string, error) {
	if _, err := t.store.GetHolding(ctx, prefix); err == nil {
		return prefix, nil
	}
	holdings, err := t.store.GetHoldings(ctx)
	if err != nil {
		return "", err
	}
	var match string
	for _, h := range holdings {
		if strings.HasPrefix(h.ID, prefix) {
			if match != "" {
				return "", apperrors.NewValidationError("id", prefix, "ambiguous holding ID prefix")
			}
			match = h.ID
		}
	}
	if match == "" {
		return "", apperrors.Wrapf(apperrors.ErrHoldingNotFound, "holding %s", prefix)
	}
	return match, nil
}
