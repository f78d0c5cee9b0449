package quotes

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/models"
	"stockwatch/internal/store"
)

// StoreBackedProvider persists fetched candles and falls back to them when
// the upstream fails. In offline mode the upstream is never called.
type StoreBackedProvider struct {
	next    Provider
	store   store.DataStore
	offline bool
	logger  zerolog.Logger
	now     func() time.Time
}

// NewStoreBackedProvider wraps next with the local store. next may be nil
// when offline is true.
func NewStoreBackedProvider(next Provider, st store.DataStore, offline bool, logger zerolog.Logger) *StoreBackedProvider {
	return &StoreBackedProvider{next: next, store: st, offline: offline || next == nil, logger: logger, now: time.Now}
}

// Candles fetches upstream and saves the result, or serves stored candles.
func (p *StoreBackedProvider) Candles(ctx context.Context, symbol, rng, interval string) ([]models.Candle, error) {
	symbol = strings.ToUpper(symbol)
	if p.offline {
		return p.stored(ctx, symbol, rng, interval)
	}

	candles, err := p.next.Candles(ctx, symbol, rng, interval)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		stored, serr := p.stored(ctx, symbol, rng, interval)
		if serr != nil {
			return nil, err
		}
		p.logger.Warn().Err(err).Str("symbol", symbol).Int("candles", len(stored)).Msg("Upstream failed, serving stored candles")
		return stored, nil
	}

	if err := p.store.SaveCandles(ctx, symbol, interval, candles); err != nil {
		p.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to persist candles")
	}
	return candles, nil
}

// Quote fetches upstream or derives a quote from the last two stored daily candles.
func (p *StoreBackedProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol = strings.ToUpper(symbol)
	if !p.offline {
		q, err := p.next.Quote(ctx, symbol)
		if err == nil || ctx.Err() != nil {
			return q, err
		}
		stored, serr := p.storedQuote(ctx, symbol)
		if serr != nil {
			return nil, err
		}
		p.logger.Warn().Err(err).Str("symbol", symbol).Msg("Upstream failed, serving stored quote")
		return stored, nil
	}
	return p.storedQuote(ctx, symbol)
}

func (p *StoreBackedProvider) stored(ctx context.Context, symbol, rng, interval string) ([]models.Candle, error) {
	filter := store.CandleFilter{}
	if d := RangeDuration(rng); d > 0 {
		filter.From = p.now().Add(-d).Unix()
	}
	candles, err := p.store.GetCandles(ctx, symbol, interval, filter)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, apperrors.NewDataError("candles", symbol, "no stored candles", apperrors.ErrDataNotFound)
	}
	return candles, nil
}

func (p *StoreBackedProvider) storedQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	candles, err := p.store.GetCandles(ctx, symbol, "1d", store.CandleFilter{Limit: 2})
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, apperrors.NewDataError("quote", symbol, "no stored candles", apperrors.ErrDataNotFound)
	}
	return QuoteFromCandles(symbol, candles), nil
}

// QuoteFromCandles builds a quote from the last candle, using the one before
// it as the previous close.
func QuoteFromCandles(symbol string, candles []models.Candle) *models.Quote {
	if len(candles) == 0 {
		return nil
	}
	last := candles[len(candles)-1]
	q := &models.Quote{
		Symbol:    strings.ToUpper(symbol),
		Price:     last.Close,
		Volume:    last.Volume,
		High:      last.High,
		Low:       last.Low,
		PrevClose: last.Open,
		Timestamp: last.Timestamp(),
	}
	if len(candles) > 1 {
		q.PrevClose = candles[len(candles)-2].Close
	}
	if q.PrevClose > 0 {
		q.Change = q.Price - q.PrevClose
		q.ChangePercent = q.Change / q.PrevClose * 100
	}
	return q
}
