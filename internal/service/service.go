// Package service ties the quote provider, the store and the analyzer together
// for the CLI and the HTTP API.
package service

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"stockwatch/internal/analysis/indicators"
	"stockwatch/internal/analysis/mtf"
	"stockwatch/internal/analysis/scoring"
	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/logging"
	"stockwatch/internal/models"
	"stockwatch/internal/quotes"
	"stockwatch/internal/store"
)

// Service runs analyses against live or stored market data.
type Service struct {
	Store    store.DataStore
	Provider quotes.Provider
	Analyzer *scoring.Analyzer

	rng      string
	interval string
	logger   zerolog.Logger
}

// New creates a Service. Empty rng and interval default to 6mo and 1d.
func New(st store.DataStore, provider quotes.Provider, analyzer *scoring.Analyzer, rng, interval string, logger zerolog.Logger) *Service {
	if rng == "" {
		rng = "6mo"
	}
	if interval == "" {
		interval = "1d"
	}
	return &Service{
		Store:    st,
		Provider: provider,
		Analyzer: analyzer,
		rng:      rng,
		interval: interval,
		logger:   logger,
	}
}

// Defaults returns the range and interval used when a caller passes none.
func (s *Service) Defaults() (string, string) {
	return s.rng, s.interval
}

func (s *Service) resolve(symbol, rng, interval string) (string, string, string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", "", "", apperrors.NewValidationError("symbol", symbol, "must not be empty")
	}
	if rng == "" {
		rng = s.rng
	}
	if interval == "" {
		interval = s.interval
	}
	if !quotes.ValidRange(rng) {
		return "", "", "", apperrors.NewValidationError("range", rng, "unsupported range")
	}
	if !quotes.ValidInterval(interval) {
		return "", "", "", apperrors.NewValidationError("interval", interval, "unsupported interval")
	}
	return symbol, rng, interval, nil
}

// Load fetches candles and a quote. A failed quote is replaced by one derived
// from the candles; a failed candle fetch is returned.
func (s *Service) Load(ctx context.Context, symbol, rng, interval string) ([]models.Candle, *models.Quote, error) {
	symbol, rng, interval, err := s.resolve(symbol, rng, interval)
	if err != nil {
		return nil, nil, err
	}

	candles, err := s.Provider.Candles(ctx, symbol, rng, interval)
	if err != nil {
		return nil, nil, err
	}

	quote, err := s.Provider.Quote(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		log := logging.WithSymbol(s.logger, symbol)
		log.Debug().Err(err).Msg("Quote unavailable, deriving from candles")
		quote = quotes.QuoteFromCandles(symbol, candles)
	}
	return candles, quote, nil
}

// Analyze loads data and runs the full analysis pipeline.
func (s *Service) Analyze(ctx context.Context, symbol, rng, interval string) (*scoring.Report, error) {
	candles, quote, err := s.Load(ctx, symbol, rng, interval)
	if err != nil {
		return nil, err
	}
	report := s.Analyzer.Analyze(strings.ToUpper(strings.TrimSpace(symbol)), candles, quote)
	return &report, nil
}

// Indicators loads candles and computes only the indicator bundle.
func (s *Service) Indicators(ctx context.Context, symbol, rng, interval string) (indicators.Bundle, error) {
	symbol, rng, interval, err := s.resolve(symbol, rng, interval)
	if err != nil {
		return indicators.Bundle{}, err
	}
	candles, err := s.Provider.Candles(ctx, symbol, rng, interval)
	if err != nil {
		return indicators.Bundle{}, err
	}
	return s.Analyzer.Engine().CalculateCandles(candles), nil
}

// Timeframes analyzes symbol on daily, weekly and monthly bars.
func (s *Service) Timeframes(ctx context.Context, symbol string) (*mtf.Result, error) {
	symbol, _, _, err := s.resolve(symbol, "", "")
	if err != nil {
		return nil, err
	}
	return mtf.NewAnalyzer(s.Analyzer).Analyze(ctx, symbol, s.Load, mtf.DefaultTimeframes())
}

// Source adapts Load to the screener's data source.
func (s *Service) Source(rng, interval string) scoring.DataSource {
	return func(ctx context.Context, symbol string) ([]models.Candle, *models.Quote, error) {
		return s.Load(ctx, symbol, rng, interval)
	}
}

// Quotes fetches quotes concurrently. Symbols that fail are logged and left
// out; the result keeps input order.
func (s *Service) Quotes(ctx context.Context, symbols []string) []models.Quote {
	results := make([]*models.Quote, len(symbols))

	var wg sync.WaitGroup
	sem := make(chan struct{}, 4)
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			q, err := s.Provider.Quote(ctx, symbol)
			if err != nil {
				log := logging.WithSymbol(s.logger, symbol)
				log.Warn().Err(err).Msg("Failed to fetch quote")
				return
			}
			results[i] = q
		}(i, symbol)
	}
	wg.Wait()

	out := make([]models.Quote, 0, len(symbols))
	for _, q := range results {
		if q != nil {
			out = append(out, *q)
		}
	}
	return out
}
