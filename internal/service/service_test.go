package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/analysis/indicators"
	"stockwatch/internal/analysis/scoring"
	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/models"
)

type fakeProvider struct {
	mu         sync.Mutex
	candles    map[string][]models.Candle
	quotes     map[string]*models.Quote
	quoteErr   error
	lastRange  string
	lastPeriod string
}

func (p *fakeProvider) Candles(_ context.Context, symbol, rng, interval string) ([]models.Candle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastRange, p.lastPeriod = rng, interval
	c, ok := p.candles[symbol]
	if !ok {
		return nil, apperrors.ErrSymbolNotFound
	}
	return c, nil
}

func (p *fakeProvider) Quote(_ context.Context, symbol string) (*models.Quote, error) {
	if p.quoteErr != nil {
		return nil, p.quoteErr
	}
	q, ok := p.quotes[symbol]
	if !ok {
		return nil, apperrors.ErrSymbolNotFound
	}
	return q, nil
}

func rising(n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		price := 10 + float64(i)*0.1
		out[i] = models.Candle{
			Time:   int64(1700000000 + i*86400),
			Open:   price - 0.05,
			High:   price + 0.1,
			Low:    price - 0.1,
			Close:  price,
			Volume: 1_000_000,
		}
	}
	return out
}

func newService(p *fakeProvider) *Service {
	analyzer := scoring.NewAnalyzer(indicators.DefaultConfig(), zerolog.Nop())
	return New(nil, p, analyzer, "", "", zerolog.Nop())
}

func TestAnalyze(t *testing.T) {
	p := &fakeProvider{
		candles: map[string][]models.Candle{"1155": rising(60)},
		quotes:  map[string]*models.Quote{"1155": {Symbol: "1155", Price: 15.9, ChangePercent: 0.6, Volume: 1_200_000}},
	}
	svc := newService(p)

	report, err := svc.Analyze(context.Background(), " 1155 ", "", "")
	require.NoError(t, err)
	assert.Equal(t, "1155", report.Symbol)
	assert.Equal(t, 60, report.Candles)
	assert.Equal(t, 15.9, report.Quote.Price)
	assert.Equal(t, "6mo", p.lastRange)
	assert.Equal(t, "1d", p.lastPeriod)
	assert.NotEmpty(t, report.Recommendation.Action)
}

func TestAnalyzeDerivesQuoteFromCandles(t *testing.T) {
	candles := rising(30)
	p := &fakeProvider{
		candles:  map[string][]models.Candle{"AAPL": candles},
		quoteErr: errors.New("quote endpoint down"),
	}
	svc := newService(p)

	report, err := svc.Analyze(context.Background(), "AAPL", "3mo", "1d")
	require.NoError(t, err)
	require.NotNil(t, report.Quote)
	assert.Equal(t, candles[29].Close, report.Quote.Price)
	assert.Equal(t, candles[28].Close, report.Quote.PrevClose)
	assert.Equal(t, "3mo", p.lastRange)
}

func TestAnalyzeErrors(t *testing.T) {
	svc := newService(&fakeProvider{candles: map[string][]models.Candle{}})
	ctx := context.Background()

	_, err := svc.Analyze(ctx, "", "", "")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	_, err = svc.Analyze(ctx, "1155", "7mo", "")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	_, err = svc.Analyze(ctx, "1155", "", "5m")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	_, err = svc.Analyze(ctx, "NOPE", "", "")
	assert.ErrorIs(t, err, apperrors.ErrSymbolNotFound)
}

func TestIndicators(t *testing.T) {
	svc := newService(&fakeProvider{candles: map[string][]models.Candle{"1155": rising(40)}})

	bundle, err := svc.Indicators(context.Background(), "1155", "", "")
	require.NoError(t, err)
	assert.Equal(t, 40-14, bundle.RSI.Len())
	assert.Equal(t, 40-20+1, bundle.SMA.Len())
}

func TestTimeframes(t *testing.T) {
	p := &fakeProvider{candles: map[string][]models.Candle{"1155": rising(60)}}
	svc := newService(p)

	r, err := svc.Timeframes(context.Background(), "1155")
	require.NoError(t, err)
	require.Len(t, r.Timeframes, 3)
	assert.Equal(t, 3, r.Bullish)
	assert.True(t, r.Aligned)

	_, err = svc.Timeframes(context.Background(), "NOPE")
	assert.ErrorIs(t, err, apperrors.ErrSymbolNotFound)

	_, err = svc.Timeframes(context.Background(), " ")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
}

func TestSourceFeedsScreener(t *testing.T) {
	p := &fakeProvider{
		candles: map[string][]models.Candle{"1155": rising(60), "5347": rising(60)},
		quotes: map[string]*models.Quote{
			"1155": {Symbol: "1155", Price: 15.9, ChangePercent: 3},
			"5347": {Symbol: "5347", Price: 15.9, ChangePercent: 0.5},
		},
	}
	svc := newService(p)
	min := 2.0
	screener := scoring.NewScreener(svc.Analyzer, svc.Source("", ""), 2)

	results, err := screener.Scan(context.Background(), []string{"1155", "5347", "MISSING"}, scoring.Criteria{MinChange: &min, SortBy: scoring.SortChange})
	require.NoError(t, err)
	require.Len(t, results, 3)

	passed := map[string]bool{}
	for _, r := range results {
		passed[r.Symbol] = r.Passed
		if r.Symbol == "MISSING" {
			assert.Error(t, r.Err)
		}
	}
	assert.Equal(t, map[string]bool{"1155": true, "5347": false, "MISSING": false}, passed)
}

func TestQuotesSkipsFailures(t *testing.T) {
	p := &fakeProvider{quotes: map[string]*models.Quote{
		"1155": {Symbol: "1155", Price: 9.9},
		"AAPL": {Symbol: "AAPL", Price: 180},
	}}
	svc := newService(p)

	got := svc.Quotes(context.Background(), []string{"AAPL", "NOPE", "1155"})
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, "1155", got[1].Symbol)
}

func TestLoadLogsQuoteFallbackWithSymbol(t *testing.T) {
	var buf bytes.Buffer
	p := &fakeProvider{
		candles:  map[string][]models.Candle{"5347": rising(30)},
		quoteErr: errors.New("quote endpoint down"),
	}
	analyzer := scoring.NewAnalyzer(indicators.DefaultConfig(), zerolog.Nop())
	svc := New(nil, p, analyzer, "", "", zerolog.New(&buf).Level(zerolog.DebugLevel))

	_, quote, err := svc.Load(context.Background(), "5347", "", "")
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.Contains(t, buf.String(), `"symbol":"5347"`)
	assert.Contains(t, buf.String(), "Quote unavailable")
	assert.Contains(t, buf.String(), "quote endpoint down")
}

func TestDefaults(t *testing.T) {
	svc := New(nil, &fakeProvider{}, nil, "1y", "1wk", zerolog.Nop())
	rng, interval := svc.Defaults()
	assert.Equal(t, "1y", rng)
	assert.Equal(t, "1wk", interval)
}
