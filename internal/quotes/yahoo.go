package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/logging"
	"stockwatch/internal/models"
	"stockwatch/pkg/utils"
)

const (
	// DefaultBaseURL is the Yahoo Finance query host.
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// YahooConfig configures a YahooProvider.
type YahooConfig struct {
	BaseURL            string
	Timeout            time.Duration
	Proxy              string
	MinRequestInterval time.Duration
	Retry              utils.RetryConfig
}

// DefaultYahooConfig returns the default Yahoo client settings.
func DefaultYahooConfig() YahooConfig {
	return YahooConfig{
		BaseURL:            DefaultBaseURL,
		Timeout:            10 * time.Second,
		MinRequestInterval: 100 * time.Millisecond,
		Retry:              utils.DefaultRetryConfig(),
	}
}

// YahooProvider implements Provider using the Yahoo Finance v8 chart API.
type YahooProvider struct {
	client  *http.Client
	baseURL string
	retry   utils.RetryConfig
	logger  zerolog.Logger

	mu          sync.Mutex
	minInterval time.Duration
	lastRequest time.Time
}

// NewYahooProvider creates a new Yahoo Finance provider.
func NewYahooProvider(cfg YahooConfig, logger zerolog.Logger) *YahooProvider {
	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = utils.DefaultRetryConfig()
	}
	cfg.Retry.ShouldRetry = isTransient

	return &YahooProvider{
		client:      &http.Client{Timeout: cfg.Timeout, Transport: transport},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		retry:       cfg.Retry,
		logger:      logger,
		minInterval: cfg.MinRequestInterval,
	}
}

// Name returns the provider name.
func (p *YahooProvider) Name() string { return "yahoo" }

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol               string  `json:"symbol"`
		RegularMarketPrice   float64 `json:"regularMarketPrice"`
		PreviousClose        float64 `json:"previousClose"`
		ChartPreviousClose   float64 `json:"chartPreviousClose"`
		RegularMarketVolume  float64 `json:"regularMarketVolume"`
		RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
		RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
		RegularMarketTime    int64   `json:"regularMarketTime"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// Candles fetches OHLCV bars oldest first. Bars with any null price are skipped.
func (p *YahooProvider) Candles(ctx context.Context, symbol, rng, interval string) ([]models.Candle, error) {
	result, err := p.chart(ctx, symbol, rng, interval)
	if err != nil {
		return nil, err
	}
	candles := candlesFromResult(result)
	if len(candles) == 0 {
		return nil, apperrors.NewDataError("candles", symbol, "no bars returned", apperrors.ErrDataNotFound)
	}
	return candles, nil
}

// Quote fetches the current quote from the chart metadata.
func (p *YahooProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	result, err := p.chart(ctx, symbol, "1d", "1d")
	if err != nil {
		return nil, err
	}
	return quoteFromResult(symbol, result), nil
}

func (p *YahooProvider) chart(ctx context.Context, symbol, rng, interval string) (*chartResult, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		p.baseURL, url.PathEscape(YahooSymbol(symbol)), url.QueryEscape(interval), url.QueryEscape(rng))

	return utils.RetryWithResult(ctx, p.retry, func() (*chartResult, error) {
		return p.fetchChart(ctx, symbol, endpoint)
	})
}

func (p *YahooProvider) fetchChart(ctx context.Context, symbol, endpoint string) (*chartResult, error) {
	if err := p.throttle(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		logging.LogAPICall(p.logger, http.MethodGet, endpoint, 0, time.Since(start), err)
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	logging.LogAPICall(p.logger, http.MethodGet, endpoint, resp.StatusCode, time.Since(start), nil)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewUpstreamError(p.Name(), resp.StatusCode)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		if strings.EqualFold(chart.Chart.Error.Code, "Not Found") {
			return nil, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "%s", symbol)
		}
		return nil, fmt.Errorf("yahoo api error: %s: %w", chart.Chart.Error.Description, apperrors.ErrUpstream)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, apperrors.NewDataError("chart", symbol, "empty result", apperrors.ErrDataNotFound)
	}
	return &chart.Chart.Result[0], nil
}

// throttle keeps at least minInterval between consecutive requests.
func (p *YahooProvider) throttle(ctx context.Context) error {
	if p.minInterval <= 0 {
		return nil
	}

	p.mu.Lock()
	wait := p.minInterval - time.Since(p.lastRequest)
	if wait < 0 {
		wait = 0
	}
	p.lastRequest = time.Now().Add(wait)
	p.mu.Unlock()

	if wait == 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func candlesFromResult(r *chartResult) []models.Candle {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	candles := make([]models.Candle, 0, len(r.Timestamp))

	for i, ts := range r.Timestamp {
		o, h, l, c := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
		if o == nil || h == nil || l == nil || c == nil {
			continue
		}
		var v float64
		if vol := at(q.Volume, i); vol != nil {
			v = *vol
		}
		candles = append(candles, models.Candle{Time: ts, Open: *o, High: *h, Low: *l, Close: *c, Volume: v})
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Time < candles[j].Time })
	return candles
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func quoteFromResult(symbol string, r *chartResult) *models.Quote {
	meta := r.Meta

	price := meta.RegularMarketPrice
	if price == 0 {
		if candles := candlesFromResult(r); len(candles) > 0 {
			price = candles[len(candles)-1].Close
		}
	}
	prevClose := meta.PreviousClose
	if prevClose == 0 {
		prevClose = meta.ChartPreviousClose
	}

	q := &models.Quote{
		Symbol:    strings.ToUpper(symbol),
		Price:     price,
		Volume:    meta.RegularMarketVolume,
		High:      meta.RegularMarketDayHigh,
		Low:       meta.RegularMarketDayLow,
		PrevClose: prevClose,
		Timestamp: time.Now(),
	}
	if meta.RegularMarketTime > 0 {
		q.Timestamp = time.Unix(meta.RegularMarketTime, 0)
	}
	if prevClose > 0 {
		q.Change = price - prevClose
		q.ChangePercent = q.Change / prevClose * 100
	}
	return q
}

// isTransient reports whether a fetch error is worth retrying: network
// failures, rate limits and 5xx responses.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var upstream *apperrors.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Retryable()
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
