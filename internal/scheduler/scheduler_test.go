package scheduler

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/alerts"
	"stockwatch/internal/analysis"
	"stockwatch/internal/analysis/indicators"
	"stockwatch/internal/analysis/scoring"
	"stockwatch/internal/config"
	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/models"
	"stockwatch/internal/notify"
	"stockwatch/internal/service"
	"stockwatch/internal/store"
)

type fakeProvider struct {
	quotes map[string]models.Quote
}

func (p *fakeProvider) Candles(_ context.Context, symbol, _, _ string) ([]models.Candle, error) {
	if _, ok := p.quotes[symbol]; !ok {
		return nil, apperrors.ErrSymbolNotFound
	}
	out := make([]models.Candle, 60)
	for i := range out {
		// Steady decline so RSI and MACD lean one way.
		price := 20 - float64(i)*0.15
		out[i] = models.Candle{Time: int64(1700000000 + i*86400), Open: price + 0.05, High: price + 0.1, Low: price - 0.1, Close: price, Volume: 1_000_000}
	}
	return out, nil
}

func (p *fakeProvider) Quote(_ context.Context, symbol string) (*models.Quote, error) {
	q, ok := p.quotes[symbol]
	if !ok {
		return nil, apperrors.ErrSymbolNotFound
	}
	return &q, nil
}

type recordingNotifier struct {
	recs   []string
	alerts []models.AlertEvent
	errs   []string
}

func (n *recordingNotifier) Send(context.Context, notify.Notification) error { return nil }
func (n *recordingNotifier) SendAlert(_ context.Context, e models.AlertEvent) error {
	n.alerts = append(n.alerts, e)
	return nil
}
func (n *recordingNotifier) SendRecommendation(_ context.Context, symbol string, _ float64, _ analysis.Recommendation) error {
	n.recs = append(n.recs, symbol)
	return nil
}

func (n *recordingNotifier) SendError(_ context.Context, err error, errContext string) error {
	n.errs = append(n.errs, errContext+": "+err.Error())
	return nil
}

func setup(t *testing.T, symbols ...string) (*Scheduler, *recordingNotifier, store.DataStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "watch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	for _, s := range symbols {
		require.NoError(t, st.AddToWatchlist(ctx, s, "default"))
	}

	provider := &fakeProvider{quotes: map[string]models.Quote{
		"1155": {Symbol: "1155", Price: 11.2, ChangePercent: -2.4, Volume: 3_000_000},
		"5347": {Symbol: "5347", Price: 11.2, ChangePercent: 0.3, Volume: 900_000},
	}}
	analyzer := scoring.NewAnalyzer(indicators.DefaultConfig(), zerolog.Nop())
	svc := service.New(st, provider, analyzer, "", "", zerolog.Nop())

	rec := &recordingNotifier{}
	monitor := alerts.NewMonitor(st, rec, zerolog.Nop())
	s := New(svc, monitor, rec, config.WatchConfig{List: "default", MarketOnly: true}, 2, zerolog.Nop())
	s.marketOpen = func() bool { return true }
	s.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return s, rec, st
}

func TestRunOnceLogsFailedSymbol(t *testing.T) {
	s, _, _ := setup(t, "1155", "MISSING")
	var buf bytes.Buffer
	s.logger = zerolog.New(&buf)

	summary, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, buf.String(), `"symbol":"MISSING"`)
	assert.Contains(t, buf.String(), "Analysis failed")
}

func TestRunOnceSkipsWhenMarketClosed(t *testing.T) {
	s, rec, _ := setup(t, "1155")
	s.marketOpen = func() bool { return false }

	summary, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Skipped)
	assert.Zero(t, summary.Analyzed)
	assert.Empty(t, rec.alerts)
}

func TestRunOnceEmptyWatchlist(t *testing.T) {
	s, _, _ := setup(t)
	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrDataNotFound)
}

func TestRunOnce(t *testing.T) {
	s, rec, st := setup(t, "1155", "5347", "MISSING")
	ctx := context.Background()

	a, err := alerts.New("5347", models.AlertPriceAbove, "11", s.now())
	require.NoError(t, err)
	require.NoError(t, st.SaveAlert(ctx, a))

	summary, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
	assert.Equal(t, 3, summary.Symbols)
	assert.Equal(t, 2, summary.Analyzed)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Reports, 2)

	nonHold := 0
	for _, r := range summary.Reports {
		if r.Recommendation.Action != analysis.ActionHold {
			nonHold++
		}
	}
	assert.Equal(t, nonHold, summary.Signals)
	assert.Len(t, rec.recs, nonHold)

	// The custom alert on 5347 and the breakdown on 1155.
	require.Len(t, summary.Alerts, 2)
	assert.Equal(t, "custom", summary.Alerts[0].Kind)
	assert.Equal(t, "breakdown", summary.Alerts[1].Kind)
	assert.Equal(t, summary.Alerts, rec.alerts)

	// Unchanged recommendations are not re-sent; the custom alert stays triggered.
	summary, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Signals)
	require.Len(t, summary.Alerts, 1)
	assert.Equal(t, "breakdown", summary.Alerts[0].Kind)
}

func TestRecommendationChanged(t *testing.T) {
	s, _, _ := setup(t)
	report := func(a analysis.Action) *scoring.Report {
		return &scoring.Report{Symbol: "1155", Recommendation: analysis.Recommendation{Action: a}}
	}

	assert.False(t, s.recommendationChanged(report(analysis.ActionHold)))
	assert.True(t, s.recommendationChanged(report(analysis.ActionBuy)))
	assert.False(t, s.recommendationChanged(report(analysis.ActionBuy)))
	assert.True(t, s.recommendationChanged(report(analysis.ActionSell)))
	assert.False(t, s.recommendationChanged(report(analysis.ActionHold)))
	assert.True(t, s.recommendationChanged(report(analysis.ActionSell)))
}

func TestRegisterAndScheduledRun(t *testing.T) {
	s, _, _ := setup(t, "5347")
	assert.Error(t, s.Register("not a schedule"))
	require.NoError(t, s.Register("@every 1h"))

	var got Summary
	s.OnRun(func(sum Summary, err error) {
		require.NoError(t, err)
		got = sum
	})
	s.scheduledRun()
	assert.Equal(t, 1, got.Analyzed)
}

func TestScheduledRunReportsErrors(t *testing.T) {
	s, rec, _ := setup(t)

	var runErr error
	s.OnRun(func(_ Summary, err error) { runErr = err })
	s.scheduledRun()

	assert.ErrorIs(t, runErr, apperrors.ErrDataNotFound)
	require.Len(t, rec.errs, 1)
	assert.Contains(t, rec.errs[0], "scheduled refresh")
}
