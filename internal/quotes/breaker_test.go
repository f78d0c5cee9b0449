package quotes

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/models"
)

func testBreaker(threshold int, cooldown time.Duration) (*Breaker, *time.Time) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	b := NewBreaker(BreakerConfig{FailureThreshold: threshold, Cooldown: cooldown}, zerolog.Nop())
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	b, now := testBreaker(3, time.Minute)
	upstream := &countingProvider{err: apperrors.NewUpstreamError("yahoo", 503)}
	p := NewBreakerProvider(upstream, b)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.Quote(ctx, "1155")
		assert.ErrorIs(t, err, apperrors.ErrUpstream)
	}
	assert.Equal(t, BreakerOpen, b.State())

	_, err := p.Candles(ctx, "1155", "6mo", "1d")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Equal(t, int32(3), atomic.LoadInt32(&upstream.calls))

	// The trial after the cooldown fails and reopens the circuit.
	*now = now.Add(time.Minute)
	_, err = p.Quote(ctx, "1155")
	assert.NotErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, BreakerOpen, b.State())
	assert.Equal(t, int32(4), atomic.LoadInt32(&upstream.calls))

	*now = now.Add(time.Minute)
	upstream.err = nil
	upstream.quote = &models.Quote{Symbol: "1155", Price: 9.9}
	q, err := p.Quote(ctx, "1155")
	require.NoError(t, err)
	assert.Equal(t, 9.9, q.Price)
	assert.Equal(t, BreakerClosed, b.State())

	stats := b.Stats()
	assert.Equal(t, int64(6), stats.Requests)
	assert.Equal(t, int64(1), stats.Rejected)
	assert.Zero(t, stats.Failures)
}

func TestBreakerIgnoresMissingSymbols(t *testing.T) {
	b, _ := testBreaker(2, time.Minute)
	p := NewBreakerProvider(&countingProvider{err: apperrors.NewUpstreamError("yahoo", 404)}, b)

	for i := 0; i < 5; i++ {
		_, err := p.Quote(context.Background(), "NOPE")
		assert.ErrorIs(t, err, apperrors.ErrSymbolNotFound)
	}
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerHalfOpenAllowsOneTrial(t *testing.T) {
	b, now := testBreaker(1, time.Second)
	require.Error(t, b.Execute(func() error { return apperrors.ErrTimeout }))
	assert.Equal(t, BreakerOpen, b.State())

	*now = now.Add(time.Second)
	inner := b.Execute(func() error {
		assert.Equal(t, BreakerHalfOpen, b.State())
		return b.Execute(func() error { return nil })
	})
	assert.ErrorIs(t, inner, ErrCircuitOpen)
}

func TestBreakerReset(t *testing.T) {
	b, _ := testBreaker(1, time.Hour)
	require.Error(t, b.Execute(func() error { return context.DeadlineExceeded }))
	assert.Equal(t, BreakerOpen, b.State())

	b.Reset()
	assert.Equal(t, BreakerClosed, b.State())
	assert.NoError(t, b.Execute(func() error { return nil }))
}

func TestCountsAsFailure(t *testing.T) {
	assert.False(t, countsAsFailure(nil))
	assert.False(t, countsAsFailure(context.Canceled))
	assert.False(t, countsAsFailure(apperrors.ErrDataNotFound))
	assert.False(t, countsAsFailure(errors.New("decode failed")))
	assert.True(t, countsAsFailure(apperrors.NewUpstreamError("yahoo", 429)))
	assert.True(t, countsAsFailure(apperrors.NewUpstreamError("yahoo", 500)))
	assert.True(t, countsAsFailure(context.DeadlineExceeded))
}

func TestProperty_BreakerOpensOnConsecutiveFailures(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	const threshold = 3
	properties.Property("open iff threshold consecutive failures occurred", prop.ForAll(
		func(outcomes []bool) bool {
			b, _ := testBreaker(threshold, time.Hour)
			run, tripped := 0, false
			for _, fail := range outcomes {
				err := b.Execute(func() error {
					if fail {
						return apperrors.ErrUpstream
					}
					return nil
				})
				if tripped {
					if !errors.Is(err, ErrCircuitOpen) {
						return false
					}
					continue
				}
				if fail {
					run++
				} else {
					run = 0
				}
				tripped = run >= threshold
			}
			return (b.State() == BreakerOpen) == tripped
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
