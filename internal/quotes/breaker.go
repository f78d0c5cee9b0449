package quotes

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/models"
)

// BreakerState is the state of a circuit breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// ErrCircuitOpen is returned while the upstream is being rested. It wraps
// ErrUpstream so callers treat it like any other upstream outage.
var ErrCircuitOpen = fmt.Errorf("circuit open: %w", apperrors.ErrUpstream)

// BreakerConfig controls when the breaker trips and recovers.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive upstream failures that open the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that close it again.
	SuccessThreshold int
	// Cooldown is how long the circuit stays open before a trial request.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the default breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Cooldown:         30 * time.Second,
	}
}

// BreakerStats is a snapshot of breaker counters.
type BreakerStats struct {
	State    BreakerState `json:"state"`
	Failures int          `json:"failures"`
	Requests int64        `json:"requests"`
	Rejected int64        `json:"rejected"`
	OpenedAt time.Time    `json:"opened_at,omitempty"`
}

// Breaker counts consecutive upstream failures and short-circuits calls once
// the threshold is reached.
type Breaker struct {
	cfg    BreakerConfig
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
	trial     bool
	requests  int64
	rejected  int64
}

// NewBreaker creates a closed breaker. Non-positive settings take defaults.
func NewBreaker(cfg BreakerConfig, logger zerolog.Logger) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &Breaker{cfg: cfg, logger: logger, now: time.Now, state: BreakerClosed}
}

// Execute runs fn unless the circuit is open. Only upstream failures count
// against the threshold; a missing symbol is a valid answer.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// executeWithResult is Execute for functions returning a value.
func executeWithResult[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var result T
	err := b.Execute(func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests++
	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			b.rejected++
			return ErrCircuitOpen
		}
		b.transition(BreakerHalfOpen)
		b.trial = true
		return nil
	case BreakerHalfOpen:
		// One trial request at a time.
		if b.trial {
			b.rejected++
			return ErrCircuitOpen
		}
		b.trial = true
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trial = false
	if !countsAsFailure(err) {
		if errors.Is(err, context.Canceled) {
			return
		}
		b.failures = 0
		if b.state == BreakerHalfOpen {
			b.successes++
			if b.successes >= b.cfg.SuccessThreshold {
				b.transition(BreakerClosed)
			}
		}
		return
	}

	b.failures++
	switch b.state {
	case BreakerHalfOpen:
		b.transition(BreakerOpen)
	case BreakerClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(BreakerOpen)
		}
	}
}

// transition must be called with mu held.
func (b *Breaker) transition(to BreakerState) {
	if b.state == to {
		return
	}
	b.logger.Warn().Str("from", string(b.state)).Str("to", string(to)).Int("failures", b.failures).Msg("Upstream circuit changed state")
	b.state = to
	b.successes = 0
	switch to {
	case BreakerOpen:
		b.openedAt = b.now()
	case BreakerClosed:
		b.failures = 0
		b.openedAt = time.Time{}
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns a snapshot of the counters.
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{
		State:    b.state,
		Failures: b.failures,
		Requests: b.requests,
		Rejected: b.rejected,
		OpenedAt: b.openedAt,
	}
}

// Reset closes the circuit and clears failure counts.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(BreakerClosed)
	b.failures = 0
	b.trial = false
}

// countsAsFailure reports whether err says the upstream is unhealthy.
func countsAsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, apperrors.ErrSymbolNotFound) || errors.Is(err, apperrors.ErrDataNotFound) {
		return false
	}
	if errors.Is(err, apperrors.ErrUpstream) || errors.Is(err, apperrors.ErrRateLimited) ||
		errors.Is(err, apperrors.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// BreakerProvider guards a Provider with a Breaker.
type BreakerProvider struct {
	next    Provider
	breaker *Breaker
}

// NewBreakerProvider wraps next.
func NewBreakerProvider(next Provider, breaker *Breaker) *BreakerProvider {
	return &BreakerProvider{next: next, breaker: breaker}
}

// Breaker returns the underlying breaker.
func (p *BreakerProvider) Breaker() *Breaker { return p.breaker }

func (p *BreakerProvider) Candles(ctx context.Context, symbol, rng, interval string) ([]models.Candle, error) {
	return executeWithResult(p.breaker, func() ([]models.Candle, error) {
		return p.next.Candles(ctx, symbol, rng, interval)
	})
}

func (p *BreakerProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	return executeWithResult(p.breaker, func() (*models.Quote, error) {
		return p.next.Quote(ctx, symbol)
	})
}
