package quotes

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stockwatch/internal/config"
	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/store"
)

// Stack is the assembled provider chain plus anything that needs closing.
// Breaker is nil in offline mode.
type Stack struct {
	Provider Provider
	Breaker  *Breaker
	closers  []func() error
}

// Close releases cache connections.
func (s *Stack) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewStack builds cache -> store fallback -> breaker -> Yahoo from configuration.
// st may be nil, in which case there is no offline fallback. A Redis cache
// that cannot be reached is replaced by the in-process cache.
func NewStack(ctx context.Context, cfg config.DataConfig, st store.DataStore, logger zerolog.Logger) (*Stack, error) {
	if cfg.Offline && st == nil {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "offline mode requires a store")
	}
	stack := &Stack{}

	var provider Provider
	if !cfg.Offline {
		yc := DefaultYahooConfig()
		if cfg.BaseURL != "" {
			yc.BaseURL = cfg.BaseURL
		}
		if cfg.Timeout > 0 {
			yc.Timeout = cfg.Timeout
		}
		yc.Proxy = cfg.Proxy
		yc.MinRequestInterval = cfg.MinRequestInterval
		stack.Breaker = NewBreaker(BreakerConfig{
			FailureThreshold: cfg.BreakerThreshold,
			Cooldown:         cfg.BreakerCooldown,
		}, logger)
		provider = NewBreakerProvider(NewYahooProvider(yc, logger), stack.Breaker)
	}

	if st != nil {
		provider = NewStoreBackedProvider(provider, st, cfg.Offline, logger)
	}

	var cache Cache = NewMemoryCache()
	if cfg.RedisAddr != "" {
		rc := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, using in-process cache")
			rc.Close()
		} else {
			cache = rc
			stack.closers = append(stack.closers, rc.Close)
		}
	}

	stack.Provider = NewCachedProvider(provider, cache, cfg.CacheTTL, logger)
	return stack, nil
}
