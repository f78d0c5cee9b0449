// Package scheduler re-runs watchlist analysis and alert checks on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"stockwatch/internal/alerts"
	"stockwatch/internal/analysis"
	"stockwatch/internal/analysis/scoring"
	"stockwatch/internal/config"
	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/logging"
	"stockwatch/internal/models"
	"stockwatch/internal/notify"
	"stockwatch/internal/quotes"
	"stockwatch/internal/service"
	"stockwatch/pkg/utils"
)

// Summary describes one refresh.
type Summary struct {
	At       time.Time           `json:"at"`
	Skipped  bool                `json:"skipped"`
	Symbols  int                 `json:"symbols"`
	Analyzed int                 `json:"analyzed"`
	Failed   int                 `json:"failed"`
	Signals  int                 `json:"signals"`
	Alerts   []models.AlertEvent `json:"alerts,omitempty"`
	Reports  []*scoring.Report   `json:"-"`
}

// Scheduler manages the periodic refresh.
type Scheduler struct {
	cron        *cron.Cron
	svc         *service.Service
	monitor     *alerts.Monitor
	notifier    notify.Notifier
	list        string
	marketOnly  bool
	concurrency int
	logger      zerolog.Logger

	marketOpen func() bool
	now        func() time.Time

	mu         sync.Mutex
	lastAction map[string]analysis.Action
	ctx        context.Context
	onRun      func(Summary, error)
}

// New creates a Scheduler. notifier may be nil.
func New(svc *service.Service, monitor *alerts.Monitor, notifier notify.Notifier, cfg config.WatchConfig, concurrency int, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithParser(config.ScheduleParser)),
		svc:         svc,
		monitor:     monitor,
		notifier:    notifier,
		list:        cfg.List,
		marketOnly:  cfg.MarketOnly,
		concurrency: concurrency,
		logger:      logging.WithOperation(logger, "watch"),
		marketOpen:  utils.IsMarketOpen,
		now:         time.Now,
		lastAction:  make(map[string]analysis.Action),
		ctx:         context.Background(),
	}
}

// OnRun registers a callback invoked after every scheduled refresh.
func (s *Scheduler) OnRun(fn func(Summary, error)) {
	s.onRun = fn
}

// Register adds the refresh job for spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.scheduledRun); err != nil {
		return fmt.Errorf("register watch task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler. Jobs run with ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info().Str("list", s.list).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) scheduledRun() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	summary, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Refresh failed")
		if s.notifier != nil && ctx.Err() == nil {
			if nerr := s.notifier.SendError(ctx, err, "scheduled refresh"); nerr != nil {
				s.logger.Warn().Err(nerr).Msg("Failed to send error notification")
			}
		}
	}
	if s.onRun != nil {
		s.onRun(summary, err)
	}
}

// RunOnce analyzes every symbol in the watchlist, notifies recommendation
// changes, and checks alerts against the fresh quotes. When market-only is set
// and Bursa is closed, the refresh is skipped.
func (s *Scheduler) RunOnce(ctx context.Context) (Summary, error) {
	summary := Summary{At: s.now()}
	if s.marketOnly && !s.marketOpen() {
		summary.Skipped = true
		s.logger.Debug().Msg("Market closed, skipping refresh")
		return summary, nil
	}

	symbols, err := s.svc.Store.GetWatchlist(ctx, s.list)
	if err != nil {
		return summary, err
	}
	if len(symbols) == 0 {
		return summary, apperrors.Wrapf(apperrors.ErrDataNotFound, "watchlist %s is empty", s.list)
	}
	summary.Symbols = len(symbols)

	rng, interval := s.svc.Defaults()
	screener := scoring.NewScreener(s.svc.Analyzer, s.svc.Source(rng, interval), s.concurrency)
	results, err := screener.Scan(ctx, symbols, scoring.Criteria{})
	if err != nil {
		return summary, err
	}

	var latest []models.Quote
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			log := logging.WithSymbol(s.logger, r.Symbol)
			log.Warn().Err(r.Err).Msg("Analysis failed")
			continue
		}
		summary.Analyzed++
		summary.Reports = append(summary.Reports, r.Report)
		if r.Report.Quote != nil {
			latest = append(latest, *r.Report.Quote)
		}
		if s.recommendationChanged(r.Report) {
			summary.Signals++
			s.sendRecommendation(ctx, r.Report)
		}
	}

	if s.monitor != nil && len(latest) > 0 {
		if index, err := s.svc.Provider.Quote(ctx, quotes.IndexSymbol); err == nil {
			latest = append(latest, *index)
		} else {
			s.logger.Debug().Err(err).Msg("Index quote unavailable")
		}
		events, err := s.monitor.Check(ctx, latest)
		if err != nil {
			return summary, err
		}
		summary.Alerts = events
	}

	s.logger.Info().
		Int("symbols", summary.Symbols).
		Int("analyzed", summary.Analyzed).
		Int("failed", summary.Failed).
		Int("signals", summary.Signals).
		Int("alerts", len(summary.Alerts)).
		Msg("Refresh complete")
	return summary, nil
}

// recommendationChanged records the action and reports whether it differs
// from the previous refresh. HOLD is never a signal.
func (s *Scheduler) recommendationChanged(r *scoring.Report) bool {
	action := r.Recommendation.Action
	s.mu.Lock()
	prev, seen := s.lastAction[r.Symbol]
	s.lastAction[r.Symbol] = action
	s.mu.Unlock()

	if action == analysis.ActionHold {
		return false
	}
	return !seen || prev != action
}

func (s *Scheduler) sendRecommendation(ctx context.Context, r *scoring.Report) {
	var price float64
	if r.Quote != nil {
		price = r.Quote.Price
	}
	logging.LogRecommendation(s.logger, r.Symbol, string(r.Recommendation.Action), r.Recommendation.Confidence, price)
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendRecommendation(ctx, r.Symbol, price, r.Recommendation); err != nil {
		log := logging.WithSymbol(s.logger, r.Symbol)
		log.Warn().Err(err).Msg("Failed to send recommendation")
	}
}
