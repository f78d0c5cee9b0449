// Package notify fans alerts and recommendations out to notification channels.
package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"stockwatch/internal/analysis"
	"stockwatch/internal/models"
	"stockwatch/pkg/utils"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendAlert(ctx context.Context, event models.AlertEvent) error
	SendRecommendation(ctx context.Context, symbol string, price float64, rec analysis.Recommendation) error
	SendError(ctx context.Context, err error, errContext string) error
}

// Channel is one notification destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType       `json:"type"`
	Symbol    string                 `json:"symbol,omitempty"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Priority  models.AlertPriority   `json:"priority,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationAlert          NotificationType = "alert"
	NotificationRecommendation NotificationType = "recommendation"
	NotificationError          NotificationType = "error"
	NotificationInfo           NotificationType = "info"
)

// NotificationLevel represents the notification level filter.
type NotificationLevel string

const (
	LevelAll                 NotificationLevel = "all"
	LevelAlertsOnly          NotificationLevel = "alerts_only"
	LevelRecommendationsOnly NotificationLevel = "recommendations_only"
)

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []Channel
	level    NotificationLevel
	now      func() time.Time
	mu       sync.RWMutex
}

// NewMultiNotifier creates a MultiNotifier with no channels.
func NewMultiNotifier(level string) *MultiNotifier {
	mn := &MultiNotifier{level: NotificationLevel(level), now: time.Now}
	if mn.level == "" {
		mn.level = LevelAll
	}
	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch Channel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// Channels returns the registered channel names.
func (mn *MultiNotifier) Channels() []string {
	mn.mu.RLock()
	defer mn.mu.RUnlock()
	names := make([]string, len(mn.channels))
	for i, ch := range mn.channels {
		names[i] = ch.Name()
	}
	return names
}

// shouldSend applies the level filter. Errors always pass.
func (mn *MultiNotifier) shouldSend(t NotificationType) bool {
	switch mn.level {
	case LevelAlertsOnly:
		return t == NotificationAlert || t == NotificationError
	case LevelRecommendationsOnly:
		return t == NotificationRecommendation || t == NotificationError
	default:
		return true
	}
}

// Send sends a notification to all enabled channels. Every channel is tried;
// failures are joined into one error.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !mn.shouldSend(n.Type) {
		return nil
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = mn.now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if ch.IsEnabled() {
			if err := ch.Send(ctx, n); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendAlert sends a fired alert.
func (mn *MultiNotifier) SendAlert(ctx context.Context, event models.AlertEvent) error {
	return mn.Send(ctx, Notification{
		Type:      NotificationAlert,
		Symbol:    event.Symbol,
		Title:     event.Title,
		Message:   event.Message,
		Priority:  event.Priority,
		Timestamp: event.Timestamp,
		Data: map[string]interface{}{
			"alert_id": event.AlertID,
			"kind":     event.Kind,
			"price":    event.Price,
		},
	})
}

// SendRecommendation sends an analysis outcome.
func (mn *MultiNotifier) SendRecommendation(ctx context.Context, symbol string, price float64, rec analysis.Recommendation) error {
	priority := models.PriorityLow
	if rec.Action != analysis.ActionHold {
		priority = models.PriorityMedium
		if rec.Confidence >= 80 {
			priority = models.PriorityHigh
		}
	}

	message := fmt.Sprintf("%s at %s (confidence %d%%)", rec.Action, utils.FormatPrice(symbol, price), rec.Confidence)
	if len(rec.Reasons) > 0 {
		message += "\n" + strings.Join(rec.Reasons, "\n")
	}

	return mn.Send(ctx, Notification{
		Type:     NotificationRecommendation,
		Symbol:   symbol,
		Title:    fmt.Sprintf("%s: %s", symbol, rec.Action),
		Message:  message,
		Priority: priority,
		Data: map[string]interface{}{
			"action":        string(rec.Action),
			"confidence":    rec.Confidence,
			"bullish_score": rec.BullishScore,
			"bearish_score": rec.BearishScore,
			"price":         price,
		},
	})
}

// SendError sends an error notification.
func (mn *MultiNotifier) SendError(ctx context.Context, err error, errContext string) error {
	return mn.Send(ctx, Notification{
		Type:     NotificationError,
		Title:    "Error",
		Message:  fmt.Sprintf("%s: %v", errContext, err),
		Priority: models.PriorityHigh,
		Data: map[string]interface{}{
			"context": errContext,
			"error":   err.Error(),
		},
	})
}

// Close closes every channel that holds resources.
func (mn *MultiNotifier) Close() error {
	mn.mu.RLock()
	defer mn.mu.RUnlock()

	var first error
	for _, ch := range mn.channels {
		if c, ok := ch.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
