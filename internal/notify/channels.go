package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"stockwatch/internal/config"
	"stockwatch/internal/models"
)

// LogChannel writes notifications to a zerolog logger.
type LogChannel struct {
	logger zerolog.Logger
}

// NewLogChannel creates a LogChannel.
func NewLogChannel(logger zerolog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

// Name returns the name of the channel.
func (c *LogChannel) Name() string { return "log" }

// IsEnabled returns whether the channel is enabled.
func (c *LogChannel) IsEnabled() bool { return true }

// Send logs the notification. High priority and errors log at warn.
func (c *LogChannel) Send(_ context.Context, n Notification) error {
	event := c.logger.Info()
	if n.Type == NotificationError || n.Priority == models.PriorityHigh {
		event = c.logger.Warn()
	}
	event.
		Str("event", string(n.Type)).
		Str("symbol", n.Symbol).
		Str("priority", string(n.Priority)).
		Str("message", n.Message).
		Time("at", n.Timestamp).
		Msg(n.Title)
	return nil
}

// messageWriter is the subset of *kafka.Writer used by KafkaChannel.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaChannel publishes notifications as JSON keyed by symbol.
type KafkaChannel struct {
	writer messageWriter
	topic  string
}

// NewKafkaChannel creates a KafkaChannel writing to topic on brokers.
func NewKafkaChannel(brokers []string, topic string) *KafkaChannel {
	return &KafkaChannel{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

// Name returns the name of the channel.
func (c *KafkaChannel) Name() string { return "kafka" }

// IsEnabled returns whether the channel is enabled.
func (c *KafkaChannel) IsEnabled() bool { return c.writer != nil }

// Send publishes the notification.
func (c *KafkaChannel) Send(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	key := n.Symbol
	if key == "" {
		key = string(n.Type)
	}

	if err := c.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data}); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close closes the Kafka writer.
func (c *KafkaChannel) Close() error {
	return c.writer.Close()
}

// TerminalChannel prints one colored line per notification.
type TerminalChannel struct {
	out          io.Writer
	colorEnabled bool
	mu           sync.Mutex
}

// NewTerminalChannel creates a TerminalChannel writing to out.
func NewTerminalChannel(out io.Writer, colorEnabled bool) *TerminalChannel {
	return &TerminalChannel{out: out, colorEnabled: colorEnabled}
}

// Name returns the name of the channel.
func (c *TerminalChannel) Name() string { return "terminal" }

// IsEnabled returns whether the channel is enabled.
func (c *TerminalChannel) IsEnabled() bool { return c.out != nil }

// Send prints the notification.
func (c *TerminalChannel) Send(_ context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.out, FormatNotification(n, c.colorEnabled))
	return err
}

// FormatNotification renders a notification as a single terminal line
// followed by any extra message lines, indented.
func FormatNotification(n Notification, colorEnabled bool) string {
	var indicator string
	var attr color.Attribute

	switch n.Type {
	case NotificationAlert:
		indicator, attr = "🔔 ALERT", color.FgYellow
		if n.Priority == models.PriorityHigh {
			attr = color.FgRed
		}
	case NotificationRecommendation:
		indicator, attr = "📊 SIGNAL", color.FgCyan
	case NotificationError:
		indicator, attr = "❌ ERROR", color.FgRed
	default:
		indicator, attr = "ℹ️  INFO", color.FgWhite
	}

	c := color.New(attr, color.Bold)
	if colorEnabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}

	var sb strings.Builder
	sb.WriteString(c.Sprintf("[%s] %s", n.Timestamp.Format("15:04:05"), indicator))
	if n.Symbol != "" {
		sb.WriteString(" | " + n.Symbol)
	}
	sb.WriteString(" | " + n.Title)

	lines := strings.Split(n.Message, "\n")
	if len(lines) > 0 && lines[0] != "" {
		sb.WriteString(" | " + lines[0])
	}
	for _, l := range lines[1:] {
		sb.WriteString("\n    → " + l)
	}
	return sb.String()
}

// New builds a MultiNotifier from configuration. The terminal channel is added
// when out is non-nil, the Kafka channel when enabled.
func New(cfg config.NotificationConfig, logger zerolog.Logger, out io.Writer, colorEnabled bool) *MultiNotifier {
	mn := NewMultiNotifier(cfg.Level)
	if !cfg.Enabled {
		return mn
	}

	mn.AddChannel(NewLogChannel(logger))
	if out != nil {
		mn.AddChannel(NewTerminalChannel(out, colorEnabled))
	}
	if cfg.Kafka.Enabled {
		mn.AddChannel(NewKafkaChannel(cfg.Kafka.Brokers, cfg.Kafka.Topic))
	}
	return mn
}
