// Package config provides configuration management for stockwatch.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"stockwatch/internal/analysis/indicators"
	apperrors "stockwatch/internal/errors"
)

// EnvPrefix is the prefix for environment overrides, e.g. STOCKWATCH_DATA_RANGE.
const EnvPrefix = "STOCKWATCH"

// Config holds all application configuration.
type Config struct {
	Analysis      indicators.Config  `mapstructure:"analysis"`
	Data          DataConfig         `mapstructure:"data"`
	Store         StoreConfig        `mapstructure:"store"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Watch         WatchConfig        `mapstructure:"watch"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	API           APIConfig          `mapstructure:"api"`

	// Dir is the directory the config was loaded from.
	Dir string `mapstructure:"-"`
}

// DataConfig holds quote provider settings.
type DataConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	Range              string        `mapstructure:"range"`
	Interval           string        `mapstructure:"interval"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MinRequestInterval time.Duration `mapstructure:"min_request_interval"`
	Proxy              string        `mapstructure:"proxy"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	RedisAddr          string        `mapstructure:"redis_addr"`
	RedisPassword      string        `mapstructure:"redis_password"`
	RedisDB            int           `mapstructure:"redis_db"`
	Concurrency        int           `mapstructure:"concurrency"`
	Offline            bool          `mapstructure:"offline"`
	BreakerThreshold   int           `mapstructure:"breaker_threshold"`
	BreakerCooldown    time.Duration `mapstructure:"breaker_cooldown"`
}

// StoreConfig holds the SQLite location.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// WatchConfig holds the periodic refresh settings.
type WatchConfig struct {
	Schedule   string `mapstructure:"schedule"`
	List       string `mapstructure:"list"`
	MarketOnly bool   `mapstructure:"market_only"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Level   string      `mapstructure:"level"` // all, alerts_only, recommendations_only
	Kafka   KafkaConfig `mapstructure:"kafka"`
}

// KafkaConfig holds the Kafka publisher configuration.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// APIConfig holds the HTTP server configuration.
type APIConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/stockwatch"
	}
	return filepath.Join(home, ".config", "stockwatch")
}

// Path returns the config file path inside configDir.
func Path(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by the template and defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	if err := loadDotEnv(configDir); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := newViper(configDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Dir = configDir
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(configDir, "stockwatch.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any files.
func Default() *Config {
	cfg := &Config{}
	_ = newViper("").Unmarshal(cfg)
	return cfg
}

func newViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	ind := indicators.DefaultConfig()
	v.SetDefault("analysis.rsi_period", ind.RSIPeriod)
	v.SetDefault("analysis.macd_fast", ind.MACDFast)
	v.SetDefault("analysis.macd_slow", ind.MACDSlow)
	v.SetDefault("analysis.macd_signal", ind.MACDSignal)
	v.SetDefault("analysis.sma_period", ind.SMAPeriod)
	v.SetDefault("analysis.ema_period", ind.EMAPeriod)
	v.SetDefault("analysis.bb_period", ind.BBPeriod)
	v.SetDefault("analysis.bb_std_dev", ind.BBStdDev)
	v.SetDefault("analysis.volume_period", ind.VolumePeriod)

	v.SetDefault("data.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("data.range", "6mo")
	v.SetDefault("data.interval", "1d")
	v.SetDefault("data.timeout", "10s")
	v.SetDefault("data.min_request_interval", "100ms")
	v.SetDefault("data.proxy", "")
	v.SetDefault("data.cache_ttl", "5m")
	v.SetDefault("data.redis_addr", "")
	v.SetDefault("data.redis_password", "")
	v.SetDefault("data.redis_db", 0)
	v.SetDefault("data.concurrency", 4)
	v.SetDefault("data.offline", false)
	v.SetDefault("data.breaker_threshold", 5)
	v.SetDefault("data.breaker_cooldown", "30s")

	v.SetDefault("store.path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", filepath.Join(DefaultConfigDir(), "logs", "stockwatch.log"))
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 28)

	v.SetDefault("watch.schedule", "0 */5 * * * *")
	v.SetDefault("watch.list", "default")
	v.SetDefault("watch.market_only", true)

	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.level", "all")
	v.SetDefault("notifications.kafka.enabled", false)
	v.SetDefault("notifications.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("notifications.kafka.topic", "stockwatch.events")

	v.SetDefault("api.addr", ":8080")
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "30s")
}

// loadDotEnv loads .env from the working directory and the config directory.
// Variables already set in the environment win.
func loadDotEnv(configDir string) error {
	for _, path := range []string{".env", filepath.Join(configDir, ".env")} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return err
		}
	}
	return nil
}

// ScheduleParser accepts cron specs with an optional seconds field.
var ScheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return invalid("analysis", err.Error())
	}

	if c.Data.Range == "" || c.Data.Interval == "" {
		return invalid("data", "range and interval are required")
	}
	if c.Data.Timeout <= 0 {
		return invalid("data.timeout", "must be positive")
	}
	if c.Data.Concurrency <= 0 {
		return invalid("data.concurrency", "must be positive")
	}

	switch c.Notifications.Level {
	case "all", "alerts_only", "recommendations_only":
	default:
		return invalid("notifications.level", fmt.Sprintf("unknown level %q", c.Notifications.Level))
	}
	if c.Notifications.Kafka.Enabled && (len(c.Notifications.Kafka.Brokers) == 0 || c.Notifications.Kafka.Topic == "") {
		return invalid("notifications.kafka", "brokers and topic are required when enabled")
	}

	if _, err := ScheduleParser.Parse(c.Watch.Schedule); err != nil {
		return invalid("watch.schedule", err.Error())
	}

	return nil
}

func invalid(field, msg string) error {
	return fmt.Errorf("%w: %s: %s", apperrors.ErrConfigInvalid, field, msg)
}
