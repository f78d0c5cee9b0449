package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# stockwatch configuration
# Every key can be overridden with STOCKWATCH_<SECTION>_<KEY>, e.g. STOCKWATCH_DATA_RANGE=1y

[analysis]
rsi_period = 14
macd_fast = 12
macd_slow = 26
macd_signal = 9
sma_period = 20
ema_period = 12
bb_period = 20
bb_std_dev = 2.0
volume_period = 20

[data]
# Yahoo chart API host
base_url = "https://query1.finance.yahoo.com"
# Default history range and bar interval (1mo, 3mo, 6mo, 1y / 1d, 1wk)
range = "6mo"
interval = "1d"
timeout = "10s"
# Minimum spacing between upstream requests
min_request_interval = "100ms"
# Optional HTTP proxy
proxy = ""
cache_ttl = "5m"
# Set to use Redis instead of the in-process cache
redis_addr = ""
redis_password = ""
redis_db = 0
# Parallel fetches when screening
concurrency = 4
# Serve candles from the local store only
offline = false
# Consecutive upstream failures before requests are short-circuited
breaker_threshold = 5
breaker_cooldown = "30s"

[store]
# Defaults to stockwatch.db next to this file
path = ""

[logging]
# debug, info, warn, error
level = "info"
file = false
max_size = 50
max_backups = 5
max_age = 28

[watch]
# Cron spec, seconds optional
schedule = "0 */5 * * * *"
list = "default"
# Skip refreshes while Bursa is closed
market_only = true

[notifications]
enabled = true
# all, alerts_only, recommendations_only
level = "all"

[notifications.kafka]
enabled = false
brokers = ["localhost:9092"]
topic = "stockwatch.events"

[api]
addr = ":8080"
read_timeout = "15s"
write_timeout = "30s"
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
