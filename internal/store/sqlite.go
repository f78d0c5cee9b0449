package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db, now: time.Now}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS candles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		interval TEXT NOT NULL,
		time INTEGER NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, interval, time)
	);

	CREATE TABLE IF NOT EXISTS watchlist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		list_name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, list_name)
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		type TEXT NOT NULL,
		target TEXT NOT NULL,
		enabled INTEGER DEFAULT 1,
		triggered INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL,
		triggered_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS holdings (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		quantity TEXT NOT NULL,
		buy_price TEXT NOT NULL,
		buy_date TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_candles_symbol ON candles(symbol, interval, time);
	CREATE INDEX IF NOT EXISTS idx_watchlist_list ON watchlist(list_name);
	CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol);
	CREATE INDEX IF NOT EXISTS idx_holdings_symbol ON holdings(symbol);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Candles Methods
// ============================================================================

// SaveCandles upserts candles keyed by (symbol, interval, time).
func (s *SQLiteStore) SaveCandles(ctx context.Context, symbol, interval string, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, interval, time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx, symbol, interval, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return fmt.Errorf("failed to insert candle: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetCandles retrieves candles oldest first. With a Limit, the most recent
// Limit candles inside the bounds are returned.
func (s *SQLiteStore) GetCandles(ctx context.Context, symbol, interval string, filter CandleFilter) ([]models.Candle, error) {
	query := `SELECT time, open, high, low, close, volume FROM candles WHERE symbol = ? AND interval = ?`
	args := []interface{}{symbol, interval}

	if filter.From > 0 {
		query += " AND time >= ?"
		args = append(args, filter.From)
	}
	if filter.To > 0 {
		query += " AND time <= ?"
		args = append(args, filter.To)
	}
	query += " ORDER BY time DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candles: %w", err)
	}

	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

// LatestCandleTime returns the time of the most recent stored candle, or 0.
func (s *SQLiteStore) LatestCandleTime(ctx context.Context, symbol, interval string) (int64, error) {
	var latest sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(time) FROM candles WHERE symbol = ? AND interval = ?
	`, symbol, interval).Scan(&latest)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to get latest candle: %w", err)
	}
	return latest.Int64, nil
}

// ============================================================================
// Watchlist Methods
// ============================================================================

// AddToWatchlist adds a symbol to a watchlist. Adding an existing symbol is a no-op.
func (s *SQLiteStore) AddToWatchlist(ctx context.Context, symbol, listName string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return apperrors.NewValidationError("symbol", symbol, "must not be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO watchlist (symbol, list_name) VALUES (?, ?)
	`, symbol, listName)
	if err != nil {
		return fmt.Errorf("failed to add to watchlist: %w", err)
	}
	return nil
}

// RemoveFromWatchlist removes a symbol from a watchlist.
func (s *SQLiteStore) RemoveFromWatchlist(ctx context.Context, symbol, listName string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM watchlist WHERE symbol = ? AND list_name = ?
	`, strings.ToUpper(symbol), listName)
	if err != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.Wrapf(apperrors.ErrDataNotFound, "%s not in watchlist %s", symbol, listName)
	}
	return nil
}

// GetWatchlist retrieves symbols in a watchlist in insertion order.
func (s *SQLiteStore) GetWatchlist(ctx context.Context, listName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol FROM watchlist WHERE list_name = ? ORDER BY id ASC
	`, listName)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

// GetAllWatchlists retrieves all watchlists.
func (s *SQLiteStore) GetAllWatchlists(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT list_name, symbol FROM watchlist ORDER BY list_name, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlists: %w", err)
	}
	defer rows.Close()

	watchlists := make(map[string][]string)
	for rows.Next() {
		var listName, symbol string
		if err := rows.Scan(&listName, &symbol); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		watchlists[listName] = append(watchlists[listName], symbol)
	}

	return watchlists, rows.Err()
}

// ============================================================================
// Alerts Methods
// ============================================================================

const alertColumns = `id, symbol, type, target, enabled, triggered, created_at, triggered_at`

// SaveAlert inserts or replaces an alert.
func (s *SQLiteStore) SaveAlert(ctx context.Context, alert *models.Alert) error {
	if !alert.Type.Valid() {
		return apperrors.NewValidationError("type", alert.Type, "unknown alert type")
	}

	var triggeredAt interface{}
	if alert.TriggeredAt != nil {
		triggeredAt = *alert.TriggeredAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO alerts (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, alert.ID, alert.Symbol, string(alert.Type), alert.Target.String(),
		boolToInt(alert.Enabled), boolToInt(alert.Triggered), alert.CreatedAt, triggeredAt)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

// GetAlert retrieves one alert by ID.
func (s *SQLiteStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrAlertNotFound, "alert %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return &a, nil
}

// GetAlerts retrieves alerts, oldest first.
func (s *SQLiteStore) GetAlerts(ctx context.Context, filter AlertFilter) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	var args []interface{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.ActiveOnly {
		query += " AND enabled = 1 AND triggered = 0"
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// DeleteAlert removes an alert.
func (s *SQLiteStore) DeleteAlert(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return expectOne(result, id)
}

// ToggleAlert flips the enabled flag and returns the new value.
func (s *SQLiteStore) ToggleAlert(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET enabled = 1 - enabled WHERE id = ?
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to toggle alert: %w", err)
	}
	if err := expectOne(result, id); err != nil {
		return false, err
	}

	var enabled int
	if err := s.db.QueryRowContext(ctx, `SELECT enabled FROM alerts WHERE id = ?`, id).Scan(&enabled); err != nil {
		return false, fmt.Errorf("failed to read alert: %w", err)
	}
	return enabled == 1, nil
}

// MarkAlertTriggered marks an alert as triggered.
func (s *SQLiteStore) MarkAlertTriggered(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET triggered = 1, triggered_at = ? WHERE id = ?
	`, s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to trigger alert: %w", err)
	}
	return expectOne(result, id)
}

// ============================================================================
// Portfolio Methods
// ============================================================================

const holdingColumns = `id, symbol, name, quantity, buy_price, buy_date, notes, created_at`

// SaveHolding inserts or replaces a holding.
func (s *SQLiteStore) SaveHolding(ctx context.Context, h *models.Holding) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO holdings (`+holdingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, h.ID, h.Symbol, h.Name, h.Quantity.String(), h.BuyPrice.String(), h.BuyDate, h.Notes, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save holding: %w", err)
	}
	return nil
}

// GetHolding retrieves one holding by ID.
func (s *SQLiteStore) GetHolding(ctx context.Context, id string) (*models.Holding, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+holdingColumns+` FROM holdings WHERE id = ?`, id)
	h, err := scanHolding(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrHoldingNotFound, "holding %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return &h, nil
}

// GetHoldings retrieves every holding, oldest first.
func (s *SQLiteStore) GetHoldings(ctx context.Context) ([]models.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+holdingColumns+` FROM holdings ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// DeleteHolding removes a holding.
func (s *SQLiteStore) DeleteHolding(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM holdings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return expectRow(result, apperrors.ErrHoldingNotFound, "holding", id)
}

func scanHolding(row rowScanner) (models.Holding, error) {
	var (
		h                  models.Holding
		quantity, buyPrice string
	)
	if err := row.Scan(&h.ID, &h.Symbol, &h.Name, &quantity, &buyPrice, &h.BuyDate, &h.Notes, &h.CreatedAt); err != nil {
		return h, err
	}
	if err := h.Quantity.UnmarshalText([]byte(quantity)); err != nil {
		return h, fmt.Errorf("invalid quantity %q: %w", quantity, err)
	}
	if err := h.BuyPrice.UnmarshalText([]byte(buyPrice)); err != nil {
		return h, fmt.Errorf("invalid buy price %q: %w", buyPrice, err)
	}
	return h, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (models.Alert, error) {
	var (
		a           models.Alert
		alertType   string
		target      string
		enabled     int
		triggered   int
		triggeredAt sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.Symbol, &alertType, &target, &enabled, &triggered, &a.CreatedAt, &triggeredAt); err != nil {
		return a, err
	}

	a.Type = models.AlertType(alertType)
	if err := a.Target.UnmarshalText([]byte(target)); err != nil {
		return a, fmt.Errorf("invalid target %q: %w", target, err)
	}
	a.Enabled = enabled == 1
	a.Triggered = triggered == 1
	if triggeredAt.Valid {
		t := triggeredAt.Time
		a.TriggeredAt = &t
	}
	return a, nil
}

func expectOne(result sql.Result, id string) error {
	return expectRow(result, apperrors.ErrAlertNotFound, "alert", id)
}

func expectRow(result sql.Result, notFound error, kind, id string) error {
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.Wrapf(notFound, "%s %s", kind, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
