package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"cryptofolio/src/helpers"
	"cryptofolio/src/logger"
	"cryptofolio/src/models"

	_ "modernc.org/sqlite"
)

// Credential slot names. The API client writes them, the stream reads them.
const (
	slotAccessToken  = "access_token"
	slotRefreshToken = "refresh_token"
)

// SQLite batch constants
const (
	sqliteMaxVars   = 32000
	paramsPerRow    = 3
	sqliteBatchSize = sqliteMaxVars / paramsPerRow // ~10666 rows
)

// -----------------------------------------------------------------------------

type SQLiteStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger

	// Slots are cached in memory so reads stay synchronous and infallible;
	// writes go through to the table before the cache is updated.
	mu    sync.RWMutex
	slots map[string]string
}

// -----------------------------------------------------------------------------

func NewSQLiteStore(cfg *models.MConfig, log *logger.Logger) (*SQLiteStore, error) {
	return &SQLiteStore{
		Config: cfg,
		Logger: log,
		slots:  make(map[string]string),
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewStorageError("failed to open sqlite database", err)
	}

	if err := db.Ping(); err != nil {
		return helpers.NewStorageError("sqlite database unreachable", err)
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	return d.loadSlots()
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) createTables() error {
	// Credential slots survive restarts so an existing session can resume.
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS credential_slots (
			slot TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create credential_slots: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS price_updates (
			symbol TEXT,
			timestamp INTEGER,
			price REAL,
			PRIMARY KEY (symbol, timestamp)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create price_updates: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) loadSlots() error {
	rows, err := d.DB.Query("SELECT slot, value FROM credential_slots")
	if err != nil {
		return fmt.Errorf("failed to load credential slots: %w", err)
	}
	defer rows.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	for rows.Next() {
		var slot, value string
		if err := rows.Scan(&slot, &value); err != nil {
			return err
		}
		d.slots[slot] = value
	}
	return rows.Err()
}

// -----------------------------------------------------------------------------
// ITokenStore implementation
// -----------------------------------------------------------------------------

func (d *SQLiteStore) AccessToken() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slots[slotAccessToken]
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) RefreshToken() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slots[slotRefreshToken]
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) SetAccessToken(token string) error {
	return d.setSlot(slotAccessToken, token)
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) SetRefreshToken(token string) error {
	return d.setSlot(slotRefreshToken, token)
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) setSlot(slot, value string) error {
	query := `
		INSERT INTO credential_slots (slot, value) VALUES (?, ?)
		ON CONFLICT(slot) DO UPDATE SET value = excluded.value;
	`
	if _, err := d.DB.Exec(query, slot, value); err != nil {
		return fmt.Errorf("failed to persist slot %s: %w", slot, err)
	}

	d.mu.Lock()
	d.slots[slot] = value
	d.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Clear() error {
	if _, err := d.DB.Exec("DELETE FROM credential_slots"); err != nil {
		return fmt.Errorf("failed to clear credential slots: %w", err)
	}

	d.mu.Lock()
	d.slots = make(map[string]string)
	d.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------
// Tick archive
// -----------------------------------------------------------------------------

func (d *SQLiteStore) SavePriceUpdatesBulk(updates []models.MPriceUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	for start := 0; start < len(updates); start += sqliteBatchSize {
		end := start + sqliteBatchSize
		if end > len(updates) {
			end = len(updates)
		}
		batch := updates[start:end]

		placeholders := make([]string, 0, len(batch))
		args := make([]interface{}, 0, len(batch)*paramsPerRow)
		for _, u := range batch {
			placeholders = append(placeholders, "(?, ?, ?)")
			args = append(args, u.Symbol, u.Timestamp, u.Price)
		}

		query := fmt.Sprintf(`
			INSERT INTO price_updates (symbol, timestamp, price)
			VALUES %s
			ON CONFLICT(symbol, timestamp) DO UPDATE SET price = excluded.price;
		`, strings.Join(placeholders, ", "))

		if _, err := d.DB.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to save price updates: %w", err)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) LoadRecentPrices(symbol string, limit int) ([]models.MPriceUpdate, error) {
	query := `
		SELECT symbol, timestamp, price FROM price_updates
		WHERE symbol = ?
		ORDER BY timestamp DESC
		LIMIT ?;
	`
	rows, err := d.DB.Query(query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent prices: %w", err)
	}
	defer rows.Close()

	var result []models.MPriceUpdate
	for rows.Next() {
		var u models.MPriceUpdate
		if err := rows.Scan(&u.Symbol, &u.Timestamp, &u.Price); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) CleanupOldData() error {
	cutoff := time.Now().AddDate(0, 0, -d.Config.Storage.RetentionDays).UnixMilli()
	if _, err := d.DB.Exec("DELETE FROM price_updates WHERE timestamp < ?", cutoff); err != nil {
		return fmt.Errorf("failed to cleanup old price updates: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
