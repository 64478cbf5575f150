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

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger

	mu    sync.RWMutex
	slots map[string]string
}

// -----------------------------------------------------------------------------

func NewPostgresStore(cfg *models.MConfig, log *logger.Logger) (*PostgresStore, error) {
	schema := strings.ToLower(cfg.Name)
	if schema == "" {
		schema = "cryptofolio"
	}

	return &PostgresStore{
		Config: cfg,
		Schema: schema,
		Logger: log,
		slots:  make(map[string]string),
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewStorageError("failed to open postgres connection", err)
	}

	// The database may still be coming up when this daemon starts.
	if _, err := helpers.RetryWithBackoff("postgres ping", 5, time.Second, func() (interface{}, error) {
		return nil, db.Ping()
	}); err != nil {
		return helpers.NewStorageError("postgres database unreachable", err)
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	if err := d.loadSlots(); err != nil {
		return err
	}

	d.Logger.Info("PostgresStore initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."credential_slots" (
			slot TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create credential_slots: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."price_updates" (
			symbol TEXT,
			timestamp BIGINT,
			price DOUBLE PRECISION,
			PRIMARY KEY (symbol, timestamp)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create price_updates: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) loadSlots() error {
	query := fmt.Sprintf(`SELECT slot, value FROM "%s"."credential_slots"`, d.Schema)
	rows, err := d.DB.Query(query)
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

func (d *PostgresStore) AccessToken() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slots[slotAccessToken]
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) RefreshToken() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slots[slotRefreshToken]
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) SetAccessToken(token string) error {
	return d.setSlot(slotAccessToken, token)
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) SetRefreshToken(token string) error {
	return d.setSlot(slotRefreshToken, token)
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) setSlot(slot, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."credential_slots" (slot, value) VALUES ($1, $2)
		ON CONFLICT (slot) DO UPDATE SET value = EXCLUDED.value;
	`, d.Schema)
	if _, err := d.DB.Exec(query, slot, value); err != nil {
		return fmt.Errorf("failed to persist slot %s: %w", slot, err)
	}

	d.mu.Lock()
	d.slots[slot] = value
	d.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Clear() error {
	query := fmt.Sprintf(`DELETE FROM "%s"."credential_slots"`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
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

func (d *PostgresStore) SavePriceUpdatesBulk(updates []models.MPriceUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(updates))
	args := make([]interface{}, 0, len(updates)*paramsPerRow)
	for i, u := range updates {
		base := i * paramsPerRow
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d)", base+1, base+2, base+3))
		args = append(args, u.Symbol, u.Timestamp, u.Price)
	}

	query := fmt.Sprintf(`
		INSERT INTO "%s"."price_updates" (symbol, timestamp, price)
		VALUES %s
		ON CONFLICT (symbol, timestamp) DO UPDATE SET price = EXCLUDED.price;
	`, d.Schema, strings.Join(placeholders, ", "))

	if _, err := d.DB.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to save price updates: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) LoadRecentPrices(symbol string, limit int) ([]models.MPriceUpdate, error) {
	query := fmt.Sprintf(`
		SELECT symbol, timestamp, price FROM "%s"."price_updates"
		WHERE symbol = $1
		ORDER BY timestamp DESC
		LIMIT $2;
	`, d.Schema)
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

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) CleanupOldData() error {
	cutoff := time.Now().AddDate(0, 0, -d.Config.Storage.RetentionDays).UnixMilli()
	query := fmt.Sprintf(`DELETE FROM "%s"."price_updates" WHERE timestamp < $1`, d.Schema)
	if _, err := d.DB.Exec(query, cutoff); err != nil {
		return fmt.Errorf("failed to cleanup old price updates: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
