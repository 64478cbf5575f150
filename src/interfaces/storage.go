package interfaces

import "cryptofolio/src/models"

// -----------------------------------------------------------------------------
// IStorage defines the contract for durable local state: credential slots and
// the price tick archive. Implementations back it with SQLite or Postgres.
// -----------------------------------------------------------------------------

type IStorage interface {
	ITokenStore

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SavePriceUpdatesBulk inserts a batch of received price updates.
	SavePriceUpdatesBulk(updates []models.MPriceUpdate) error

	// -----------------------------------------------------------------------------

	// LoadRecentPrices returns the newest updates for a symbol, oldest first.
	LoadRecentPrices(symbol string, limit int) ([]models.MPriceUpdate, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes ticks older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
