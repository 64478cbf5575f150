package interfaces

import "cryptofolio/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defining the interface for sharing price data with external
// consumers (websocket gateway, message bus).
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// -----------------------------------------------------------------------------

	// Broadcast pushes a fresh snapshot slice to external listeners.
	Broadcast(prices []models.MPriceUpdate)

	// -----------------------------------------------------------------------------

	// Start the exchanger
	Start() error

	// -----------------------------------------------------------------------------

	// Stop the exchanger gracefully
	Stop() error
}
