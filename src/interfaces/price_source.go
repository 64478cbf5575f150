package interfaces

import "cryptofolio/src/models"

// -----------------------------------------------------------------------------
// IPriceSource is the read-side contract of the live price stream: a keyed
// snapshot of the latest known price per symbol, published to any number of
// subscribers. Consumers never receive a mutable handle into internal state.
// -----------------------------------------------------------------------------

type IPriceSource interface {

	// -----------------------------------------------------------------------------

	// Snapshot returns a copy of the current prices, sorted by symbol.
	Snapshot() []models.MPriceUpdate

	// -----------------------------------------------------------------------------

	// History returns recent updates per symbol for the requested depth.
	History(limit int) map[string][]models.MPriceUpdate

	// -----------------------------------------------------------------------------

	// Subscribe registers a listener. Every published batch delivers a fresh
	// slice on the returned channel. The func unregisters and closes it.
	Subscribe() (<-chan []models.MPriceUpdate, func())

	// -----------------------------------------------------------------------------

	// State returns the connection lifecycle state (idle/connecting/open/closed).
	State() string
}
