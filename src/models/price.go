package models

// MPriceUpdate is one quote for a trading pair at a point in time.
// Immutable once constructed.
type MPriceUpdate struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// Ticker State Structure (payload pushed to websocket clients)
// -----------------------------------------------------------------------------

type MTickerState struct {
	Type      string                    `json:"type"` // "INITIAL" or "UPDATE"
	Prices    []MPriceUpdate            `json:"prices"`
	History   map[string][]MPriceUpdate `json:"history,omitempty"`
	Timestamp int64                     `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command    string   `json:"command"`
	BaseAssets []string `json:"baseAssets"`
}
