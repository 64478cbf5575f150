package utils

import (
	"cryptofolio/src/models"
)

// -----------------------------------------------------------------------------
// PriceRing is a fixed-size circular buffer of price updates for one symbol.
// True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

type PriceRing struct {
	data     []models.MPriceUpdate
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewPriceRing creates a new buffer with fixed capacity
func NewPriceRing(capacity int) *PriceRing {
	if capacity <= 0 {
		capacity = 120 // Default reasonable size
	}

	return &PriceRing{
		data:     make([]models.MPriceUpdate, capacity),
		capacity: capacity,
		index:    0,
		size:     0,
	}
}

// -----------------------------------------------------------------------------

// Append adds a price update
func (rb *PriceRing) Append(point models.MPriceUpdate) {
	rb.data[rb.index] = point
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns n latest records, oldest of them first
func (rb *PriceRing) GetLatest(n int) []models.MPriceUpdate {
	if rb.size == 0 || n <= 0 {
		return []models.MPriceUpdate{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MPriceUpdate, count)

	// Latest data is at index-1
	startIdx := (rb.index - count + rb.capacity) % rb.capacity

	for i := 0; i < count; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest)
func (rb *PriceRing) GetAll() []models.MPriceUpdate {
	if rb.size == 0 {
		return []models.MPriceUpdate{}
	}

	result := make([]models.MPriceUpdate, rb.size)

	var startIdx int
	if rb.size == rb.capacity {
		// Buffer is full, oldest is at current index (wrap-around)
		startIdx = rb.index
	}

	for i := 0; i < rb.size; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// Size returns the current number of stored elements
func (rb *PriceRing) Size() int {
	return rb.size
}
