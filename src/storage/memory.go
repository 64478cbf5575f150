package storage

import (
	"sort"
	"sync"
	"time"

	"cryptofolio/src/models"
)

// -----------------------------------------------------------------------------
// MemoryStore keeps credential slots and ticks in process memory only. Used
// for ephemeral sessions (db_type "memory") and in tests.
// -----------------------------------------------------------------------------

type MemoryStore struct {
	Config *models.MConfig

	mu    sync.RWMutex
	slots map[string]string
	ticks map[string][]models.MPriceUpdate
}

// -----------------------------------------------------------------------------

func NewMemoryStore(cfg *models.MConfig) *MemoryStore {
	return &MemoryStore{
		Config: cfg,
		slots:  make(map[string]string),
		ticks:  make(map[string][]models.MPriceUpdate),
	}
}

// -----------------------------------------------------------------------------

func (d *MemoryStore) Initialize() error {
	return nil
}

// -----------------------------------------------------------------------------
// ITokenStore implementation
// -----------------------------------------------------------------------------

func (d *MemoryStore) AccessToken() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slots[slotAccessToken]
}

func (d *MemoryStore) RefreshToken() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slots[slotRefreshToken]
}

func (d *MemoryStore) SetAccessToken(token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slots[slotAccessToken] = token
	return nil
}

func (d *MemoryStore) SetRefreshToken(token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slots[slotRefreshToken] = token
	return nil
}

func (d *MemoryStore) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slots = make(map[string]string)
	return nil
}

// -----------------------------------------------------------------------------
// Tick archive
// -----------------------------------------------------------------------------

func (d *MemoryStore) SavePriceUpdatesBulk(updates []models.MPriceUpdate) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, u := range updates {
		d.ticks[u.Symbol] = append(d.ticks[u.Symbol], u)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *MemoryStore) LoadRecentPrices(symbol string, limit int) ([]models.MPriceUpdate, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	list := d.ticks[symbol]
	sorted := make([]models.MPriceUpdate, len(list))
	copy(sorted, list)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	return sorted, nil
}

// -----------------------------------------------------------------------------

func (d *MemoryStore) CleanupOldData() error {
	cutoff := time.Now().AddDate(0, 0, -d.Config.Storage.RetentionDays).UnixMilli()

	d.mu.Lock()
	defer d.mu.Unlock()

	for sym, list := range d.ticks {
		kept := list[:0]
		for _, u := range list {
			if u.Timestamp >= cutoff {
				kept = append(kept, u)
			}
		}
		d.ticks[sym] = kept
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *MemoryStore) Close() error {
	return nil
}
