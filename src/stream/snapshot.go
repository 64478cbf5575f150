package stream

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"cryptofolio/src/models"
	"cryptofolio/src/utils"
)

// wirePrice mirrors one stream element with a pointer price so an absent or
// non-numeric field is distinguishable from zero.
type wirePrice struct {
	Symbol    string   `json:"symbol"`
	Price     *float64 `json:"price"`
	Timestamp int64    `json:"timestamp"`
}

// -----------------------------------------------------------------------------

// applyBatch merges one event payload into the snapshot. Malformed elements
// are logged and skipped individually; the rest of the batch still applies.
// Returns the applied updates and whether the payload parsed as a batch.
func (s *PriceStreamService) applyBatch(data []byte) ([]models.MPriceUpdate, bool) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		s.Logger.Warning("Skipping malformed stream payload: %v", err)
		return nil, false
	}

	applied := make([]models.MPriceUpdate, 0, len(elements))

	s.mu.Lock()
	for _, raw := range elements {
		var w wirePrice
		if err := json.Unmarshal(raw, &w); err != nil {
			s.Logger.Warning("Skipping malformed stream element: %v", err)
			continue
		}
		if w.Symbol == "" || w.Price == nil || math.IsNaN(*w.Price) || math.IsInf(*w.Price, 0) {
			s.Logger.Warning("Skipping invalid stream element (symbol=%q)", w.Symbol)
			continue
		}

		u := models.MPriceUpdate{Symbol: w.Symbol, Price: *w.Price, Timestamp: w.Timestamp}

		// Unconditional overwrite: within a batch the later array element
		// wins, across batches arrival order wins.
		s.snapshot[u.Symbol] = u

		ring := s.history[u.Symbol]
		if ring == nil {
			ring = utils.NewPriceRing(s.Config.Stream.HistoryDepth)
			s.history[u.Symbol] = ring
		}
		ring.Append(u)

		applied = append(applied, u)
	}
	s.mu.Unlock()

	return applied, true
}

// -----------------------------------------------------------------------------

// Snapshot returns a copy of the current prices, sorted by symbol. Consumers
// never see the internal map.
func (s *PriceStreamService) Snapshot() []models.MPriceUpdate {
	s.mu.Lock()
	list := make([]models.MPriceUpdate, 0, len(s.snapshot))
	for _, u := range s.snapshot {
		list = append(list, u)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Symbol < list[j].Symbol })
	return list
}

// -----------------------------------------------------------------------------

// History returns up to limit recent updates per symbol, oldest first.
func (s *PriceStreamService) History(limit int) map[string][]models.MPriceUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]models.MPriceUpdate, len(s.history))
	for sym, ring := range s.history {
		out[sym] = ring.GetLatest(limit)
	}
	return out
}

// -----------------------------------------------------------------------------
// Symbol filtering
// -----------------------------------------------------------------------------

// FilterByBaseAssets returns at most one entry per requested base asset:
// the USDT-quoted pair when present, then USDC (or the configured quote
// order), then any symbol starting with the base. Bases with no match are
// omitted.
func FilterByBaseAssets(prices []models.MPriceUpdate, bases []string, preferredQuotes []string) []models.MPriceUpdate {
	if len(preferredQuotes) == 0 {
		preferredQuotes = []string{"USDT", "USDC"}
	}

	bySymbol := make(map[string]models.MPriceUpdate, len(prices))
	for _, p := range prices {
		bySymbol[p.Symbol] = p
	}

	result := make([]models.MPriceUpdate, 0, len(bases))
	for _, base := range bases {
		if u, ok := pickPair(prices, bySymbol, base, preferredQuotes); ok {
			result = append(result, u)
		}
	}
	return result
}

// -----------------------------------------------------------------------------

func pickPair(prices []models.MPriceUpdate, bySymbol map[string]models.MPriceUpdate, base string, quotes []string) (models.MPriceUpdate, bool) {
	for _, q := range quotes {
		if u, ok := bySymbol[base+q]; ok {
			return u, true
		}
	}
	for _, p := range prices {
		if strings.HasPrefix(p.Symbol, base) {
			return p, true
		}
	}
	return models.MPriceUpdate{}, false
}
