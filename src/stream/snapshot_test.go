package stream

import (
	"fmt"
	"testing"

	"cryptofolio/src/logger"
	"cryptofolio/src/models"
)

// -----------------------------------------------------------------------------

func testService(t *testing.T) *PriceStreamService {
	t.Helper()
	cfg := &models.MConfig{
		Stream: models.MStreamConfig{
			Path:             "/stream/prices",
			HeartbeatTimeout: 60,
			OnTransportError: models.PolicyForceReconnect,
			HistoryDepth:     4,
		},
	}
	return NewPriceStreamService(cfg, nil, nil, logger.NewLogger("CRITICAL", "test"))
}

// -----------------------------------------------------------------------------
// Batch merging
// -----------------------------------------------------------------------------

func TestApplyBatch_LaterElementWinsWithinBatch(t *testing.T) {
	s := testService(t)

	payload := []byte(`[
		{"symbol":"BTCUSDT","price":50000,"timestamp":100},
		{"symbol":"BTCUSDT","price":50100,"timestamp":100}
	]`)
	if _, ok := s.applyBatch(payload); !ok {
		t.Fatal("batch should parse")
	}

	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("got %d entries, want 1", len(snap))
	}
	if snap[0].Price != 50100 {
		t.Errorf("got price %v, want the later element's 50100", snap[0].Price)
	}
}

func TestApplyBatch_ReapplyingSameUpdateIsIdempotent(t *testing.T) {
	s := testService(t)

	payload := []byte(`[{"symbol":"BTCUSDT","price":50000,"timestamp":100}]`)
	s.applyBatch(payload)
	first := s.Snapshot()
	s.applyBatch(payload)
	second := s.Snapshot()

	if len(second) != 1 || second[0] != first[0] {
		t.Errorf("snapshot changed on reapply: %+v then %+v", first, second)
	}
}

func TestApplyBatch_ArrivalOrderWinsAcrossBatches(t *testing.T) {
	s := testService(t)

	s.applyBatch([]byte(`[{"symbol":"ETHUSDT","price":3000,"timestamp":200}]`))
	// Later-arriving batch overwrites even with an older timestamp.
	s.applyBatch([]byte(`[{"symbol":"ETHUSDT","price":2990,"timestamp":100}]`))

	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].Price != 2990 {
		t.Errorf("snapshot %+v, want the last-arrived price 2990", snap)
	}
}

func TestApplyBatch_MalformedElementsSkippedIndividually(t *testing.T) {
	s := testService(t)

	payload := []byte(`[
		{"symbol":"BTCUSDT","price":50000,"timestamp":100},
		{"symbol":"","price":1,"timestamp":100},
		{"symbol":"ETHUSDT","timestamp":100},
		{"symbol":"SOLUSDT","price":"not-a-number","timestamp":100},
		{"symbol":"ADAUSDT","price":0.45,"timestamp":100}
	]`)
	applied, ok := s.applyBatch(payload)
	if !ok {
		t.Fatal("batch should parse even when elements are bad")
	}
	if len(applied) != 2 {
		t.Fatalf("applied %d updates, want only the 2 valid ones", len(applied))
	}

	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d entries, want 2: %+v", len(snap), snap)
	}
	if snap[0].Symbol != "ADAUSDT" || snap[1].Symbol != "BTCUSDT" {
		t.Errorf("snapshot not sorted by symbol: %+v", snap)
	}
}

func TestApplyBatch_NonArrayPayloadRejected(t *testing.T) {
	s := testService(t)

	if _, ok := s.applyBatch([]byte(`{"symbol":"BTCUSDT","price":1}`)); ok {
		t.Error("bare object payload should be rejected as a batch")
	}
	if _, ok := s.applyBatch([]byte(`not json`)); ok {
		t.Error("garbage payload should be rejected")
	}
	if len(s.Snapshot()) != 0 {
		t.Error("rejected payloads must not touch the snapshot")
	}
}

// -----------------------------------------------------------------------------
// Snapshot and history
// -----------------------------------------------------------------------------

func TestSnapshot_ReturnsIndependentCopy(t *testing.T) {
	s := testService(t)
	s.applyBatch([]byte(`[{"symbol":"BTCUSDT","price":50000,"timestamp":100}]`))

	snap := s.Snapshot()
	snap[0].Price = 0

	if again := s.Snapshot(); again[0].Price != 50000 {
		t.Error("mutating a returned snapshot must not affect the service")
	}
}

func TestHistory_CappedAtDepthOldestFirst(t *testing.T) {
	s := testService(t) // depth 4

	for i := 1; i <= 6; i++ {
		s.applyBatch([]byte(fmt.Sprintf(`[{"symbol":"BTCUSDT","price":%d,"timestamp":100}]`, i*10)))
	}

	hist := s.History(10)["BTCUSDT"]
	if len(hist) != 4 {
		t.Fatalf("history has %d entries, want the ring depth 4", len(hist))
	}
	if hist[0].Price != 30 || hist[3].Price != 60 {
		t.Errorf("history %+v, want the latest 4 updates oldest first", hist)
	}

	limited := s.History(2)["BTCUSDT"]
	if len(limited) != 2 || limited[0].Price != 50 || limited[1].Price != 60 {
		t.Errorf("limited history %+v, want the latest 2 updates oldest first", limited)
	}
}

// -----------------------------------------------------------------------------
// Symbol filtering
// -----------------------------------------------------------------------------

func TestFilterByBaseAssets(t *testing.T) {
	prices := []models.MPriceUpdate{
		{Symbol: "BTCUSDT", Price: 50000},
		{Symbol: "BTCUSDC", Price: 50001},
		{Symbol: "ETHUSDC", Price: 3000},
		{Symbol: "SOLBTC", Price: 0.003},
	}
	quotes := []string{"USDT", "USDC"}

	got := FilterByBaseAssets(prices, []string{"BTC", "ETH", "SOL", "ADA"}, quotes)
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3 (ADA has no pair): %+v", len(got), got)
	}
	if got[0].Symbol != "BTCUSDT" {
		t.Errorf("BTC resolved to %s, want the USDT pair first", got[0].Symbol)
	}
	if got[1].Symbol != "ETHUSDC" {
		t.Errorf("ETH resolved to %s, want the USDC pair when USDT is absent", got[1].Symbol)
	}
	if got[2].Symbol != "SOLBTC" {
		t.Errorf("SOL resolved to %s, want the prefix fallback", got[2].Symbol)
	}
}
