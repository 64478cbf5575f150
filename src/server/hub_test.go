package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cryptofolio/src/models"
)

// -----------------------------------------------------------------------------

func recvState(t *testing.T, ch chan *models.MTickerState) *models.MTickerState {
	t.Helper()
	select {
	case state := <-ch:
		return state
	case <-time.After(2 * time.Second):
		t.Fatal("no state received within 2s")
		return nil
	}
}

// -----------------------------------------------------------------------------

func TestHub_BroadcastAppliesClientFilter(t *testing.T) {
	gw := testGateway("http://unused")
	go gw.handleWebsockets()

	client := &Client{hub: gw, id: "c1", send: make(chan *models.MTickerState, 16)}
	client.setBaseAssets([]string{"BTC"})
	gw.register <- client

	initial := recvState(t, client.send)
	if initial.Type != "INITIAL" {
		t.Errorf("first message type %q, want INITIAL", initial.Type)
	}

	gw.Broadcast([]models.MPriceUpdate{
		{Symbol: "BTCUSDT", Price: 50000},
		{Symbol: "ETHUSDT", Price: 3000},
	})

	update := recvState(t, client.send)
	if update.Type != "UPDATE" {
		t.Errorf("message type %q, want UPDATE", update.Type)
	}
	if len(update.Prices) != 1 || update.Prices[0].Symbol != "BTCUSDT" {
		t.Errorf("filtered prices %+v, want only the BTC pair", update.Prices)
	}
	if update.Timestamp == 0 {
		t.Error("update timestamp not set")
	}
}

func TestHub_UnfilteredClientGetsFullBatch(t *testing.T) {
	gw := testGateway("http://unused")
	go gw.handleWebsockets()

	client := &Client{hub: gw, id: "c1", send: make(chan *models.MTickerState, 16)}
	gw.register <- client
	recvState(t, client.send) // INITIAL

	gw.Broadcast([]models.MPriceUpdate{
		{Symbol: "BTCUSDT", Price: 50000},
		{Symbol: "ETHUSDT", Price: 3000},
	})

	update := recvState(t, client.send)
	if len(update.Prices) != 2 {
		t.Errorf("got %d prices, want the unfiltered batch of 2", len(update.Prices))
	}
}

func TestHub_SlowClientDisconnected(t *testing.T) {
	gw := testGateway("http://unused")
	go gw.handleWebsockets()

	// Buffer of one: the INITIAL message fills it, so the next broadcast
	// cannot be delivered and the hub must drop the client.
	client := &Client{hub: gw, id: "slow", send: make(chan *models.MTickerState, 1)}
	gw.register <- client

	gw.Broadcast([]models.MPriceUpdate{{Symbol: "BTCUSDT", Price: 50000}})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-client.send:
			if !ok {
				return // channel closed, client was pruned
			}
		case <-deadline:
			t.Fatal("slow client's channel never closed")
		}
	}
}

// TestHealth_DuringClientChurn drives registrations, disconnects and
// broadcasts while health requests read the client count. Run with the race
// detector to verify the hub's client map is consistently guarded.
func TestHealth_DuringClientChurn(t *testing.T) {
	gw := testGateway("http://unused")
	go gw.handleWebsockets()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			client := &Client{hub: gw, id: "churn", send: make(chan *models.MTickerState, 16)}
			gw.register <- client
			gw.Broadcast([]models.MPriceUpdate{{Symbol: "BTCUSDT", Price: 50000}})
			gw.unregister <- client
		}
	}()

	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		gw.engine.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("health returned %d during churn", rec.Code)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("client churn never finished")
	}
}

// -----------------------------------------------------------------------------

func TestStop_TerminatesHubLoopWithoutPanic(t *testing.T) {
	gw := testGateway("http://unused")

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		gw.handleWebsockets()
	}()

	client := &Client{hub: gw, id: "c1", send: make(chan *models.MTickerState, 16)}
	gw.register <- client
	recvState(t, client.send) // INITIAL

	if err := gw.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	select {
	case <-loopDone:
	case <-time.After(2 * time.Second):
		t.Fatal("hub loop did not exit after Stop")
	}
}

// -----------------------------------------------------------------------------

func TestInitialResponse_SeedsFilteredHistory(t *testing.T) {
	gw := testGateway("http://unused")
	src := gw.Prices.(*stubPriceSource)
	src.history = map[string][]models.MPriceUpdate{
		"BTCUSDT": {{Symbol: "BTCUSDT", Price: 49000}, {Symbol: "BTCUSDT", Price: 50000}},
		"ETHUSDT": {{Symbol: "ETHUSDT", Price: 3000}},
	}
	gw.latestState = &models.MTickerState{
		Type: "INITIAL",
		Prices: []models.MPriceUpdate{
			{Symbol: "BTCUSDT", Price: 50000},
			{Symbol: "ETHUSDT", Price: 3000},
		},
	}

	resp := gw.initialResponse([]string{"BTC"})
	if len(resp.Prices) != 1 || resp.Prices[0].Symbol != "BTCUSDT" {
		t.Errorf("prices %+v, want only the BTC pair", resp.Prices)
	}
	if _, ok := resp.History["ETHUSDT"]; ok {
		t.Error("history for unrequested symbols must be dropped")
	}
	if len(resp.History["BTCUSDT"]) != 2 {
		t.Errorf("BTC history %+v, want both seeded entries", resp.History["BTCUSDT"])
	}
}

func TestHandleClientMessage_SubscribeNarrowsFilter(t *testing.T) {
	gw := testGateway("http://unused")

	client := &Client{hub: gw, id: "c1", send: make(chan *models.MTickerState, 16)}
	gw.HandleClientMessage(client, []byte(`{"command":"subscribe","baseAssets":["ETH"]}`))

	if bases := client.baseAssets(); len(bases) != 1 || bases[0] != "ETH" {
		t.Errorf("client bases %v, want [ETH]", bases)
	}

	resp := recvState(t, client.send)
	if resp.Type != "INITIAL" {
		t.Errorf("subscribe response type %q, want INITIAL", resp.Type)
	}
}
