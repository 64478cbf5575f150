package stream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cryptofolio/src/helpers"
	"cryptofolio/src/interfaces"
	"cryptofolio/src/logger"
	"cryptofolio/src/models"
	"cryptofolio/src/utils"
)

// Connection lifecycle states.
const (
	StateIdle       = "idle"
	StateConnecting = "connecting"
	StateOpen       = "open"
	StateClosed     = "closed"
)

// -----------------------------------------------------------------------------
// PriceStreamService owns the single authenticated SSE connection per session
// and the keyed price snapshot, and republishes every merged batch to all
// subscribers. Connection lifecycle is driven purely by auth transitions:
// AuthReady opens it, AuthLost tears it down.
// -----------------------------------------------------------------------------

type PriceStreamService struct {
	Config *models.MConfig
	Tokens interfaces.ITokenStore
	Logger *logger.Logger
	Store  interfaces.IStorage // optional tick archive, may be nil

	httpClient *http.Client

	mu       sync.Mutex
	state    string
	snapshot map[string]models.MPriceUpdate
	history  map[string]*utils.PriceRing
	subs     map[chan []models.MPriceUpdate]struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

// -----------------------------------------------------------------------------

func NewPriceStreamService(cfg *models.MConfig, tokens interfaces.ITokenStore, store interfaces.IStorage, log *logger.Logger) *PriceStreamService {
	return &PriceStreamService{
		Config: cfg,
		Tokens: tokens,
		Logger: log,
		Store:  store,
		// No overall timeout: the connection is long-lived. Stalls are caught
		// by the heartbeat watchdog instead.
		httpClient: &http.Client{},
		state:      StateIdle,
		snapshot:   make(map[string]models.MPriceUpdate),
		history:    make(map[string]*utils.PriceRing),
		subs:       make(map[chan []models.MPriceUpdate]struct{}),
	}
}

// -----------------------------------------------------------------------------
// Auth gating
// -----------------------------------------------------------------------------

// AuthReady opens the stream connection. Called on every transition into the
// authenticated-ready state; a second call while running is a no-op, so
// exactly one connection exists per session.
func (s *PriceStreamService) AuthReady() {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	if s.Tokens.AccessToken() == "" {
		s.state = StateIdle
		s.mu.Unlock()
		s.Logger.Debug("No access token in store, stream stays idle")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateConnecting
	done := s.done
	s.mu.Unlock()

	go s.run(ctx, done)
}

// -----------------------------------------------------------------------------

// AuthLost closes the connection and clears the snapshot. The snapshot lives
// for one session only.
func (s *PriceStreamService) AuthLost() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.mu.Lock()
	s.snapshot = make(map[string]models.MPriceUpdate)
	s.history = make(map[string]*utils.PriceRing)
	s.state = StateIdle
	s.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Stop tears the connection down on shutdown.
func (s *PriceStreamService) Stop() {
	s.AuthLost()
}

// -----------------------------------------------------------------------------

// State returns the current connection state.
func (s *PriceStreamService) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// -----------------------------------------------------------------------------

func (s *PriceStreamService) setState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// -----------------------------------------------------------------------------
// Connection loop
// -----------------------------------------------------------------------------

func (s *PriceStreamService) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	baseDelay := time.Duration(s.Config.Stream.ReconnectBaseDelay) * time.Second
	maxRetries := s.Config.Stream.ReconnectMaxRetries
	attempt := 0

	for {
		received, err := s.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		if received {
			// The connection was healthy for a while; start counting over.
			attempt = 0
		}

		if s.Config.Stream.OnTransportError == models.PolicyTrustBuiltinRetry {
			// Policy: log only, no forced reconnect. The connection stays down
			// until the next auth transition re-opens it.
			s.Logger.Error("Stream transport error: %v", err)
			s.setState(StateClosed)
			return
		}

		attempt++
		if attempt > maxRetries {
			s.Logger.Error("Stream reconnect attempts exhausted: %v", err)
			s.setState(StateClosed)
			return
		}

		delay := baseDelay * (1 << (attempt - 1))
		s.Logger.Warning("Stream disconnected (attempt %d/%d): %v. Reconnecting in %v", attempt, maxRetries, err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// -----------------------------------------------------------------------------

// consume opens one connection and reads events until it fails. Reports
// whether any batch was applied on this connection.
func (s *PriceStreamService) consume(ctx context.Context) (bool, error) {
	s.setState(StateConnecting)

	url := s.Config.Backend.BaseURL + s.Config.Stream.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// Connection-level credential, read fresh from the store.
	tok := s.Tokens.AccessToken()
	if tok == "" {
		return false, helpers.NewStreamError("access token missing", nil)
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, helpers.NewStreamError("stream connect failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, helpers.NewStreamError(fmt.Sprintf("stream endpoint returned status %d", resp.StatusCode), nil)
	}

	s.setState(StateOpen)
	s.Logger.Info("Price stream connected")

	// A stalled transport is detected by closing the body when nothing
	// arrives within the heartbeat window, which unblocks the read loop.
	heartbeat := time.Duration(s.Config.Stream.HeartbeatTimeout) * time.Second
	watchdog := time.AfterFunc(heartbeat, func() { resp.Body.Close() })
	defer watchdog.Stop()

	received := false
	reader := newEventReader(resp.Body)
	for {
		ev, err := reader.Next()
		if err != nil {
			if ctx.Err() != nil {
				return received, ctx.Err()
			}
			return received, helpers.NewStreamError("stream read failed", err)
		}
		watchdog.Reset(heartbeat)

		if len(ev.Data) == 0 {
			// Heartbeat comment, nothing to apply.
			continue
		}

		applied, ok := s.applyBatch(ev.Data)
		if !ok {
			continue
		}
		received = true
		s.publish()
		s.archive(applied)
	}
}

// -----------------------------------------------------------------------------
// Pub-sub
// -----------------------------------------------------------------------------

// Subscribe registers a listener for published snapshots. The returned func
// unregisters it and closes the channel.
func (s *PriceStreamService) Subscribe() (<-chan []models.MPriceUpdate, func()) {
	ch := make(chan []models.MPriceUpdate, 16)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, unsubscribe
}

// -----------------------------------------------------------------------------

// publish sends a fresh derived list to every subscriber. Slow subscribers
// are pruned so publishing never blocks the read loop.
func (s *PriceStreamService) publish() {
	list := s.Snapshot()

	s.mu.Lock()
	for ch := range s.subs {
		select {
		case ch <- list:
		default:
			delete(s.subs, ch)
			close(ch)
		}
	}
	s.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (s *PriceStreamService) archive(updates []models.MPriceUpdate) {
	if s.Store == nil || len(updates) == 0 {
		return
	}
	if err := s.Store.SavePriceUpdatesBulk(updates); err != nil {
		s.Logger.Error("Failed to archive price updates: %v", err)
	}
}
