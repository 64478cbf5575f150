package server

import (
	"encoding/json"
	"net/http"
	"time"

	"cryptofolio/src/models"
	"cryptofolio/src/stream"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *Gateway) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			// clients is read by getHealth, so every mutation holds stateMutex
			s.stateMutex.Lock()
			s.clients[client] = struct{}{}
			// Send initial state on connect
			if s.latestState != nil {
				client.send <- s.initialResponse(client.baseAssets())
			}
			s.stateMutex.Unlock()

		case client := <-s.unregister:
			s.stateMutex.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()

		case message, ok := <-s.broadcast:
			if !ok {
				return
			}

			// Update state and broadcast to all clients, applying each
			// client's filter. Sends are non-blocking, so holding the lock
			// across the loop is safe.
			s.stateMutex.Lock()
			s.latestState = message

			for client := range s.clients {
				out := message
				if bases := client.baseAssets(); len(bases) > 0 {
					out = &models.MTickerState{
						Type:      message.Type,
						Prices:    stream.FilterByBaseAssets(message.Prices, bases, s.Config.Watch.PreferredQuotes),
						Timestamp: message.Timestamp,
					}
				}

				select {
				case client.send <- out:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.stateMutex.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast wraps a snapshot slice and sends it to the broadcast channel (Queue)
func (s *Gateway) Broadcast(prices []models.MPriceUpdate) {
	state := &models.MTickerState{
		Type:      "UPDATE",
		Prices:    prices,
		Timestamp: time.Now().UnixMilli(),
	}

	// With a large buffer, blocking is rare.
	s.broadcast <- state
}

// -----------------------------------------------------------------------------
// Response Building
// -----------------------------------------------------------------------------

// initialResponse builds the INITIAL payload with current prices and recent
// per-symbol history for chart seeding. Caller holds at least a read lock on
// stateMutex.
func (s *Gateway) initialResponse(bases []string) *models.MTickerState {
	prices := s.latestState.Prices
	if len(bases) > 0 {
		prices = stream.FilterByBaseAssets(prices, bases, s.Config.Watch.PreferredQuotes)
	}

	history := s.Prices.History(s.Config.Stream.HistoryDepth)
	if len(bases) > 0 {
		filtered := make(map[string][]models.MPriceUpdate, len(prices))
		for _, p := range prices {
			if h, ok := history[p.Symbol]; ok {
				filtered[p.Symbol] = h
			}
		}
		history = filtered
	}

	return &models.MTickerState{
		Type:      "INITIAL",
		Prices:    prices,
		History:   history,
		Timestamp: s.latestState.Timestamp,
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *Gateway) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		id:   uuid.NewString(),
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MTickerState, 256),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *Gateway) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command from %s: %v, disconnecting client", client.id, err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	client.setBaseAssets(cmd.BaseAssets)

	s.stateMutex.RLock()
	response := s.initialResponse(cmd.BaseAssets)
	s.stateMutex.RUnlock()

	// Send response to client
	// Use select to avoid blocking if client's send buffer is full
	select {
	case client.send <- response:
	default:
	}
}
