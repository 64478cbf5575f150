package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"cryptofolio/src/interfaces"
	"cryptofolio/src/logger"
	"cryptofolio/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Gateway
// -----------------------------------------------------------------------------

// Gateway is the local HTTP surface: health and config endpoints, the reverse
// proxy passthrough to the backend, and a websocket ticker fed by the price
// stream.
type Gateway struct {
	Config *models.MConfig
	Logger *logger.Logger
	Prices interfaces.IPriceSource
	engine *gin.Engine

	proxyClient *http.Client

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MTickerState // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client

	// Local cache
	latestState *models.MTickerState
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewGateway(cfg *models.MConfig, prices interfaces.IPriceSource, log *logger.Logger) *Gateway {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Gateway{
		Config: cfg,
		Logger: log,
		Prices: prices,
		engine: gin.Default(),
		proxyClient: &http.Client{
			Timeout: time.Duration(cfg.Backend.RequestTimeout) * time.Second,
		},
		clients: make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking
		broadcast:  make(chan *models.MTickerState, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		latestState: &models.MTickerState{
			Type:   "INITIAL",
			Prices: []models.MPriceUpdate{},
		},
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *Gateway) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/config", s.getConfig)

	// Reverse proxy passthrough to the backend
	s.engine.Any("/api/proxy/*path", s.handleProxy)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting gateway on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *Gateway) Stop() error {
	// Closing broadcast is the hub loop's shutdown signal. register and
	// unregister stay open: readPumps may still send on them while their
	// connections wind down, and a send on a closed channel panics.
	close(s.broadcast)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *Gateway) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":        "ok",
		"connections":   connections,
		"stream_state":  s.Prices.State(),
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *Gateway) getConfig(c *gin.Context) {
	c.JSON(200, gin.H{
		"base_assets":        s.Config.Watch.BaseAssets,
		"preferred_quotes":   s.Config.Watch.PreferredQuotes,
		"on_transport_error": s.Config.Stream.OnTransportError,
	})
}

// -----------------------------------------------------------------------------

// handleProxy forwards method, path, query, body and headers to the backend
// and relays status and body verbatim. Failures come back as a generic 500
// with the error message.
func (s *Gateway) handleProxy(c *gin.Context) {
	target := s.Config.Backend.BaseURL + c.Param("path")
	if q := c.Request.URL.RawQuery; q != "" {
		target += "?" + q
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target, c.Request.Body)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	req.Header = c.Request.Header.Clone()

	resp, err := s.proxyClient.Do(req)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, body)
}
