package bus

import (
	"encoding/json"

	"cryptofolio/src/logger"
	"cryptofolio/src/models"

	"github.com/nats-io/nats.go"
)

// -----------------------------------------------------------------------------
// NATSExchanger republishes every snapshot batch on a NATS subject so other
// local tools (alerting, recording) can consume the feed without touching the
// backend connection.
// -----------------------------------------------------------------------------

type NATSExchanger struct {
	Config *models.MConfig
	Logger *logger.Logger
	conn   *nats.Conn
}

// -----------------------------------------------------------------------------

func NewNATSExchanger(cfg *models.MConfig, log *logger.Logger) *NATSExchanger {
	return &NATSExchanger{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (e *NATSExchanger) Start() error {
	conn, err := nats.Connect(
		e.Config.Bus.URL,
		nats.Name(e.Config.Name),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return err
	}

	e.conn = conn
	e.Logger.Info("Connected to NATS at %s (subject: %s)", e.Config.Bus.URL, e.Config.Bus.Subject)
	return nil
}

// -----------------------------------------------------------------------------

func (e *NATSExchanger) Broadcast(prices []models.MPriceUpdate) {
	if e.conn == nil {
		return
	}

	payload, err := json.Marshal(prices)
	if err != nil {
		e.Logger.Error("Failed to marshal price batch: %v", err)
		return
	}

	if err := e.conn.Publish(e.Config.Bus.Subject, payload); err != nil {
		e.Logger.Error("Failed to publish price batch: %v", err)
	}
}

// -----------------------------------------------------------------------------

func (e *NATSExchanger) Stop() error {
	if e.conn == nil {
		return nil
	}
	return e.conn.Drain()
}
