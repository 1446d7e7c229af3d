// Package events publishes refresh notifications to other services over NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const flushTimeout = 2 * time.Second

// Event is the envelope written to the wire.
type Event struct {
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// NATS publishes events on <prefix>.<event type>.
type NATS struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

// Connect dials the NATS server at url. Publishing is fire-and-forget: the
// client buffers while reconnecting and a lost event only delays consumers
// until the next cycle.
func Connect(url, prefix string, logger *slog.Logger) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("scoracle-predict"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	logger.Info("Connected to NATS", "url", nc.ConnectedUrl(), "prefix", prefix)
	return &NATS{nc: nc, prefix: prefix, logger: logger}, nil
}

// Subject returns the subject an event type is published on.
func (n *NATS) Subject(event string) string {
	if n.prefix == "" {
		return event
	}
	return n.prefix + "." + event
}

// Publish marshals payload into an Event and publishes it.
func (n *NATS) Publish(ctx context.Context, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(Event{Type: event, At: time.Now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event, err)
	}
	subject := n.Subject(event)
	if err := n.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	n.logger.Debug("Published event", "subject", subject, "bytes", len(data))
	return nil
}

// Close flushes pending messages and closes the connection. The flush is
// synchronous so short-lived commands do not exit before their event is sent.
func (n *NATS) Close() {
	if err := n.nc.FlushTimeout(flushTimeout); err != nil {
		n.logger.Warn("NATS flush before close failed", "error", err)
	}
	n.nc.Close()
}

// Log is used when no NATS server is configured; events are only logged.
type Log struct {
	Logger *slog.Logger
}

// Publish logs the event at debug level.
func (l Log) Publish(_ context.Context, event string, payload any) error {
	l.Logger.Debug("Event (no broker configured)", "type", event, "payload", payload)
	return nil
}
