// Package listener provides a Postgres LISTEN/NOTIFY consumer for on-demand
// refresh requests. It holds a dedicated pgx connection (not from the pool)
// listening on the `scores_refresh_requested` channel.
//
// Ingestion jobs (or `scorer request-refresh`) fire pg_notify after writing
// new standings or results, and this consumer triggers a refresh cycle.
// Requests that arrive while one is already queued are coalesced.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/albapepper/scoracle-predict/internal/refresh"
)

const (
	// Channel is the NOTIFY channel refresh requests arrive on.
	Channel          = "scores_refresh_requested"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Request is the optional JSON payload of a notification.
type Request struct {
	Source string `json:"source,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Triggerer runs a refresh cycle.
type Triggerer interface {
	Trigger(ctx context.Context) refresh.TriggerResult
}

// Start opens a dedicated connection and listens for refresh requests. It
// reconnects automatically on connection loss. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, t Triggerer, logger *slog.Logger) {
	pending := make(chan Request, 1)
	go drain(ctx, pending, t, logger)

	backoff := reconnectBackoff
	for {
		err := listenLoop(ctx, dbURL, pending, logger)
		if ctx.Err() != nil {
			logger.Info("Refresh listener stopped (context cancelled)")
			return
		}

		logger.Error("Refresh listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, pending chan<- Request, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("LISTEN %s: %w", Channel, err)
	}
	logger.Info("Refresh listener connected", "channel", Channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		req, err := ParseRequest(notification.Payload)
		if err != nil {
			logger.Warn("Ignoring malformed refresh request payload",
				"payload", notification.Payload, "error", err)
		}
		if enqueue(pending, req) {
			logger.Info("Refresh requested", "source", req.Source, "reason", req.Reason)
		} else {
			logger.Debug("Refresh already queued, coalescing request", "source", req.Source)
		}
	}
}

// ParseRequest decodes a notification payload. An empty payload is a valid
// request; a malformed one still requests a refresh.
func ParseRequest(payload string) (Request, error) {
	var req Request
	if payload == "" {
		return req, nil
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return Request{Reason: "unparsed payload"}, fmt.Errorf("parse refresh request: %w", err)
	}
	return req, nil
}

// enqueue reports whether req was queued; false means one is already waiting.
func enqueue(pending chan<- Request, req Request) bool {
	select {
	case pending <- req:
		return true
	default:
		return false
	}
}

// drain runs one cycle per queued request until ctx is cancelled.
func drain(ctx context.Context, pending <-chan Request, t Triggerer, logger *slog.Logger) {
	for {
		select {
		case req := <-pending:
			res := t.Trigger(ctx)
			if res.Success {
				logger.Info("Requested refresh complete", "source", req.Source, "count", res.Count)
			} else {
				logger.Warn("Requested refresh incomplete",
					"source", req.Source, "count", res.Count, "error", res.Error)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Execer is satisfied by *pgx.Conn and *pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Notify publishes a refresh request for any running listener.
func Notify(ctx context.Context, db Execer, req Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal refresh request: %w", err)
	}
	if _, err := db.Exec(ctx, "SELECT pg_notify($1, $2)", Channel, string(payload)); err != nil {
		return fmt.Errorf("notify %s: %w", Channel, err)
	}
	return nil
}
