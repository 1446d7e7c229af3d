// Package handler provides HTTP handlers for all API endpoints.
// Score reads are served from the participant store through the in-memory
// ETag cache; refreshes go through the scheduler so they never overlap a
// running cycle.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/albapepper/scoracle-predict/internal/api/respond"
	"github.com/albapepper/scoracle-predict/internal/cache"
	"github.com/albapepper/scoracle-predict/internal/config"
	"github.com/albapepper/scoracle-predict/internal/refresh"
	"github.com/albapepper/scoracle-predict/internal/scoring"
)

// ScoreReader is the read side of the participant store.
type ScoreReader interface {
	ListParticipants(ctx context.Context) ([]scoring.Participant, error)
	GetParticipant(ctx context.Context, id scoring.ParticipantID) (*scoring.Participant, error)
	Ping(ctx context.Context) error
}

// Refresher runs and reports refresh cycles.
type Refresher interface {
	Trigger(ctx context.Context) refresh.TriggerResult
	Status() refresh.Status
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store     ScoreReader
	refresher Refresher
	cache     *cache.Cache
	cfg       *config.Config
}

// New creates a Handler with shared dependencies.
func New(store ScoreReader, refresher Refresher, c *cache.Cache, cfg *config.Config) *Handler {
	return &Handler{
		store:     store,
		refresher: refresher,
		cache:     c,
		cfg:       cfg,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status and the active season.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Scoracle Predict API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"season":  h.cfg.Season,
		"store":   h.cfg.StoreDriver,
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies store connectivity.
// @Summary Database health check
// @Description Verifies the participant store is reachable.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"driver":    h.cfg.StoreDriver,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (active keys, expired keys, invalidations).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
