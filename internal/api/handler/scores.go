package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/scoracle-predict/internal/api/respond"
	"github.com/albapepper/scoracle-predict/internal/cache"
	"github.com/albapepper/scoracle-predict/internal/scoring"
	"github.com/albapepper/scoracle-predict/internal/store"
)

// LeaderboardEntry is one row of the leaderboard.
type LeaderboardEntry struct {
	Rank          int        `json:"rank"`
	ParticipantID string     `json:"participant_id"`
	TablePoints   int        `json:"table_points"`
	FixturePoints int        `json:"fixture_points"`
	TotalPoints   int        `json:"total_points"`
	ScoredAt      *time.Time `json:"scored_at,omitempty"`
}

// Leaderboard is the leaderboard response body.
type Leaderboard struct {
	Season  int                `json:"season"`
	Count   int                `json:"count"`
	Entries []LeaderboardEntry `json:"entries"`
}

// ParticipantScores is the participant response body.
type ParticipantScores struct {
	ParticipantID      string            `json:"participant_id"`
	TablePoints        int               `json:"table_points"`
	FixturePoints      int               `json:"fixture_points"`
	TotalPoints        int               `json:"total_points"`
	ScoredAt           *time.Time        `json:"scored_at,omitempty"`
	TablePrediction    []int             `json:"table_prediction"`
	FixturePredictions map[string]string `json:"fixture_predictions"`
}

// TriggerRefresh runs a refresh cycle on demand.
// @Summary Trigger a score refresh
// @Description Fetches standings and fixture results and rescores every participant. Waits for a running cycle to finish first. Returns 503 when the cycle was aborted before any write.
// @Tags scores
// @Produce json
// @Success 200 {object} refresh.TriggerResult
// @Failure 503 {object} refresh.TriggerResult
// @Router /api/v1/scores/refresh [post]
func (h *Handler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	res := h.refresher.Trigger(r.Context())
	status := http.StatusOK
	if res.Aborted {
		status = http.StatusServiceUnavailable
	}
	respond.WriteJSONObject(w, status, res)
}

// GetStatus reports the scheduler state and the last cycle.
// @Summary Refresh status
// @Description Returns the scheduler state (idle or refreshing), cycle counters and the outcome of the last cycle.
// @Tags scores
// @Produce json
// @Success 200 {object} refresh.Status
// @Router /api/v1/scores/status [get]
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, h.refresher.Status())
}

// GetLeaderboard returns participants ordered by total points.
// @Summary Leaderboard
// @Description Returns every participant ordered by total points (descending). Tied totals share a rank. Cached until the next refresh cycle.
// @Tags scores
// @Produce json
// @Param limit query int false "Maximum number of entries"
// @Success 200 {object} Leaderboard
// @Success 304
// @Failure 400 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /api/v1/scores/leaderboard [get]
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}

	cacheKey := cache.KeyLeaderboard + ":" + strconv.Itoa(limit)
	ttl := cache.TTLLeaderboard

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	gen := h.cache.Generation()
	participants, err := h.store.ListParticipants(r.Context())
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load participants", err.Error())
		return
	}

	board := Leaderboard{Season: h.cfg.Season, Entries: rank(participants)}
	if limit > 0 && len(board.Entries) > limit {
		board.Entries = board.Entries[:limit]
	}
	board.Count = len(board.Entries)

	data, err := json.Marshal(board)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode leaderboard")
		return
	}
	etag := h.cache.SetAt(gen, cacheKey, data, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, ttl, false)
}

// GetParticipant returns one participant's scores and predictions.
// @Summary Participant scores
// @Description Returns a participant's stored scores with their table and fixture predictions.
// @Tags scores
// @Produce json
// @Param participantID path string true "Participant ID"
// @Success 200 {object} ParticipantScores
// @Success 304
// @Failure 404 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /api/v1/scores/participants/{participantID} [get]
func (h *Handler) GetParticipant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "participantID")
	cacheKey := cache.KeyParticipant + id
	ttl := cache.TTLParticipant

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	gen := h.cache.Generation()
	p, err := h.store.GetParticipant(r.Context(), scoring.ParticipantID(id))
	if errors.Is(err, store.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "No participant "+id)
		return
	}
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load participant", err.Error())
		return
	}

	data, err := json.Marshal(participantScores(p))
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode participant")
		return
	}
	etag := h.cache.SetAt(gen, cacheKey, data, ttl)
	respond.WriteJSON(w, data, etag, ttl, false)
}

// rank orders participants by total points, then ID. Equal totals share a
// rank and the next rank skips accordingly (1, 2, 2, 4).
func rank(participants []scoring.Participant) []LeaderboardEntry {
	sorted := make([]scoring.Participant, len(participants))
	copy(sorted, participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalPoints != sorted[j].TotalPoints {
			return sorted[i].TotalPoints > sorted[j].TotalPoints
		}
		return sorted[i].ID < sorted[j].ID
	})

	entries := make([]LeaderboardEntry, len(sorted))
	for i, p := range sorted {
		r := i + 1
		if i > 0 && p.TotalPoints == sorted[i-1].TotalPoints {
			r = entries[i-1].Rank
		}
		entries[i] = LeaderboardEntry{
			Rank:          r,
			ParticipantID: string(p.ID),
			TablePoints:   p.TablePoints,
			FixturePoints: p.FixturePoints,
			TotalPoints:   p.TotalPoints,
			ScoredAt:      p.ScoredAt,
		}
	}
	return entries
}

func participantScores(p *scoring.Participant) ParticipantScores {
	out := ParticipantScores{
		ParticipantID:      string(p.ID),
		TablePoints:        p.TablePoints,
		FixturePoints:      p.FixturePoints,
		TotalPoints:        p.TotalPoints,
		ScoredAt:           p.ScoredAt,
		TablePrediction:    make([]int, len(p.TablePrediction)),
		FixturePredictions: make(map[string]string, len(p.FixturePredictions)),
	}
	for i, team := range p.TablePrediction {
		out.TablePrediction[i] = int(team)
	}
	for id, o := range p.FixturePredictions {
		out.FixturePredictions[strconv.Itoa(int(id))] = o.String()
	}
	return out
}
