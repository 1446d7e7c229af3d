package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-predict/internal/cache"
	"github.com/albapepper/scoracle-predict/internal/config"
	"github.com/albapepper/scoracle-predict/internal/scoring"
)

// racingReader invalidates the cache while a read is in progress, the way a
// refresh cycle completing mid-request would.
type racingReader struct {
	cache *cache.Cache
	reads int
}

func (r *racingReader) ListParticipants(context.Context) ([]scoring.Participant, error) {
	r.reads++
	r.cache.Invalidate(cache.KeyLeaderboard, cache.KeyParticipant)
	return []scoring.Participant{{ID: "alice", TotalPoints: 10}}, nil
}

func (r *racingReader) GetParticipant(_ context.Context, id scoring.ParticipantID) (*scoring.Participant, error) {
	r.reads++
	r.cache.Invalidate(cache.KeyLeaderboard, cache.KeyParticipant)
	return &scoring.Participant{ID: id, TotalPoints: 10}, nil
}

func (r *racingReader) Ping(context.Context) error { return nil }

func TestReadsRacingARefreshAreNotCached(t *testing.T) {
	c := cache.New(true)
	reader := &racingReader{cache: c}
	h := New(reader, nil, c, &config.Config{Season: 2025})

	r := chi.NewRouter()
	r.Get("/leaderboard", h.GetLeaderboard)
	r.Get("/participants/{participantID}", h.GetParticipant)

	for _, path := range []string{"/leaderboard", "/participants/alice"} {
		for i := 0; i < 2; i++ {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			require.Equal(t, http.StatusOK, rec.Code, path)
			assert.Equal(t, "MISS", rec.Header().Get("X-Cache"), path)
			assert.NotEmpty(t, rec.Header().Get("ETag"), path)
		}
	}
	assert.Equal(t, 4, reader.reads)
}

func TestRankSharesPositionsOnTies(t *testing.T) {
	entries := rank([]scoring.Participant{
		{ID: "erin", TotalPoints: 40},
		{ID: "carl", TotalPoints: 70},
		{ID: "ann", TotalPoints: 70},
		{ID: "bea", TotalPoints: 55},
		{ID: "dan", TotalPoints: 40},
	})

	var got []string
	var ranks []int
	for _, e := range entries {
		got = append(got, e.ParticipantID)
		ranks = append(ranks, e.Rank)
	}
	assert.Equal(t, []string{"ann", "carl", "bea", "dan", "erin"}, got)
	assert.Equal(t, []int{1, 1, 3, 4, 4}, ranks)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, rank(nil))
}

func TestParticipantScores(t *testing.T) {
	p := &scoring.Participant{
		ID:              "ann",
		TablePrediction: []scoring.TeamID{4, 7},
		FixturePredictions: map[scoring.FixtureID]scoring.Outcome{
			1: scoring.Scoreline(1, 0),
			2: scoring.ResultOnly(scoring.Draw),
		},
		TablePoints: 38, FixturePoints: 4, TotalPoints: 42,
	}

	out := participantScores(p)
	assert.Equal(t, []int{4, 7}, out.TablePrediction)
	assert.Equal(t, map[string]string{"1": "1-0", "2": "D"}, out.FixturePredictions)
	assert.Equal(t, 42, out.TotalPoints)
}
