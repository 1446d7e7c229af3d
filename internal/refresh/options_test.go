package refresh

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/albapepper/scoracle-predict/internal/config"
	"github.com/albapepper/scoracle-predict/internal/scoring"
)

type combinedSource struct {
	*fakeSource
	*fakeStore
	*recorder
}

func TestOptionsFromConfig(t *testing.T) {
	f := newHarness(t)
	src := combinedSource{f.source, f.store, f.recorder}
	cfg := &config.Config{
		Season:                 2025,
		RefreshInterval:        10 * time.Minute,
		TeamCount:              3,
		TablePointsPerPosition: 10,
		FixtureExactPoints:     5,
		FixtureResultPoints:    2,
		ScoringWorkers:         3,
	}

	opts := OptionsFromConfig(cfg, src, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, 10*time.Minute, opts.Interval)
	assert.Equal(t, scoring.NewTableScorer(10, 3), opts.Aggregator.Table)
	assert.Equal(t, scoring.FixturePolicy{ExactScore: 5, CorrectResult: 2}, opts.Aggregator.Fixtures.Policy)
	assert.Equal(t, 3, opts.Aggregator.Workers)

	res := New(opts).Trigger(context.Background())
	assert.Equal(t, 2, res.Count)

	// p1: perfect table (30) plus one exact score (5).
	assert.Equal(t, 35, f.store.snapshot()["p1"].TotalPoints)
	assert.Len(t, f.recorder.runs, 1)
}
