package refresh

import (
	"log/slog"

	"github.com/albapepper/scoracle-predict/internal/config"
	"github.com/albapepper/scoracle-predict/internal/scoring"
)

// Source is a store that can feed and record a whole cycle.
type Source interface {
	StandingsProvider
	ResultsProvider
	ParticipantStore
	RunRecorder
}

// OptionsFromConfig wires scorers, worker count and interval from cfg, with
// src serving every input and receiving every write. Publisher and
// OnComplete are left for the caller.
func OptionsFromConfig(cfg *config.Config, src Source, logger *slog.Logger) Options {
	return Options{
		Season:       cfg.Season,
		Interval:     cfg.RefreshInterval,
		Standings:    src,
		Results:      src,
		Participants: src,
		Recorder:     src,
		Aggregator: &scoring.Aggregator{
			Table: scoring.NewTableScorer(cfg.TablePointsPerPosition, cfg.TeamCount),
			Fixtures: scoring.FixtureScorer{Policy: scoring.FixturePolicy{
				ExactScore:    cfg.FixtureExactPoints,
				CorrectResult: cfg.FixtureResultPoints,
			}},
			Store:   src,
			Workers: cfg.ScoringWorkers,
			Logger:  logger,
		},
		Logger: logger,
	}
}
