// Package store implements the scorer's standings, fixture results and
// participant sources on Postgres or SQLite. Predictions,
// standings and fixtures are written by other services; this package only
// writes score fields and refresh history.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/albapepper/scoracle-predict/internal/refresh"
	"github.com/albapepper/scoracle-predict/internal/scoring"
)

// ErrNotFound is returned when a participant does not exist.
var ErrNotFound = errors.New("not found")

// Store is everything the service needs from persistence.
type Store interface {
	refresh.StandingsProvider
	refresh.ResultsProvider
	refresh.ParticipantStore
	refresh.RunRecorder

	GetParticipant(ctx context.Context, id scoring.ParticipantID) (*scoring.Participant, error)
	PurgeRuns(ctx context.Context, before time.Time) (int64, error)
	Ping(ctx context.Context) error
	Close()
}

// statusFinished marks a fixture whose result is final.
const statusFinished = "finished"

type predictionRow struct {
	ParticipantID string
	FixtureID     int
	HomeGoals     *int
	AwayGoals     *int
	Result        *string
}

type fixtureRow struct {
	ID         int
	Season     int
	HomeTeamID int
	AwayTeamID int
	HomeGoals  *int
	AwayGoals  *int
	Status     string
}

// toOutcome passes stored values through unvalidated; the scorer rejects
// malformed predictions per participant.
func (r predictionRow) toOutcome() scoring.Outcome {
	o := scoring.Outcome{HomeGoals: r.HomeGoals, AwayGoals: r.AwayGoals}
	if r.Result != nil {
		o.Result = scoring.ResultClass(*r.Result)
	}
	return o
}

// toResult yields an outcome only for finished fixtures with both scores.
func (r fixtureRow) toResult() scoring.FixtureResult {
	f := scoring.FixtureResult{
		ID:         scoring.FixtureID(r.ID),
		Season:     r.Season,
		HomeTeamID: scoring.TeamID(r.HomeTeamID),
		AwayTeamID: scoring.TeamID(r.AwayTeamID),
	}
	if r.Status == statusFinished && r.HomeGoals != nil && r.AwayGoals != nil {
		o := scoring.Scoreline(*r.HomeGoals, *r.AwayGoals)
		f.Outcome = &o
	}
	return f
}

func teamIDs(in []int) []scoring.TeamID {
	if in == nil {
		return nil
	}
	out := make([]scoring.TeamID, len(in))
	for i, id := range in {
		out[i] = scoring.TeamID(id)
	}
	return out
}

// nullableTeamIDs converts a table prediction that may hold NULL elements.
// A NULL anywhere leaves the prediction empty so the scorer rejects that
// participant alone.
func nullableTeamIDs(in []*int) []scoring.TeamID {
	if in == nil {
		return nil
	}
	out := make([]scoring.TeamID, len(in))
	for i, id := range in {
		if id == nil {
			return nil
		}
		out[i] = scoring.TeamID(*id)
	}
	return out
}

// attachPredictions fills FixturePredictions from rows, ignoring rows for
// unknown participants.
func attachPredictions(participants []scoring.Participant, rows []predictionRow) {
	index := make(map[string]int, len(participants))
	for i := range participants {
		index[string(participants[i].ID)] = i
	}
	for _, r := range rows {
		i, ok := index[r.ParticipantID]
		if !ok {
			continue
		}
		p := &participants[i]
		if p.FixturePredictions == nil {
			p.FixturePredictions = make(map[scoring.FixtureID]scoring.Outcome)
		}
		p.FixturePredictions[scoring.FixtureID(r.FixtureID)] = r.toOutcome()
	}
}
