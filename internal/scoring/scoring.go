// Package scoring computes prediction scores for participants: table points
// from a predicted final ordering, fixture points from per-match predictions,
// and their total.
//
// Scorers are pure functions of their inputs. The Aggregator applies them to
// a whole population and persists each participant independently.
package scoring

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Identifiers
// --------------------------------------------------------------------------

type (
	TeamID        int
	FixtureID     int
	ParticipantID string
)

// --------------------------------------------------------------------------
// Inputs
// --------------------------------------------------------------------------

// Participant is one user's prediction state. The score fields are derived
// and always recomputable from the two prediction fields.
type Participant struct {
	ID                 ParticipantID
	TablePrediction    []TeamID
	FixturePredictions map[FixtureID]Outcome

	TablePoints   int
	FixturePoints int
	TotalPoints   int
	ScoredAt      *time.Time
}

// StandingEntry is one team's real position for a season.
type StandingEntry struct {
	TeamID   TeamID
	Season   int
	Position int
}

// Standings maps a team to its current position (1 = first).
type Standings map[TeamID]int

// NewStandings builds a snapshot from entries. Duplicate teams or duplicate
// positions make the snapshot invalid.
func NewStandings(entries []StandingEntry) (Standings, error) {
	s := make(Standings, len(entries))
	seen := make(map[int]TeamID, len(entries))
	for _, e := range entries {
		if e.Position < 1 {
			return nil, fmt.Errorf("team %d has invalid position %d", e.TeamID, e.Position)
		}
		if _, dup := s[e.TeamID]; dup {
			return nil, fmt.Errorf("team %d listed twice", e.TeamID)
		}
		if other, dup := seen[e.Position]; dup {
			return nil, fmt.Errorf("position %d held by teams %d and %d", e.Position, other, e.TeamID)
		}
		s[e.TeamID] = e.Position
		seen[e.Position] = e.TeamID
	}
	return s, nil
}

// FixtureResult is one match. Outcome is nil until the result is final.
type FixtureResult struct {
	ID         FixtureID
	Season     int
	HomeTeamID TeamID
	AwayTeamID TeamID
	Outcome    *Outcome
}

// Results maps each finished fixture to its outcome. Pending fixtures are
// left out.
func Results(fixtures []FixtureResult) map[FixtureID]Outcome {
	out := make(map[FixtureID]Outcome, len(fixtures))
	for _, f := range fixtures {
		if f.Outcome == nil {
			continue
		}
		out[f.ID] = *f.Outcome
	}
	return out
}

// Scores is the derived state written back for one participant.
type Scores struct {
	ParticipantID ParticipantID
	TablePoints   int
	FixturePoints int
	TotalPoints   int
}
