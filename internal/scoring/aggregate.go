package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ScoreWriter persists one participant's derived scores.
type ScoreWriter interface {
	UpdateScores(ctx context.Context, id ParticipantID, tablePoints, fixturePoints, totalPoints int) error
}

// Aggregator combines table and fixture scores and writes them per participant.
type Aggregator struct {
	Table    TableScorer
	Fixtures FixtureScorer
	Store    ScoreWriter
	Workers  int
	Logger   *slog.Logger
}

// RecomputeResult tracks the outcome of one RecomputeAll run.
type RecomputeResult struct {
	Participants  int
	Updated       int
	ScoringFailed int
	PersistFailed int
	Duration      time.Duration
	Errors        []string
	Scores        []Scores // successfully written, in no particular order
}

// Failed is the number of participants left with stale scores.
func (r *RecomputeResult) Failed() int {
	return r.ScoringFailed + r.PersistFailed
}

// Summary returns a human-readable summary.
func (r *RecomputeResult) Summary() string {
	return fmt.Sprintf("participants=%d updated=%d scoring_failed=%d persist_failed=%d dur=%s",
		r.Participants, r.Updated, r.ScoringFailed, r.PersistFailed,
		r.Duration.Round(time.Millisecond))
}

// Score computes one participant's scores without persisting them.
func (a *Aggregator) Score(p Participant, standings Standings, results map[FixtureID]Outcome) (Scores, error) {
	tablePoints, err := a.Table.Score(p.TablePrediction, standings)
	if err != nil {
		return Scores{}, withParticipant(p.ID, err)
	}
	fixturePoints, err := a.Fixtures.Score(p.FixturePredictions, results)
	if err != nil {
		return Scores{}, withParticipant(p.ID, err)
	}
	return Scores{
		ParticipantID: p.ID,
		TablePoints:   tablePoints,
		FixturePoints: fixturePoints,
		TotalPoints:   tablePoints + fixturePoints,
	}, nil
}

// RecomputeAll scores and persists every participant. A failure for one
// participant is logged and recorded; the rest are still processed and the
// failed participant keeps its previous scores.
func (a *Aggregator) RecomputeAll(
	ctx context.Context,
	participants []Participant,
	standings Standings,
	results map[FixtureID]Outcome,
) RecomputeResult {
	start := time.Now()
	logger := a.logger()
	result := RecomputeResult{Participants: len(participants)}

	if len(participants) == 0 {
		logger.Info("No participants to score")
		result.Duration = time.Since(start)
		return result
	}

	workers := a.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(participants) {
		workers = len(participants)
	}

	ch := make(chan Participant, len(participants))
	for _, p := range participants {
		ch <- p
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range ch {
				scores, err := a.recomputeOne(ctx, p, standings, results)

				mu.Lock()
				a.record(&result, p.ID, scores, err, logger)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	result.Duration = time.Since(start)

	logger.Info("Recompute complete", "summary", result.Summary())
	return result
}

func (a *Aggregator) recomputeOne(ctx context.Context, p Participant, standings Standings, results map[FixtureID]Outcome) (Scores, error) {
	scores, err := a.Score(p, standings, results)
	if err != nil {
		return Scores{}, err
	}
	if err := a.Store.UpdateScores(ctx, p.ID, scores.TablePoints, scores.FixturePoints, scores.TotalPoints); err != nil {
		return Scores{}, &PersistenceError{ParticipantID: p.ID, Err: err}
	}
	return scores, nil
}

func (a *Aggregator) record(result *RecomputeResult, id ParticipantID, scores Scores, err error, logger *slog.Logger) {
	if err == nil {
		result.Updated++
		result.Scores = append(result.Scores, scores)
		return
	}

	var scoringErr *ScoringError
	if errors.As(err, &scoringErr) {
		result.ScoringFailed++
		logger.Warn("Skipping participant with malformed prediction",
			"participant_id", id, "error", err)
	} else {
		result.PersistFailed++
		logger.Error("Failed to persist participant scores",
			"participant_id", id, "error", err)
	}
	result.Errors = append(result.Errors, err.Error())
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

func withParticipant(id ParticipantID, err error) error {
	var scoringErr *ScoringError
	if errors.As(err, &scoringErr) && scoringErr.ParticipantID == "" {
		scoringErr.ParticipantID = id
	}
	return err
}
