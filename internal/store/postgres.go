package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-predict/internal/config"
	"github.com/albapepper/scoracle-predict/internal/refresh"
	"github.com/albapepper/scoracle-predict/internal/scoring"
)

// Postgres is the production store. It relies on the prepared statements
// registered by db.New.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// GetStandings returns the current table for a season.
func (s *Postgres) GetStandings(ctx context.Context, season int) ([]scoring.StandingEntry, error) {
	rows, err := s.pool.Query(ctx, "season_standings", season)
	if err != nil {
		return nil, fmt.Errorf("get standings: %w", err)
	}
	defer rows.Close()

	var entries []scoring.StandingEntry
	for rows.Next() {
		var teamID, seasonCol, position int
		if err := rows.Scan(&teamID, &seasonCol, &position); err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		entries = append(entries, scoring.StandingEntry{
			TeamID: scoring.TeamID(teamID), Season: seasonCol, Position: position,
		})
	}
	return entries, rows.Err()
}

// GetFixtureResults returns every fixture of a season.
func (s *Postgres) GetFixtureResults(ctx context.Context, season int) ([]scoring.FixtureResult, error) {
	rows, err := s.pool.Query(ctx, "season_fixtures", season)
	if err != nil {
		return nil, fmt.Errorf("get fixtures: %w", err)
	}
	defer rows.Close()

	var fixtures []scoring.FixtureResult
	for rows.Next() {
		var f fixtureRow
		if err := rows.Scan(&f.ID, &f.Season, &f.HomeTeamID, &f.AwayTeamID,
			&f.HomeGoals, &f.AwayGoals, &f.Status); err != nil {
			return nil, fmt.Errorf("scan fixture: %w", err)
		}
		fixtures = append(fixtures, f.toResult())
	}
	return fixtures, rows.Err()
}

// ListParticipants returns every participant with their predictions and
// current scores.
func (s *Postgres) ListParticipants(ctx context.Context) ([]scoring.Participant, error) {
	rows, err := s.pool.Query(ctx, "list_participants")
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	participants, err := pgx.CollectRows(rows, scanParticipant)
	if err != nil {
		return nil, fmt.Errorf("scan participant: %w", err)
	}

	predictions, err := s.predictions(ctx, "list_fixture_predictions")
	if err != nil {
		return nil, err
	}
	attachPredictions(participants, predictions)
	return participants, nil
}

// GetParticipant returns one participant or ErrNotFound.
func (s *Postgres) GetParticipant(ctx context.Context, id scoring.ParticipantID) (*scoring.Participant, error) {
	rows, err := s.pool.Query(ctx, "get_participant", string(id))
	if err != nil {
		return nil, fmt.Errorf("get participant %s: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanParticipant)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("participant %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get participant %s: %w", id, err)
	}

	predictions, err := s.predictions(ctx, "participant_fixture_predictions", string(id))
	if err != nil {
		return nil, err
	}
	list := []scoring.Participant{p}
	attachPredictions(list, predictions)
	return &list[0], nil
}

// UpdateScores writes one participant's derived scores.
func (s *Postgres) UpdateScores(ctx context.Context, id scoring.ParticipantID, tablePoints, fixturePoints, totalPoints int) error {
	tag, err := s.pool.Exec(ctx, "update_scores", string(id), tablePoints, fixturePoints, totalPoints)
	if err != nil {
		return fmt.Errorf("update scores %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("participant %s: %w", id, ErrNotFound)
	}
	return nil
}

// RecordRun appends a refresh cycle to the history table.
func (s *Postgres) RecordRun(ctx context.Context, run refresh.RunRecord) error {
	var errMsg *string
	if run.Error != "" {
		errMsg = &run.Error
	}
	_, err := s.pool.Exec(ctx, "record_refresh_run",
		run.Trigger, run.Season, run.StartedAt, run.Duration.Milliseconds(),
		run.Participants, run.Updated, run.Failed, errMsg)
	if err != nil {
		return fmt.Errorf("record refresh run: %w", err)
	}
	return nil
}

// PurgeRuns deletes refresh history older than before.
func (s *Postgres) PurgeRuns(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM `+config.RefreshRunsTable+` WHERE started_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge refresh runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping verifies the database is reachable.
func (s *Postgres) Ping(ctx context.Context) error {
	var n int
	return s.pool.QueryRow(ctx, "health_check").Scan(&n)
}

// Close is a no-op; the pool is owned by the caller.
func (s *Postgres) Close() {}

func (s *Postgres) predictions(ctx context.Context, stmt string, args ...any) ([]predictionRow, error) {
	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list fixture predictions: %w", err)
	}
	defer rows.Close()

	var out []predictionRow
	for rows.Next() {
		var r predictionRow
		if err := rows.Scan(&r.ParticipantID, &r.FixtureID, &r.HomeGoals, &r.AwayGoals, &r.Result); err != nil {
			return nil, fmt.Errorf("scan fixture prediction: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanParticipant(row pgx.CollectableRow) (scoring.Participant, error) {
	var (
		id         string
		prediction []*int
		p          scoring.Participant
	)
	if err := row.Scan(&id, &prediction, &p.TablePoints, &p.FixturePoints, &p.TotalPoints, &p.ScoredAt); err != nil {
		return p, err
	}
	p.ID = scoring.ParticipantID(id)
	p.TablePrediction = nullableTeamIDs(prediction)
	return p, nil
}
