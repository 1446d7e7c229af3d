package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/albapepper/scoracle-predict/internal/config"
	"github.com/albapepper/scoracle-predict/internal/refresh"
	"github.com/albapepper/scoracle-predict/internal/scoring"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLite is a single-file store for local runs and tests. Table predictions
// are kept as JSON arrays and timestamps as unix milliseconds.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection: writers serialize and :memory: stays a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// DB exposes the handle for loaders and tests.
func (s *SQLite) DB() *sql.DB { return s.db }

// GetStandings returns the current table for a season.
func (s *SQLite) GetStandings(ctx context.Context, season int) ([]scoring.StandingEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT team_id, season, position FROM `+config.StandingsTable+`
		WHERE season = ? ORDER BY position`, season)
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
func (s *SQLite) GetFixtureResults(ctx context.Context, season int) ([]scoring.FixtureResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, season, home_team_id, away_team_id, home_goals, away_goals, status
		FROM `+config.FixturesTable+` WHERE season = ? ORDER BY id`, season)
	if err != nil {
		return nil, fmt.Errorf("get fixtures: %w", err)
	}
	defer rows.Close()

	var fixtures []scoring.FixtureResult
	for rows.Next() {
		var (
			f          fixtureRow
			home, away sql.NullInt64
		)
		if err := rows.Scan(&f.ID, &f.Season, &f.HomeTeamID, &f.AwayTeamID, &home, &away, &f.Status); err != nil {
			return nil, fmt.Errorf("scan fixture: %w", err)
		}
		f.HomeGoals, f.AwayGoals = nullInt(home), nullInt(away)
		fixtures = append(fixtures, f.toResult())
	}
	return fixtures, rows.Err()
}

// ListParticipants returns every participant with their predictions and
// current scores.
func (s *SQLite) ListParticipants(ctx context.Context) ([]scoring.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, table_prediction, table_points, fixture_points, total_points, scored_at
		FROM `+config.ParticipantsTable+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []scoring.Participant
	for rows.Next() {
		p, err := scanSQLiteParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	predictions, err := s.predictions(ctx, "")
	if err != nil {
		return nil, err
	}
	attachPredictions(participants, predictions)
	return participants, nil
}

// GetParticipant returns one participant or ErrNotFound.
func (s *SQLite) GetParticipant(ctx context.Context, id scoring.ParticipantID) (*scoring.Participant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, table_prediction, table_points, fixture_points, total_points, scored_at
		FROM `+config.ParticipantsTable+` WHERE id = ?`, string(id))
	p, err := scanSQLiteParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("participant %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	predictions, err := s.predictions(ctx, string(id))
	if err != nil {
		return nil, err
	}
	list := []scoring.Participant{p}
	attachPredictions(list, predictions)
	return &list[0], nil
}

// UpdateScores writes one participant's derived scores.
func (s *SQLite) UpdateScores(ctx context.Context, id scoring.ParticipantID, tablePoints, fixturePoints, totalPoints int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+config.ParticipantsTable+`
		SET table_points = ?, fixture_points = ?, total_points = ?, scored_at = ?
		WHERE id = ?`,
		tablePoints, fixturePoints, totalPoints, time.Now().UnixMilli(), string(id))
	if err != nil {
		return fmt.Errorf("update scores %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("participant %s: %w", id, ErrNotFound)
	}
	return nil
}

// RecordRun appends a refresh cycle to the history table.
func (s *SQLite) RecordRun(ctx context.Context, run refresh.RunRecord) error {
	var errMsg sql.NullString
	if run.Error != "" {
		errMsg = sql.NullString{String: run.Error, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+config.RefreshRunsTable+`
		(trigger_name, season, started_at, duration_ms, participants, updated, failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Trigger, run.Season, run.StartedAt.UnixMilli(), run.Duration.Milliseconds(),
		run.Participants, run.Updated, run.Failed, errMsg)
	if err != nil {
		return fmt.Errorf("record refresh run: %w", err)
	}
	return nil
}

// PurgeRuns deletes refresh history older than before.
func (s *SQLite) PurgeRuns(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM `+config.RefreshRunsTable+` WHERE started_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge refresh runs: %w", err)
	}
	return res.RowsAffected()
}

// Ping verifies the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() {
	s.db.Close()
}

func (s *SQLite) predictions(ctx context.Context, participantID string) ([]predictionRow, error) {
	query := `SELECT participant_id, fixture_id, home_goals, away_goals, result FROM ` + config.FixturePredictionsTable
	var args []any
	if participantID != "" {
		query += ` WHERE participant_id = ?`
		args = append(args, participantID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fixture predictions: %w", err)
	}
	defer rows.Close()

	var out []predictionRow
	for rows.Next() {
		var (
			r          predictionRow
			home, away sql.NullInt64
			result     sql.NullString
		)
		if err := rows.Scan(&r.ParticipantID, &r.FixtureID, &home, &away, &result); err != nil {
			return nil, fmt.Errorf("scan fixture prediction: %w", err)
		}
		r.HomeGoals, r.AwayGoals = nullInt(home), nullInt(away)
		if result.Valid {
			r.Result = &result.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanSQLiteParticipant decodes the JSON prediction. An undecodable
// prediction is left empty so the scorer reports it for that participant.
func scanSQLiteParticipant(row rowScanner) (scoring.Participant, error) {
	var (
		p        scoring.Participant
		id       string
		raw      string
		scoredAt sql.NullInt64
	)
	if err := row.Scan(&id, &raw, &p.TablePoints, &p.FixturePoints, &p.TotalPoints, &scoredAt); err != nil {
		return p, err
	}
	p.ID = scoring.ParticipantID(id)

	var prediction []int
	if err := json.Unmarshal([]byte(raw), &prediction); err == nil {
		p.TablePrediction = teamIDs(prediction)
	}
	if scoredAt.Valid {
		t := time.UnixMilli(scoredAt.Int64).UTC()
		p.ScoredAt = &t
	}
	return p, nil
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
