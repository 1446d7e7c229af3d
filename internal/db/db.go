// Package db provides a pgxpool-based connection pool with prepared statement
// registration, schema migration and health checking.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-predict/internal/config"
)

//go:embed schema.sql
var schema string

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// Migrate creates the tables this service reads and writes. Idempotent.
// Prepared statements are registered per connection, so against a fresh
// database Migrate must run before New.
func Migrate(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// registerPreparedStatements registers all statements the scorer uses.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Participants
		"list_participants": `SELECT id, table_prediction, table_points, fixture_points, total_points, scored_at
			FROM ` + config.ParticipantsTable + ` ORDER BY id`,
		"get_participant": `SELECT id, table_prediction, table_points, fixture_points, total_points, scored_at
			FROM ` + config.ParticipantsTable + ` WHERE id = $1`,
		"list_fixture_predictions": `SELECT participant_id, fixture_id, home_goals, away_goals, result
			FROM ` + config.FixturePredictionsTable,
		"participant_fixture_predictions": `SELECT participant_id, fixture_id, home_goals, away_goals, result
			FROM ` + config.FixturePredictionsTable + ` WHERE participant_id = $1`,
		"update_scores": `UPDATE ` + config.ParticipantsTable + `
			SET table_points = $2, fixture_points = $3, total_points = $4, scored_at = NOW()
			WHERE id = $1`,

		// Standings and fixtures
		"season_standings": `SELECT team_id, season, position FROM ` + config.StandingsTable + `
			WHERE season = $1 ORDER BY position`,
		"season_fixtures": `SELECT id, season, home_team_id, away_team_id, home_goals, away_goals, status
			FROM ` + config.FixturesTable + ` WHERE season = $1 ORDER BY id`,

		// Refresh history
		"record_refresh_run": `INSERT INTO ` + config.RefreshRunsTable + `
			(trigger_name, season, started_at, duration_ms, participants, updated, failed, error)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
