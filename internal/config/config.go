// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/scorer.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names, shared with the embedded schemas
// --------------------------------------------------------------------------

const (
	ParticipantsTable       = "participants"
	FixturePredictionsTable = "fixture_predictions"
	StandingsTable          = "standings"
	FixturesTable           = "fixtures"
	RefreshRunsTable        = "refresh_runs"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// --------------------------------------------------------------------------
// Configuration, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Storage
	StoreDriver    string // postgres, sqlite
	DatabaseURL    string
	SQLitePath     string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	LogLevel    slog.Level

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Cache
	CacheEnabled bool

	// Competition
	Season    int
	TeamCount int // 0 = size of the standings snapshot

	// Scoring
	TablePointsPerPosition int
	FixtureExactPoints     int
	FixtureResultPoints    int
	ScoringWorkers         int

	// Refresh
	RefreshInterval     time.Duration
	ListenEnabled       bool
	RunHistoryRetention time.Duration
	MaintenanceInterval time.Duration

	// Events
	NATSURL     string
	NATSSubject string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	driver := strings.ToLower(envOr("STORE_DRIVER", DriverPostgres))
	dbURL := envOr("DATABASE_URL", "")

	switch driver {
	case DriverPostgres:
		if dbURL == "" {
			return nil, fmt.Errorf("DATABASE_URL must be set when STORE_DRIVER=postgres")
		}
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want postgres or sqlite)", driver)
	}

	cfg := &Config{
		StoreDriver:    driver,
		DatabaseURL:    dbURL,
		SQLitePath:     envOr("SQLITE_PATH", "scoracle-predict.db"),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		LogLevel:    envLevel("LOG_LEVEL", slog.LevelInfo),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		CacheEnabled: envBool("CACHE_ENABLED", true),

		Season:    envInt("SEASON", 2025),
		TeamCount: envInt("LEAGUE_TEAM_COUNT", 20),

		TablePointsPerPosition: envInt("TABLE_POINTS_PER_POSITION", 20),
		FixtureExactPoints:     envInt("FIXTURE_EXACT_POINTS", 3),
		FixtureResultPoints:    envInt("FIXTURE_RESULT_POINTS", 1),
		ScoringWorkers:         envInt("SCORING_WORKERS", 4),

		RefreshInterval:     time.Duration(envInt("REFRESH_INTERVAL_MINUTES", 30)) * time.Minute,
		ListenEnabled:       envBool("LISTEN_ENABLED", false),
		RunHistoryRetention: time.Duration(envInt("RUN_HISTORY_RETENTION_DAYS", 30)) * 24 * time.Hour,
		MaintenanceInterval: time.Duration(envInt("MAINTENANCE_INTERVAL_MINUTES", 60)) * time.Minute,

		NATSURL:     envOr("NATS_URL", ""),
		NATSSubject: envOr("NATS_SUBJECT", "scoracle.predict"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TablePointsPerPosition <= 0 {
		return fmt.Errorf("TABLE_POINTS_PER_POSITION must be positive, got %d", c.TablePointsPerPosition)
	}
	if c.FixtureExactPoints < 0 || c.FixtureResultPoints < 0 {
		return fmt.Errorf("fixture points must not be negative (exact=%d result=%d)",
			c.FixtureExactPoints, c.FixtureResultPoints)
	}
	if c.TeamCount < 0 {
		return fmt.Errorf("LEAGUE_TEAM_COUNT must not be negative, got %d", c.TeamCount)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL_MINUTES must be positive")
	}
	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// NewLogger builds the process logger at the configured level.
func (c *Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: c.LogLevel}))
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	switch strings.ToLower(os.Getenv(key)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return fallback
}
