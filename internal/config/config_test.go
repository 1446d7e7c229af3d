package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/predict")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 20, cfg.TablePointsPerPosition)
	assert.Equal(t, 3, cfg.FixtureExactPoints)
	assert.Equal(t, 1, cfg.FixtureResultPoints)
	assert.Equal(t, 30*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 20, cfg.TeamCount)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.IsProduction())
}

func TestLoadRequiresDatabaseURLForPostgres(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadSQLiteWithoutDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "/tmp/x.db", cfg.SQLitePath)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("REFRESH_INTERVAL_MINUTES", "5")
	t.Setenv("FIXTURE_EXACT_POINTS", "5")
	t.Setenv("FIXTURE_RESULT_POINTS", "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("SEASON", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 5, cfg.FixtureExactPoints)
	assert.Equal(t, 2, cfg.FixtureResultPoints)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
	assert.Equal(t, 2025, cfg.Season)
}

func TestLoadRejectsInvalidScoring(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")

	t.Setenv("FIXTURE_RESULT_POINTS", "-1")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("FIXTURE_RESULT_POINTS", "1")
	t.Setenv("TABLE_POINTS_PER_POSITION", "0")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("TABLE_POINTS_PER_POSITION", "20")
	t.Setenv("REFRESH_INTERVAL_MINUTES", "0")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mysql")
	_, err := Load()
	assert.Error(t, err)
}
