package store

import (
	"context"

	"github.com/albapepper/scoracle-predict/internal/config"
	"github.com/albapepper/scoracle-predict/internal/db"
)

// Open connects the store selected by cfg.StoreDriver. The pool is nil for
// SQLite; for Postgres the caller owns it and uses it for LISTEN/NOTIFY.
func Open(ctx context.Context, cfg *config.Config) (Store, *db.Pool, error) {
	if cfg.StoreDriver == config.DriverSQLite {
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return NewPostgres(pool.Pool), pool, nil
}
