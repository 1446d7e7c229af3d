// Command api is the Scoracle Predict API server. It keeps participant scores
// current with a background refresh scheduler and serves the leaderboard.
//
// Usage:
//
//	scoracle-api
//	API_PORT=8080 STORE_DRIVER=sqlite scoracle-api

// @title Scoracle Predict API
// @version 1.0.0
// @description Scores football prediction entries against the live league table and finished fixtures. Exposes on-demand refresh, refresh status and the leaderboard.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @contact.name Scoracle
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/albapepper/scoracle-predict/internal/api"
	"github.com/albapepper/scoracle-predict/internal/cache"
	"github.com/albapepper/scoracle-predict/internal/config"
	"github.com/albapepper/scoracle-predict/internal/events"
	"github.com/albapepper/scoracle-predict/internal/listener"
	"github.com/albapepper/scoracle-predict/internal/maintenance"
	"github.com/albapepper/scoracle-predict/internal/refresh"
	"github.com/albapepper/scoracle-predict/internal/store"

	_ "github.com/albapepper/scoracle-predict/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Connect to the store
	logger.Info("Connecting to store...", "driver", cfg.StoreDriver)
	st, pool, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	if pool != nil {
		defer pool.Close()
		logger.Info("Database connected",
			"min_conns", cfg.DBPoolMinConns,
			"max_conns", cfg.DBPoolMaxConns)
	}

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Event publisher (NATS if configured)
	opts := refresh.OptionsFromConfig(cfg, st, logger)
	opts.OnComplete = api.InvalidateScores(appCache, logger)
	if cfg.NATSURL != "" {
		pub, err := events.Connect(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		opts.Publisher = pub
	} else {
		opts.Publisher = events.Log{Logger: logger}
		logger.Info("Event publishing disabled (no NATS_URL)")
	}

	// Refresh scheduler: one cycle now, then every interval
	sched := refresh.New(opts)
	schedDone := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(schedDone)
	}()

	// Start LISTEN/NOTIFY consumer for on-demand refresh requests
	if cfg.ListenEnabled && cfg.StoreDriver == config.DriverPostgres {
		go listener.Start(ctx, cfg.DatabaseURL, sched, logger)
	} else {
		logger.Info("Refresh listener disabled", "listen_enabled", cfg.ListenEnabled, "driver", cfg.StoreDriver)
	}

	// Start maintenance tickers (history purge, stale-score watchdog)
	maint := maintenance.DefaultConfig(cfg.RefreshInterval)
	maint.PurgeInterval = cfg.MaintenanceInterval
	maint.Retention = cfg.RunHistoryRetention
	go maintenance.Start(ctx, maintenance.Tasks{Runs: st, Scheduler: sched}, maint, logger)

	// Create router
	router := api.NewRouter(st, sched, appCache, cfg)

	// Create HTTP server. WriteTimeout leaves room for a manual refresh that
	// waits behind a running cycle.
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Scoracle Predict API",
			"addr", addr,
			"environment", cfg.Environment,
			"season", cfg.Season,
			"refresh_interval", cfg.RefreshInterval,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")
	sched.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}

	// Let an in-flight cycle finish writing before the store closes.
	<-schedDone
	sched.Wait()
	logger.Info("Server stopped")
}
