// Command scorer is the Scoracle Predict operations CLI.
//
// Usage:
//
//	scoracle-scorer migrate
//	scoracle-scorer refresh --season 2025
//	scoracle-scorer explain --participant alice
//	scoracle-scorer request-refresh --reason "standings updated"
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/scoracle-predict/internal/config"
	"github.com/albapepper/scoracle-predict/internal/db"
	"github.com/albapepper/scoracle-predict/internal/events"
	"github.com/albapepper/scoracle-predict/internal/listener"
	"github.com/albapepper/scoracle-predict/internal/refresh"
	"github.com/albapepper/scoracle-predict/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:          "scoracle-scorer",
		Short:        "Scoracle prediction scoring CLI",
		SilenceUsage: true,
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(refreshCmd())
	root.AddCommand(explainCmd())
	root.AddCommand(requestRefreshCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the scorer's tables (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			start := time.Now()
			if cfg.StoreDriver == config.DriverSQLite {
				s, err := store.OpenSQLite(ctx, cfg.SQLitePath)
				if err != nil {
					return err
				}
				s.Close()
			} else if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("Schema applied", "driver", cfg.StoreDriver, "duration", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

// --------------------------------------------------------------------------
// refresh command
// --------------------------------------------------------------------------

func refreshCmd() *cobra.Command {
	var (
		season       int
		allowPartial bool
	)
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithStore(func(ctx context.Context, cfg *config.Config, st store.Store, _ *db.Pool) error {
				if season != 0 {
					cfg.Season = season
				}
				opts := refresh.OptionsFromConfig(cfg, st, logger)
				if cfg.NATSURL != "" {
					pub, err := events.Connect(cfg.NATSURL, cfg.NATSSubject, logger)
					if err != nil {
						return err
					}
					defer pub.Close()
					opts.Publisher = pub
				}

				res := refresh.New(opts).Trigger(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "success=%t count=%d\n", res.Success, res.Count)
				switch {
				case res.Aborted:
					return errors.New(res.Error)
				case !res.Success && !allowPartial:
					return fmt.Errorf("partial refresh: %s", res.Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&season, "season", 0, "Season to score (default SEASON)")
	cmd.Flags().BoolVar(&allowPartial, "allow-partial", false, "Exit zero when some participants could not be scored")
	return cmd
}

// --------------------------------------------------------------------------
// explain command
// --------------------------------------------------------------------------

func explainCmd() *cobra.Command {
	var (
		participant string
		season      int
	)
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show how a participant's score is made up",
		RunE: func(cmd *cobra.Command, args []string) error {
			if participant == "" {
				return fmt.Errorf("--participant is required")
			}
			return runWithStore(func(ctx context.Context, cfg *config.Config, st store.Store, _ *db.Pool) error {
				if season != 0 {
					cfg.Season = season
				}
				exp, err := explain(ctx, cfg, st, participant)
				if err != nil {
					return err
				}
				return exp.write(cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&participant, "participant", "", "Participant ID")
	cmd.Flags().IntVar(&season, "season", 0, "Season to score against (default SEASON)")
	return cmd
}

// --------------------------------------------------------------------------
// request-refresh command
// --------------------------------------------------------------------------

func requestRefreshCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "request-refresh",
		Short: "Ask running API servers to refresh now (Postgres NOTIFY)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithStore(func(ctx context.Context, cfg *config.Config, _ store.Store, pool *db.Pool) error {
				if pool == nil {
					return fmt.Errorf("request-refresh needs STORE_DRIVER=%s", config.DriverPostgres)
				}
				if err := listener.Notify(ctx, pool, listener.Request{Source: "cli", Reason: reason}); err != nil {
					return err
				}
				logger.Info("Refresh requested", "channel", listener.Channel, "reason", reason)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual", "Reason recorded with the request")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	return cfg, nil
}

// runWithStore handles config loading, store connection, and context cancellation.
func runWithStore(fn func(ctx context.Context, cfg *config.Config, st store.Store, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, pool, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	if pool != nil {
		defer pool.Close()
	}

	return fn(ctx, cfg, st, pool)
}
