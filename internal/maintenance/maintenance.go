// Package maintenance runs periodic background tasks as Go tickers alongside
// the refresh scheduler: pruning refresh history and warning when scores
// have not been refreshed for too long.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/albapepper/scoracle-predict/internal/refresh"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	PurgeInterval    time.Duration // Refresh history cleanup
	Retention        time.Duration // Age after which refresh_runs rows are deleted
	WatchdogInterval time.Duration // Stale-score check
	StaleAfter       time.Duration // No successful cycle for this long is reported
}

// DefaultConfig derives defaults from the refresh interval.
func DefaultConfig(refreshInterval time.Duration) Config {
	return Config{
		PurgeInterval:    1 * time.Hour,
		Retention:        30 * 24 * time.Hour,
		WatchdogInterval: refreshInterval,
		StaleAfter:       3 * refreshInterval,
	}
}

// RunPurger deletes old refresh history.
type RunPurger interface {
	PurgeRuns(ctx context.Context, before time.Time) (int64, error)
}

// StatusSource reports the scheduler status.
type StatusSource interface {
	Status() refresh.Status
}

// Tasks carries what the maintenance tasks operate on. Either field may be
// nil, which disables the matching task.
type Tasks struct {
	Runs      RunPurger
	Scheduler StatusSource
	Now       func() time.Time
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, tasks Tasks, cfg Config, logger *slog.Logger) {
	if tasks.Now == nil {
		tasks.Now = time.Now
	}
	logger.Info("Maintenance tickers started",
		"purge", cfg.PurgeInterval,
		"retention", cfg.Retention,
		"watchdog", cfg.WatchdogInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if cfg.PurgeInterval > 0 && cfg.Retention > 0 && tasks.Runs != nil {
		t := time.NewTicker(cfg.PurgeInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, "purge", func() { purgeRuns(ctx, tasks, cfg.Retention, logger) })
	}

	if cfg.WatchdogInterval > 0 && cfg.StaleAfter > 0 && tasks.Scheduler != nil {
		t := time.NewTicker(cfg.WatchdogInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, "watchdog", func() { checkStale(tasks, cfg.StaleAfter, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, name string, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// purgeRuns removes refresh_runs rows older than the retention window.
func purgeRuns(ctx context.Context, tasks Tasks, retention time.Duration, logger *slog.Logger) int64 {
	n, err := tasks.Runs.PurgeRuns(ctx, tasks.Now().Add(-retention))
	if err != nil {
		logger.Warn("Purge: failed to delete old refresh runs", "error", err)
		return 0
	}
	if n > 0 {
		logger.Info("Purge: deleted old refresh runs", "count", n)
	}
	return n
}

// checkStale logs a warning and returns true when no cycle has completed,
// the last one is older than staleAfter or it left participants stale.
func checkStale(tasks Tasks, staleAfter time.Duration, logger *slog.Logger) bool {
	st := tasks.Scheduler.Status()
	switch {
	case st.LastRunAt == nil:
		if st.State == refresh.Refreshing.String() {
			return false
		}
		logger.Warn("Watchdog: no refresh cycle has completed yet")
		return true
	case tasks.Now().Sub(*st.LastRunAt) > staleAfter:
		logger.Warn("Watchdog: scores are stale",
			"last_run_at", st.LastRunAt, "stale_after", staleAfter, "skipped_ticks", st.SkippedTicks)
		return true
	case st.LastSuccess != nil && !*st.LastSuccess:
		logger.Warn("Watchdog: last refresh cycle did not update every participant",
			"summary", st.LastSummary)
		return true
	}
	return false
}
