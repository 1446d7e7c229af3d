package api

import (
	"log/slog"

	"github.com/albapepper/scoracle-predict/internal/cache"
	"github.com/albapepper/scoracle-predict/internal/refresh"
)

// InvalidateScores returns a refresh completion hook that drops cached score
// reads once a cycle has written anything. Aborted cycles leave the cache
// alone since the stored scores did not change.
func InvalidateScores(c *cache.Cache, logger *slog.Logger) func(refresh.Report) {
	return func(report refresh.Report) {
		if report.Err != nil || report.Recompute.Updated == 0 {
			return
		}
		n := c.Invalidate(cache.KeyLeaderboard, cache.KeyParticipant)
		logger.Debug("Score cache invalidated", "entries", n, "trigger", report.Trigger)
	}
}
