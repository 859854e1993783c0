package kvstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/devlopersumit/issuehub/internal/observability"
)

// RunJanitor purges expired entries on every interval until ctx is cancelled.
// Expired rows are already invisible to readers; this only reclaims space.
func RunJanitor(ctx context.Context, store Store, interval time.Duration, logger *slog.Logger) error {
	logger.Info("starting store janitor",
		"interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			logger.Info("store janitor shutting down")
			return ctx.Err()
		case <-time.After(interval):
			removed, err := store.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("store purge failed",
					"error", err.Error())
				continue
			}
			if removed > 0 {
				observability.GetMetrics().StorePurged.Add(float64(removed))
				logger.Debug("purged expired entries",
					"count", removed)
			}
		}
	}
}
