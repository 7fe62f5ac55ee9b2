package db

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartRetention deletes records older than retention once immediately
// and then every interval, until ctx is cancelled. A non-positive
// retention disables it.
func StartRetention(ctx context.Context, repo *Repository, retention, interval time.Duration, logger *zap.Logger) {
	if retention <= 0 {
		return
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sweep := func() {
		cutoff := time.Now().Add(-retention)
		n, err := repo.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("history cleanup failed", zap.Error(err))
			}
			return
		}
		if n > 0 {
			logger.Info("history cleanup removed old records",
				zap.Int64("deleted", n),
				zap.Time("cutoff", cutoff))
		}
	}

	go func() {
		sweep()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep()
			}
		}
	}()
}
