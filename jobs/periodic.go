package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunPeriodic calls fn every interval until ctx is canceled
func RunPeriodic(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context) error, logger *zap.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("periodic task started", zap.String("task", name), zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("periodic task stopping", zap.String("task", name), zap.Error(ctx.Err()))
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				logger.Error("periodic task failed", zap.String("task", name), zap.Error(err))
			}
		}
	}
}
