// Package jobs holds the periodic background work of the node.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Runnable is one tick of a periodic job.
type Runnable interface {
	Run(ctx context.Context) error
}

// Every runs job on each tick of interval until ctx is done. A failed tick is logged
// and the loop goes on. The first tick fires right away.
func Every(ctx context.Context, interval time.Duration, job Runnable, logger *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := job.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("job.run.fail", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
