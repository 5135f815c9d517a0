package query

import (
	"context"
	"time"

	"github.com/bassista/go_microassur/internal/logger"
)

// StartGarbageCollector evicts unused entries on every tick until ctx is done.
// The returned channel is closed once the collector has stopped.
func StartGarbageCollector(ctx context.Context, c *Client, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	logger.WithComponent("gc").Debugf("starting cache garbage collector with interval: %v", interval)
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.WithComponent("gc").Info("cache garbage collector stopped")
				return
			case <-ticker.C:
				if n := c.Collect(c.now()); n > 0 {
					logger.WithComponent("gc").Debugf("evicted %d unused cache entries", n)
				}
			}
		}
	}()
	return done
}
