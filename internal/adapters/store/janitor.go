package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type cleaner interface {
	Cleanup(ctx context.Context) error
}

// janitor runs Cleanup on a fixed period until stopped
type janitor struct {
	stopCh chan struct{}
	once   sync.Once
	done   chan struct{}
}

// startJanitor starts the cleanup loop. A non-positive period disables it.
func startJanitor(c cleaner, period time.Duration, logger *zap.Logger) *janitor {
	j := &janitor{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	if period <= 0 {
		close(j.done)
		return j
	}

	go func() {
		defer close(j.done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := c.Cleanup(context.Background()); err != nil {
					logger.Error("Failed to clean up verdict store", zap.Error(err))
				}
			case <-j.stopCh:
				return
			}
		}
	}()
	return j
}

// stop is idempotent and waits for the loop to exit
func (j *janitor) stop() {
	j.once.Do(func() { close(j.stopCh) })
	<-j.done
}
