package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/alliancehq/alliance-manager/internal/logger"
)

const (
	// cleanupTimeout is the context deadline for one purge.
	cleanupTimeout = 5 * time.Second
	// cleanupInterval is how often resolved alerts are purged.
	cleanupInterval = 1 * time.Hour
)

// AlertPurger deletes resolved alerts.
type AlertPurger interface {
	DeleteResolvedAlertsBefore(ctx context.Context, before time.Time) (int64, error)
}

// HistoryCleaner periodically deletes resolved alerts older than the
// retention period.
type HistoryCleaner struct {
	repo  AlertPurger
	clock Clock
	log   logger.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewHistoryCleaner creates a stopped cleaner.
func NewHistoryCleaner(repo AlertPurger, clock Clock, log logger.Logger) *HistoryCleaner {
	if clock == nil {
		clock = RealClock()
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &HistoryCleaner{repo: repo, clock: clock, log: log}
}

// Start launches the cleanup loop. A retention of zero or less disables it.
// Starting again replaces the running loop.
func (c *HistoryCleaner) Start(retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	c.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.loop(retentionDays, c.clock.NewTicker(cleanupInterval), c.stop, c.done)
}

// Stop ends the cleanup loop and waits for it to exit.
func (c *HistoryCleaner) Stop() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// Purge deletes resolved alerts older than retentionDays once.
func (c *HistoryCleaner) Purge(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := c.clock.Now().AddDate(0, 0, -retentionDays).UTC()
	deleted, err := c.repo.DeleteResolvedAlertsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		c.log.Info("alert history cleanup completed",
			logger.Int64("deleted", deleted),
			logger.Int("retention_days", retentionDays))
	}
	return deleted, nil
}

func (c *HistoryCleaner) loop(retentionDays int, ticker Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C():
			ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
			if _, err := c.Purge(ctx, retentionDays); err != nil {
				c.log.Error("alert history cleanup failed", logger.Error(err))
			}
			cancel()
		case <-stop:
			return
		}
	}
}
