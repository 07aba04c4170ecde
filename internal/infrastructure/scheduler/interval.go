package scheduler

import (
	"context"
	"time"

	"TrendSnapshot/internal/ports"
)

// IntervalScheduler triggers the build job on a fixed interval. The external
// cron system is expected to replace this in production; this driver exists
// for self-contained deployments.
type IntervalScheduler struct {
	interval time.Duration
	stop     chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a driver firing every interval; non-positive
// intervals default to 24h.
func NewIntervalScheduler(interval time.Duration) *IntervalScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &IntervalScheduler{interval: interval}
}

// Start begins ticking. The job also fires once immediately so a fresh
// deployment publishes its first snapshot without waiting a full interval.
func (c *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	if c.stop != nil {
		return nil
	}

	// The goroutine selects on a local copy so Stop nilling the field
	// cannot race with the loop.
	stop := make(chan struct{})
	c.stop = stop
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine.
func (c *IntervalScheduler) Stop(ctx context.Context) error {
	if c.stop == nil {
		return nil
	}
	close(c.stop)
	c.stop = nil
	return nil
}
