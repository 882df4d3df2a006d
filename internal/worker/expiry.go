// Package worker contains background loops that run alongside the HTTP
// server.
package worker

import (
    "context"
    "log"
    "time"
)

// Expirer is the lifecycle operation the sweeper drives.
type Expirer interface {
    ExpireDue(ctx context.Context) ([]uint64, error)
}

// ExpirySweeper periodically fails PENDING bookings whose hold TTL has
// lapsed, returning their seats to the pool.  Sweep errors are logged
// and the loop keeps running; a transient DB outage must not kill the
// worker.
type ExpirySweeper struct {
    lifecycle Expirer
    interval  time.Duration
}

// NewExpirySweeper constructs a sweeper running at the given interval.
func NewExpirySweeper(lifecycle Expirer, interval time.Duration) *ExpirySweeper {
    return &ExpirySweeper{lifecycle: lifecycle, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval.  The
// first sweep happens immediately so a restart does not leave lapsed
// holds sitting for a full interval.
func (s *ExpirySweeper) Run(ctx context.Context) {
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()
    s.sweep(ctx)
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            s.sweep(ctx)
        }
    }
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
    expired, err := s.lifecycle.ExpireDue(ctx)
    if err != nil {
        log.Printf("expiry-sweeper: sweep failed: %v", err)
        return
    }
    if len(expired) > 0 {
        log.Printf("expiry-sweeper: expired %d booking(s): %v", len(expired), expired)
    }
}
