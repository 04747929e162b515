// Package scheduler runs the periodic sweep that expires unpaid
// pending reservations.  Expiry is a background concern: no booking
// request ever blocks on it, and the sweep is idempotent under
// concurrent execution with manual cancellation.
package scheduler

import (
    "context"
    "log"
    "time"

    "github.com/rackhouse/billiard-reservation/internal/model"
)

// expirer is the slice of the booking service the sweep needs.
type expirer interface {
    CancelExpired(ctx context.Context) ([]model.Reservation, error)
}

// Scheduler ticks at a fixed interval and cancels expired pending
// reservations on each tick.
type Scheduler struct {
    booking  expirer
    interval time.Duration
}

// New returns a scheduler sweeping at the given interval.
func New(booking expirer, interval time.Duration) *Scheduler {
    return &Scheduler{booking: booking, interval: interval}
}

// Start blocks, sweeping until the context is cancelled.  Run it in its
// own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()

    log.Printf("scheduler: started: interval=%s", s.interval)
    for {
        select {
        case <-ctx.Done():
            log.Printf("scheduler: stopped")
            return
        case <-ticker.C:
            s.tick(ctx)
        }
    }
}

func (s *Scheduler) tick(ctx context.Context) {
    cancelled, err := s.booking.CancelExpired(ctx)
    if err != nil {
        log.Printf("scheduler: sweep failed: err=%v", err)
        return
    }
    for _, r := range cancelled {
        log.Printf("scheduler: reservation expired: reservation_id=%d table_id=%d customer_id=%d", r.ID, r.TableID, r.CustomerID)
    }
}
