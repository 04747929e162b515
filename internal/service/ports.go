package service

import (
    "context"
    "time"

    "github.com/rackhouse/billiard-reservation/internal/model"
    "github.com/rackhouse/billiard-reservation/internal/queue"
    "github.com/rackhouse/billiard-reservation/internal/repository"
)

// TableStore is the slice of the table registry the booking service
// needs.  *repository.TableRepo satisfies it; tests substitute a mock.
type TableStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Table, error)
    GetWithType(ctx context.Context, id uint64) (*model.Table, *model.TableType, error)
    SetOperationalStatus(ctx context.Context, id uint64, status model.TableStatus) error
}

// ReservationStore is the persistence surface of the lifecycle manager.
// *repository.ReservationRepo satisfies it.
type ReservationStore interface {
    Create(ctx context.Context, res *model.Reservation) error
    GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
    UpdatePaymentIf(ctx context.Context, res *model.Reservation) (bool, error)
    SetRefunded(ctx context.Context, id uint64) error
    SetCheckedInIf(ctx context.Context, id uint64, at time.Time) (bool, error)
    UpdateStatusIf(ctx context.Context, id uint64, from []model.ReservationStatus, to model.ReservationStatus) (bool, error)
    ListExpiredPending(ctx context.Context, cutoff time.Time) ([]model.Reservation, error)
    ListActive(ctx context.Context) ([]model.Reservation, error)
    List(ctx context.Context, f repository.Filter) ([]model.Reservation, error)
}

// EventPublisher delivers a lifecycle event to the notification
// subsystem.  Failures are logged by the caller and never fail the
// operation that produced the event.
type EventPublisher func(ctx context.Context, ev queue.ReservationEvent) error
