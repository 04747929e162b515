// Package service implements the reservation lifecycle and the atomic
// reserve-or-reject booking path.  It is the only component allowed to
// create reservations or move them between statuses; handlers translate
// its sentinel errors into HTTP responses.
package service

import (
    "context"
    "errors"
    "fmt"
    "log"
    "math"
    "time"

    "github.com/rackhouse/billiard-reservation/internal/availability"
    "github.com/rackhouse/billiard-reservation/internal/model"
    "github.com/rackhouse/billiard-reservation/internal/queue"
    "github.com/rackhouse/billiard-reservation/internal/repository"
)

// ErrValidation marks a request rejected before any state change:
// malformed window, out-of-bounds duration, zero amounts.  Wrapped
// errors carry the detail.
var ErrValidation = errors.New("validation error")

// Actor identifies who is performing an operation.  Staff bypass
// ownership and lead-time restrictions; customers do not.
type Actor struct {
    ID   uint64
    Role string
}

const (
    RoleStaff    = "STAFF"
    RoleCustomer = "CUSTOMER"
)

// Policy carries the business knobs that the product owner tunes per
// venue.  Defaults live in config, not here.
type Policy struct {
    DepositPercent uint32        // % of the total required to confirm (100 = full prepayment)
    PendingTTL     time.Duration // how long an unpaid PENDING reservation survives
    CancelLeadTime time.Duration // customers may not cancel closer to start than this (0 = no restriction)
    MinDuration    time.Duration // shortest bookable window
    MaxDuration    time.Duration // longest bookable window
}

// createRetries bounds the internal retry of the booking transaction on
// storage contention (deadlock, lock wait timeout).  Exhaustion is
// surfaced as a conflict: the caller's corrective action is the same
// either way, pick another slot.
const createRetries = 3

// BookingService is the reservation lifecycle manager and conflict
// resolver.  The availability index it maintains is derived state; the
// reservations table is authoritative and the index is rebuilt from it
// via WarmIndex at startup.
type BookingService struct {
    tables       TableStore
    reservations ReservationStore
    index        *availability.Index
    publish      EventPublisher
    policy       Policy
    locks        *tableLocks
    now          func() time.Time
}

// NewBookingService constructs the service.  publish may be nil, in
// which case lifecycle events are dropped (useful in tests).
func NewBookingService(tables TableStore, reservations ReservationStore, index *availability.Index, publish EventPublisher, policy Policy) *BookingService {
    if tables == nil || reservations == nil || index == nil {
        panic("nil dependency passed to NewBookingService")
    }
    return &BookingService{
        tables:       tables,
        reservations: reservations,
        index:        index,
        publish:      publish,
        policy:       policy,
        locks:        newTableLocks(),
        now:          func() time.Time { return time.Now().UTC() },
    }
}

// WarmIndex rebuilds the availability index from the active
// reservations in storage.  Call once at startup before serving.
func (s *BookingService) WarmIndex(ctx context.Context) error {
    active, err := s.reservations.ListActive(ctx)
    if err != nil {
        return fmt.Errorf("load active reservations: %w", err)
    }
    byTable := make(map[uint64][]availability.Interval)
    for _, r := range active {
        byTable[r.TableID] = append(byTable[r.TableID], availability.Interval{
            ReservationID: r.ID,
            Start:         r.StartsAt,
            End:           r.EndsAt,
        })
    }
    for tableID, ivs := range byTable {
        s.index.Rebuild(tableID, ivs)
    }
    return nil
}

// CreateRequest is a booking attempt for one table and window.
type CreateRequest struct {
    TableID    uint64
    CustomerID uint64
    StartsAt   time.Time
    EndsAt     time.Time
}

func (s *BookingService) validateWindow(start, end time.Time) error {
    if start.IsZero() || end.IsZero() {
        return fmt.Errorf("%w: start and end are required", ErrValidation)
    }
    if !end.After(start) {
        return fmt.Errorf("%w: end must be after start", ErrValidation)
    }
    d := end.Sub(start)
    if d < s.policy.MinDuration {
        return fmt.Errorf("%w: duration below minimum of %s", ErrValidation, s.policy.MinDuration)
    }
    if s.policy.MaxDuration > 0 && d > s.policy.MaxDuration {
        return fmt.Errorf("%w: duration above maximum of %s", ErrValidation, s.policy.MaxDuration)
    }
    return nil
}

// Create is the single entry point for making a reservation.  Under a
// per-table critical section it checks the operational status gate and
// the availability index, then persists the reservation; the insert
// re-checks overlap inside its own transaction as the storage-layer
// backstop.  Either the reservation exists with its interval indexed,
// or neither exists.  On conflict the returned error names the
// reservation in the way.
func (s *BookingService) Create(ctx context.Context, req CreateRequest) (*model.Reservation, error) {
    if err := s.validateWindow(req.StartsAt, req.EndsAt); err != nil {
        return nil, err
    }
    if req.CustomerID == 0 {
        return nil, fmt.Errorf("%w: customer is required", ErrValidation)
    }
    start, end := req.StartsAt.UTC(), req.EndsAt.UTC()

    lock := s.locks.forTable(req.TableID)
    lock.Lock()
    defer lock.Unlock()

    table, ttype, err := s.tables.GetWithType(ctx, req.TableID)
    if err != nil {
        return nil, err
    }
    // Maintenance blocks new bookings only; existing reservations stand.
    if table.Status == model.TableStatusMaintenance {
        return nil, repository.ErrTableUnavailable
    }
    if c := s.index.Conflicting(req.TableID, start, end); c != nil {
        return nil, &repository.ConflictError{ConflictingID: c.ReservationID}
    }

    res := &model.Reservation{
        TableID:          req.TableID,
        CustomerID:       req.CustomerID,
        StartsAt:         start,
        EndsAt:           end,
        Status:           model.ReservationStatusPending,
        PaymentStatus:    model.PaymentStatusPending,
        TotalAmountCents: priceFor(ttype.HourlyRateCents, end.Sub(start)),
    }
    if err := s.createWithRetry(ctx, res); err != nil {
        return nil, err
    }
    if err := s.index.Reserve(req.TableID, res.ID, start, end); err != nil {
        // Cannot happen under the table lock; log loudly if it ever does.
        log.Printf("booking: index reserve failed after insert: reservation_id=%d err=%v", res.ID, err)
    }
    s.emit(ctx, queue.KindReservationCreated, res)
    return res, nil
}

// createWithRetry runs the booking transaction with a bounded retry and
// backoff for transient storage contention, then surfaces exhaustion as
// a conflict.
func (s *BookingService) createWithRetry(ctx context.Context, res *model.Reservation) error {
    var err error
    for attempt := 1; attempt <= createRetries; attempt++ {
        err = s.reservations.Create(ctx, res)
        if err == nil || !repository.IsRetryable(err) {
            return err
        }
        log.Printf("booking: retrying create after contention: table_id=%d attempt=%d err=%v", res.TableID, attempt, err)
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
        }
    }
    return fmt.Errorf("%w: storage contention", repository.ErrConflict)
}

// Get returns a reservation, enforcing that customers only see their
// own.
func (s *BookingService) Get(ctx context.Context, id uint64, actor Actor) (*model.Reservation, error) {
    res, err := s.reservations.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    if actor.Role != RoleStaff && res.CustomerID != actor.ID {
        return nil, repository.ErrForbidden
    }
    return res, nil
}

// List returns reservations matching the filter.  Staff only.
func (s *BookingService) List(ctx context.Context, f repository.Filter) ([]model.Reservation, error) {
    return s.reservations.List(ctx, f)
}

// ListByCustomer returns the customer's own reservations, newest first.
func (s *BookingService) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Reservation, error) {
    return s.reservations.List(ctx, repository.Filter{CustomerID: customerID})
}

// RecordPayment applies a payment to an active reservation on behalf of
// its owner or staff.  Paid amounts accumulate; payment status flips to
// PAID when the total is covered, and a PENDING reservation confirms
// once the deposit threshold is met.  The payment fields and the status
// transition both go through conditional writes, so a cancel or expiry
// sweep racing this call can never be overwritten: the loser of the
// race gets an invalid-transition error and the terminal row stands.
func (s *BookingService) RecordPayment(ctx context.Context, id uint64, amountCents uint32, method string, actor Actor) (*model.Reservation, error) {
    if amountCents == 0 {
        return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
    }
    if method == "" {
        return nil, fmt.Errorf("%w: payment method is required", ErrValidation)
    }
    res, err := s.reservations.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    if actor.Role != RoleStaff && res.CustomerID != actor.ID {
        return nil, repository.ErrForbidden
    }
    if !res.Status.IsActive() {
        return nil, fmt.Errorf("%w: cannot pay a %s reservation", repository.ErrInvalidTransition, res.Status)
    }
    if amountCents > math.MaxUint32-res.PaidAmountCents {
        return nil, fmt.Errorf("%w: amount exceeds the recordable total", ErrValidation)
    }
    res.PaidAmountCents += amountCents
    res.PaymentMethod = &method
    if res.PaidAmountCents >= res.TotalAmountCents {
        res.PaymentStatus = model.PaymentStatusPaid
    }
    changed, err := s.reservations.UpdatePaymentIf(ctx, res)
    if err != nil {
        return nil, err
    }
    if !changed {
        // The reservation turned terminal between the read and the
        // write; nothing was recorded.
        return nil, fmt.Errorf("%w: reservation is no longer active", repository.ErrInvalidTransition)
    }
    if res.Status == model.ReservationStatusPending && res.DepositMet(s.policy.DepositPercent) {
        ok, err := s.reservations.UpdateStatusIf(ctx, id,
            []model.ReservationStatus{model.ReservationStatusPending}, model.ReservationStatusConfirmed)
        if err != nil {
            return nil, err
        }
        if !ok {
            // Another transition landed first; report the stored state.
            return s.reservations.GetByID(ctx, id)
        }
        res.Status = model.ReservationStatusConfirmed
        log.Printf("booking: reservation confirmed: reservation_id=%d paid=%d total=%d", res.ID, res.PaidAmountCents, res.TotalAmountCents)
        s.emit(ctx, queue.KindReservationConfirmed, res)
    }
    return res, nil
}

// Cancel moves an active reservation to CANCELLED and frees its window.
// Customers may only cancel their own reservations, and only when the
// start is further away than the configured lead time.  Cancelling an
// already cancelled reservation is an acknowledged no-op returning the
// terminal state; cancelling a completed one is an invalid transition.
func (s *BookingService) Cancel(ctx context.Context, id uint64, actor Actor) (*model.Reservation, error) {
    res, err := s.reservations.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    if actor.Role != RoleStaff && res.CustomerID != actor.ID {
        return nil, repository.ErrForbidden
    }
    if res.Status == model.ReservationStatusCancelled {
        return res, nil
    }
    if !res.CanCancel() {
        return nil, fmt.Errorf("%w: cannot cancel a %s reservation", repository.ErrInvalidTransition, res.Status)
    }
    if actor.Role != RoleStaff && s.policy.CancelLeadTime > 0 {
        if !res.StartsAt.After(s.now().Add(s.policy.CancelLeadTime)) {
            return nil, fmt.Errorf("%w: cancellation window closed", repository.ErrForbidden)
        }
    }
    changed, err := s.reservations.UpdateStatusIf(ctx, id, model.ActiveStatuses, model.ReservationStatusCancelled)
    if err != nil {
        return nil, err
    }
    if !changed {
        // Lost the race with the expiry sweep or another cancel; report
        // the terminal state instead of erroring.
        res, err = s.reservations.GetByID(ctx, id)
        if err != nil {
            return nil, err
        }
        if res.Status == model.ReservationStatusCancelled {
            return res, nil
        }
        return nil, fmt.Errorf("%w: cannot cancel a %s reservation", repository.ErrInvalidTransition, res.Status)
    }
    res.Status = model.ReservationStatusCancelled
    if res.PaymentStatus == model.PaymentStatusPaid {
        if err := s.reservations.SetRefunded(ctx, res.ID); err != nil {
            return nil, err
        }
        res.PaymentStatus = model.PaymentStatusRefunded
    }
    s.index.Release(res.TableID, res.ID)
    log.Printf("booking: reservation cancelled: reservation_id=%d actor_id=%d role=%s", res.ID, actor.ID, actor.Role)
    s.emit(ctx, queue.KindReservationCancelled, res)
    return res, nil
}

// CheckIn marks the party as arrived on a confirmed reservation whose
// window has begun and flips the table to OCCUPIED.  A second check-in
// is an acknowledged no-op.
func (s *BookingService) CheckIn(ctx context.Context, id uint64) (*model.Reservation, error) {
    res, err := s.reservations.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    if res.CheckedInAt != nil {
        return res, nil
    }
    now := s.now()
    if res.Status != model.ReservationStatusConfirmed {
        return nil, fmt.Errorf("%w: cannot check in a %s reservation", repository.ErrInvalidTransition, res.Status)
    }
    if now.Before(res.StartsAt) {
        return nil, fmt.Errorf("%w: window has not started", repository.ErrInvalidTransition)
    }
    changed, err := s.reservations.SetCheckedInIf(ctx, id, now)
    if err != nil {
        return nil, err
    }
    if !changed {
        // Either a concurrent check-in stamped the row first or a
        // cancel turned it terminal; re-read to tell the two apart.
        res, err = s.reservations.GetByID(ctx, id)
        if err != nil {
            return nil, err
        }
        if res.CheckedInAt != nil {
            return res, nil
        }
        return nil, fmt.Errorf("%w: cannot check in a %s reservation", repository.ErrInvalidTransition, res.Status)
    }
    res.CheckedInAt = &now
    if err := s.tables.SetOperationalStatus(ctx, res.TableID, model.TableStatusOccupied); err != nil {
        log.Printf("booking: failed to mark table occupied: table_id=%d err=%v", res.TableID, err)
    }
    return res, nil
}

// Complete moves a confirmed, checked-in reservation whose end time has
// passed to COMPLETED and returns an OCCUPIED table to AVAILABLE.  The
// interval stays in the historical record; releasing it from the index
// is harmless since the window is in the past.
func (s *BookingService) Complete(ctx context.Context, id uint64) (*model.Reservation, error) {
    res, err := s.reservations.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    if res.Status == model.ReservationStatusCompleted {
        return res, nil
    }
    if !res.CanComplete(s.now()) {
        return nil, fmt.Errorf("%w: reservation not completable", repository.ErrInvalidTransition)
    }
    changed, err := s.reservations.UpdateStatusIf(ctx, id,
        []model.ReservationStatus{model.ReservationStatusConfirmed}, model.ReservationStatusCompleted)
    if err != nil {
        return nil, err
    }
    if !changed {
        return nil, fmt.Errorf("%w: reservation not completable", repository.ErrInvalidTransition)
    }
    res.Status = model.ReservationStatusCompleted
    s.index.Release(res.TableID, res.ID)
    // Restore AVAILABLE only from OCCUPIED.  A MAINTENANCE flag staff
    // set mid-session outlives the reservation.
    if table, err := s.tables.GetByID(ctx, res.TableID); err != nil {
        log.Printf("booking: failed to load table after completion: table_id=%d err=%v", res.TableID, err)
    } else if table.Status == model.TableStatusOccupied {
        if err := s.tables.SetOperationalStatus(ctx, res.TableID, model.TableStatusAvailable); err != nil {
            log.Printf("booking: failed to mark table available: table_id=%d err=%v", res.TableID, err)
        }
    }
    s.emit(ctx, queue.KindReservationCompleted, res)
    return res, nil
}

// CancelExpired cancels PENDING reservations older than the pending TTL
// that never met the deposit threshold.  It is the body of the
// scheduler sweep and idempotent under concurrent execution with manual
// cancellation: the conditional status update means whichever
// transition lands first wins and the loser is a no-op.
func (s *BookingService) CancelExpired(ctx context.Context) ([]model.Reservation, error) {
    cutoff := s.now().Add(-s.policy.PendingTTL)
    expired, err := s.reservations.ListExpiredPending(ctx, cutoff)
    if err != nil {
        return nil, fmt.Errorf("list expired: %w", err)
    }
    cancelled := make([]model.Reservation, 0, len(expired))
    for _, res := range expired {
        changed, err := s.reservations.UpdateStatusIf(ctx, res.ID,
            []model.ReservationStatus{model.ReservationStatusPending}, model.ReservationStatusCancelled)
        if err != nil {
            return cancelled, err
        }
        if !changed {
            continue // someone paid or cancelled first
        }
        res.Status = model.ReservationStatusCancelled
        s.index.Release(res.TableID, res.ID)
        s.emit(ctx, queue.KindReservationCancelled, &res)
        cancelled = append(cancelled, res)
    }
    return cancelled, nil
}

// Slot is one stretch of a table's timeline, either FREE or OCCUPIED.
type Slot struct {
    Start         time.Time `json:"start"`
    End           time.Time `json:"end"`
    Status        string    `json:"status"`
    ReservationID uint64    `json:"reservation_id,omitempty"`
}

// Availability returns the table's timeline over [from, to) as
// alternating free and occupied slots derived from active
// reservations.
func (s *BookingService) Availability(ctx context.Context, tableID uint64, from, to time.Time) ([]Slot, error) {
    if !to.After(from) {
        return nil, fmt.Errorf("%w: to must be after from", ErrValidation)
    }
    if _, err := s.tables.GetByID(ctx, tableID); err != nil {
        return nil, err
    }
    busy := s.index.Busy(tableID, from.UTC(), to.UTC())
    slots := make([]Slot, 0, 2*len(busy)+1)
    cursor := from.UTC()
    end := to.UTC()
    for _, iv := range busy {
        bs, be := iv.Start, iv.End
        if bs.Before(cursor) {
            bs = cursor
        }
        if be.After(end) {
            be = end
        }
        if bs.After(cursor) {
            slots = append(slots, Slot{Start: cursor, End: bs, Status: "FREE"})
        }
        slots = append(slots, Slot{Start: bs, End: be, Status: "OCCUPIED", ReservationID: iv.ReservationID})
        cursor = be
    }
    if cursor.Before(end) {
        slots = append(slots, Slot{Start: cursor, End: end, Status: "FREE"})
    }
    return slots, nil
}

// priceFor computes rate × duration in cents, rounded down to the cent.
func priceFor(hourlyRateCents uint32, d time.Duration) uint32 {
    minutes := uint64(d / time.Minute)
    return uint32(uint64(hourlyRateCents) * minutes / 60)
}

// emit publishes a lifecycle event without blocking or failing the
// calling operation.
func (s *BookingService) emit(ctx context.Context, kind string, res *model.Reservation) {
    if s.publish == nil {
        return
    }
    ev := queue.ReservationEvent{
        Kind:             kind,
        ReservationID:    res.ID,
        TableID:          res.TableID,
        CustomerID:       res.CustomerID,
        StartsAt:         res.StartsAt.UTC().Format(time.RFC3339),
        EndsAt:           res.EndsAt.UTC().Format(time.RFC3339),
        Status:           string(res.Status),
        PaymentStatus:    string(res.PaymentStatus),
        TotalAmountCents: res.TotalAmountCents,
        PaidAmountCents:  res.PaidAmountCents,
        OccurredAt:       s.now().Format(time.RFC3339),
    }
    go func(ev queue.ReservationEvent) {
        if err := s.publish(context.WithoutCancel(ctx), ev); err != nil {
            log.Printf("booking: publish %s failed: reservation_id=%d err=%v", ev.Kind, ev.ReservationID, err)
        }
    }(ev)
}
