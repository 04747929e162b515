package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.  COMPLETED
// and CANCELLED are terminal.
type ReservationStatus string

const (
    ReservationStatusPending   ReservationStatus = "PENDING"
    ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
    ReservationStatusCompleted ReservationStatus = "COMPLETED"
    ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// ActiveStatuses are the statuses that occupy the availability index.
// Only reservations in one of these states can conflict with a new
// booking.
var ActiveStatuses = []ReservationStatus{ReservationStatusPending, ReservationStatusConfirmed}

// IsActive reports whether the status holds a table window.
func (s ReservationStatus) IsActive() bool {
    return s == ReservationStatusPending || s == ReservationStatusConfirmed
}

// IsTerminal reports whether no further transition is possible.
func (s ReservationStatus) IsTerminal() bool {
    return s == ReservationStatusCompleted || s == ReservationStatusCancelled
}

// PaymentStatus tracks money independently of the lifecycle status.
type PaymentStatus string

const (
    PaymentStatusPending  PaymentStatus = "PENDING"
    PaymentStatusPaid     PaymentStatus = "PAID"
    PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Reservation is a customer's claim on one table for the half-open
// window [StartsAt, EndsAt).  The invariant maintained by the booking
// service: for any table, reservations whose status is PENDING or
// CONFIRMED never overlap in time.
//
// Fields:
//  ID               – primary key identifier.
//  TableID          – table being reserved.
//  CustomerID       – customer who made the reservation.
//  StartsAt         – window start (UTC, inclusive).
//  EndsAt           – window end (UTC, exclusive; must be after StartsAt).
//  Status           – lifecycle state.
//  PaymentStatus    – payment state, constrained by the lifecycle.
//  PaymentMethod    – how the customer paid; nil until a payment is recorded.
//  TotalAmountCents – rate × duration, fixed at creation time.
//  PaidAmountCents  – sum of recorded payments.
//  CheckedInAt      – when staff marked the party as arrived (nullable).
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Reservation struct {
    ID               uint64            `json:"id"`                       // reservations.id
    TableID          uint64            `json:"table_id"`                 // reservations.table_id
    CustomerID       uint64            `json:"customer_id"`              // reservations.customer_id
    StartsAt         time.Time         `json:"starts_at"`                // reservations.starts_at
    EndsAt           time.Time         `json:"ends_at"`                  // reservations.ends_at
    Status           ReservationStatus `json:"status"`                   // reservations.status
    PaymentStatus    PaymentStatus     `json:"payment_status"`           // reservations.payment_status
    PaymentMethod    *string           `json:"payment_method,omitempty"` // reservations.payment_method (nullable)
    TotalAmountCents uint32            `json:"total_amount_cents"`       // reservations.total_amount_cents
    PaidAmountCents  uint32            `json:"paid_amount_cents"`        // reservations.paid_amount_cents
    CheckedInAt      *time.Time        `json:"checked_in_at,omitempty"`  // reservations.checked_in_at (nullable)
    CreatedAt        time.Time         `json:"created_at"`               // reservations.created_at
    UpdatedAt        time.Time         `json:"updated_at"`               // reservations.updated_at
}

// Overlaps reports whether the reservation's window intersects
// [start, end) under half-open semantics.  Touching endpoints are not
// an overlap: [10:00,11:00) and [11:00,12:00) coexist on one table.
func (r *Reservation) Overlaps(start, end time.Time) bool {
    return r.StartsAt.Before(end) && start.Before(r.EndsAt)
}

// CanCancel reports whether a cancel transition is reachable from the
// current status.  Cancelling an already CANCELLED reservation is an
// acknowledged no-op and handled by the caller, not here.
func (r *Reservation) CanCancel() bool {
    return r.Status.IsActive()
}

// CanComplete reports whether the reservation may move to COMPLETED:
// it must be CONFIRMED, checked in, and its end time must have passed.
func (r *Reservation) CanComplete(now time.Time) bool {
    return r.Status == ReservationStatusConfirmed && r.CheckedInAt != nil && !now.Before(r.EndsAt)
}

// DepositMet reports whether the paid amount satisfies the configured
// deposit threshold, expressed as a percentage of the total.
func (r *Reservation) DepositMet(depositPercent uint32) bool {
    if r.TotalAmountCents == 0 {
        return true
    }
    threshold := uint64(r.TotalAmountCents) * uint64(depositPercent) / 100
    return uint64(r.PaidAmountCents) >= threshold
}
