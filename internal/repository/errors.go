// Package repository defines the persistence layer and the sentinel
// errors reused across it.  Handlers and the booking service compare
// against these values with errors.Is to translate failures into the
// right HTTP status without inspecting SQL details.
package repository

import (
    "errors"
    "fmt"
)

// ErrTableNotFound is returned when a table ID does not exist.
var ErrTableNotFound = errors.New("table not found")

// ErrTableTypeNotFound is returned when a table type ID does not exist.
var ErrTableTypeNotFound = errors.New("table type not found")

// ErrReservationNotFound is returned when a reservation ID does not
// exist.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrConflict signals that a requested window is taken by another
// active reservation.  It is never retried by the engine; the caller
// picks a different slot.  Use ConflictError when the conflicting
// reservation ID is known.
var ErrConflict = errors.New("slot conflict")

// ErrInvalidTransition signals that a lifecycle change is not reachable
// from the reservation's current status (e.g. completing a PENDING
// reservation, cancelling a COMPLETED one).
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrTableUnavailable signals that the table's operational status
// blocks new bookings (MAINTENANCE).  Existing reservations are not
// affected by the status flip.
var ErrTableUnavailable = errors.New("table not accepting bookings")

// ErrForbidden is returned when the caller attempts an operation on a
// reservation they do not own, or a cancel blocked by the lead-time
// policy.
var ErrForbidden = errors.New("forbidden")

// ConflictError wraps ErrConflict with the ID of the reservation
// already holding the window, so the rejection names what is in the
// way.  errors.Is(err, ErrConflict) matches it.
type ConflictError struct {
    ConflictingID uint64
}

func (e *ConflictError) Error() string {
    return fmt.Sprintf("slot conflict with reservation %d", e.ConflictingID)
}

// Is makes ConflictError match the ErrConflict sentinel.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
