// Package queue defines message payloads exchanged over the message
// broker and the background consumer that records them.
package queue

// Event kinds published by the reservation engine.  Downstream
// consumers (notification senders, analytics) switch on Kind.
const (
    KindReservationCreated   = "reservation.created"
    KindReservationConfirmed = "reservation.confirmed"
    KindReservationCancelled = "reservation.cancelled"
    KindReservationCompleted = "reservation.completed"
)

// ReservationEvent is published on every lifecycle transition.  It
// carries enough information for downstream consumers to notify the
// customer or feed analytics without querying the primary database.
type ReservationEvent struct {
    Kind             string `json:"kind"`
    ReservationID    uint64 `json:"reservation_id"`
    TableID          uint64 `json:"table_id"`
    TableLabel       string `json:"table_label,omitempty"`
    CustomerID       uint64 `json:"customer_id"`
    StartsAt         string `json:"starts_at"`
    EndsAt           string `json:"ends_at"`
    Status           string `json:"status"`
    PaymentStatus    string `json:"payment_status"`
    TotalAmountCents uint32 `json:"total_amount_cents"`
    PaidAmountCents  uint32 `json:"paid_amount_cents"`
    OccurredAt       string `json:"occurred_at"`
}
