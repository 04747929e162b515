package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/rackhouse/billiard-reservation/internal/service"
)

// ReservationHandler exposes the booking operations to customers.  All
// methods assume that JWT authentication and role validation has
// already been performed by middleware; they may return 401 if the user
// ID cannot be extracted from the context.  Every state change goes
// through the booking service, which owns atomicity and the lifecycle
// rules.
type ReservationHandler struct {
    Booking *service.BookingService

    // Opening hours (UTC) frame availability queries that come without
    // an explicit range.
    OpenHour  int
    CloseHour int
}

// NewReservationHandler constructs a new ReservationHandler.
func NewReservationHandler(booking *service.BookingService, openHour, closeHour int) *ReservationHandler {
    if booking == nil {
        panic("nil booking service passed to NewReservationHandler")
    }
    return &ReservationHandler{Booking: booking, OpenHour: openHour, CloseHour: closeHour}
}

// CreateReservation handles POST /v1/reservations.  The body carries
// the table and the desired half-open window in RFC3339.  Staff may
// book on behalf of a customer by setting customer_id; customers always
// book for themselves.  Responds 201 with the PENDING reservation, 409
// with the conflicting reservation ID when the slot is taken, 400 on a
// malformed window.
func (h *ReservationHandler) CreateReservation(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        TableID    uint64 `json:"table_id"`
        CustomerID uint64 `json:"customer_id"`
        StartsAt   string `json:"starts_at"`
        EndsAt     string `json:"ends_at"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.TableID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "table_id is required"})
    }
    start, err := time.Parse(time.RFC3339, body.StartsAt)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
    }
    end, err := time.Parse(time.RFC3339, body.EndsAt)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be RFC3339"})
    }
    customerID := actor.ID
    if actor.Role == service.RoleStaff && body.CustomerID != 0 {
        customerID = body.CustomerID
    }
    res, err := h.Booking.Create(c.Request().Context(), service.CreateRequest{
        TableID:    body.TableID,
        CustomerID: customerID,
        StartsAt:   start,
        EndsAt:     end,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"item": res})
}

// GetReservation handles GET /v1/reservations/:id.  Customers only see
// their own reservations; staff see all.
func (h *ReservationHandler) GetReservation(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    res, err := h.Booking.Get(c.Request().Context(), id, actor)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": res})
}

// ListMyReservations handles GET /v1/my-reservations, returning the
// caller's reservations newest first.  An empty list is a valid
// response.
func (h *ReservationHandler) ListMyReservations(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    items, err := h.Booking.ListByCustomer(c.Request().Context(), actor.ID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// RecordPayment handles POST /v1/reservations/:id/payments.  The body
// carries the paid amount in cents and the method.  Customers may only
// pay toward their own reservations; staff may record a payment on any.
// Reaching the deposit threshold confirms a pending reservation; a
// payment against a terminal reservation is 422.
func (h *ReservationHandler) RecordPayment(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var body struct {
        AmountCents uint32 `json:"amount_cents"`
        Method      string `json:"method"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    res, err := h.Booking.RecordPayment(c.Request().Context(), id, body.AmountCents, body.Method, actor)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": res})
}

// CancelReservation handles DELETE /v1/reservations/:id.  Customers may
// cancel their own active reservations subject to the lead-time policy;
// staff may cancel any active reservation.  Cancelling twice returns
// the terminal reservation both times.  The freed window shows up in
// availability immediately.
func (h *ReservationHandler) CancelReservation(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    res, err := h.Booking.Cancel(c.Request().Context(), id, actor)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": res})
}
