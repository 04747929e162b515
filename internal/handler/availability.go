package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/rackhouse/billiard-reservation/internal/service"
)

// GetAvailability handles GET /v1/tables/:id/availability?from=&to=.
// It returns the table's timeline over the requested range as
// alternating FREE and OCCUPIED slots.  When from/to are omitted the
// range defaults to today's opening hours.  The endpoint is public so
// guests can browse before authenticating, and sits behind the redis
// response cache with a short TTL.
func (h *ReservationHandler) GetAvailability(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
    }
    from, to, err := h.availabilityRange(c.QueryParam("from"), c.QueryParam("to"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    slots, err := h.Booking.Availability(c.Request().Context(), id, from, to)
    if err != nil {
        return writeError(c, err)
    }
    // Guests see the shape of the timeline but not whose booking
    // occupies it.
    if _, ok := c.Get("role").(string); !ok {
        slots = hideReservationIDs(slots)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "table_id": id,
        "from":     from.UTC().Format(time.RFC3339),
        "to":       to.UTC().Format(time.RFC3339),
        "slots":    slots,
    })
}

// availabilityRange parses the from/to query parameters, defaulting an
// omitted range to today's opening hours in UTC.
func (h *ReservationHandler) availabilityRange(rawFrom, rawTo string) (time.Time, time.Time, error) {
    if rawFrom == "" && rawTo == "" {
        now := time.Now().UTC()
        from := time.Date(now.Year(), now.Month(), now.Day(), h.OpenHour, 0, 0, 0, time.UTC)
        to := time.Date(now.Year(), now.Month(), now.Day(), h.CloseHour, 0, 0, 0, time.UTC)
        return from, to, nil
    }
    from, err := time.Parse(time.RFC3339, rawFrom)
    if err != nil {
        return time.Time{}, time.Time{}, errors.New("from must be RFC3339")
    }
    to, err := time.Parse(time.RFC3339, rawTo)
    if err != nil {
        return time.Time{}, time.Time{}, errors.New("to must be RFC3339")
    }
    return from, to, nil
}

// hideReservationIDs strips reservation IDs from slots for unauthenticated
// callers so the public endpoint does not leak booking identifiers.
func hideReservationIDs(slots []service.Slot) []service.Slot {
    out := make([]service.Slot, len(slots))
    for i, s := range slots {
        s.ReservationID = 0
        out[i] = s
    }
    return out
}
