package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/rackhouse/billiard-reservation/internal/model"
    "github.com/rackhouse/billiard-reservation/internal/repository"
)

// ListReservations handles GET /v1/reservations (staff).  Query
// parameters narrow the result: table_id, customer_id, status, from,
// to.  From/to bound the reservation window with half-open semantics.
func (h *ReservationHandler) ListReservations(c echo.Context) error {
    var f repository.Filter
    if raw := c.QueryParam("table_id"); raw != "" {
        id, ok := parseID(raw)
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table_id"})
        }
        f.TableID = id
    }
    if raw := c.QueryParam("customer_id"); raw != "" {
        id, ok := parseID(raw)
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer_id"})
        }
        f.CustomerID = id
    }
    if raw := c.QueryParam("status"); raw != "" {
        switch st := model.ReservationStatus(raw); st {
        case model.ReservationStatusPending, model.ReservationStatusConfirmed,
            model.ReservationStatusCompleted, model.ReservationStatusCancelled:
            f.Status = st
        default:
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
        }
    }
    if raw := c.QueryParam("from"); raw != "" {
        t, err := time.Parse(time.RFC3339, raw)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be RFC3339"})
        }
        f.From = t
    }
    if raw := c.QueryParam("to"); raw != "" {
        t, err := time.Parse(time.RFC3339, raw)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be RFC3339"})
        }
        f.To = t
    }
    items, err := h.Booking.List(c.Request().Context(), f)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CheckIn handles POST /v1/reservations/:id/check-in (staff).  Marks
// the party as arrived on a confirmed reservation whose window has
// begun and flips the table to OCCUPIED.  A repeated check-in returns
// the reservation unchanged.
func (h *ReservationHandler) CheckIn(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    res, err := h.Booking.CheckIn(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": res})
}

// Complete handles POST /v1/reservations/:id/complete (staff).  Moves a
// confirmed, checked-in reservation whose end time has passed to
// COMPLETED and returns the table to AVAILABLE.
func (h *ReservationHandler) Complete(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    res, err := h.Booking.Complete(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": res})
}
