package handler // handler defines http handlers

import (
    "errors"  // errors provides sentinel comparisons for response mapping
    "net/http"
    "strconv" // strconv converts strings to numeric types

    "github.com/labstack/echo/v4"

    "github.com/rackhouse/billiard-reservation/internal/repository"
    "github.com/rackhouse/billiard-reservation/internal/service"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// getActor builds the service actor from the authenticated identity in
// the context.  The role claim has already been vetted by RequireRole.
func getActor(c echo.Context) (service.Actor, error) {
    id, err := getUserID(c)
    if err != nil {
        return service.Actor{}, err
    }
    role, _ := c.Get("role").(string)
    return service.Actor{ID: id, Role: role}, nil
}

// writeError translates the engine's error taxonomy into HTTP statuses:
// not-found 404, conflict 409 (with the blocking reservation when
// known), invalid transition 422, validation 400, forbidden 403,
// anything else 500.  No error is silently swallowed.
func writeError(c echo.Context, err error) error {
    var conflict *repository.ConflictError
    switch {
    case errors.As(err, &conflict):
        return c.JSON(http.StatusConflict, echo.Map{
            "error":                      "slot conflict",
            "conflicting_reservation_id": conflict.ConflictingID,
        })
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "slot conflict"})
    case errors.Is(err, repository.ErrTableUnavailable):
        return c.JSON(http.StatusConflict, echo.Map{"error": "table not accepting bookings"})
    case errors.Is(err, repository.ErrTableNotFound),
        errors.Is(err, repository.ErrTableTypeNotFound),
        errors.Is(err, repository.ErrReservationNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrInvalidTransition):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, service.ErrValidation):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

// pathID parses a numeric :id path parameter.
func pathID(c echo.Context) (uint64, bool) {
    return parseID(c.Param("id"))
}

// parseID parses a positive numeric identifier from a raw string.
func parseID(raw string) (uint64, bool) {
    id, err := strconv.ParseUint(raw, 10, 64)
    return id, err == nil && id != 0
}
