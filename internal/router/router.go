package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // the Echo web framework handles routing

    "github.com/rackhouse/billiard-reservation/internal/handler"    // handlers implement the endpoints
    "github.com/rackhouse/billiard-reservation/internal/middleware" // middleware for JWT authentication and role enforcement
)

// RegisterPublic registers routes that do not require authentication:
// the health check, table browsing and the availability timeline.
// Guests can inspect the floor and pick a slot before authenticating.
func RegisterPublic(e *echo.Echo, t *handler.TableHandler, r *handler.ReservationHandler, jwtSecret string, cacheMW echo.MiddlewareFunc) {
    e.GET("/healthz", handler.Health)
    e.GET("/v1/tables", t.ListTables, cacheMW)
    e.GET("/v1/tables/:id", t.GetTable, cacheMW)
    e.GET("/v1/table-types", t.ListTableTypes, cacheMW)
    // Availability is the hot read path; it sits behind the short-TTL
    // redis response cache so a burst of browsing does not hammer the
    // index.  Authentication is optional here: guests get the timeline
    // with reservation IDs redacted, authenticated callers see them.
    // The auth middleware runs first so the cache can key on identity.
    e.GET("/v1/tables/:id/availability", r.GetAvailability,
        middleware.OptionalJWTAuth(jwtSecret), cacheMW)
}

// RegisterCustomer registers booking endpoints available to any
// authenticated user.  Staff pass through as well so they can book on
// behalf of walk-in customers.
func RegisterCustomer(e *echo.Echo, r *handler.ReservationHandler, jwtSecret string, limitMW echo.MiddlewareFunc) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("STAFF", "CUSTOMER"))

    // The create endpoint is rate limited: it is the only write a guest
    // account can spam into lock contention.
    g.POST("/reservations", r.CreateReservation, limitMW)
    g.GET("/reservations/:id", r.GetReservation)
    g.GET("/my-reservations", r.ListMyReservations)
    g.POST("/reservations/:id/payments", r.RecordPayment)
    g.DELETE("/reservations/:id", r.CancelReservation)
}

// RegisterStaff registers registry management and reservation
// operations restricted to the STAFF role.
func RegisterStaff(e *echo.Echo, t *handler.TableHandler, r *handler.ReservationHandler, jwtSecret string) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("STAFF"))

    g.POST("/tables", t.CreateTable)
    g.PUT("/tables/:id", t.UpdateTable)
    g.PATCH("/tables/:id/status", t.SetTableStatus)
    g.POST("/table-types", t.CreateTableType)
    g.PUT("/table-types/:id", t.UpdateTableType)

    g.GET("/reservations", r.ListReservations)
    g.POST("/reservations/:id/check-in", r.CheckIn)
    g.POST("/reservations/:id/complete", r.Complete)
}
