package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/rackhouse/billiard-reservation/internal/model"
)

// ListTableTypes handles GET /v1/table-types.  Pass ?active=true to
// exclude retired types.
func (h *TableHandler) ListTableTypes(c echo.Context) error {
    activeOnly := c.QueryParam("active") == "true"
    items, err := h.TypeRepo.List(c.Request().Context(), activeOnly)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CreateTableType handles POST /v1/table-types (staff).  The hourly
// rate is given in the smallest currency unit.
func (h *TableHandler) CreateTableType(c echo.Context) error {
    var body struct {
        Name            string  `json:"name"`
        HourlyRateCents uint32  `json:"hourly_rate_cents"`
        Description     *string `json:"description"`
        Color           string  `json:"color"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    tt := &model.TableType{
        Name:            body.Name,
        HourlyRateCents: body.HourlyRateCents,
        Description:     body.Description,
        Color:           body.Color,
        IsActive:        true,
    }
    if err := h.TypeRepo.Create(c.Request().Context(), tt); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"item": tt})
}

// UpdateTableType handles PUT /v1/table-types/:id (staff).  Rate
// changes apply to future reservations only; anything already booked
// keeps the total it was priced with.
func (h *TableHandler) UpdateTableType(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table type id"})
    }
    var body struct {
        Name            string  `json:"name"`
        HourlyRateCents uint32  `json:"hourly_rate_cents"`
        Description     *string `json:"description"`
        Color           string  `json:"color"`
        IsActive        *bool   `json:"is_active"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    tt, err := h.TypeRepo.GetByID(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    if body.Name != "" {
        tt.Name = body.Name
    }
    tt.HourlyRateCents = body.HourlyRateCents
    if body.Description != nil {
        tt.Description = body.Description
    }
    if body.Color != "" {
        tt.Color = body.Color
    }
    if body.IsActive != nil {
        tt.IsActive = *body.IsActive
    }
    if err := h.TypeRepo.Update(c.Request().Context(), tt); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": tt})
}
