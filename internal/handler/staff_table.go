package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/rackhouse/billiard-reservation/internal/model"
    "github.com/rackhouse/billiard-reservation/internal/repository"
)

// TableHandler bundles the registry repositories for staff to manage
// tables and table types.  Listing endpoints are also mounted publicly
// so guests can browse the floor.
type TableHandler struct {
    TableRepo *repository.TableRepo
    TypeRepo  *repository.TableTypeRepo
}

// NewTableHandler constructs a new TableHandler and panics if any
// dependency is nil.
func NewTableHandler(tableRepo *repository.TableRepo, typeRepo *repository.TableTypeRepo) *TableHandler {
    if tableRepo == nil || typeRepo == nil {
        panic("nil repository passed to NewTableHandler")
    }
    return &TableHandler{TableRepo: tableRepo, TypeRepo: typeRepo}
}

// ListTables handles GET /v1/tables.  Optional query parameters filter
// by operational status and table type.
func (h *TableHandler) ListTables(c echo.Context) error {
    var f repository.TableFilter
    if raw := c.QueryParam("status"); raw != "" {
        st, ok := model.ParseTableStatus(raw)
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
        }
        f.Status = st
    }
    if raw := c.QueryParam("type_id"); raw != "" {
        id, ok := parseID(raw)
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid type_id"})
        }
        f.TableTypeID = id
    }
    items, err := h.TableRepo.List(c.Request().Context(), f)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetTable handles GET /v1/tables/:id, returning the table with its
// type so the rate is visible next to the label.
func (h *TableHandler) GetTable(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
    }
    table, ttype, err := h.TableRepo.GetWithType(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": table, "type": ttype})
}

// CreateTable handles POST /v1/tables (staff).  New tables start in
// AVAILABLE unless the body says otherwise.
func (h *TableHandler) CreateTable(c echo.Context) error {
    var body struct {
        TableTypeID uint64 `json:"table_type_id"`
        Label       string `json:"label"`
        Status      string `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.TableTypeID == 0 || body.Label == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "table_type_id and label are required"})
    }
    status := model.TableStatusAvailable
    if body.Status != "" {
        st, ok := model.ParseTableStatus(body.Status)
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
        }
        status = st
    }
    table := &model.Table{TableTypeID: body.TableTypeID, Label: body.Label, Status: status}
    if err := h.TableRepo.Create(c.Request().Context(), table); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"item": table})
}

// UpdateTable handles PUT /v1/tables/:id (staff), changing label and
// type.
func (h *TableHandler) UpdateTable(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
    }
    var body struct {
        TableTypeID uint64 `json:"table_type_id"`
        Label       string `json:"label"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.TableTypeID == 0 || body.Label == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "table_type_id and label are required"})
    }
    if err := h.TableRepo.Update(c.Request().Context(), id, body.Label, body.TableTypeID); err != nil {
        return writeError(c, err)
    }
    table, err := h.TableRepo.GetByID(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": table})
}

// SetTableStatus handles PATCH /v1/tables/:id/status (staff).  Flipping
// to MAINTENANCE blocks new bookings only; reservations already on the
// table are untouched.  Setting the current status again is an
// idempotent no-op.
func (h *TableHandler) SetTableStatus(c echo.Context) error {
    id, ok := pathID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
    }
    var body struct {
        Status string `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    status, ok := model.ParseTableStatus(body.Status)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
    }
    if err := h.TableRepo.SetOperationalStatus(c.Request().Context(), id, status); err != nil {
        return writeError(c, err)
    }
    table, err := h.TableRepo.GetByID(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": table})
}
