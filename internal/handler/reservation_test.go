package handler

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/rackhouse/billiard-reservation/internal/availability"
    "github.com/rackhouse/billiard-reservation/internal/model"
    "github.com/rackhouse/billiard-reservation/internal/repository"
    "github.com/rackhouse/billiard-reservation/internal/service"
)

// In-memory stores backing a real booking service, so handler tests
// exercise the full request path without MySQL.

type fakeTables struct {
    mu     sync.Mutex
    tables map[uint64]*model.Table
    types  map[uint64]*model.TableType
}

func newFakeTables() *fakeTables {
    return &fakeTables{
        tables: map[uint64]*model.Table{
            5: {ID: 5, TableTypeID: 1, Label: "T5", Status: model.TableStatusAvailable},
        },
        types: map[uint64]*model.TableType{
            1: {ID: 1, Name: "9-foot pool", HourlyRateCents: 6000, IsActive: true},
        },
    }
}

func (f *fakeTables) GetByID(ctx context.Context, id uint64) (*model.Table, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    t, ok := f.tables[id]
    if !ok {
        return nil, repository.ErrTableNotFound
    }
    cp := *t
    return &cp, nil
}

func (f *fakeTables) GetWithType(ctx context.Context, id uint64) (*model.Table, *model.TableType, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    t, ok := f.tables[id]
    if !ok {
        return nil, nil, repository.ErrTableNotFound
    }
    tt := f.types[t.TableTypeID]
    tc, ttc := *t, *tt
    return &tc, &ttc, nil
}

func (f *fakeTables) SetOperationalStatus(ctx context.Context, id uint64, status model.TableStatus) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    t, ok := f.tables[id]
    if !ok {
        return repository.ErrTableNotFound
    }
    t.Status = status
    return nil
}

type fakeReservations struct {
    mu    sync.Mutex
    seq   uint64
    items map[uint64]*model.Reservation
}

func newFakeReservations() *fakeReservations {
    return &fakeReservations{items: make(map[uint64]*model.Reservation)}
}

func (f *fakeReservations) Create(ctx context.Context, res *model.Reservation) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.seq++
    res.ID = f.seq
    res.CreatedAt = time.Now().UTC()
    res.UpdatedAt = res.CreatedAt
    cp := *res
    f.items[res.ID] = &cp
    return nil
}

func (f *fakeReservations) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.items[id]
    if !ok {
        return nil, repository.ErrReservationNotFound
    }
    cp := *r
    return &cp, nil
}

func (f *fakeReservations) UpdatePaymentIf(ctx context.Context, res *model.Reservation) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.items[res.ID]
    if !ok {
        return false, repository.ErrReservationNotFound
    }
    if !r.Status.IsActive() {
        return false, nil
    }
    r.PaymentStatus = res.PaymentStatus
    r.PaymentMethod = res.PaymentMethod
    r.PaidAmountCents = res.PaidAmountCents
    return true, nil
}

func (f *fakeReservations) SetRefunded(ctx context.Context, id uint64) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.items[id]
    if !ok {
        return repository.ErrReservationNotFound
    }
    r.PaymentStatus = model.PaymentStatusRefunded
    return nil
}

func (f *fakeReservations) SetCheckedInIf(ctx context.Context, id uint64, at time.Time) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.items[id]
    if !ok {
        return false, repository.ErrReservationNotFound
    }
    if r.Status != model.ReservationStatusConfirmed || r.CheckedInAt != nil {
        return false, nil
    }
    r.CheckedInAt = &at
    return true, nil
}

func (f *fakeReservations) UpdateStatusIf(ctx context.Context, id uint64, from []model.ReservationStatus, to model.ReservationStatus) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.items[id]
    if !ok {
        return false, repository.ErrReservationNotFound
    }
    for _, s := range from {
        if r.Status == s {
            r.Status = to
            return true, nil
        }
    }
    return false, nil
}

func (f *fakeReservations) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.Reservation
    for _, r := range f.items {
        if r.Status == model.ReservationStatusPending && r.CreatedAt.Before(cutoff) {
            out = append(out, *r)
        }
    }
    return out, nil
}

func (f *fakeReservations) ListActive(ctx context.Context) ([]model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.Reservation
    for _, r := range f.items {
        if r.Status.IsActive() {
            out = append(out, *r)
        }
    }
    return out, nil
}

func (f *fakeReservations) List(ctx context.Context, fl repository.Filter) ([]model.Reservation, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.Reservation
    for _, r := range f.items {
        if fl.CustomerID != 0 && r.CustomerID != fl.CustomerID {
            continue
        }
        if fl.TableID != 0 && r.TableID != fl.TableID {
            continue
        }
        out = append(out, *r)
    }
    return out, nil
}

func newTestHandler() *ReservationHandler {
    svc := service.NewBookingService(
        newFakeTables(),
        newFakeReservations(),
        availability.NewIndex(),
        nil,
        service.Policy{
            DepositPercent: 50,
            PendingTTL:     15 * time.Minute,
            MinDuration:    30 * time.Minute,
            MaxDuration:    4 * time.Hour,
        },
    )
    return NewReservationHandler(svc, 10, 23)
}

func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID uint64, role string) echo.Context {
    c := e.NewContext(req, rec)
    c.Set("user_id", userID)
    c.Set("role", role)
    return c
}

func postJSON(path, body string) *http.Request {
    req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    return req
}

func TestCreateReservationEndpoint(t *testing.T) {
    e := echo.New()
    h := newTestHandler()

    body := `{"table_id":5,"starts_at":"2026-09-01T14:00:00Z","ends_at":"2026-09-01T15:30:00Z"}`
    rec := httptest.NewRecorder()
    c := authedContext(e, postJSON("/v1/reservations", body), rec, 42, service.RoleCustomer)

    require.NoError(t, h.CreateReservation(c))
    require.Equal(t, http.StatusCreated, rec.Code)

    var resp struct {
        Item model.Reservation `json:"item"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.Equal(t, model.ReservationStatusPending, resp.Item.Status)
    assert.Equal(t, uint64(42), resp.Item.CustomerID)
    assert.Equal(t, uint32(9000), resp.Item.TotalAmountCents)
}

func TestCreateReservationConflictResponse(t *testing.T) {
    e := echo.New()
    h := newTestHandler()

    body := `{"table_id":5,"starts_at":"2026-09-01T14:00:00Z","ends_at":"2026-09-01T15:00:00Z"}`
    rec := httptest.NewRecorder()
    require.NoError(t, h.CreateReservation(authedContext(e, postJSON("/v1/reservations", body), rec, 42, service.RoleCustomer)))
    require.Equal(t, http.StatusCreated, rec.Code)

    overlap := `{"table_id":5,"starts_at":"2026-09-01T14:30:00Z","ends_at":"2026-09-01T15:30:00Z"}`
    rec = httptest.NewRecorder()
    require.NoError(t, h.CreateReservation(authedContext(e, postJSON("/v1/reservations", overlap), rec, 43, service.RoleCustomer)))
    require.Equal(t, http.StatusConflict, rec.Code)

    var resp map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.EqualValues(t, 1, resp["conflicting_reservation_id"])
}

func TestCreateReservationValidationResponses(t *testing.T) {
    e := echo.New()
    h := newTestHandler()

    cases := []struct {
        name string
        body string
    }{
        {"missing table", `{"starts_at":"2026-09-01T14:00:00Z","ends_at":"2026-09-01T15:00:00Z"}`},
        {"bad timestamp", `{"table_id":5,"starts_at":"tomorrow","ends_at":"2026-09-01T15:00:00Z"}`},
        {"end before start", `{"table_id":5,"starts_at":"2026-09-01T15:00:00Z","ends_at":"2026-09-01T14:00:00Z"}`},
        {"too short", `{"table_id":5,"starts_at":"2026-09-01T14:00:00Z","ends_at":"2026-09-01T14:10:00Z"}`},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            rec := httptest.NewRecorder()
            require.NoError(t, h.CreateReservation(authedContext(e, postJSON("/v1/reservations", tc.body), rec, 42, service.RoleCustomer)))
            assert.Equal(t, http.StatusBadRequest, rec.Code)
        })
    }
}

func TestStaffBooksForCustomer(t *testing.T) {
    e := echo.New()
    h := newTestHandler()

    body := `{"table_id":5,"customer_id":77,"starts_at":"2026-09-01T14:00:00Z","ends_at":"2026-09-01T15:00:00Z"}`
    rec := httptest.NewRecorder()
    require.NoError(t, h.CreateReservation(authedContext(e, postJSON("/v1/reservations", body), rec, 1, service.RoleStaff)))
    require.Equal(t, http.StatusCreated, rec.Code)

    var resp struct {
        Item model.Reservation `json:"item"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.Equal(t, uint64(77), resp.Item.CustomerID)
}

func TestGetReservationOwnership(t *testing.T) {
    e := echo.New()
    h := newTestHandler()

    body := `{"table_id":5,"starts_at":"2026-09-01T14:00:00Z","ends_at":"2026-09-01T15:00:00Z"}`
    rec := httptest.NewRecorder()
    require.NoError(t, h.CreateReservation(authedContext(e, postJSON("/v1/reservations", body), rec, 42, service.RoleCustomer)))
    require.Equal(t, http.StatusCreated, rec.Code)

    get := func(userID uint64, role string) int {
        rec := httptest.NewRecorder()
        c := authedContext(e, httptest.NewRequest(http.MethodGet, "/v1/reservations/1", nil), rec, userID, role)
        c.SetParamNames("id")
        c.SetParamValues("1")
        require.NoError(t, h.GetReservation(c))
        return rec.Code
    }

    assert.Equal(t, http.StatusOK, get(42, service.RoleCustomer))
    assert.Equal(t, http.StatusForbidden, get(7, service.RoleCustomer))
    assert.Equal(t, http.StatusOK, get(7, service.RoleStaff))
}

func TestPaymentConfirmsAndCancelFrees(t *testing.T) {
    e := echo.New()
    h := newTestHandler()

    body := `{"table_id":5,"starts_at":"2026-09-01T14:00:00Z","ends_at":"2026-09-01T15:30:00Z"}`
    rec := httptest.NewRecorder()
    require.NoError(t, h.CreateReservation(authedContext(e, postJSON("/v1/reservations", body), rec, 42, service.RoleCustomer)))
    require.Equal(t, http.StatusCreated, rec.Code)

    // Deposit payment confirms.
    rec = httptest.NewRecorder()
    c := authedContext(e, postJSON("/v1/reservations/1/payments", `{"amount_cents":4500,"method":"card"}`), rec, 42, service.RoleCustomer)
    c.SetParamNames("id")
    c.SetParamValues("1")
    require.NoError(t, h.RecordPayment(c))
    require.Equal(t, http.StatusOK, rec.Code)

    var resp struct {
        Item model.Reservation `json:"item"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.Equal(t, model.ReservationStatusConfirmed, resp.Item.Status)

    // Cancel releases the slot; a rebooking of the same window succeeds.
    rec = httptest.NewRecorder()
    c = authedContext(e, httptest.NewRequest(http.MethodDelete, "/v1/reservations/1", nil), rec, 42, service.RoleCustomer)
    c.SetParamNames("id")
    c.SetParamValues("1")
    require.NoError(t, h.CancelReservation(c))
    require.Equal(t, http.StatusOK, rec.Code)

    rec = httptest.NewRecorder()
    require.NoError(t, h.CreateReservation(authedContext(e, postJSON("/v1/reservations", body), rec, 43, service.RoleCustomer)))
    assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPaymentRequiresOwnershipOrStaff(t *testing.T) {
    e := echo.New()
    h := newTestHandler()

    body := `{"table_id":5,"starts_at":"2026-09-01T14:00:00Z","ends_at":"2026-09-01T15:00:00Z"}`
    rec := httptest.NewRecorder()
    require.NoError(t, h.CreateReservation(authedContext(e, postJSON("/v1/reservations", body), rec, 42, service.RoleCustomer)))
    require.Equal(t, http.StatusCreated, rec.Code)

    pay := func(userID uint64, role string) int {
        rec := httptest.NewRecorder()
        c := authedContext(e, postJSON("/v1/reservations/1/payments", `{"amount_cents":1000,"method":"card"}`), rec, userID, role)
        c.SetParamNames("id")
        c.SetParamValues("1")
        require.NoError(t, h.RecordPayment(c))
        return rec.Code
    }

    assert.Equal(t, http.StatusForbidden, pay(7, service.RoleCustomer), "strangers cannot pay toward the booking")
    assert.Equal(t, http.StatusOK, pay(42, service.RoleCustomer))
    assert.Equal(t, http.StatusOK, pay(7, service.RoleStaff), "staff record walk-in payments")
}

func TestAvailabilityEndpoint(t *testing.T) {
    e := echo.New()
    h := newTestHandler()

    body := `{"table_id":5,"starts_at":"2026-09-01T14:00:00Z","ends_at":"2026-09-01T15:00:00Z"}`
    rec := httptest.NewRecorder()
    require.NoError(t, h.CreateReservation(authedContext(e, postJSON("/v1/reservations", body), rec, 42, service.RoleCustomer)))
    require.Equal(t, http.StatusCreated, rec.Code)

    query := func(c echo.Context) {
        c.SetParamNames("id")
        c.SetParamValues("5")
    }
    url := "/v1/tables/5/availability?from=2026-09-01T12:00:00Z&to=2026-09-01T18:00:00Z"

    // Guest: no identity in context, reservation IDs hidden.
    rec = httptest.NewRecorder()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, url, nil), rec)
    query(c)
    require.NoError(t, h.GetAvailability(c))
    require.Equal(t, http.StatusOK, rec.Code)

    var resp struct {
        Slots []service.Slot `json:"slots"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    require.Len(t, resp.Slots, 3)
    assert.Equal(t, "FREE", resp.Slots[0].Status)
    assert.Equal(t, "OCCUPIED", resp.Slots[1].Status)
    assert.Zero(t, resp.Slots[1].ReservationID, "guests must not see booking IDs")
    assert.Equal(t, "FREE", resp.Slots[2].Status)

    // Authenticated: reservation IDs present.
    rec = httptest.NewRecorder()
    c = authedContext(e, httptest.NewRequest(http.MethodGet, url, nil), rec, 42, service.RoleCustomer)
    query(c)
    require.NoError(t, h.GetAvailability(c))
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.Equal(t, uint64(1), resp.Slots[1].ReservationID)
}

func TestAvailabilityRejectsBadRange(t *testing.T) {
    e := echo.New()
    h := newTestHandler()

    rec := httptest.NewRecorder()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/tables/5/availability?from=noon&to=2026-09-01T18:00:00Z", nil), rec)
    c.SetParamNames("id")
    c.SetParamValues("5")
    require.NoError(t, h.GetAvailability(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = httptest.NewRecorder()
    c = e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/tables/404/availability?from=2026-09-01T12:00:00Z&to=2026-09-01T18:00:00Z", nil), rec)
    c.SetParamNames("id")
    c.SetParamValues("404")
    require.NoError(t, h.GetAvailability(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvailabilityDefaultsToOpeningHours(t *testing.T) {
    e := echo.New()
    h := newTestHandler()

    rec := httptest.NewRecorder()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/tables/5/availability", nil), rec)
    c.SetParamNames("id")
    c.SetParamValues("5")
    require.NoError(t, h.GetAvailability(c))
    require.Equal(t, http.StatusOK, rec.Code)

    var resp struct {
        From  time.Time      `json:"from"`
        To    time.Time      `json:"to"`
        Slots []service.Slot `json:"slots"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.Equal(t, h.OpenHour, resp.From.Hour())
    assert.Equal(t, h.CloseHour, resp.To.Hour())
    require.Len(t, resp.Slots, 1)
    assert.Equal(t, "FREE", resp.Slots[0].Status)
}

// Many goroutines racing for the same slot through the HTTP handler
// must produce exactly one 201.
func TestConcurrentBookingSingleWinner(t *testing.T) {
    e := echo.New()
    h := newTestHandler()

    const attempts = 16
    codes := make(chan int, attempts)
    var wg sync.WaitGroup
    for i := 0; i < attempts; i++ {
        wg.Add(1)
        go func(userID uint64) {
            defer wg.Done()
            body := `{"table_id":5,"starts_at":"2026-09-01T14:00:00Z","ends_at":"2026-09-01T15:00:00Z"}`
            rec := httptest.NewRecorder()
            c := authedContext(e, postJSON("/v1/reservations", body), rec, userID, service.RoleCustomer)
            if err := h.CreateReservation(c); err != nil {
                codes <- http.StatusInternalServerError
                return
            }
            codes <- rec.Code
        }(uint64(i + 1))
    }
    wg.Wait()
    close(codes)

    created, conflicted := 0, 0
    for code := range codes {
        switch code {
        case http.StatusCreated:
            created++
        case http.StatusConflict:
            conflicted++
        default:
            t.Fatalf("unexpected status %d", code)
        }
    }
    assert.Equal(t, 1, created, fmt.Sprintf("exactly one of %d attempts may win", attempts))
    assert.Equal(t, attempts-1, conflicted)
}
