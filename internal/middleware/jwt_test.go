package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/rackhouse/billiard-reservation/internal/config"
)

const testSecret = "test-secret"

func signToken(t *testing.T, sub any, role string) string {
    t.Helper()
    tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
        "sub":  sub,
        "role": role,
    })
    signed, err := tok.SignedString([]byte(testSecret))
    require.NoError(t, err)
    return signed
}

func runMW(mw echo.MiddlewareFunc, req *http.Request) (echo.Context, int, bool) {
    e := echo.New()
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    reachedNext := false
    h := mw(func(c echo.Context) error {
        reachedNext = true
        return c.NoContent(http.StatusOK)
    })
    _ = h(c)
    return c, rec.Code, reachedNext
}

func TestJWTAuth(t *testing.T) {
    req := httptest.NewRequest(http.MethodGet, "/v1/reservations/1", nil)
    req.Header.Set("Authorization", "Bearer "+signToken(t, "42", "CUSTOMER"))
    c, code, next := runMW(JWTAuth(testSecret), req)
    require.True(t, next)
    assert.Equal(t, http.StatusOK, code)
    assert.Equal(t, "42", c.Get("user_id"))
    assert.Equal(t, "CUSTOMER", c.Get("role"))

    req = httptest.NewRequest(http.MethodGet, "/v1/reservations/1", nil)
    _, code, next = runMW(JWTAuth(testSecret), req)
    assert.False(t, next)
    assert.Equal(t, http.StatusUnauthorized, code)

    req = httptest.NewRequest(http.MethodGet, "/v1/reservations/1", nil)
    req.Header.Set("Authorization", "Bearer not-a-token")
    _, code, next = runMW(JWTAuth(testSecret), req)
    assert.False(t, next)
    assert.Equal(t, http.StatusUnauthorized, code)
}

func TestOptionalJWTAuth(t *testing.T) {
    // No header: the request passes through anonymously, no identity in
    // the context.  This is the guest availability view.
    req := httptest.NewRequest(http.MethodGet, "/v1/tables/5/availability", nil)
    c, code, next := runMW(OptionalJWTAuth(testSecret), req)
    require.True(t, next)
    assert.Equal(t, http.StatusOK, code)
    assert.Nil(t, c.Get("role"))

    // With a valid token the claims land in the context as usual.
    req = httptest.NewRequest(http.MethodGet, "/v1/tables/5/availability", nil)
    req.Header.Set("Authorization", "Bearer "+signToken(t, "42", "CUSTOMER"))
    c, code, next = runMW(OptionalJWTAuth(testSecret), req)
    require.True(t, next)
    assert.Equal(t, http.StatusOK, code)
    assert.Equal(t, "CUSTOMER", c.Get("role"))

    // A presented-but-invalid token is still rejected, never silently
    // downgraded to the guest view.
    req = httptest.NewRequest(http.MethodGet, "/v1/tables/5/availability", nil)
    req.Header.Set("Authorization", "Bearer garbage")
    _, code, next = runMW(OptionalJWTAuth(testSecret), req)
    assert.False(t, next)
    assert.Equal(t, http.StatusUnauthorized, code)
}

func TestResponseKeySeparatesGuestsFromAuthed(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/tables/5/availability?from=2026-09-01T10:00:00Z", nil)

    guest := e.NewContext(req, httptest.NewRecorder())
    authed := e.NewContext(req, httptest.NewRecorder())
    authed.Set("role", "CUSTOMER")

    // Same request, different rendering: the guest payload redacts
    // reservation IDs, so the two must never share a cache entry.
    assert.NotEqual(t, responseKey("avail", guest), responseKey("avail", authed))
    assert.Equal(t, responseKey("avail", guest), responseKey("avail", guest))
}

func TestLimiterKeyScopesPerUserAndRoute(t *testing.T) {
    e := echo.New()
    cfg := config.RateLimitConfig{KeyStrategy: "user_route", Prefix: "book"}

    ctxFor := func(userID any, path string) echo.Context {
        req := httptest.NewRequest(http.MethodPost, path, nil)
        c := e.NewContext(req, httptest.NewRecorder())
        c.SetPath(path)
        if userID != nil {
            c.Set("user_id", userID)
        }
        return c
    }

    // Separate customers burn separate budgets.
    assert.NotEqual(t,
        limiterKey(cfg, ctxFor("42", "/v1/reservations")),
        limiterKey(cfg, ctxFor("7", "/v1/reservations")))

    // The JWT middleware stores the raw claim; numeric subjects key the
    // same as their string form.
    assert.Equal(t,
        limiterKey(cfg, ctxFor("42", "/v1/reservations")),
        limiterKey(cfg, ctxFor(float64(42), "/v1/reservations")))

    // httptest requests carry the documentation address as RemoteAddr.
    assert.Equal(t, "book:ip:192.0.2.1",
        limiterKey(config.RateLimitConfig{KeyStrategy: "ip", Prefix: "book"}, ctxFor(nil, "/v1/reservations")))
}
