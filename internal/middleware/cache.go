package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/rackhouse/billiard-reservation/internal/config"
)

// cachedResponse is the envelope stored in redis for one cached read.
type cachedResponse struct {
    Status int         `json:"status"`
    Header http.Header `json:"header"`
    Body   []byte      `json:"body"`
}

// teeWriter mirrors the response body into a buffer up to a cap so a
// successful response can be stored after the handler has run.  Bodies
// over the cap still reach the client; they just are not cached.
type teeWriter struct {
    http.ResponseWriter
    status  int
    buf     bytes.Buffer
    written int64
    max     int64
}

func (w *teeWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
    if w.max <= 0 || w.written+int64(len(b)) <= w.max {
        w.buf.Write(b)
    }
    w.written += int64(len(b))
    return w.ResponseWriter.Write(b)
}

// NewRedisCache returns a middleware caching GET responses on the
// availability and table browsing endpoints.  Entries expire on a short
// TTL instead of being invalidated per booking, which keeps the booking
// write path free of cache bookkeeping: a fresh reservation shows up
// within CACHE_TTL.  Guest and authenticated traffic are cached under
// separate keys because the availability payload differs between them
// (guests do not see reservation IDs), so this middleware must run
// after the optional auth middleware on shared routes.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passthrough
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 15 * time.Second
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            key := responseKey(cfg.Prefix, c)
            ctx := c.Request().Context()

            if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil {
                    replay(c, hit)
                    return nil
                }
                // Unreadable entry, fall through and overwrite it.
            }

            tee := &teeWriter{
                ResponseWriter: c.Response().Writer,
                status:         http.StatusOK,
                max:            int64(cfg.MaxBodyBytes),
            }
            c.Response().Writer = tee
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if tee.status != http.StatusOK {
                return nil // only cache clean reads
            }
            if tee.max > 0 && tee.written > tee.max {
                return nil
            }
            entry := cachedResponse{
                Status: tee.status,
                Header: c.Response().Header().Clone(),
                Body:   tee.buf.Bytes(),
            }
            if raw, err := json.Marshal(entry); err == nil {
                // The request context may already be done; storing the
                // entry is best effort either way.
                _ = rdb.SetEx(context.Background(), key, raw, ttl).Err()
            }
            return nil
        }
    }
}

// replay writes a stored response.  Content-Length is recomputed by the
// writer and X-Cache is rewritten to flag the hit.
func replay(c echo.Context, hit cachedResponse) {
    h := c.Response().Header()
    for k, vals := range hit.Header {
        if strings.EqualFold(k, "Content-Length") {
            continue
        }
        for _, v := range vals {
            h.Add(k, v)
        }
    }
    h.Set("X-Cache", "HIT")
    c.Response().WriteHeader(hit.Status)
    _, _ = c.Response().Write(hit.Body)
}

// responseKey hashes method, path and query under the configured
// prefix.  Whether the caller is authenticated is part of the key: the
// availability payload redacts reservation IDs for guests, and a guest
// must never be served the authenticated rendering or vice versa.
func responseKey(prefix string, c echo.Context) string {
    scope := "anon"
    if _, ok := c.Get("role").(string); ok {
        scope = "auth"
    }
    r := c.Request()
    sum := sha1.Sum([]byte(r.Method + " " + r.URL.Path + "?" + r.URL.RawQuery))
    return prefix + ":" + scope + ":" + hex.EncodeToString(sum[:])
}

// passthrough is the disabled form of the redis-backed middlewares.
func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
