package middleware

import (
    "math"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/rackhouse/billiard-reservation/internal/config"
)

// tokenBucketScript refills and takes one token in a single round trip.
// Per-bucket state is a redis hash holding the remaining tokens and the
// last refill timestamp in milliseconds.  Returns {allowed, remaining,
// retry_after_ms}.  The script runs atomically, so two booking attempts
// racing for the last token cannot both take it.
var tokenBucketScript = redis.NewScript(`
local bucket = KEYS[1]
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', bucket, 'tokens', 'refilled_at')
local tokens = tonumber(state[1])
local refilled_at = tonumber(state[2])
if tokens == nil or refilled_at == nil then
    tokens = capacity
    refilled_at = now
end

local ticks = math.floor(math.max(0, now - refilled_at) / interval)
if ticks > 0 then
    tokens = math.min(capacity, tokens + ticks * refill)
    refilled_at = refilled_at + ticks * interval
end

local allowed = 0
local wait = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    wait = math.max(0, interval - (now - refilled_at))
end

redis.call('HMSET', bucket, 'tokens', tokens, 'refilled_at', refilled_at)
redis.call('EXPIRE', bucket, ttl)
return {allowed, tokens, wait}
`)

// NewTokenBucket meters the booking write path through a redis token
// bucket so one caller cannot monopolize the per-table locks.  Keys are
// scoped per user and route by default; see limiterKey.  When redis is
// unreachable the limiter fails open: a burst of booking attempts is
// survivable, an outage that rejects every booking is not.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passthrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            args := []interface{}{
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL / time.Second),
            }
            vals, err := tokenBucketScript.Run(
                c.Request().Context(), rdb, []string{limiterKey(cfg, c)}, args...).Result()
            if err != nil {
                return next(c) // fail open
            }
            arr, ok := vals.([]interface{})
            if !ok || len(arr) != 3 {
                return next(c)
            }
            allowed := asInt64(arr[0]) == 1
            remaining := asInt64(arr[1])
            retryMs := asInt64(arr[2])

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
            if !allowed {
                secs := int(math.Ceil(float64(retryMs) / 1000.0))
                h.Set("Retry-After", strconv.Itoa(secs))
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":       "too many booking attempts",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

// limiterKey scopes a bucket.  "user_route" gives each caller an
// independent budget per endpoint, so a customer retrying a contested
// slot cannot starve another customer or exhaust their own cancel
// budget; "ip" is the coarse fallback for deployments whose tokens
// carry no usable subject.
func limiterKey(cfg config.RateLimitConfig, c echo.Context) string {
    switch cfg.KeyStrategy {
    case "ip":
        return cfg.Prefix + ":ip:" + c.RealIP()
    case "user":
        return cfg.Prefix + ":user:" + currentUserID(c)
    default: // user_route
        return cfg.Prefix + ":user:" + currentUserID(c) + ":" + c.Request().Method + ":" + c.Path()
    }
}

// currentUserID renders the authenticated subject for key building.
// The JWT middleware stores the raw "sub" claim, so it may arrive as a
// string or a JSON number depending on the issuer.
func currentUserID(c echo.Context) string {
    switch t := c.Get("user_id").(type) {
    case string:
        if t != "" {
            return t
        }
    case float64:
        return strconv.FormatInt(int64(t), 10)
    case int64:
        return strconv.FormatInt(t, 10)
    case uint64:
        return strconv.FormatUint(t, 10)
    }
    return "anon"
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        n, _ := strconv.ParseInt(t, 10, 64)
        return n
    }
    return 0
}
