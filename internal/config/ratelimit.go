package config

import "time"

// RateLimitConfig tunes the token bucket guarding the booking write
// path.  The bucket is scoped per user and route by default, so one
// customer hammering POST /reservations burns their own budget and
// nobody else's; browsing endpoints stay unmetered.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int           // bucket size; bursts up to this many requests
    RefillTokens   int           // tokens added back per interval
    RefillInterval time.Duration // how often the bucket refills
    TTL            time.Duration // idle bucket expiry in redis
    KeyStrategy    string        // "user", "ip" or "user_route"
    Prefix         string        // redis key namespace
}

// LoadRateLimitConfig reads the RATE_LIMIT_* environment variables.
// The defaults allow a burst of 30 booking attempts refilling at one
// every two seconds, generous for a human picking a slot and tight for
// a script probing the floor.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        boolenv("RATE_LIMIT_ENABLED", true),
        Capacity:       atoi(getenv("RATE_LIMIT_CAPACITY", "30")),
        RefillTokens:   atoi(getenv("RATE_LIMIT_REFILL_TOKENS", "1")),
        RefillInterval: parseDur(getenv("RATE_LIMIT_REFILL_INTERVAL", "2s")),
        TTL:            parseDur(getenv("RATE_LIMIT_TTL", "10m")),
        KeyStrategy:    getenv("RATE_LIMIT_KEY_STRATEGY", "user_route"),
        Prefix:         getenv("RATE_LIMIT_PREFIX", "book"),
    }
    if cfg.Capacity < 1 {
        cfg.Capacity = 1
    }
    if cfg.RefillTokens < 1 {
        cfg.RefillTokens = 1
    }
    if cfg.RefillInterval <= 0 {
        cfg.RefillInterval = time.Second
    }
    // Buckets must outlive a few refill cycles or idle expiry would
    // hand refreshed budgets to whoever the limiter just stopped.
    if min := 5 * cfg.RefillInterval; cfg.TTL < min {
        cfg.TTL = min
    }
    return cfg
}
