package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// CacheConfig tunes the redis response cache in front of the read-heavy
// availability and table browsing endpoints.  The TTL is short so a
// fresh booking becomes visible within seconds without any write-path
// invalidation; the booking flow never touches the cache.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool // HTTP methods worth caching, normally GET only
    TTL          time.Duration
    Prefix       string // redis key namespace
    MaxBodyBytes int    // responses larger than this are served but not stored
}

// LoadCacheConfig reads the CACHE_* environment variables with defaults
// suited to the browsing endpoints.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      boolenv("CACHE_ENABLED", true),
        Methods:      parseMethods(getenv("CACHE_METHODS", "GET")),
        TTL:          parseDur(getenv("CACHE_TTL", "15s")),
        Prefix:       getenv("CACHE_PREFIX", "avail"),
        MaxBodyBytes: atoi(getenv("CACHE_MAX_BODY_BYTES", "1048576")),
    }
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}

// Env helpers shared by the config blocks in this package.

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func atoi(s string) int {
    i, _ := strconv.Atoi(s)
    return i
}

func boolenv(key string, def bool) bool {
    switch strings.ToLower(os.Getenv(key)) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return def
}

func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return 0
    }
    return d
}
