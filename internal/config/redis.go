package config

import (
    "context"
    "crypto/tls"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig carries the connection settings for the redis instance
// backing the availability response cache and the booking rate limiter.
// Redis is an accelerator here, not a dependency: every piece of truth
// lives in MySQL and the in-memory index, so the server runs without it.
type RedisConfig struct {
    Addr     string
    Password string
    DB       int
    TLS      bool
}

// LoadRedisConfig reads the REDIS_* environment variables with local
// defaults.  REDIS_ADDR is the host:port shorthand; REDIS_HOST and
// REDIS_PORT win when both are set.
func LoadRedisConfig() RedisConfig {
    addr := getenv("REDIS_ADDR", "")
    if host := getenv("REDIS_HOST", ""); host != "" {
        addr = host + ":" + getenv("REDIS_PORT", "6379")
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    return RedisConfig{
        Addr:     addr,
        Password: getenv("REDIS_PASSWORD", ""),
        DB:       atoi(getenv("REDIS_DB", "0")),
        TLS:      boolenv("REDIS_TLS", false),
    }
}

// NewRedisClient connects and pings with a short timeout.  A nil return
// means redis is unreachable; the cache and rate-limit middlewares
// degrade to pass-through on nil, so browsing and booking keep working
// without it.
func NewRedisClient(cfg RedisConfig) *redis.Client {
    opts := &redis.Options{
        Addr:     cfg.Addr,
        Password: cfg.Password,
        DB:       cfg.DB,
    }
    if cfg.TLS {
        opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
    }
    client := redis.NewClient(opts)
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        return nil
    }
    return client
}
