package config

import (
    "os"
    "strconv"
    "time"
)

// CacheConfig holds the knobs of the GET response cache.  The cache key
// is always the route plus its query string and only successful GET
// responses are stored, so the surface is just lifetime and sizing.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads the cache settings from the environment,
// falling back to defaults that suit the public seat-map and showtime
// reads this cache fronts.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      getenv("CACHE_ENABLED", "true") == "true",
        TTL:          parseDur(getenv("CACHE_TTL", "30s")),
        Prefix:       getenv("CACHE_PREFIX", "cache"),
        MaxBodyBytes: atoi(getenv("CACHE_MAX_BODY_BYTES", "1048576")),
    }
}

// Env helpers shared with ratelimit.go; a malformed duration falls back
// to one second rather than failing startup.
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

func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return time.Second
    }
    return d
}
