// Package cache stores translations keyed by text hash, language pair and
// service so that unchanged fields are not sent to a provider twice.
package cache

import (
	"time"

	"github.com/ZaguanLabs/prismlate"
)

// Backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultKeyPrefix prefixes every key written to a shared store.
const DefaultKeyPrefix = "prismlate:"

// Lister is a cache whose contents can be enumerated for export.
type Lister interface {
	prismlate.TranslationCache
	Entries() (map[string]string, error)
}

// Config selects and configures a cache backend.
type Config struct {
	Backend    string
	TTL        time.Duration // Zero means entries never expire
	MaxEntries int           // Memory backend only, zero means unbounded
	RedisURL   string
	KeyPrefix  string
}

// New opens the cache described by cfg.
func New(cfg Config) (Lister, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewInMemoryCache(cfg.TTL, cfg.MaxEntries), nil
	case BackendRedis:
		return NewRedisCache(RedisConfig{URL: cfg.RedisURL, TTL: cfg.TTL, KeyPrefix: cfg.KeyPrefix})
	default:
		return nil, &prismlate.CacheError{Message: "unknown cache backend " + cfg.Backend}
	}
}
