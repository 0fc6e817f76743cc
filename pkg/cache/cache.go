// Package cache stores fetched frame bytes and rendered artifacts.
//
// Backends implement [Cache]: [FileCache] for the CLI and desktop player,
// [MemoryCache] for a single server process that should not touch disk,
// [RedisCache] when several server processes share one frame store, and
// [NullCache] to disable caching. Keys are built by a [Keyer] so hosts can
// isolate namespaces with [ScopedKeyer].
package cache

import (
	"context"
	"fmt"
	"time"
)

// Default time-to-live values per artifact kind.
const (
	TTLFrame  = 7 * 24 * time.Hour // raw frame bytes; frame URLs are immutable assets
	TTLRender = 24 * time.Hour     // encoded renders of a sequence position
)

// Cache is a byte store with optional expiry.
//
// Get reports a miss with ok == false and a nil error. Implementations must
// be safe for concurrent use; the frame loader calls Get and Set from every
// worker of a batch.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Options selects and configures a backend for [Open].
type Options struct {
	Backend string // file, memory, redis or none; empty means file

	Dir string // FileCache directory

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open creates the cache backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendFile:
		if opts.Dir == "" {
			return nil, fmt.Errorf("file cache: directory is required")
		}
		fc, err := NewFileCache(opts.Dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	case BackendMemory:
		return NewMemoryCache(), nil
	case BackendRedis:
		rc, err := NewRedisCache(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err != nil {
			return nil, err
		}
		return rc, nil
	case BackendNone:
		return NewNullCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
