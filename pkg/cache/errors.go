package cache

import "errors"

// Sentinel errors for cache backends.
var (
	// ErrClosed is returned by operations on a cache after Close.
	ErrClosed = errors.New("cache closed")

	// ErrEmptyKey is returned when a caller passes an empty key.
	ErrEmptyKey = errors.New("cache key is empty")
)
