// Package cache provides the byte-oriented cache used for read-through
// barcode lookups, with in-memory and Redis implementations.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values with a TTL.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	Close() error
}

type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)

const keyPrefix = "barcodekeeper:"

// BarcodeKey is the cache key holding lookup results for barcode.
func BarcodeKey(barcode string) string {
	return keyPrefix + "barcode:" + barcode
}
