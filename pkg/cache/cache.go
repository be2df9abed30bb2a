// Package cache provides byte-level caching of registry responses.
//
// The crates.io ranking is fetched page by page; each page is stored under a
// key built by a [Keyer] so repeated generation runs within the TTL reuse the
// same ranking instead of hitting the registry again. Backends:
//
//   - [FileCache]: one JSON file per entry, for local CLI use
//   - [RedisCache]: shared cache for CI runners regenerating the manifest
//   - [NullCache]: disables caching (--no-cache, tests)
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte payloads with an optional TTL.
// A ttl of 0 means the entry does not expire.
type Cache interface {
	// Get returns the payload for key. The bool reports a hit; a miss is
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}
