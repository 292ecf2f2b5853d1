// Package keyedstore provides a TTL key/value store used as shared scratch
// memory for in-flight debounce state. Entries self-expire, bounding memory
// even under malformed or abandoned input streams.
package keyedstore

import (
	"context"
	"time"
)

// Store is the abstraction the debounce pipeline depends on. The semantics
// mirror Redis SETEX/GET/EXISTS/DEL: a value set with a TTL is observable
// until the TTL elapses and absent afterwards. Backend failures surface as
// errors, they are never reported as a missing key.
type Store interface {
	// Set stores value under key with the given lifetime, replacing any
	// existing entry and resetting its TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value for key and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
