// Package backend defines the durable storage abstraction used by assetcache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation). If a store performs internal transforms
// (e.g., compression), they MUST be fully reversed.
//
// Keys are produced by the keycodec package and are prefixed with
// "<namespace>@<version>". External code MUST NOT write under those prefixes.
package backend

import (
	"context"
	"errors"
)

// ErrStop may be returned from a ForEach callback to end the iteration early.
// ForEach then returns nil.
var ErrStop = errors.New("backend: stop iteration")

// Backend is a durable byte store.
// The cache serializes every call, so implementations only need to be safe
// for sequential use from multiple goroutines.
type Backend interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key []byte) ([]byte, bool, error)

	// Set durably stores value under key, replacing any previous value.
	// When Set returns nil the pair must survive a process restart.
	Set(ctx context.Context, key, value []byte) error

	// Del removes a key. Deleting a missing key is not an error.
	Del(ctx context.Context, key []byte) error

	// ForEach calls fn for every stored pair. Engines that record write
	// times visit least-recently-written pairs first. fn must not retain
	// key or value after it returns unless it copies them.
	ForEach(ctx context.Context, fn func(key, value []byte) error) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// KeyLimiter is implemented by engines that cannot store arbitrary-length
// keys. The cache switches to fixed-width digest keys for them.
type KeyLimiter interface {
	MaxKeyLen() int
}

// BatchDeleter is implemented by engines that can remove many keys as one
// atomic durable operation. Eviction uses it when available.
type BatchDeleter interface {
	DelMany(ctx context.Context, keys [][]byte) error
}
