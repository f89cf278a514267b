package assetcache

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them while holding its lock; panics are swallowed.
type Hooks interface {
	// A stored blob could not be decoded and was served as a miss.
	// reason ∈ {"format_version", "corrupt", "value_decode"}
	DecodeRejected(storageKey, reason string)

	// The Backend refused a write; the value was not cached.
	BackendSetFailed(storageKey string, err error)

	// Deleting an evicted entry from the Backend failed. The entry is no
	// longer resident but its durable copy remains.
	EvictDeleteFailed(storageKey string, err error)

	// An eviction cycle finished.
	Evicted(namespace string, removed int, elapsed time.Duration)

	// The initial bulk load finished. skipped counts undecodable blobs.
	Loaded(namespace string, loaded, skipped int)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) DecodeRejected(string, string)      {}
func (NopHooks) BackendSetFailed(string, error)     {}
func (NopHooks) EvictDeleteFailed(string, error)    {}
func (NopHooks) Evicted(string, int, time.Duration) {}
func (NopHooks) Loaded(string, int, int)            {}
