package assetcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/assetcache/backend"
	c "github.com/unkn0wn-root/assetcache/codec"
)

// Cache is the get/set contract pipeline code consumes. Keys are structured
// values (see keycodec); V is the caller's value type.
type Cache[V any] interface {
	// Get returns the value for key. Values that cannot be decoded (written
	// by another format version, truncated, or of another shape) are misses.
	Get(ctx context.Context, key any) (v V, ok bool, err error)
	// Set persists value under key and returns it. Blank values are not
	// stored: the call is a no-op and any earlier value is kept.
	Set(ctx context.Context, key any, value V) (V, error)
	// Len is the number of resident entries.
	Len() int
	// Close releases the Backend. Further Get/Set calls return ErrClosed.
	Close(ctx context.Context) error
}

// Options configure a cache. Only Namespace and Backend are required.
type Options[V any] struct {
	// Required
	Namespace string          // logical namespace, [A-Za-z0-9._-]
	Backend   backend.Backend // opened by the caller; New takes ownership

	Version       string       // key space version; "" => "1"
	Codec         c.Codec[V]   // payload serializer; nil => msgpack
	FormatVersion c.Version    // value format tag; zero => codec.DefaultVersion
	MaxSize       int          // resident entries; 0 => 10000
	MaxValueSize  int          // refuse to decode larger payloads; 0 => unlimited
	DigestKeys    bool         // force digest keys even if the engine has no key limit
	Logger        Logger       // if nil, NopLogger is used
	Hooks         Hooks        // if nil, NopHooks is used
	Skip          func(V) bool // values Set ignores; nil => nil and false
	Now           func() time.Time
}

const (
	defaultMaxSize = 10000
	defaultVersion = "1"
)

// New builds a cache over opts.Backend and loads every entry it holds into
// the resident index, evicting right away if the store already exceeds
// MaxSize. If New fails the Backend is left open.
func New[V any](ctx context.Context, opts Options[V]) (Cache[V], error) {
	return newCache[V](ctx, opts)
}
