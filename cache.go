package assetcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/unkn0wn-root/assetcache/backend"
	c "github.com/unkn0wn-root/assetcache/codec"
	"github.com/unkn0wn-root/assetcache/internal/lru"
	"github.com/unkn0wn-root/assetcache/keycodec"
)

type cache[V any] struct {
	ns       string
	backend  backend.Backend
	keys     *keycodec.Codec
	digest   bool
	codec    c.Versioned[V]
	log      Logger
	hooks    Hooks
	skip     func(V) bool
	maxSize  int
	gcThresh int

	mu sync.Mutex // serializes index mutation and backend I/O
	// resident entries hold the encoded blob; every hit decodes its own copy
	idx       *lru.Index[[]byte]
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

func newCache[V any](ctx context.Context, opts Options[V]) (*cache[V], error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("assetcache: backend is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("assetcache: namespace is required")
	}
	if opts.MaxSize < 0 {
		return nil, fmt.Errorf("assetcache: max size must not be negative, got %d", opts.MaxSize)
	}
	kc, err := keycodec.New(opts.Namespace, coalesce(opts.Version, defaultVersion))
	if err != nil {
		return nil, fmt.Errorf("assetcache: %w", err)
	}

	var inner c.Codec[V] = c.Msgpack[V]{}
	if opts.Codec != nil {
		inner = opts.Codec
	}
	if opts.MaxValueSize > 0 {
		inner = c.Limit[V]{Inner: inner, MaxDecode: opts.MaxValueSize}
	}

	cc := &cache[V]{
		ns:      opts.Namespace,
		backend: opts.Backend,
		keys:    kc,
		codec:   c.NewVersioned(inner, coalesce(opts.FormatVersion, c.DefaultVersion)),
		idx:     lru.New[[]byte](opts.Now),
	}

	// defaults
	cc.log = coalesce[Logger](opts.Logger, NopLogger{})
	cc.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	cc.maxSize = coalesce(opts.MaxSize, defaultMaxSize)
	cc.gcThresh = max(1, cc.maxSize*9/10)
	cc.skip = isBlank[V]
	if opts.Skip != nil {
		cc.skip = opts.Skip
	}
	_, limited := opts.Backend.(backend.KeyLimiter)
	cc.digest = opts.DigestKeys || limited

	if err := cc.load(ctx); err != nil {
		return nil, err
	}
	return cc, nil
}

// load fills the index from every entry the backend holds. Engines that
// record write order report oldest first, so the newest entries end up most
// recently used.
func (cc *cache[V]) load(ctx context.Context) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	start := time.Now()
	var loaded, skipped int
	err := cc.backend.ForEach(ctx, func(k, raw []byte) error {
		if !cc.keys.Owns(k) {
			return nil // another namespace or version sharing the store
		}
		// raw belongs to the engine
		blob := bytes.Clone(raw)
		if _, err := cc.decode(blob); err != nil {
			skipped++
			cc.rejected(string(k), err)
			return nil
		}
		cc.idx.Set(string(k), blob)
		loaded++
		return nil
	})
	if err != nil {
		return &BackendError{Op: "load", Err: err}
	}

	cc.safe(func() {
		cc.log.Info("cache loaded", Fields{
			"namespace": cc.ns, "loaded": loaded, "skipped": skipped,
			"elapsed": time.Since(start),
		})
	})
	cc.safe(func() { cc.hooks.Loaded(cc.ns, loaded, skipped) })
	cc.evictIfNeeded(ctx)
	return nil
}

func (cc *cache[V]) Get(ctx context.Context, key any) (V, bool, error) {
	var zero V
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.closed {
		return zero, false, ErrClosed
	}

	sk, err := cc.storageKey(key)
	if err != nil {
		return zero, false, err
	}
	if blob, ok := cc.idx.Get(sk); ok {
		v, err := cc.decode(blob)
		if err != nil {
			cc.idx.Remove(sk)
			cc.rejected(sk, err)
			return zero, false, nil
		}
		return v, true, nil
	}

	raw, ok, err := cc.backend.Get(ctx, []byte(sk))
	if err != nil {
		return zero, false, &BackendError{Op: "get", Key: sk, Err: err}
	}
	if !ok {
		return zero, false, nil
	}
	v, err := cc.decode(raw)
	if err != nil {
		// left in place: a writer with a matching format may still use it
		cc.rejected(sk, err)
		return zero, false, nil
	}
	cc.idx.Set(sk, bytes.Clone(raw))
	cc.evictIfNeeded(ctx)
	return v, true, nil
}

func (cc *cache[V]) Set(ctx context.Context, key any, value V) (V, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.closed {
		return value, ErrClosed
	}
	if cc.skip(value) {
		return value, nil
	}

	sk, err := cc.storageKey(key)
	if err != nil {
		return value, err
	}
	b, err := cc.codec.Encode(value)
	if err != nil {
		return value, fmt.Errorf("assetcache: encode value: %w", err)
	}
	// a value this cache could not read back is never persisted
	if _, err := cc.decode(b); err != nil {
		return value, fmt.Errorf("assetcache: value does not round-trip: %w", err)
	}
	if err := cc.backend.Set(ctx, []byte(sk), b); err != nil {
		cc.safe(func() { cc.hooks.BackendSetFailed(sk, err) })
		return value, &BackendError{Op: "set", Key: sk, Err: err}
	}
	cc.idx.Set(sk, b)
	cc.evictIfNeeded(ctx)
	return value, nil
}

func (cc *cache[V]) Len() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.idx.Len()
}

func (cc *cache[V]) Close(ctx context.Context) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.closed = true
	cc.closeOnce.Do(func() { cc.closeErr = cc.backend.Close(ctx) })
	return cc.closeErr
}

// decode reads a copy of blob, so decoders that alias their input never
// share memory with the index.
func (cc *cache[V]) decode(blob []byte) (V, error) {
	return cc.codec.Decode(bytes.Clone(blob))
}

func (cc *cache[V]) storageKey(key any) (string, error) {
	if cc.digest {
		return cc.keys.Digest(key)
	}
	b, err := cc.keys.Native(key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// evictIfNeeded trims the index to the GC threshold once it exceeds MaxSize
// and removes the victims from the backend. Delete failures are reported,
// never returned.
func (cc *cache[V]) evictIfNeeded(ctx context.Context) {
	if cc.idx.Len() <= cc.maxSize {
		return
	}
	start := time.Now()
	victims := cc.idx.EvictTo(cc.gcThresh)
	failed := cc.deleteDurable(ctx, victims)
	elapsed := time.Since(start)

	cc.safe(func() {
		cc.log.Info("evicted least recently used entries", Fields{
			"namespace": cc.ns, "removed": len(victims), "failed": failed,
			"resident": cc.idx.Len(), "elapsed": elapsed,
		})
	})
	cc.safe(func() { cc.hooks.Evicted(cc.ns, len(victims), elapsed) })
}

func (cc *cache[V]) deleteDurable(ctx context.Context, keys []string) (failed int) {
	if len(keys) == 0 {
		return 0
	}
	if bd, ok := cc.backend.(backend.BatchDeleter); ok {
		raw := make([][]byte, len(keys))
		for i, k := range keys {
			raw[i] = []byte(k)
		}
		err := bd.DelMany(ctx, raw)
		if err == nil {
			return 0
		}
		cc.safe(func() {
			cc.log.Warn("batch delete failed; deleting one by one", Fields{"namespace": cc.ns, "count": len(keys), "err": err})
		})
	}
	for _, k := range keys {
		if err := cc.backend.Del(ctx, []byte(k)); err != nil {
			failed++
			cc.safe(func() { cc.log.Warn("evict delete failed", Fields{"key": k, "err": err}) })
			cc.safe(func() { cc.hooks.EvictDeleteFailed(k, err) })
		}
	}
	return failed
}

func (cc *cache[V]) rejected(sk string, err error) {
	reason := "value_decode"
	switch {
	case errors.Is(err, c.ErrFormatVersion):
		reason = "format_version"
	case errors.Is(err, c.ErrCorrupt):
		reason = "corrupt"
	}
	cc.safe(func() { cc.log.Debug("stored value rejected", Fields{"key": sk, "reason": reason, "err": err}) })
	cc.safe(func() { cc.hooks.DecodeRejected(sk, reason) })
}

// safe runs a logger or hook call, swallowing panics.
func (cc *cache[V]) safe(fn func()) {
	defer func() { _ = recover() }()
	fn()
}
