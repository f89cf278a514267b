// Package asynchook moves hook delivery off the cache's lock onto worker
// goroutines. Events are dropped when the queue is full.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    DecodeRejectedEvery: 10, // sample logs: ~every 10th rejected blob
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := assetcache.New[Artifact](ctx, assetcache.Options[Artifact]{
//	    Namespace: "assets",
//	    Backend:   be,
//	    Hooks:     hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/assetcache"
)

type Hooks struct {
	inner   assetcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

var _ assetcache.Hooks = (*Hooks)(nil)

func New(inner assetcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				run(f)
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events raised after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped is the number of events lost to a full queue or a closed hook.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	defer func() {
		// send on closed channel
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

// run keeps a panicking hook from taking a worker down.
func run(f func()) {
	defer func() { _ = recover() }()
	f()
}

func (h *Hooks) DecodeRejected(k, r string) { h.try(func() { h.inner.DecodeRejected(k, r) }) }
func (h *Hooks) BackendSetFailed(k string, err error) {
	h.try(func() { h.inner.BackendSetFailed(k, err) })
}
func (h *Hooks) EvictDeleteFailed(k string, err error) {
	h.try(func() { h.inner.EvictDeleteFailed(k, err) })
}
func (h *Hooks) Evicted(ns string, n int, d time.Duration) {
	h.try(func() { h.inner.Evicted(ns, n, d) })
}
func (h *Hooks) Loaded(ns string, loaded, skipped int) {
	h.try(func() { h.inner.Loaded(ns, loaded, skipped) })
}
