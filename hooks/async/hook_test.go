package asynchook

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/assetcache"
)

type countHooks struct {
	assetcache.NopHooks
	mu      sync.Mutex
	evicted int
	failed  []string
	block   chan struct{}
}

func (c *countHooks) Evicted(_ string, n int, _ time.Duration) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.evicted += n
	c.mu.Unlock()
}

func (c *countHooks) EvictDeleteFailed(k string, _ error) {
	c.mu.Lock()
	c.failed = append(c.failed, k)
	c.mu.Unlock()
}

func (c *countHooks) DecodeRejected(string, string) { panic("boom") }

func TestDeliversAndDrains(t *testing.T) {
	inner := &countHooks{}
	h := New(inner, 2, 16)
	for i := 0; i < 10; i++ {
		h.Evicted("assets", 1, time.Millisecond)
	}
	h.EvictDeleteFailed("k", errors.New("x"))
	h.Close()

	if inner.evicted != 10 || len(inner.failed) != 1 {
		t.Fatalf("evicted=%d failed=%v", inner.evicted, inner.failed)
	}
	if h.Dropped() != 0 {
		t.Fatalf("dropped=%d", h.Dropped())
	}
}

func TestDropsWhenFull(t *testing.T) {
	inner := &countHooks{block: make(chan struct{})}
	h := New(inner, 1, 1)
	for i := 0; i < 10; i++ {
		h.Evicted("assets", 1, 0)
	}
	close(inner.block)
	h.Close()
	if h.Dropped() == 0 {
		t.Fatalf("expected drops with a full queue")
	}
	if uint64(inner.evicted)+h.Dropped() != 10 {
		t.Fatalf("delivered=%d dropped=%d", inner.evicted, h.Dropped())
	}
}

func TestPanickingHookKeepsWorkerAlive(t *testing.T) {
	inner := &countHooks{}
	h := New(inner, 1, 8)
	h.DecodeRejected("k", "corrupt")
	h.Evicted("assets", 3, 0)
	h.Close()
	if inner.evicted != 3 {
		t.Fatalf("worker died after panic: evicted=%d", inner.evicted)
	}
}

func TestAfterCloseDrops(t *testing.T) {
	h := New(&countHooks{}, 1, 1)
	h.Close()
	h.Close()
	h.Loaded("assets", 1, 0)
	if h.Dropped() != 1 {
		t.Fatalf("dropped=%d want 1", h.Dropped())
	}
}
