// Package lru holds the resident index of the cache frontend: a map from
// storage key to decoded value ordered by last access.
//
// Index is not safe for concurrent use; the frontend serializes all calls.
package lru

import (
	"container/list"
	"time"
)

type entry[V any] struct {
	key   string
	value V
	at    time.Time
}

// Index orders entries from least to most recently accessed. Both Get and Set
// move an entry to the most recent end, so two entries never share a
// position: ties on the clock resolve by access order.
type Index[V any] struct {
	ll    *list.List // front = least recent
	items map[string]*list.Element
	now   func() time.Time
}

// New returns an empty index. now stamps accesses; nil means time.Now.
func New[V any](now func() time.Time) *Index[V] {
	if now == nil {
		now = time.Now
	}
	return &Index[V]{ll: list.New(), items: make(map[string]*list.Element), now: now}
}

// Get returns the value for key and marks it most recently used.
func (x *Index[V]) Get(key string) (V, bool) {
	el, ok := x.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	e := el.Value.(*entry[V])
	e.at = x.now()
	x.ll.MoveToBack(el)
	return e.value, true
}

// Peek returns the value for key without touching its recency.
func (x *Index[V]) Peek(key string) (V, bool) {
	el, ok := x.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	return el.Value.(*entry[V]).value, true
}

// Set inserts or replaces key and marks it most recently used.
func (x *Index[V]) Set(key string, value V) {
	if el, ok := x.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.at = x.now()
		x.ll.MoveToBack(el)
		return
	}
	x.items[key] = x.ll.PushBack(&entry[V]{key: key, value: value, at: x.now()})
}

func (x *Index[V]) Remove(key string) bool {
	el, ok := x.items[key]
	if !ok {
		return false
	}
	x.ll.Remove(el)
	delete(x.items, key)
	return true
}

func (x *Index[V]) Len() int { return len(x.items) }

// Keys lists resident keys, least recently used first.
func (x *Index[V]) Keys() []string {
	out := make([]string, 0, len(x.items))
	for el := x.ll.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry[V]).key)
	}
	return out
}

// AccessedAt reports the last Get or Set time of key.
func (x *Index[V]) AccessedAt(key string) (time.Time, bool) {
	el, ok := x.items[key]
	if !ok {
		return time.Time{}, false
	}
	return el.Value.(*entry[V]).at, true
}

// EvictTo drops least recently used entries until at most threshold remain
// and returns the dropped keys in eviction order.
func (x *Index[V]) EvictTo(threshold int) []string {
	if threshold < 0 {
		threshold = 0
	}
	n := len(x.items) - threshold
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	for len(x.items) > threshold {
		el := x.ll.Front()
		e := el.Value.(*entry[V])
		x.ll.Remove(el)
		delete(x.items, e.key)
		out = append(out, e.key)
	}
	return out
}
