// Package memo memoizes the lookups an asset environment performs while a
// build runs.
//
// A Facade wraps an Environment and answers each distinct input once; later
// calls with the same input return the stored result, error included. The
// filesystem view is assumed not to change while the facade lives. Paths
// outside the environment root (shared library directories) are memoized in
// a Registry common to every facade that uses it.
package memo

import (
	"fmt"
	"sync"
)

// Map computes a value at most once per key. The zero Map is ready to use
// and safe for concurrent callers.
type Map[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*cell[V]
}

type cell[V any] struct {
	once sync.Once
	v    V
	err  error
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{m: make(map[K]*cell[V])}
}

// GetOrCompute returns the stored result for k, calling fn to produce it
// the first time k is seen. Concurrent callers for the same k wait for the
// single fn call. A panic in fn is recovered and memoized as an error
// wrapping ErrComputePanicked.
func (m *Map[K, V]) GetOrCompute(k K, fn func() (V, error)) (V, error) {
	m.mu.Lock()
	if m.m == nil {
		m.m = make(map[K]*cell[V])
	}
	c, ok := m.m[k]
	if !ok {
		c = &cell[V]{}
		m.m[k] = c
	}
	m.mu.Unlock()

	c.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				var zero V
				c.v, c.err = zero, fmt.Errorf("%w: %v", ErrComputePanicked, r)
			}
		}()
		c.v, c.err = fn()
	})
	return c.v, c.err
}

// Len is the number of keys seen so far.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.m)
}
