package memo

import "sync"

type statResult struct {
	info FileInfo
	ok   bool
}

// Registry holds the stat and entries results shared by every Facade built
// with it. Facades consult it only for paths outside their root.
type Registry struct {
	mu      sync.RWMutex
	stat    *Map[string, statResult]
	entries *Map[string, []string]
}

func NewRegistry() *Registry {
	return &Registry{
		stat:    NewMap[string, statResult](),
		entries: NewMap[string, []string](),
	}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// DefaultRegistry returns the process-wide registry, creating it on first
// use. It lives until the process exits or Reset is called.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() { defaultReg = NewRegistry() })
	return defaultReg
}

// Reset drops all shared results. Facades pick up the fresh maps on their
// next lookup.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stat = NewMap[string, statResult]()
	r.entries = NewMap[string, []string]()
}

func (r *Registry) statMap() *Map[string, statResult] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stat
}

func (r *Registry) entriesMap() *Map[string, []string] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries
}
