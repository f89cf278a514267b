package memo

import (
	"path"
	"slices"
	"strings"
)

// Facade memoizes an Environment. Every lookup runs at most once per
// distinct input for the facade's lifetime; errors are memoized as well.
// Configuration is frozen: SetVersion and AppendPath always fail.
type Facade struct {
	env  Environment
	reg  *Registry
	cfg  Config
	root string

	stat       *Map[string, statResult]
	entries    *Map[string, []string]
	digest     *Map[string, string]
	load       *Map[string, Asset]
	processor  *Map[string, string]
	dependency *Map[string, string]
}

var _ Environment = (*Facade)(nil)

// NewFacade wraps env, or env.Snapshot() when env implements Snapshotter.
// A nil reg means DefaultRegistry().
func NewFacade(env Environment, reg *Registry) *Facade {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if s, ok := env.(Snapshotter); ok {
		env = s.Snapshot()
	}
	cfg := Config{Root: env.Root()}
	if c, ok := env.(Configured); ok {
		cfg = c.Config().clone()
	}
	return &Facade{
		env:        env,
		reg:        reg,
		cfg:        cfg,
		root:       cleanPath(env.Root()),
		stat:       NewMap[string, statResult](),
		entries:    NewMap[string, []string](),
		digest:     NewMap[string, string](),
		load:       NewMap[string, Asset](),
		processor:  NewMap[string, string](),
		dependency: NewMap[string, string](),
	}
}

func (f *Facade) Root() string { return f.root }

// Config returns a copy of the configuration captured at construction.
func (f *Facade) Config() Config { return f.cfg.clone() }

// Cached returns f; a facade is already a memoized snapshot.
func (f *Facade) Cached() *Facade { return f }

func (f *Facade) Stat(p string) (FileInfo, bool, error) {
	p = cleanPath(p)
	m := f.stat
	if !f.inRoot(p) {
		m = f.reg.statMap()
	}
	r, err := m.GetOrCompute(p, func() (statResult, error) {
		info, ok, err := f.env.Stat(p)
		return statResult{info: info, ok: ok}, err
	})
	return r.info, r.ok, err
}

// Entries returns a copy of the memoized listing.
func (f *Facade) Entries(p string) ([]string, error) {
	p = cleanPath(p)
	m := f.entries
	if !f.inRoot(p) {
		m = f.reg.entriesMap()
	}
	names, err := m.GetOrCompute(p, func() ([]string, error) { return f.env.Entries(p) })
	return slices.Clone(names), err
}

func (f *Facade) FileDigest(p string) (string, error) {
	p = cleanPath(p)
	return f.digest.GetOrCompute(p, func() (string, error) { return f.env.FileDigest(p) })
}

func (f *Facade) Load(uri string) (Asset, error) {
	a, err := f.load.GetOrCompute(uri, func() (Asset, error) { return f.env.Load(uri) })
	a.Source = slices.Clone(a.Source)
	return a, err
}

func (f *Facade) ProcessorCacheKey(s string) (string, error) {
	return f.processor.GetOrCompute(s, func() (string, error) { return f.env.ProcessorCacheKey(s) })
}

func (f *Facade) ResolveDependency(s string) (string, error) {
	return f.dependency.GetOrCompute(s, func() (string, error) { return f.env.ResolveDependency(s) })
}

func (f *Facade) SetVersion(string) error {
	return &ConfigError{Op: "set version", Err: ErrImmutable}
}

func (f *Facade) AppendPath(string) error {
	return &ConfigError{Op: "append path", Err: ErrImmutable}
}

// inRoot reports whether p is the root or below it. Relative paths are
// taken relative to the root.
func (f *Facade) inRoot(p string) bool {
	if !strings.HasPrefix(p, "/") || f.root == "/" {
		return true
	}
	return p == f.root || strings.HasPrefix(p, f.root+"/")
}

func cleanPath(p string) string {
	if p == "" {
		return "."
	}
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}
