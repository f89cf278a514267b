package memo

import (
	"io/fs"
	"slices"
	"time"
)

// FileInfo is the metadata Stat reports for a path.
type FileInfo struct {
	Path    string
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
}

func (fi FileInfo) IsDir() bool { return fi.Mode.IsDir() }

// Asset is the loaded content behind a URI.
type Asset struct {
	URI    string
	Path   string
	Source []byte
	Digest string // hex sha256 of Source
}

// Config is the state an environment's lookups depend on.
type Config struct {
	Root    string
	Version string
	Paths   []string
}

func (c Config) clone() Config {
	c.Paths = slices.Clone(c.Paths)
	return c
}

// Environment is the read-only lookup surface the asset pipeline uses.
// Stat reports ok=false for a missing path; Entries lists names, sorted.
type Environment interface {
	Root() string
	Stat(path string) (info FileInfo, ok bool, err error)
	Entries(path string) ([]string, error)
	FileDigest(path string) (string, error)
	Load(uri string) (Asset, error)
	ProcessorCacheKey(s string) (string, error)
	ResolveDependency(s string) (string, error)
}

// Configured is implemented by environments that expose their
// configuration. A Facade snapshots it at construction.
type Configured interface {
	Config() Config
}

// Snapshotter is implemented by mutable environments. Snapshot returns a
// copy whose configuration no later mutation of the receiver affects; a
// Facade wraps that copy instead of the live environment.
type Snapshotter interface {
	Snapshot() Environment
}
