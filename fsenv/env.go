// Package fsenv is an asset environment over a go-billy filesystem: osfs in
// production, memfs in tests.
//
// Env itself is mutable and does no memoization. Cached returns a
// memo.Facade snapshot to hand to a build run.
package fsenv

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/unkn0wn-root/assetcache/memo"
)

var (
	ErrUnsupportedURI    = errors.New("fsenv: unsupported uri")
	ErrUnknownDependency = errors.New("fsenv: unknown dependency")
)

type Env struct {
	fs  billy.Filesystem
	cfg memo.Config
}

var (
	_ memo.Environment = (*Env)(nil)
	_ memo.Configured  = (*Env)(nil)
	_ memo.Snapshotter = (*Env)(nil)
)

// New returns an environment rooted at cfg.Root ("" => "/"). Relative load
// paths are resolved against the root.
func New(fs billy.Filesystem, cfg memo.Config) (*Env, error) {
	if fs == nil {
		return nil, errors.New("fsenv: filesystem is required")
	}
	e := &Env{fs: fs, cfg: memo.Config{Version: cfg.Version}}
	e.cfg.Root = "/"
	if cfg.Root != "" {
		e.cfg.Root = path.Clean("/" + cfg.Root)
	}
	for _, p := range cfg.Paths {
		if err := e.AppendPath(p); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Env) Root() string { return e.cfg.Root }

func (e *Env) Config() memo.Config {
	c := e.cfg
	c.Paths = append([]string(nil), e.cfg.Paths...)
	return c
}

func (e *Env) SetVersion(v string) error {
	e.cfg.Version = v
	return nil
}

func (e *Env) AppendPath(p string) error {
	if p == "" {
		return errors.New("fsenv: empty load path")
	}
	e.cfg.Paths = append(e.cfg.Paths, e.abs(p))
	return nil
}

// Snapshot returns an Env over the same filesystem with a copy of the
// current configuration.
func (e *Env) Snapshot() memo.Environment {
	return &Env{fs: e.fs, cfg: e.Config()}
}

// Cached snapshots the environment. A nil reg means memo.DefaultRegistry().
func (e *Env) Cached(reg *memo.Registry) *memo.Facade {
	return memo.NewFacade(e, reg)
}

func (e *Env) Stat(p string) (memo.FileInfo, bool, error) {
	p = e.abs(p)
	fi, err := e.fs.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return memo.FileInfo{}, false, nil
	}
	if err != nil {
		return memo.FileInfo{}, false, err
	}
	return memo.FileInfo{Path: p, Size: fi.Size(), Mode: fi.Mode(), ModTime: fi.ModTime()}, true, nil
}

// Entries lists p sorted by name, hiding dotfiles and editor backups ("~").
// A missing directory lists as empty.
func (e *Env) Entries(p string) ([]string, error) {
	infos, err := e.fs.ReadDir(e.abs(p))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		n := fi.Name()
		if strings.HasPrefix(n, ".") || strings.HasSuffix(n, "~") {
			continue
		}
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// FileDigest is the hex sha256 of a file's contents, or of the newline
// joined listing for a directory.
func (e *Env) FileDigest(p string) (string, error) {
	p = e.abs(p)
	fi, err := e.fs.Stat(p)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		names, err := e.Entries(p)
		if err != nil {
			return "", err
		}
		return hexDigest([]byte(strings.Join(names, "\n"))), nil
	}
	b, err := util.ReadFile(e.fs, p)
	if err != nil {
		return "", err
	}
	return hexDigest(b), nil
}

// Load reads a file:// URI. The query string, if any, is kept in the
// returned URI but ignored for reading.
func (e *Env) Load(uri string) (memo.Asset, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return memo.Asset{}, fmt.Errorf("fsenv: parse %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return memo.Asset{}, fmt.Errorf("%w: %q", ErrUnsupportedURI, uri)
	}
	p := e.abs(u.Path)
	b, err := util.ReadFile(e.fs, p)
	if err != nil {
		return memo.Asset{}, err
	}
	return memo.Asset{URI: uri, Path: p, Source: b, Digest: hexDigest(b)}, nil
}

// ProcessorCacheKey derives a stable key for a processor identifier,
// scoped to the environment version.
func (e *Env) ProcessorCacheKey(s string) (string, error) {
	return hexDigest([]byte(e.cfg.Version + "\x00" + s)), nil
}

// ResolveDependency understands:
//
//	environment-version       the configured version
//	environment-paths         load paths joined with ":"
//	file-digest://<path>      FileDigest of path
func (e *Env) ResolveDependency(s string) (string, error) {
	switch {
	case s == "environment-version":
		return e.cfg.Version, nil
	case s == "environment-paths":
		return strings.Join(e.cfg.Paths, ":"), nil
	case strings.HasPrefix(s, "file-digest://"):
		return e.FileDigest(strings.TrimPrefix(s, "file-digest://"))
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDependency, s)
}

func (e *Env) abs(p string) string {
	if strings.HasPrefix(p, "/") {
		return path.Clean(p)
	}
	return path.Join(e.cfg.Root, p)
}

func hexDigest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
