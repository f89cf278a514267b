// Package fsstore is a durable Backend that keeps one file per entry under a
// root directory of a go-billy filesystem.
//
// The store only accepts digest keys ("<namespace>@<version>/<shard>/<digest>"),
// which map directly to relative file paths. Writes go to a temp file in the
// target directory and are renamed into place, so readers never observe a
// partially written value. ForEach visits files oldest-mtime first (the
// rename keeps the temp file's write time); filesystems without real mtimes
// (memfs) fall back to lexical order.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/unkn0wn-root/assetcache/backend"
	"github.com/unkn0wn-root/assetcache/keycodec"
)

const (
	tmpPrefix = ".tmp-"
	// entries live under an absolute root inside the filesystem; osfs maps it
	// onto its base directory
	root = "/"
)

var ErrInvalidKey = errors.New("fsstore: invalid key")

type Store struct {
	fs     billy.Filesystem
	tmpSeq atomic.Uint64
}

var (
	_ backend.Backend    = (*Store)(nil)
	_ backend.KeyLimiter = (*Store)(nil)
)

type Config struct {
	// Dir is the cache root on the local disk. Ignored when FS is set.
	Dir string
	// FS overrides the filesystem (e.g. memfs in tests).
	FS billy.Filesystem
}

func Open(cfg Config) (*Store, error) {
	fs := cfg.FS
	if fs == nil {
		if cfg.Dir == "" {
			return nil, errors.New("fsstore: dir is required")
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("fsstore: create %s: %w", cfg.Dir, err)
		}
		fs = osfs.New(cfg.Dir, osfs.WithBoundOS())
	}
	return &Store{fs: fs}, nil
}

func (s *Store) MaxKeyLen() int { return keycodec.MaxDigestKeyLen }

func (s *Store) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	b, err := util.ReadFile(s.fs, p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) Set(_ context.Context, key, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	dir := path.Dir(p)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmpName := path.Join(dir, fmt.Sprintf("%s%d-%d", tmpPrefix, os.Getpid(), s.tmpSeq.Add(1)))
	tmp, err := s.fs.OpenFile(tmpName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return err
	}
	if err := s.fs.Rename(tmpName, p); err != nil {
		_ = s.fs.Remove(tmpName)
		return err
	}
	return nil
}

func (s *Store) Del(_ context.Context, key []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) ForEach(ctx context.Context, fn func(key, value []byte) error) error {
	type file struct {
		name string
		mod  time.Time
	}
	var files []file
	err := util.Walk(s.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), tmpPrefix) {
			return nil
		}
		files = append(files, file{name: strings.TrimPrefix(filepath.ToSlash(p), "/"), mod: info.ModTime()})
		return nil
	})
	if err != nil {
		return err
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := util.ReadFile(s.fs, root+f.name)
		if errors.Is(err, os.ErrNotExist) {
			continue // removed since the walk
		}
		if err != nil {
			return err
		}
		if err := fn([]byte(f.name), b); err != nil {
			if errors.Is(err, backend.ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Close is a no-op; files are closed after every operation.
func (s *Store) Close(context.Context) error { return nil }

// path turns a digest key into a relative file path, refusing anything that
// could escape the root.
func (s *Store) path(key []byte) (string, error) {
	k := string(key)
	if k == "" || len(k) > keycodec.MaxDigestKeyLen || strings.HasPrefix(k, "/") ||
		strings.ContainsRune(k, 0) || strings.Contains(k, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, k)
	}
	for _, part := range strings.Split(k, "/") {
		if part == "" || part == "." || part == ".." || strings.HasPrefix(part, tmpPrefix) {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, k)
		}
	}
	return root + k, nil
}
