// Package bigcache is an in-process Backend on top of allegro/bigcache.
//
// Nothing survives a restart, so a cache built on it starts empty every time.
// It suits tests and short-lived tools that want the frontend's bounded LRU
// without a database. Entries never expire; bigcache only drops them when
// HardMaxCacheSizeMB is reached, which the frontend treats like any other
// miss.
package bigcache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/assetcache/backend"
)

// bigcache evicts by age on writes; push the window past any process lifetime.
const forever = 100 * 365 * 24 * time.Hour

type Store struct {
	c         *bc.BigCache
	closeOnce sync.Once
}

var _ backend.Backend = (*Store)(nil)

type Config struct {
	Shards             int // power of two; 0 => 64
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	conf := bc.DefaultConfig(forever)
	conf.CleanWindow = 0
	conf.Verbose = false
	conf.Shards = 64
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	b, err := s.c.Get(string(key))
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) Set(_ context.Context, key, value []byte) error {
	return s.c.Set(string(key), value)
}

func (s *Store) Del(_ context.Context, key []byte) error {
	err := s.c.Delete(string(key))
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	return err
}

// ForEach snapshots all entries and visits them oldest write first. bigcache
// stamps entries with one-second resolution; ties keep shard order.
func (s *Store) ForEach(ctx context.Context, fn func(key, value []byte) error) error {
	type entry struct {
		key, value []byte
		ts         uint64
	}
	var entries []entry
	it := s.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			return err
		}
		entries = append(entries, entry{key: []byte(info.Key()), value: info.Value(), ts: info.Timestamp()})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ts < entries[j].ts })

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e.key, e.value); err != nil {
			if errors.Is(err, backend.ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (s *Store) Len() int { return s.c.Len() }

func (s *Store) Close(context.Context) error {
	var err error
	s.closeOnce.Do(func() { err = s.c.Close() })
	return err
}
