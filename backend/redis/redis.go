// Package redis is a Backend on top of go-redis. Durability follows the
// server's persistence settings (RDB/AOF); entries never expire.
//
// Redis keys are kept compact: the store reports a key limit, so the cache
// writes fixed-width digest keys. ForEach scans keys under Config.Prefix with
// SCAN, in no particular order.
package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/assetcache/backend"
	"github.com/unkn0wn-root/assetcache/keycodec"
)

var ErrNilClient = errors.New("redis backend: nil client")

const defaultScanCount = 512

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
	match       string
	scanCount   int64
}

var (
	_ backend.Backend      = (*Redis)(nil)
	_ backend.KeyLimiter   = (*Redis)(nil)
	_ backend.BatchDeleter = (*Redis)(nil)
)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this backend exclusively owns the client
	// Prefix narrows ForEach to keys starting with it, usually the key
	// codec's "<namespace>@<version>". Empty scans the whole keyspace.
	Prefix string
	// ScanCount is the SCAN COUNT hint. 0 => 512.
	ScanCount int64
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	r := &Redis{
		rdb:         cfg.Client,
		closeClient: cfg.CloseClient,
		match:       escapeGlob(cfg.Prefix) + "*",
		scanCount:   cfg.ScanCount,
	}
	if r.scanCount <= 0 {
		r.scanCount = defaultScanCount
	}
	return r, nil
}

func (p *Redis) MaxKeyLen() int { return keycodec.MaxDigestKeyLen }

func (p *Redis) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, string(key)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (p *Redis) Set(ctx context.Context, key, value []byte) error {
	return p.rdb.Set(ctx, string(key), value, 0).Err()
}

func (p *Redis) Del(ctx context.Context, key []byte) error {
	return p.rdb.Del(ctx, string(key)).Err()
}

// DelMany removes all keys with a single DEL command.
func (p *Redis) DelMany(ctx context.Context, keys [][]byte) error {
	if len(keys) == 0 {
		return nil
	}
	ks := make([]string, len(keys))
	for i, k := range keys {
		ks[i] = string(k)
	}
	return p.rdb.Del(ctx, ks...).Err()
}

func (p *Redis) ForEach(ctx context.Context, fn func(key, value []byte) error) error {
	iter := p.rdb.Scan(ctx, 0, p.match, p.scanCount).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		v, err := p.rdb.Get(ctx, k).Bytes()
		if err == goredis.Nil {
			continue // deleted since the scan
		}
		if err != nil {
			return err
		}
		if err := fn([]byte(k), v); err != nil {
			if errors.Is(err, backend.ErrStop) {
				return nil
			}
			return err
		}
	}
	return iter.Err()
}

// Close releases the underlying redis client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// escapeGlob quotes the glob metacharacters SCAN MATCH understands.
func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
