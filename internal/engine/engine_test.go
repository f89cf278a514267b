package engine

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/assetcache"
	"github.com/unkn0wn-root/assetcache/backend/bigcache"
	"github.com/unkn0wn-root/assetcache/backend/fsstore"
	"github.com/unkn0wn-root/assetcache/backend/redis"
	"github.com/unkn0wn-root/assetcache/backend/sqlite"
	"github.com/unkn0wn-root/assetcache/codec"
	"github.com/unkn0wn-root/assetcache/internal/config"
	"github.com/unkn0wn-root/assetcache/internal/wire"
)

func TestOpenBackendTypes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	mr := miniredis.RunT(t)

	tests := []struct {
		name  string
		setup func(*config.Config)
		check func(*testing.T, any)
	}{
		{
			name:  "sqlite",
			setup: func(c *config.Config) { c.Backend.Path = filepath.Join(dir, "c.db") },
			check: func(t *testing.T, b any) { assert.IsType(t, &sqlite.Store{}, b) },
		},
		{
			name:  "fs",
			setup: func(c *config.Config) { c.Backend = config.Backend{Type: config.BackendFS, Dir: filepath.Join(dir, "fs")} },
			check: func(t *testing.T, b any) { assert.IsType(t, &fsstore.Store{}, b) },
		},
		{
			name: "redis",
			setup: func(c *config.Config) {
				c.Backend = config.Backend{Type: config.BackendRedis, Redis: config.Redis{Addr: mr.Addr()}}
			},
			check: func(t *testing.T, b any) { assert.IsType(t, &redis.Redis{}, b) },
		},
		{
			name:  "memory",
			setup: func(c *config.Config) { c.Backend = config.Backend{Type: config.BackendMemory} },
			check: func(t *testing.T, b any) { assert.IsType(t, &bigcache.Store{}, b) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.setup(&cfg)
			be, err := OpenBackend(ctx, cfg)
			require.NoError(t, err)
			defer be.Close(ctx)
			tt.check(t, be)
		})
	}
}

func TestOpenBackendRedisUnreachable(t *testing.T) {
	cfg := config.Default()
	// nothing listens on port 1
	cfg.Backend = config.Backend{Type: config.BackendRedis, Redis: config.Redis{Addr: "127.0.0.1:1"}}
	_, err := OpenBackend(context.Background(), cfg)
	require.Error(t, err)
}

func TestNewCodec(t *testing.T) {
	for _, name := range []string{"msgpack", "cbor", "json"} {
		c, err := NewCodec(name)
		require.NoError(t, err, name)
		b, err := c.Encode(map[string]any{"a": "b"})
		require.NoError(t, err, name)
		v, err := c.Decode(b)
		require.NoError(t, err, name)
		assert.Equal(t, map[string]any{"a": "b"}, v, name)
	}
	_, err := NewCodec("gob")
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	for _, backend := range []string{"slog", "zap", "logrus"} {
		t.Run(backend, func(t *testing.T) {
			var buf bytes.Buffer
			l, flush, err := NewLogger(config.Log{Backend: backend, Level: "info"}, &buf)
			require.NoError(t, err)
			l.Debug("quiet", nil)
			l.Info("cache loaded", assetcache.Fields{"loaded": 7})
			_ = flush()
			out := buf.String()
			assert.Contains(t, out, "cache loaded")
			assert.Contains(t, out, "7")
			assert.NotContains(t, out, "quiet")
		})
	}
	_, _, err := NewLogger(config.Log{Backend: "zap", Level: "loud"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestOpenCacheScanPurge(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Backend.Path = filepath.Join(t.TempDir(), "c.db")
	cfg.MaxSize = 10

	c, err := OpenCache(ctx, cfg, nil, nil)
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		_, err := c.Set(ctx, []any{"asset", i}, map[string]any{"n": i})
		require.NoError(t, err)
	}
	require.NoError(t, c.Close(ctx))

	// an entry from another key space shares the store
	other := cfg
	other.Version = "2"
	c2, err := OpenCache(ctx, other, nil, nil)
	require.NoError(t, err)
	_, err = c2.Set(ctx, "x", "y")
	require.NoError(t, err)
	require.NoError(t, c2.Close(ctx))

	be, err := OpenBackend(ctx, cfg)
	require.NoError(t, err)
	defer be.Close(ctx)
	kc, err := KeyCodec(cfg)
	require.NoError(t, err)

	st, err := Scan(ctx, be, kc, codec.DefaultVersion)
	require.NoError(t, err)
	assert.Equal(t, 5, st.Entries)
	assert.Equal(t, 5, st.Readable)
	assert.Equal(t, 1, st.Foreign)
	assert.Positive(t, st.Bytes)
	assert.Equal(t, []wire.Version{{Major: 1, Minor: 0}}, st.SortedFormats())

	st, err = Scan(ctx, be, kc, wire.Version{Major: 2})
	require.NoError(t, err)
	assert.Zero(t, st.Readable)

	n, err := Purge(ctx, be, kc)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	st, err = Scan(ctx, be, kc, codec.DefaultVersion)
	require.NoError(t, err)
	assert.Zero(t, st.Entries)
	assert.Equal(t, 1, st.Foreign)
}
