package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/assetcache/backend"
)

func newTestRedis(t *testing.T, prefix string) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	r, err := New(Config{Client: client, CloseClient: true, Prefix: prefix, ScanCount: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r, mr
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrNilClient)
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t, "assets@1")

	_, ok, err := r.Get(ctx, []byte("assets@1/ab/abc"))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, r.Set(ctx, []byte("assets@1/ab/abc"), []byte{0x01, 0x00, 'x'}))
	v, ok, err := r.Get(ctx, []byte("assets@1/ab/abc"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{0x01, 0x00, 'x'}, v)
	require.Zero(t, mr.TTL("assets@1/ab/abc"), "entries never expire")

	require.NoError(t, r.Del(ctx, []byte("assets@1/ab/abc")))
	require.False(t, mr.Exists("assets@1/ab/abc"))
}

func TestForEachHonorsPrefix(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t, "assets@1")

	for _, k := range []string{"assets@1/aa/1", "assets@1/bb/2", "assets@1/cc/3"} {
		require.NoError(t, r.Set(ctx, []byte(k), []byte("v")))
	}
	require.NoError(t, mr.Set("assets@2/aa/1", "other version"))
	require.NoError(t, mr.Set("unrelated", "x"))

	var got []string
	require.NoError(t, r.ForEach(ctx, func(k, v []byte) error {
		require.Equal(t, []byte("v"), v)
		got = append(got, string(k))
		return nil
	}))
	require.ElementsMatch(t, []string{"assets@1/aa/1", "assets@1/bb/2", "assets@1/cc/3"}, got)
}

func TestForEachStop(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRedis(t, "")
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, r.Set(ctx, []byte(k), []byte("v")))
	}
	n := 0
	require.NoError(t, r.ForEach(ctx, func(_, _ []byte) error {
		n++
		return backend.ErrStop
	}))
	require.Equal(t, 1, n)
}

func TestDelMany(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t, "")
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, r.Set(ctx, []byte(k), []byte("v")))
	}
	require.NoError(t, r.DelMany(ctx, [][]byte{[]byte("a"), []byte("b")}))
	require.Equal(t, []string{"c"}, mr.Keys())
	require.NoError(t, r.DelMany(ctx, nil))
}

func TestServerErrorsSurface(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t, "")
	mr.SetError("LOADING")
	_, _, err := r.Get(ctx, []byte("k"))
	require.Error(t, err)
	require.Error(t, r.Set(ctx, []byte("k"), []byte("v")))
}

func TestEscapeGlob(t *testing.T) {
	require.Equal(t, `a\*b\?\[c\]\\`, escapeGlob(`a*b?[c]\`))
}

func TestCloseIsIdempotent(t *testing.T) {
	r, _ := newTestRedis(t, "")
	require.NoError(t, r.Close(context.Background()))
	require.NoError(t, r.Close(context.Background()))
}
