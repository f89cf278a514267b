package fsenv

import (
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/assetcache/memo"
)

func newTestFS(t *testing.T) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	files := map[string]string{
		"/app/js/a.js":      "console.log('a')",
		"/app/js/b.js":      "console.log('b')",
		"/app/js/.hidden":   "x",
		"/app/js/a.js~":     "backup",
		"/vendor/lib/up.js": "vendored",
	}
	for p, c := range files {
		require.NoError(t, util.WriteFile(fs, p, []byte(c), 0o644))
	}
	return fs
}

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	e, err := New(newTestFS(t), memo.Config{Root: "/app", Version: "1", Paths: []string{"js"}})
	require.NoError(t, err)
	return e
}

func TestStat(t *testing.T) {
	e := newTestEnv(t)
	fi, ok, err := e.Stat("js/a.js")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "/app/js/a.js", fi.Path)
	require.EqualValues(t, len("console.log('a')"), fi.Size)
	require.False(t, fi.IsDir())

	_, ok, err = e.Stat("/app/nope.js")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEntriesFiltersAndSorts(t *testing.T) {
	e := newTestEnv(t)
	names, err := e.Entries("/app/js")
	require.NoError(t, err)
	require.Equal(t, []string{"a.js", "b.js"}, names)

	names, err = e.Entries("/app/missing")
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestFileDigest(t *testing.T) {
	e := newTestEnv(t)
	d1, err := e.FileDigest("/app/js/a.js")
	require.NoError(t, err)
	require.Len(t, d1, 64)
	d2, err := e.FileDigest("/app/js/b.js")
	require.NoError(t, err)
	require.NotEqual(t, d1, d2)

	dir, err := e.FileDigest("/app/js")
	require.NoError(t, err)
	require.Equal(t, hexDigest([]byte("a.js\nb.js")), dir)

	_, err = e.FileDigest("/app/nope")
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	e := newTestEnv(t)
	a, err := e.Load("file:///app/js/a.js?type=application/javascript")
	require.NoError(t, err)
	require.Equal(t, "/app/js/a.js", a.Path)
	require.Equal(t, []byte("console.log('a')"), a.Source)
	require.Equal(t, hexDigest(a.Source), a.Digest)

	_, err = e.Load("https://example.com/a.js")
	require.ErrorIs(t, err, ErrUnsupportedURI)
}

func TestResolveDependency(t *testing.T) {
	e := newTestEnv(t)
	v, err := e.ResolveDependency("environment-version")
	require.NoError(t, err)
	require.Equal(t, "1", v)

	p, err := e.ResolveDependency("environment-paths")
	require.NoError(t, err)
	require.Equal(t, "/app/js", p)

	d, err := e.ResolveDependency("file-digest:///app/js/a.js")
	require.NoError(t, err)
	want, _ := e.FileDigest("/app/js/a.js")
	require.Equal(t, want, d)

	_, err = e.ResolveDependency("weird")
	require.ErrorIs(t, err, ErrUnknownDependency)
}

func TestProcessorCacheKeyTracksVersion(t *testing.T) {
	e := newTestEnv(t)
	k1, _ := e.ProcessorCacheKey("sass")
	require.NoError(t, e.SetVersion("2"))
	k2, _ := e.ProcessorCacheKey("sass")
	require.NotEqual(t, k1, k2)
}

func TestCachedSnapshot(t *testing.T) {
	fs := newTestFS(t)
	e, err := New(fs, memo.Config{Root: "/app", Version: "1"})
	require.NoError(t, err)
	reg := memo.NewRegistry()
	f := e.Cached(reg)

	_, ok, err := f.Stat("/app/js/a.js")
	require.NoError(t, err)
	require.True(t, ok)

	// the snapshot keeps answering from memory after the file goes away
	require.NoError(t, fs.Remove("/app/js/a.js"))
	_, ok, err = f.Stat("/app/js/a.js")
	require.NoError(t, err)
	require.True(t, ok)

	// the live environment sees the change, a fresh snapshot too
	_, ok, _ = e.Stat("/app/js/a.js")
	require.False(t, ok)
	_, ok, _ = e.Cached(reg).Stat("/app/js/a.js")
	require.False(t, ok)

	// shared paths outside the root are served from the registry
	names, err := f.Entries("/vendor/lib")
	require.NoError(t, err)
	require.Equal(t, []string{"up.js"}, names)
	require.NoError(t, fs.Remove("/vendor/lib/up.js"))
	names, err = e.Cached(reg).Entries("/vendor/lib")
	require.NoError(t, err)
	require.Equal(t, []string{"up.js"}, names)

	require.ErrorIs(t, f.SetVersion("2"), memo.ErrImmutable)
	require.NoError(t, e.SetVersion("2"))
	require.Equal(t, "1", f.Config().Version)
}

func TestCachedIgnoresLaterMutation(t *testing.T) {
	e := newTestEnv(t)
	want, err := e.ProcessorCacheKey("sass")
	require.NoError(t, err)
	f := e.Cached(memo.NewRegistry())

	require.NoError(t, e.SetVersion("2"))
	require.NoError(t, e.AppendPath("css"))

	v, err := f.ResolveDependency("environment-version")
	require.NoError(t, err)
	require.Equal(t, "1", v)
	p, err := f.ResolveDependency("environment-paths")
	require.NoError(t, err)
	require.Equal(t, "/app/js", p)
	k, err := f.ProcessorCacheKey("sass")
	require.NoError(t, err)
	require.Equal(t, want, k)
	require.Equal(t, memo.Config{Root: "/app", Version: "1", Paths: []string{"/app/js"}}, f.Config())

	// the live environment moved on
	v, err = e.ResolveDependency("environment-version")
	require.NoError(t, err)
	require.Equal(t, "2", v)
}
