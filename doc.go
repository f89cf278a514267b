// Package assetcache implements a bounded, persistent key/value cache for
// derived build artifacts.
//
// Values are kept resident in an in-memory index capped at MaxSize entries
// and written through to a durable Backend. When the index grows past
// MaxSize, least recently used entries are evicted (from memory and from the
// Backend) until 90% of MaxSize remain. Opening a cache reads every entry the
// Backend already holds, so recency and contents survive restarts.
//
// Components:
//   - backend.Backend: durable byte store (sqlite, files, Redis, bigcache).
//   - keycodec.Codec: structured key -> storage key. Engines that report a
//     key limit get fixed-width digest keys, others get native keys.
//   - codec.Versioned[V]: value serializer with a two-byte major/minor tag.
//     Blobs from an incompatible format generation read as misses.
//
// Keys:
//
//	<namespace>@<version> NUL <cbor>            native
//	<namespace>@<version>/<shard>/<sha256>      digest
//
// Usage:
//
//	be, _ := sqlite.Open(ctx, sqlite.Config{Path: "cache.db"})
//	c, _ := assetcache.New[Artifact](ctx, assetcache.Options[Artifact]{
//		Namespace: "assets", Backend: be,
//	})
//	defer c.Close(ctx)
//	_, _ = c.Set(ctx, []any{"compile", path, digest}, art)
package assetcache
