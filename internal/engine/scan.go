package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/unkn0wn-root/assetcache/backend"
	"github.com/unkn0wn-root/assetcache/internal/wire"
	"github.com/unkn0wn-root/assetcache/keycodec"
)

// Stats summarizes what a backend holds for one key codec.
type Stats struct {
	Entries  int   // entries under the codec's prefix
	Bytes    int64 // key + value bytes of those entries
	Readable int   // entries the configured format version accepts
	Foreign  int   // entries of other namespaces or versions
	Formats  map[wire.Version]int
}

// SortedFormats lists the format versions seen, ascending.
func (s Stats) SortedFormats() []wire.Version {
	out := make([]wire.Version, 0, len(s.Formats))
	for v := range s.Formats {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Major != out[j].Major {
			return out[i].Major < out[j].Major
		}
		return out[i].Minor < out[j].Minor
	})
	return out
}

// Scan walks every pair in be without decoding payloads.
func Scan(ctx context.Context, be backend.Backend, kc *keycodec.Codec, want wire.Version) (Stats, error) {
	st := Stats{Formats: make(map[wire.Version]int)}
	err := be.ForEach(ctx, func(k, v []byte) error {
		if !kc.Owns(k) {
			st.Foreign++
			return nil
		}
		st.Entries++
		st.Bytes += int64(len(k) + len(v))
		tag, err := wire.Tag(v)
		if err != nil {
			return nil // counted as an entry, but unreadable
		}
		st.Formats[tag]++
		if want.Accepts(tag) {
			st.Readable++
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("engine: scan: %w", err)
	}
	return st, nil
}

// Purge deletes every entry under kc's prefix and reports how many went.
func Purge(ctx context.Context, be backend.Backend, kc *keycodec.Codec) (int, error) {
	var keys [][]byte
	err := be.ForEach(ctx, func(k, _ []byte) error {
		if kc.Owns(k) {
			keys = append(keys, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("engine: purge: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if bd, ok := be.(backend.BatchDeleter); ok {
		if err := bd.DelMany(ctx, keys); err == nil {
			return len(keys), nil
		}
	}
	var errs []error
	n := 0
	for _, k := range keys {
		if err := be.Del(ctx, k); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}
