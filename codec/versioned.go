package codec

import (
	"fmt"

	"github.com/unkn0wn-root/assetcache/internal/wire"
)

// Version identifies the generation of a stored value's encoding.
type Version = wire.Version

// DefaultVersion is the format tag written when none is configured.
var DefaultVersion = Version{Major: 1, Minor: 0}

var (
	// ErrFormatVersion reports a blob written by an incompatible codec generation.
	ErrFormatVersion = wire.ErrVersion
	// ErrCorrupt reports a blob too short to carry a version tag.
	ErrCorrupt = wire.ErrCorrupt
)

// Versioned prefixes Inner's output with a two-byte major/minor tag and
// validates it on Decode. A blob is accepted when its major version equals
// Version.Major and its minor version is not greater than Version.Minor.
type Versioned[V any] struct {
	Inner   Codec[V]
	Version Version
}

func NewVersioned[V any](inner Codec[V], v Version) Versioned[V] {
	return Versioned[V]{Inner: inner, Version: v}
}

func (c Versioned[V]) Encode(v V) ([]byte, error) {
	payload, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	return wire.Encode(c.Version, payload), nil
}

func (c Versioned[V]) Decode(b []byte) (V, error) {
	var zero V
	payload, err := wire.Decode(c.Version, b)
	if err != nil {
		if tag, terr := wire.Tag(b); terr == nil && err == wire.ErrVersion {
			return zero, fmt.Errorf("%w: got %d.%d, want %d.%d",
				err, tag.Major, tag.Minor, c.Version.Major, c.Version.Minor)
		}
		return zero, err
	}
	return c.Inner.Decode(payload)
}
