package wire

import (
	"errors"
)

// TagLen is the size of the format-version tag that prefixes every stored value.
const TagLen = 2

var (
	ErrCorrupt = errors.New("assetcache: corrupt entry")
	ErrVersion = errors.New("assetcache: format version mismatch")
)

// Version identifies the generation of the serialization format.
// Major changes are incompatible; minor changes only add.
type Version struct {
	Major byte
	Minor byte
}

// Accepts reports whether a blob tagged with other can be read by v.
func (v Version) Accepts(other Version) bool {
	return other.Major == v.Major && other.Minor <= v.Minor
}

// Value: major(1) | minor(1) | payload
func Encode(v Version, payload []byte) []byte {
	out := make([]byte, 0, TagLen+len(payload))
	out = append(out, v.Major, v.Minor)
	return append(out, payload...)
}

// Tag returns the version tag of b without validating it.
func Tag(b []byte) (Version, error) {
	if len(b) < TagLen {
		return Version{}, ErrCorrupt
	}
	return Version{Major: b[0], Minor: b[1]}, nil
}

// Decode validates the tag against want and returns the payload.
// The payload aliases b.
func Decode(want Version, b []byte) ([]byte, error) {
	got, err := Tag(b)
	if err != nil {
		return nil, err
	}
	if !want.Accepts(got) {
		return nil, ErrVersion
	}
	return b[TagLen:], nil
}
