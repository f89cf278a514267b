// Package keycodec maps structured cache keys to storage keys.
//
// A cache key is any value CBOR can encode: strings, numbers, byte slices,
// slices, maps and structs of those. Keys are encoded with RFC 8949 Core
// Deterministic encoding, so equal keys always produce equal bytes and map
// keys are order-insensitive.
//
// Two storage forms are produced:
//
//	native: <namespace>@<version> NUL <cbor bytes>          engines without key limits
//	digest: <namespace>@<version>/<shard>/<base64url sha256>  length-constrained engines
//
// The shard is the first two characters of the digest. The namespace/version
// prefix keeps incompatible releases in disjoint key spaces of a shared store.
package keycodec

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// MaxDigestKeyLen is the upper bound on digest key length (memcached-style limit).
const MaxDigestKeyLen = 250

const (
	shardLen  = 2
	digestLen = 43 // base64.RawURLEncoding of 32 bytes
	sep       = '/'
	nativeSep = 0x00
)

var ErrInvalidNamespace = errors.New("keycodec: invalid namespace")

type Codec struct {
	prefix string
	enc    cbor.EncMode
}

// New builds a codec for namespace and version. Both must be non-empty and
// use only [A-Za-z0-9._-].
func New(namespace, version string) (*Codec, error) {
	if err := validPart(namespace); err != nil {
		return nil, fmt.Errorf("%w: namespace %q: %v", ErrInvalidNamespace, namespace, err)
	}
	if err := validPart(version); err != nil {
		return nil, fmt.Errorf("%w: version %q: %v", ErrInvalidNamespace, version, err)
	}
	prefix := namespace + "@" + version
	if l := len(prefix) + 1 + shardLen + 1 + digestLen; l > MaxDigestKeyLen {
		return nil, fmt.Errorf("%w: digest keys would be %d bytes (max %d)", ErrInvalidNamespace, l, MaxDigestKeyLen)
	}

	eo := cbor.CoreDetEncOptions()
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		return nil, err
	}
	return &Codec{prefix: prefix, enc: em}, nil
}

// Prefix returns "<namespace>@<version>".
func (c *Codec) Prefix() string { return c.prefix }

// Encode returns the deterministic byte encoding of key.
func (c *Codec) Encode(key any) ([]byte, error) {
	if key == nil {
		return nil, errors.New("keycodec: nil key")
	}
	b, err := c.enc.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("keycodec: encode key: %w", err)
	}
	return b, nil
}

// Native returns the prefixed raw encoding of key.
func (c *Codec) Native(key any) ([]byte, error) {
	b, err := c.Encode(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(c.prefix)+1+len(b))
	out = append(out, c.prefix...)
	out = append(out, nativeSep)
	return append(out, b...), nil
}

// Digest returns the fixed-width hashed form of key.
func (c *Codec) Digest(key any) (string, error) {
	b, err := c.Encode(key)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	d := base64.RawURLEncoding.EncodeToString(sum[:])

	var sb strings.Builder
	sb.Grow(len(c.prefix) + 1 + shardLen + 1 + len(d))
	sb.WriteString(c.prefix)
	sb.WriteByte(sep)
	sb.WriteString(d[:shardLen])
	sb.WriteByte(sep)
	sb.WriteString(d)
	return sb.String(), nil
}

// Owns reports whether storageKey was produced by this codec, in either form.
func (c *Codec) Owns(storageKey []byte) bool {
	if len(storageKey) <= len(c.prefix) || !bytes.HasPrefix(storageKey, []byte(c.prefix)) {
		return false
	}
	switch storageKey[len(c.prefix)] {
	case nativeSep:
		return true
	case sep:
		rest := storageKey[len(c.prefix)+1:]
		return len(rest) == shardLen+1+digestLen &&
			rest[shardLen] == sep &&
			bytes.Equal(rest[:shardLen], rest[shardLen+1:shardLen+1+shardLen])
	}
	return false
}

func validPart(s string) error {
	if s == "" {
		return errors.New("empty")
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '.', ch == '_', ch == '-':
		default:
			return fmt.Errorf("character %q not allowed", ch)
		}
	}
	return nil
}
