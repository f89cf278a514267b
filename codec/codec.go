// Package codec serializes cached values to bytes.
//
// Codec[V] implementations are plain serializers. Versioned wraps one of them
// with the two-byte format tag the cache writes in front of every stored value,
// so blobs written by an incompatible codec generation read back as misses.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
