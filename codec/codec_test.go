package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type asset struct {
	Filename string   `json:"filename" msgpack:"filename" cbor:"filename"`
	Deps     []string `json:"deps" msgpack:"deps" cbor:"deps"`
	Length   int      `json:"length" msgpack:"length" cbor:"length"`
}

func TestVersionedMajorBumpRejects(t *testing.T) {
	v1 := NewVersioned[asset](Msgpack[asset]{}, Version{Major: 1, Minor: 0})
	v2 := NewVersioned[asset](Msgpack[asset]{}, Version{Major: 2, Minor: 0})

	b, err := v1.Encode(asset{Filename: "a.js"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = v2.Decode(b)
	if !errors.Is(err, ErrFormatVersion) {
		t.Fatalf("major 2 reader should reject major 1 blob, got %v", err)
	}
	if !strings.Contains(err.Error(), "got 1.0, want 2.0") {
		t.Fatalf("error should name both versions: %v", err)
	}
}

func TestVersionedMinorForwardCompatible(t *testing.T) {
	old := NewVersioned[asset](Msgpack[asset]{}, Version{Major: 1, Minor: 1})
	cur := NewVersioned[asset](Msgpack[asset]{}, Version{Major: 1, Minor: 3})

	want := asset{Filename: "app.css", Deps: []string{"reset.css"}, Length: 42}
	b, err := old.Encode(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := cur.Decode(b)
	if err != nil {
		t.Fatalf("1.3 reader should accept 1.1 blob: %v", err)
	}
	if got.Filename != want.Filename || got.Length != want.Length || len(got.Deps) != 1 {
		t.Fatalf("got %+v want %+v", got, want)
	}

	newer, _ := cur.Encode(want)
	if _, err := old.Decode(newer); !errors.Is(err, ErrFormatVersion) {
		t.Fatalf("1.1 reader should reject 1.3 blob, got %v", err)
	}
}

func TestVersionedShortBlob(t *testing.T) {
	c := NewVersioned[string](String{}, DefaultVersion)
	if _, err := c.Decode([]byte{1}); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestMsgpackAnyRoundTrip(t *testing.T) {
	c := NewVersioned[any](Msgpack[any]{}, DefaultVersion)
	in := map[string]any{"source": "var a;", "length": 6}
	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok || m["source"] != "var a;" {
		t.Fatalf("unexpected decode %#v", out)
	}
}

func TestCBORDeterministicMaps(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	a, err := c.Encode(map[string]int{"b": 2, "a": 1, "c": 3})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		b, err := c.Encode(map[string]int{"c": 3, "a": 1, "b": 2})
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a, b) {
			t.Fatalf("deterministic encoding differs: %x vs %x", a, b)
		}
	}
}

func TestLimitRejectsOversized(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 4}
	if _, err := c.Decode([]byte("12345")); err == nil {
		t.Fatalf("expected size error")
	}
	if s, err := c.Decode([]byte("1234")); err != nil || s != "1234" {
		t.Fatalf("got %q err=%v", s, err)
	}
	unlimited := Limit[string]{Inner: String{}}
	if _, err := unlimited.Decode(bytes.Repeat([]byte("x"), 1<<16)); err != nil {
		t.Fatalf("MaxDecode=0 should not limit: %v", err)
	}
}

func TestProtobufRoundTrip(t *testing.T) {
	c := NewVersioned[*wrapperspb.StringValue](
		NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} }),
		DefaultVersion,
	)
	b, err := c.Encode(wrapperspb.String("sha256-abc"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.GetValue() != "sha256-abc" {
		t.Fatalf("got %q", got.GetValue())
	}
}

func TestJSONAndBytes(t *testing.T) {
	j := JSON[asset]{}
	b, err := j.Encode(asset{Filename: "x"})
	if err != nil || !bytes.Contains(b, []byte(`"filename":"x"`)) {
		t.Fatalf("json encode: %s err=%v", b, err)
	}
	raw := []byte{0, 1, 2}
	if out, _ := (Bytes{}).Decode(raw); !bytes.Equal(out, raw) {
		t.Fatalf("bytes codec must be identity")
	}
}
