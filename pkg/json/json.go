// Package json provides pooled JSON encoding helpers for Quasar
package json

import (
	"bytes"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/quasar/pkg/pool"
)

var bufferPool = pool.New(
	func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, 4096)) },
	func(b *bytes.Buffer) { b.Reset() },
)

// Marshal encodes v using goccy/go-json.
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// MarshalIndent encodes v with indentation for human-readable output.
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// Unmarshal decodes data into v using goccy/go-json.
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// Encode writes v as JSON through a pooled buffer and returns the bytes.
// The returned slice is a copy; the buffer goes back to the pool.
func Encode(v interface{}) ([]byte, error) {
	buf := bufferPool.Get()
	defer bufferPool.Put(buf)

	enc := gojson.NewEncoder(buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
