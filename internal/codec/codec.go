// Package codec compresses large text payloads (raw rows, audit blobs)
// before storage. Values self-describe via the zstd frame magic, so a column
// can hold compressed and legacy plain values side by side and schema
// evolution never needs a destructive migration.
package codec

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic is the 4-byte zstd frame header. LooksCompressed checks for it;
// every decompression site goes through that one check.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// The level is fixed: this runs on the hot path for every raw payload, and
// SpeedDefault is the documented speed/ratio balance point.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// Compress returns the zstd frame for text.
func Compress(text string) []byte {
	return encoder.EncodeAll([]byte(text), nil)
}

// Decompress returns the original text for a compressed value, or the value
// unchanged when it was never compressed (legacy plain storage).
func Decompress(v []byte) (string, error) {
	if !LooksCompressed(v) {
		return string(v), nil
	}
	out, err := decoder.DecodeAll(v, nil)
	if err != nil {
		return "", fmt.Errorf("decompress payload: %w", err)
	}
	return string(out), nil
}

// LooksCompressed reports whether v starts with the zstd frame magic.
func LooksCompressed(v []byte) bool {
	return bytes.HasPrefix(v, zstdMagic)
}
