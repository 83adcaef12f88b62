// Package codec compresses and decompresses event content with Snappy.
package codec

import (
	"fmt"

	"github.com/golang/snappy"
)

// Compress encodes text with Snappy block compression.
func Compress(text string) []byte {
	return snappy.Encode(nil, []byte(text))
}

// Decompress is the inverse of Compress. Round-trip exact on UTF-8 text.
func Decompress(data []byte) (string, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return "", fmt.Errorf("codec: snappy decode: %w", err)
	}
	return string(out), nil
}
