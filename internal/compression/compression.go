package compression

import (
	"fmt"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// Decompress expands a tile payload. Stream producers compress band
// tiles as raw lz4 blocks; rawSize is the advertised decompressed size.
func Decompress(encoded []byte, algorithm string, rawSize int) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", "none":
		return encoded, nil
	case "lz4":
		if rawSize <= 0 {
			return nil, fmt.Errorf("invalid raw size %d", rawSize)
		}
		dst := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(encoded, dst)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if n != rawSize {
			return nil, fmt.Errorf("lz4 size mismatch: got %d want %d", n, rawSize)
		}
		return dst, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm %q", algorithm)
	}
}

// Compress produces an lz4 block for a tile payload, falling back to
// the raw bytes when the block would not shrink.
func Compress(raw []byte) ([]byte, string, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(raw)))
	var c lz4.Compressor
	n, err := c.CompressBlock(raw, dst)
	if err != nil {
		return nil, "", fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 || n >= len(raw) {
		return raw, "none", nil
	}
	return dst[:n], "lz4", nil
}
