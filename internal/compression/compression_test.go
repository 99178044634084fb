package compression

import (
	"bytes"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 512)
	encoded, algorithm, err := Compress(raw)
	if err != nil {
		t.Fatalf("Compress error: %v", err)
	}
	if algorithm != "lz4" {
		t.Fatalf("repetitive payload should compress, got %q", algorithm)
	}
	if len(encoded) >= len(raw) {
		t.Fatalf("encoded not smaller: %d vs %d", len(encoded), len(raw))
	}

	decoded, err := Decompress(encoded, algorithm, len(raw))
	if err != nil {
		t.Fatalf("Decompress error: %v", err)
	}
	if !bytes.Equal(decoded, raw) {
		t.Fatalf("round trip mismatch")
	}
}

func TestDecompressNone(t *testing.T) {
	raw := []byte{9, 9, 9}
	out, err := Decompress(raw, "none", 0)
	if err != nil {
		t.Fatalf("Decompress error: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Fatalf("none algorithm should pass through")
	}
}

func TestDecompressUnknownAlgorithm(t *testing.T) {
	if _, err := Decompress([]byte{1}, "bslz4", 1); err == nil {
		t.Fatalf("expected unsupported algorithm error")
	}
}
