package ingest

import (
	"testing"

	"github.com/fxamacker/cbor/v2"

	"ndvi-map-go/internal/compression"
)

func TestDecodeMessageImage(t *testing.T) {
	msg := map[string]any{
		"type":       "image",
		"scene_id":   "scene-001",
		"tile_id":    7,
		"band":       "nir",
		"start_time": 1.25,
		"data": cbor.Tag{
			Number: tagMultiDimArray,
			Content: []any{
				[]any{1, 2},
				cbor.Tag{
					Number:  tagUint8,
					Content: []byte{10, 20},
				},
			},
		},
	}

	payload, err := cbor.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	raw, ok := decodeMessage(payload, 1)
	if !ok {
		t.Fatalf("decodeMessage returned ok=false")
	}

	if raw.Type != "image" {
		t.Fatalf("unexpected type: %q", raw.Type)
	}
	if raw.Tile.SceneID != "scene-001" {
		t.Fatalf("unexpected scene_id: %q", raw.Tile.SceneID)
	}
	if raw.Tile.TileID != 7 {
		t.Fatalf("unexpected tile_id: %d", raw.Tile.TileID)
	}
	if raw.Tile.Band != "nir" {
		t.Fatalf("unexpected band: %q", raw.Tile.Band)
	}
	if raw.Tile.StartTime != 1.25 {
		t.Fatalf("unexpected start_time: %v", raw.Tile.StartTime)
	}

	matrix, ok := raw.Tile.Data.([][]uint8)
	if !ok {
		t.Fatalf("unexpected data type %T", raw.Tile.Data)
	}
	if len(matrix) != 1 || len(matrix[0]) != 2 {
		t.Fatalf("unexpected matrix shape: %#v", matrix)
	}
	if matrix[0][0] != 10 || matrix[0][1] != 20 {
		t.Fatalf("unexpected matrix values: %#v", matrix)
	}
}

func TestDecodeMessageStart(t *testing.T) {
	msg := map[string]any{
		"type":      "start",
		"scene_id":  "scene-002",
		"width":     256,
		"height":    256,
		"tile_size": 64,
		"bands":     []string{"red", "nir"},
	}
	payload, err := cbor.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	raw, ok := decodeMessage(payload, 1)
	if !ok {
		t.Fatalf("decodeMessage returned ok=false")
	}
	if raw.Type != "start" {
		t.Fatalf("unexpected type: %q", raw.Type)
	}
	if raw.Meta["scene_id"] != "scene-002" {
		t.Fatalf("unexpected scene_id: %v", raw.Meta["scene_id"])
	}
	if _, hasType := raw.Meta["type"]; hasType {
		t.Fatalf("meta should not carry the type field")
	}
}

func TestDecodeMessageCompressedTile(t *testing.T) {
	rawBytes := make([]byte, 128)
	for i := range rawBytes {
		rawBytes[i] = byte(i % 4)
	}
	encoded, algorithm, err := compression.Compress(rawBytes)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if algorithm != "lz4" {
		t.Fatalf("expected lz4 payload, got %q", algorithm)
	}

	msg := map[string]any{
		"type":        "image",
		"scene_id":    "scene-003",
		"tile_id":     0,
		"band":        "red",
		"start_time":  0.5,
		"compression": algorithm,
		"raw_size":    len(rawBytes),
		"data": cbor.Tag{
			Number: tagMultiDimArray,
			Content: []any{
				[]any{8, 16},
				cbor.Tag{
					Number:  tagUint8,
					Content: encoded,
				},
			},
		},
	}
	payload, err := cbor.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	raw, ok := decodeMessage(payload, 1)
	if !ok {
		t.Fatalf("decodeMessage returned ok=false")
	}
	matrix, ok := raw.Tile.Data.([][]uint8)
	if !ok {
		t.Fatalf("unexpected data type %T", raw.Tile.Data)
	}
	if len(matrix) != 8 || len(matrix[0]) != 16 {
		t.Fatalf("unexpected matrix shape %dx%d", len(matrix), len(matrix[0]))
	}
	if matrix[0][3] != 3 {
		t.Fatalf("unexpected value: %d", matrix[0][3])
	}
}

func TestDecodeMessageRejectsUnknownType(t *testing.T) {
	payload, err := cbor.Marshal(map[string]any{"type": "noise"})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if _, ok := decodeMessage(payload, 1); ok {
		t.Fatalf("unknown type should be rejected")
	}
}
