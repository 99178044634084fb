package types

// RawMessage is one decoded stream message before tile processing.
type RawMessage struct {
	Type string         // "start", "image" or "end"
	Meta map[string]any // start/end payload
	Tile RawTile        // populated when Type == "image"
}

// RawTile carries one band tile payload as decoded typed arrays.
type RawTile struct {
	SceneID   string
	TileID    int
	Band      string
	StartTime float64
	Data      any // [][]uint8 | [][]uint16 | [][]uint32 | [][]float32
}

// Tile is a processed reflectance tile ready for aggregation.
type Tile struct {
	SceneID   string
	TileID    int
	Band      string
	StartTime float64
	Rows      int
	Cols      int
	Samples   []float64
	Mask      []bool
}
