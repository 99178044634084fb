package processing

import (
	"testing"

	"ndvi-map-go/internal/types"
)

func testConfig() SceneConfig {
	return SceneConfig{
		SceneID:      "test",
		Width:        4,
		Height:       4,
		TileSize:     2,
		Bands:        []string{"red", "nir"},
		GeoTransform: [6]float64{0, 1, 0, 0, 0, 1},
		Scale:        1,
	}
}

func makeTile(band string, id int, fill float64) types.Tile {
	samples := make([]float64, 4)
	mask := make([]bool, 4)
	for i := range samples {
		samples[i] = fill
		mask[i] = true
	}
	return types.Tile{
		SceneID: "test",
		TileID:  id,
		Band:    band,
		Rows:    2,
		Cols:    2,
		Samples: samples,
		Mask:    mask,
	}
}

func TestAggregatorCompletesAfterAllTiles(t *testing.T) {
	agg := NewAggregator(testConfig())

	for _, band := range []string{"red", "nir"} {
		for id := 0; id < 4; id++ {
			complete := agg.AddTile(makeTile(band, id, float64(id)))
			last := band == "nir" && id == 3
			if complete != last {
				t.Fatalf("band %s tile %d: complete=%v", band, id, complete)
			}
		}
	}

	placed, expected := agg.Coverage()
	if placed != 8 || expected != 8 {
		t.Fatalf("coverage: got %d/%d", placed, expected)
	}

	stack, err := agg.Stack()
	if err != nil {
		t.Fatalf("Stack error: %v", err)
	}
	red, _ := stack.Band("red")
	// tile 3 covers the bottom-right quadrant
	if v, ok := red.At(3, 3); !ok || v != 3 {
		t.Fatalf("pixel (3,3): got %v valid=%v", v, ok)
	}
	// tile 0 covers the top-left quadrant
	if v, ok := red.At(0, 0); !ok || v != 0 {
		t.Fatalf("pixel (0,0): got %v valid=%v", v, ok)
	}
}

func TestAggregatorDropsUnexpectedTiles(t *testing.T) {
	agg := NewAggregator(testConfig())

	agg.AddTile(makeTile("swir", 0, 1)) // not an expected band
	agg.AddTile(makeTile("red", 99, 1)) // out of range
	bad := makeTile("red", 0, 1)
	bad.Cols = 3 // wrong shape
	agg.AddTile(bad)

	placed, _ := agg.Coverage()
	if placed != 0 {
		t.Fatalf("placed: got %d want 0", placed)
	}
}

func TestAggregatorDuplicateTileCountsOnce(t *testing.T) {
	agg := NewAggregator(testConfig())
	agg.AddTile(makeTile("red", 0, 1))
	agg.AddTile(makeTile("red", 0, 2))
	placed, _ := agg.Coverage()
	if placed != 1 {
		t.Fatalf("placed: got %d want 1", placed)
	}
	// the rewrite wins
	grid := agg.Snapshot()["red"]
	if v, _ := grid.At(0, 0); v != 2 {
		t.Fatalf("pixel (0,0): got %v want 2", v)
	}
}

func TestAggregatorEdgeTiles(t *testing.T) {
	cfg := testConfig()
	cfg.Width = 3
	cfg.Height = 3
	agg := NewAggregator(cfg)

	// 3x3 scene with tile size 2: tiles are 2x2, 2x1, 1x2, 1x1
	edge := types.Tile{
		SceneID: "test",
		TileID:  3,
		Band:    "red",
		Rows:    1,
		Cols:    1,
		Samples: []float64{7},
		Mask:    []bool{true},
	}
	agg.AddTile(edge)
	grid := agg.Snapshot()["red"]
	if v, ok := grid.At(2, 2); !ok || v != 7 {
		t.Fatalf("edge pixel: got %v valid=%v", v, ok)
	}
}

func TestProcessRawTileSaturationMask(t *testing.T) {
	raw := types.RawTile{
		SceneID: "test",
		TileID:  0,
		Band:    "nir",
		Data: [][]uint16{
			{100, 65535},
			{200, 300},
		},
	}
	tile, ok := ProcessRawTile(raw, 0.0001, 0)
	if !ok {
		t.Fatalf("ProcessRawTile returned ok=false")
	}
	if tile.Rows != 2 || tile.Cols != 2 {
		t.Fatalf("shape: got %dx%d", tile.Rows, tile.Cols)
	}
	if tile.Mask[1] {
		t.Fatalf("saturated sample should be masked")
	}
	if tile.Samples[0] != 0.01 {
		t.Fatalf("scaled sample: got %v want 0.01", tile.Samples[0])
	}
}

func TestSceneConfigFromMeta(t *testing.T) {
	meta := map[string]any{
		"scene_id":     "s1",
		"width":        uint64(256),
		"height":       uint64(128),
		"tile_size":    uint64(64),
		"bands":        []any{"red", "nir"},
		"geotransform": []any{500000.0, 30.0, 0.0, 6000000.0, 0.0, -30.0},
		"crs":          "EPSG:32633",
		"scale":        0.0001,
	}
	cfg, err := SceneConfigFromMeta(meta)
	if err != nil {
		t.Fatalf("SceneConfigFromMeta error: %v", err)
	}
	if cfg.Width != 256 || cfg.Height != 128 || cfg.TileSize != 64 {
		t.Fatalf("geometry: %+v", cfg)
	}
	if len(cfg.Bands) != 2 || cfg.Bands[0] != "red" {
		t.Fatalf("bands: %v", cfg.Bands)
	}
	if cfg.GeoTransform[1] != 30 {
		t.Fatalf("geotransform: %v", cfg.GeoTransform)
	}
	if cfg.Scale != 0.0001 {
		t.Fatalf("scale: %v", cfg.Scale)
	}

	delete(meta, "bands")
	if _, err := SceneConfigFromMeta(meta); err == nil {
		t.Fatalf("expected missing bands error")
	}
}
