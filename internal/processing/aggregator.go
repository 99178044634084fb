package processing

import (
	"fmt"

	"ndvi-map-go/internal/raster"
	"ndvi-map-go/internal/types"
)

// Aggregator places band tiles into full scene grids and reports when
// every tile of every expected band has arrived.
type Aggregator struct {
	cfg       SceneConfig
	tilesX    int
	tilesY    int
	perBand   int
	grids     map[string]*raster.Grid
	seen      map[string][]bool
	tileCount int
}

func NewAggregator(cfg SceneConfig) *Aggregator {
	tilesX := (cfg.Width + cfg.TileSize - 1) / cfg.TileSize
	tilesY := (cfg.Height + cfg.TileSize - 1) / cfg.TileSize
	return &Aggregator{
		cfg:     cfg,
		tilesX:  tilesX,
		tilesY:  tilesY,
		perBand: tilesX * tilesY,
		grids:   make(map[string]*raster.Grid),
		seen:    make(map[string][]bool),
	}
}

func (a *Aggregator) Config() SceneConfig {
	return a.cfg
}

// AddTile places one tile. Returns true when the scene is complete.
// Tiles for unexpected bands, out-of-range ids, or wrong shapes are
// dropped.
func (a *Aggregator) AddTile(tile types.Tile) bool {
	if tile.TileID < 0 || tile.TileID >= a.perBand {
		return a.complete()
	}
	if !a.expectsBand(tile.Band) {
		return a.complete()
	}

	x0 := (tile.TileID % a.tilesX) * a.cfg.TileSize
	y0 := (tile.TileID / a.tilesX) * a.cfg.TileSize
	wantCols := min(a.cfg.TileSize, a.cfg.Width-x0)
	wantRows := min(a.cfg.TileSize, a.cfg.Height-y0)
	if tile.Cols != wantCols || tile.Rows != wantRows {
		return a.complete()
	}

	grid, ok := a.grids[tile.Band]
	if !ok {
		grid = raster.NewGrid(a.cfg.Width, a.cfg.Height)
		a.grids[tile.Band] = grid
		a.seen[tile.Band] = make([]bool, a.perBand)
	}

	for r := 0; r < tile.Rows; r++ {
		for c := 0; c < tile.Cols; c++ {
			i := r*tile.Cols + c
			if tile.Mask[i] {
				grid.Set(x0+c, y0+r, tile.Samples[i])
			} else {
				grid.SetInvalid(x0+c, y0+r)
			}
		}
	}

	if !a.seen[tile.Band][tile.TileID] {
		a.seen[tile.Band][tile.TileID] = true
		a.tileCount++
	}
	return a.complete()
}

func (a *Aggregator) complete() bool {
	return a.tileCount >= a.perBand*len(a.cfg.Bands)
}

func (a *Aggregator) expectsBand(band string) bool {
	for _, b := range a.cfg.Bands {
		if b == band {
			return true
		}
	}
	return false
}

func (a *Aggregator) Reset() {
	a.grids = make(map[string]*raster.Grid)
	a.seen = make(map[string][]bool)
	a.tileCount = 0
}

// Coverage reports placed vs expected tile counts.
func (a *Aggregator) Coverage() (int, int) {
	return a.tileCount, a.perBand * len(a.cfg.Bands)
}

func (a *Aggregator) Snapshot() map[string]*raster.Grid {
	return a.grids
}

// SnapshotCopy deep-copies the band grids for the UI.
func (a *Aggregator) SnapshotCopy() map[string]types.BandSnapshot {
	snapshot := make(map[string]types.BandSnapshot, len(a.grids))
	for band, grid := range a.grids {
		values := make([]float64, len(grid.Samples))
		copy(values, grid.Samples)
		mask := make([]bool, len(grid.Mask))
		copy(mask, grid.Mask)
		snapshot[band] = types.BandSnapshot{
			Values: values,
			Mask:   mask,
		}
	}
	return snapshot
}

// Stack assembles the aggregated bands into a raster stack.
func (a *Aggregator) Stack() (*raster.Stack, error) {
	stack := raster.NewStack(a.cfg.Meta())
	for _, band := range a.cfg.Bands {
		grid, ok := a.grids[band]
		if !ok {
			return nil, fmt.Errorf("band %q has no data", band)
		}
		if err := stack.Add(band, grid.Clone()); err != nil {
			return nil, err
		}
	}
	return stack, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
