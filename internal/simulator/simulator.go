package simulator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"ndvi-map-go/internal/types"
)

const (
	scale      = 0.0001 // digital number -> reflectance
	simCRS     = "EPSG:32633"
	soilRed    = 0.22
	soilNIR    = 0.26
	vegRed     = 0.05
	vegNIR     = 0.45
	noiseSigma = 0.01
)

// Stream produces synthetic scenes: a gaussian vegetation patch on bare
// soil, split into red and NIR tiles at acqRate tiles per second. Each
// scene is bracketed by start and end messages, matching the wire
// format of a real tile producer.
func Stream(ctx context.Context, width, height, tileSize int, acqRate float64) <-chan types.RawMessage {
	out := make(chan types.RawMessage)
	go func() {
		defer close(out)

		if tileSize < 1 {
			tileSize = 64
		}
		tilesX := (width + tileSize - 1) / tileSize
		tilesY := (height + tileSize - 1) / tileSize
		tileInterval := time.Duration(float64(time.Second) / acqRate)
		ticker := time.NewTicker(tileInterval)
		defer ticker.Stop()

		red, nir := sceneReflectance(width, height)
		sceneSeq := 0

		for {
			sceneSeq++
			sceneID := fmt.Sprintf("sim-%04d", sceneSeq)
			start := types.RawMessage{
				Type: "start",
				Meta: map[string]any{
					"scene_id":     sceneID,
					"width":        width,
					"height":       height,
					"tile_size":    tileSize,
					"bands":        []any{"red", "nir"},
					"geotransform": []any{500000.0, 30.0, 0.0, 6000000.0, 0.0, -30.0},
					"crs":          simCRS,
					"scale":        scale,
				},
			}
			select {
			case <-ctx.Done():
				return
			case out <- start:
			}

			tilesSent := 0
			for tileID := 0; tileID < tilesX*tilesY; tileID++ {
				for _, band := range []string{"red", "nir"} {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
					}
					values := red
					if band == "nir" {
						values = nir
					}
					msg := types.RawMessage{
						Type: "image",
						Tile: types.RawTile{
							SceneID:   sceneID,
							TileID:    tileID,
							Band:      band,
							StartTime: float64(time.Now().UnixNano()) / 1e9,
							Data:      cutTile(values, width, height, tileSize, tilesX, tileID),
						},
					}
					select {
					case <-ctx.Done():
						return
					case out <- msg:
						tilesSent++
					}
				}
			}

			end := types.RawMessage{
				Type: "end",
				Meta: map[string]any{
					"scene_id":   sceneID,
					"tiles_sent": tilesSent,
				},
			}
			select {
			case <-ctx.Done():
				return
			case out <- end:
			}
		}
	}()

	return out
}

// sceneReflectance precomputes per-pixel red and NIR digital numbers
// with a vegetation patch in the scene center.
func sceneReflectance(width, height int) ([]uint16, []uint16) {
	total := width * height
	red := make([]uint16, total)
	nir := make([]uint16, total)
	centerX := float64(width) / 2.0
	centerY := float64(height) / 2.0
	sigma := float64(width+height) / 8.0

	for i := 0; i < total; i++ {
		x := float64(i % width)
		y := float64(i / width)
		dx := x - centerX
		dy := y - centerY
		veg := math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))

		redRefl := soilRed + (vegRed-soilRed)*veg + rand.NormFloat64()*noiseSigma
		nirRefl := soilNIR + (vegNIR-soilNIR)*veg + rand.NormFloat64()*noiseSigma
		red[i] = toDN(redRefl)
		nir[i] = toDN(nirRefl)
	}
	return red, nir
}

func toDN(reflectance float64) uint16 {
	dn := reflectance / scale
	if dn < 0 {
		dn = 0
	}
	if dn > math.MaxUint16-1 {
		dn = math.MaxUint16 - 1
	}
	return uint16(dn)
}

func cutTile(values []uint16, width, height, tileSize, tilesX, tileID int) [][]uint16 {
	x0 := (tileID % tilesX) * tileSize
	y0 := (tileID / tilesX) * tileSize
	cols := tileSize
	if x0+cols > width {
		cols = width - x0
	}
	rows := tileSize
	if y0+rows > height {
		rows = height - y0
	}

	out := make([][]uint16, rows)
	for r := 0; r < rows; r++ {
		row := make([]uint16, cols)
		copy(row, values[(y0+r)*width+x0:(y0+r)*width+x0+cols])
		out[r] = row
	}
	return out
}
