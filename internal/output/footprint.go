package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/venicegeo/geojson-go/geojson"

	"ndvi-map-go/internal/raster"
)

// Footprint builds a GeoJSON feature for the scene outline in the
// scene's own coordinate system.
func Footprint(run RunInfo, meta raster.SceneMeta) *geojson.Feature {
	corners := meta.Corners()
	ring := make([][]float64, 0, 5)
	for _, c := range corners {
		ring = append(ring, []float64{c[0], c[1]})
	}
	ring = append(ring, []float64{corners[0][0], corners[0][1]})

	polygon := geojson.NewPolygon([][][]float64{ring})
	return geojson.NewFeature(polygon, run.SceneID, map[string]any{
		"run_id": run.ID,
		"crs":    meta.Projection,
		"width":  meta.Width,
		"height": meta.Height,
	})
}

func WriteFootprint(path string, run RunInfo, meta raster.SceneMeta) error {
	data, err := json.MarshalIndent(Footprint(run, meta), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal footprint: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
