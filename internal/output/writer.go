package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"ndvi-map-go/internal/geotiff"
	"ndvi-map-go/internal/raster"
	"ndvi-map-go/internal/render"
)

// RunInfo identifies one processing run on disk.
type RunInfo struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	SceneID   string `json:"scene_id"`
}

func NewRunInfo(timestamp, sceneID string) RunInfo {
	return RunInfo{
		ID:        uuid.NewString(),
		Timestamp: timestamp,
		SceneID:   sceneID,
	}
}

func (r RunInfo) prefix() string {
	short := r.ID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s_%s", r.Timestamp, short)
}

// WriteProducts writes the full product set for a completed scene:
// index GeoTIFFs, quicklook PNGs for every band and index, per-grid
// stats JSON, a GeoJSON footprint and the run manifest.
func WriteProducts(outputDir string, run RunInfo, stack *raster.Stack, indices map[string]*raster.Grid) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	prefix := run.prefix()

	stats := make(map[string]raster.GridStats)

	for name, grid := range indices {
		tifPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.tif", prefix, name))
		if err := geotiff.WriteGrid(tifPath, grid, stack.Meta); err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
		pngPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.png", prefix, name))
		if err := render.WriteFile(pngPath, grid, true); err != nil {
			return fmt.Errorf("quicklook %s: %w", name, err)
		}
		stats[name] = raster.Stats(grid)
	}

	for _, name := range stack.Names {
		grid, _ := stack.Band(name)
		pngPath := filepath.Join(outputDir, fmt.Sprintf("%s_band_%s.png", prefix, name))
		if err := render.WriteFile(pngPath, grid, false); err != nil {
			return fmt.Errorf("quicklook band %s: %w", name, err)
		}
		stats[name] = raster.Stats(grid)
	}

	statsPath := filepath.Join(outputDir, fmt.Sprintf("%s_stats.json", prefix))
	if err := writeJSON(statsPath, stats); err != nil {
		return err
	}

	footprintPath := filepath.Join(outputDir, fmt.Sprintf("%s_footprint.geojson", prefix))
	if err := WriteFootprint(footprintPath, run, stack.Meta); err != nil {
		return err
	}

	manifest := map[string]any{
		"run":    run,
		"bands":  stack.Names,
		"width":  stack.Meta.Width,
		"height": stack.Meta.Height,
		"crs":    stack.Meta.Projection,
	}
	manifestPath := filepath.Join(outputDir, fmt.Sprintf("%s_run.json", prefix))
	return writeJSON(manifestPath, manifest)
}

// WriteSeries writes one CSV per grid with a row per valid pixel,
// for downstream plotting.
func WriteSeries(outputDir string, run RunInfo, grids map[string]*raster.Grid) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	for name, grid := range grids {
		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s_data.csv", run.prefix(), name))
		f, err := os.Create(filename)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(f, "x, y, value")
		for i, ok := range grid.Mask {
			if !ok {
				continue
			}
			x := i % grid.Width
			y := i / grid.Width
			_, _ = fmt.Fprintf(f, "%d, %d, %.6f\n", x, y, grid.Samples[i])
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// WriteMetadata persists a start/end stream payload next to the products.
func WriteMetadata(outputDir string, run RunInfo, kind string, meta map[string]any) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(outputDir, fmt.Sprintf("%s_%s_meta.json", run.prefix(), kind))
	return writeJSON(path, NormalizeJSONValue(meta))
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// NormalizeJSONValue rewrites CBOR-decoded values into JSON-encodable
// ones (map keys become strings, byte slices become lengths).
func NormalizeJSONValue(value any) any {
	switch v := value.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, entry := range v {
			out[fmt.Sprintf("%v", key)] = NormalizeJSONValue(entry)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, entry := range v {
			out[key] = NormalizeJSONValue(entry)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, entry := range v {
			out[i] = NormalizeJSONValue(entry)
		}
		return out
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v))
	default:
		return v
	}
}
