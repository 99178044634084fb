package processing

import (
	"fmt"

	"ndvi-map-go/internal/raster"
)

// SceneConfig is the geometry a start message announces for the tiles
// that follow.
type SceneConfig struct {
	SceneID      string
	Width        int
	Height       int
	TileSize     int
	Bands        []string
	GeoTransform [6]float64
	Projection   string
	Scale        float64
	Offset       float64
}

func (c SceneConfig) Meta() raster.SceneMeta {
	return raster.SceneMeta{
		Width:        c.Width,
		Height:       c.Height,
		GeoTransform: c.GeoTransform,
		Projection:   c.Projection,
	}
}

// SceneConfigFromMeta parses a start-message payload. CBOR integers may
// arrive as any numeric type.
func SceneConfigFromMeta(meta map[string]any) (SceneConfig, error) {
	cfg := SceneConfig{Scale: 1}
	cfg.SceneID, _ = meta["scene_id"].(string)

	var err error
	if cfg.Width, err = metaInt(meta, "width"); err != nil {
		return SceneConfig{}, err
	}
	if cfg.Height, err = metaInt(meta, "height"); err != nil {
		return SceneConfig{}, err
	}
	if cfg.TileSize, err = metaInt(meta, "tile_size"); err != nil {
		return SceneConfig{}, err
	}
	if cfg.Width < 1 || cfg.Height < 1 || cfg.TileSize < 1 {
		return SceneConfig{}, fmt.Errorf("invalid scene geometry %dx%d tile %d", cfg.Width, cfg.Height, cfg.TileSize)
	}

	bands, ok := meta["bands"].([]any)
	if !ok {
		if typed, isTyped := meta["bands"].([]string); isTyped {
			cfg.Bands = append(cfg.Bands, typed...)
		}
	} else {
		for _, b := range bands {
			if s, ok := b.(string); ok && s != "" {
				cfg.Bands = append(cfg.Bands, s)
			}
		}
	}
	if len(cfg.Bands) == 0 {
		return SceneConfig{}, fmt.Errorf("start message has no bands")
	}

	if gt, ok := meta["geotransform"].([]any); ok && len(gt) == 6 {
		for i, v := range gt {
			f, err := asFloat(v)
			if err != nil {
				return SceneConfig{}, fmt.Errorf("geotransform[%d]: %w", i, err)
			}
			cfg.GeoTransform[i] = f
		}
	} else {
		cfg.GeoTransform = [6]float64{0, 1, 0, 0, 0, 1}
	}

	cfg.Projection, _ = meta["crs"].(string)
	if v, ok := meta["scale"]; ok {
		if cfg.Scale, err = asFloat(v); err != nil {
			return SceneConfig{}, fmt.Errorf("scale: %w", err)
		}
	}
	if v, ok := meta["offset"]; ok {
		if cfg.Offset, err = asFloat(v); err != nil {
			return SceneConfig{}, fmt.Errorf("offset: %w", err)
		}
	}
	if cfg.Scale == 0 {
		cfg.Scale = 1
	}
	return cfg, nil
}

func metaInt(meta map[string]any, key string) (int, error) {
	v, ok := meta[key]
	if !ok {
		return 0, fmt.Errorf("start message missing %q", key)
	}
	f, err := asFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return int(f), nil
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}
