package processing

import (
	"math"
	"time"

	"ndvi-map-go/internal/types"
)

// ProcessRawTile converts a decoded tile payload into reflectance
// samples. Integer samples at their type maximum are treated as
// saturated and masked out; float samples are masked when not finite.
// scale/offset convert digital numbers to reflectance.
func ProcessRawTile(raw types.RawTile, scale, offset float64) (types.Tile, bool) {
	if raw.TileID < 0 {
		return types.Tile{}, false
	}
	if scale == 0 {
		scale = 1
	}

	var rows, cols int
	var samples []float64
	var mask []bool

	switch v := raw.Data.(type) {
	case [][]uint8:
		rows, cols, samples, mask = convertUint8(v, scale, offset)
	case [][]uint16:
		rows, cols, samples, mask = convertUint16(v, scale, offset)
	case [][]uint32:
		rows, cols, samples, mask = convertUint32(v, scale, offset)
	case [][]float32:
		rows, cols, samples, mask = convertFloat32(v, scale, offset)
	default:
		return types.Tile{}, false
	}
	if rows == 0 || cols == 0 {
		return types.Tile{}, false
	}

	return types.Tile{
		SceneID:   raw.SceneID,
		TileID:    raw.TileID,
		Band:      raw.Band,
		StartTime: raw.StartTime,
		Rows:      rows,
		Cols:      cols,
		Samples:   samples,
		Mask:      mask,
	}, true
}

func convertUint8(data [][]uint8, scale, offset float64) (int, int, []float64, []bool) {
	rows := len(data)
	if rows == 0 {
		return 0, 0, nil, nil
	}
	cols := len(data[0])
	samples := make([]float64, 0, rows*cols)
	mask := make([]bool, 0, rows*cols)
	for _, row := range data {
		if len(row) != cols {
			return 0, 0, nil, nil
		}
		for _, v := range row {
			samples = append(samples, float64(v)*scale+offset)
			mask = append(mask, v < math.MaxUint8)
		}
	}
	return rows, cols, samples, mask
}

func convertUint16(data [][]uint16, scale, offset float64) (int, int, []float64, []bool) {
	rows := len(data)
	if rows == 0 {
		return 0, 0, nil, nil
	}
	cols := len(data[0])
	samples := make([]float64, 0, rows*cols)
	mask := make([]bool, 0, rows*cols)
	for _, row := range data {
		if len(row) != cols {
			return 0, 0, nil, nil
		}
		for _, v := range row {
			samples = append(samples, float64(v)*scale+offset)
			mask = append(mask, v < math.MaxUint16)
		}
	}
	return rows, cols, samples, mask
}

func convertUint32(data [][]uint32, scale, offset float64) (int, int, []float64, []bool) {
	rows := len(data)
	if rows == 0 {
		return 0, 0, nil, nil
	}
	cols := len(data[0])
	samples := make([]float64, 0, rows*cols)
	mask := make([]bool, 0, rows*cols)
	for _, row := range data {
		if len(row) != cols {
			return 0, 0, nil, nil
		}
		for _, v := range row {
			samples = append(samples, float64(v)*scale+offset)
			mask = append(mask, v < math.MaxUint32)
		}
	}
	return rows, cols, samples, mask
}

func convertFloat32(data [][]float32, scale, offset float64) (int, int, []float64, []bool) {
	rows := len(data)
	if rows == 0 {
		return 0, 0, nil, nil
	}
	cols := len(data[0])
	samples := make([]float64, 0, rows*cols)
	mask := make([]bool, 0, rows*cols)
	for _, row := range data {
		if len(row) != cols {
			return 0, 0, nil, nil
		}
		for _, v := range row {
			f := float64(v)
			valid := !math.IsNaN(f) && !math.IsInf(f, 0)
			if !valid {
				f = 0
			}
			samples = append(samples, f*scale+offset)
			mask = append(mask, valid)
		}
	}
	return rows, cols, samples, mask
}

func Timestamp() string {
	return time.Now().Format("20060102_150405")
}
