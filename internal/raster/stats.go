package raster

import "fmt"

type GridStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Valid int     `json:"valid"`
	Total int     `json:"total"`
}

// Stats computes min/max/mean over valid pixels only.
func Stats(g *Grid) GridStats {
	stats := GridStats{Total: len(g.Samples)}
	sum := 0.0
	initialized := false
	for i, v := range g.Samples {
		if !g.Mask[i] {
			continue
		}
		if !initialized {
			stats.Min = v
			stats.Max = v
			initialized = true
		} else {
			if v < stats.Min {
				stats.Min = v
			}
			if v > stats.Max {
				stats.Max = v
			}
		}
		sum += v
		stats.Valid++
	}
	if stats.Valid > 0 {
		stats.Mean = sum / float64(stats.Valid)
	}
	return stats
}

func errUnknownIndex(name string) error {
	return fmt.Errorf("unknown index %q", name)
}

func errMissingBand(index, band string) error {
	return fmt.Errorf("index %q needs band %q", index, band)
}
