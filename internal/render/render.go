package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"sort"

	"ndvi-map-go/internal/raster"
)

// Grayscale renders a grid as an 8-bit grayscale PNG with a 2-98
// percentile stretch. Invalid pixels come out black.
func Grayscale(w io.Writer, grid *raster.Grid) error {
	lo, hi := percentiles(grid, 0.02, 0.98)
	span := hi - lo
	if span <= 0 {
		span = 1
	}

	img := image.NewGray(image.Rect(0, 0, grid.Width, grid.Height))
	for i, v := range grid.Samples {
		if !grid.Mask[i] {
			continue
		}
		scaled := (v - lo) / span
		if scaled < 0 {
			scaled = 0
		}
		if scaled > 1 {
			scaled = 1
		}
		img.Pix[i] = uint8(math.Round(scaled * 255))
	}
	return png.Encode(w, img)
}

// IndexRamp renders a normalized-difference grid with a brown-yellow-green
// ramp over [-1, 1]. Invalid pixels are fully transparent.
func IndexRamp(w io.Writer, grid *raster.Grid) error {
	img := image.NewNRGBA(image.Rect(0, 0, grid.Width, grid.Height))
	for i, v := range grid.Samples {
		if !grid.Mask[i] {
			continue
		}
		x := i % grid.Width
		y := i / grid.Width
		img.SetNRGBA(x, y, rampColor(v))
	}
	return png.Encode(w, img)
}

// WriteFile renders a grid to a PNG file, using the index ramp for
// normalized-difference products and grayscale otherwise.
func WriteFile(path string, grid *raster.Grid, ramp bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if ramp {
		err = IndexRamp(f, grid)
	} else {
		err = Grayscale(f, grid)
	}
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

var rampStops = []struct {
	at      float64
	r, g, b uint8
}{
	{-1.0, 69, 41, 15},
	{-0.2, 145, 109, 58},
	{0.0, 219, 204, 130},
	{0.2, 255, 255, 140},
	{0.5, 110, 180, 60},
	{1.0, 12, 96, 22},
}

func rampColor(v float64) color.NRGBA {
	if v <= rampStops[0].at {
		s := rampStops[0]
		return color.NRGBA{s.r, s.g, s.b, 255}
	}
	for i := 1; i < len(rampStops); i++ {
		if v > rampStops[i].at {
			continue
		}
		lo := rampStops[i-1]
		hi := rampStops[i]
		t := (v - lo.at) / (hi.at - lo.at)
		return color.NRGBA{
			R: lerp(lo.r, hi.r, t),
			G: lerp(lo.g, hi.g, t),
			B: lerp(lo.b, hi.b, t),
			A: 255,
		}
	}
	s := rampStops[len(rampStops)-1]
	return color.NRGBA{s.r, s.g, s.b, 255}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

func percentiles(grid *raster.Grid, lo, hi float64) (float64, float64) {
	valid := make([]float64, 0, len(grid.Samples))
	for i, v := range grid.Samples {
		if grid.Mask[i] {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return 0, 0
	}
	sort.Float64s(valid)
	pick := func(p float64) float64 {
		i := int(p * float64(len(valid)-1))
		return valid[i]
	}
	return pick(lo), pick(hi)
}
