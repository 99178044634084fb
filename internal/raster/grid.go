package raster

import "fmt"

// Grid is a single raster band held in memory: row-major float64 samples
// with a per-pixel validity mask. Invalid pixels are nodata on write.
type Grid struct {
	Width   int
	Height  int
	Samples []float64
	Mask    []bool
}

func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:   width,
		Height:  height,
		Samples: make([]float64, width*height),
		Mask:    make([]bool, width*height),
	}
}

func (g *Grid) At(x, y int) (float64, bool) {
	i := y*g.Width + x
	return g.Samples[i], g.Mask[i]
}

func (g *Grid) Set(x, y int, value float64) {
	i := y*g.Width + x
	g.Samples[i] = value
	g.Mask[i] = true
}

func (g *Grid) SetInvalid(x, y int) {
	i := y*g.Width + x
	g.Samples[i] = 0
	g.Mask[i] = false
}

func (g *Grid) ValidCount() int {
	count := 0
	for _, ok := range g.Mask {
		if ok {
			count++
		}
	}
	return count
}

func (g *Grid) Clone() *Grid {
	out := NewGrid(g.Width, g.Height)
	copy(out.Samples, g.Samples)
	copy(out.Mask, g.Mask)
	return out
}

func sameShape(a, b *Grid) error {
	if a.Width != b.Width || a.Height != b.Height {
		return fmt.Errorf("shape mismatch: %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	return nil
}
