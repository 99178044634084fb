package render

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"ndvi-map-go/internal/raster"
)

func TestGrayscaleEncodes(t *testing.T) {
	grid := raster.NewGrid(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			grid.Set(x, y, float64(x*y))
		}
	}

	var buf bytes.Buffer
	if err := Grayscale(&buf, grid); err != nil {
		t.Fatalf("Grayscale error: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 8, 8) {
		t.Fatalf("bounds: got %v", img.Bounds())
	}
}

func TestIndexRampTransparencyAndColor(t *testing.T) {
	grid := raster.NewGrid(2, 1)
	grid.Set(0, 0, 0.9)
	// pixel (1,0) stays invalid

	var buf bytes.Buffer
	if err := IndexRamp(&buf, grid); err != nil {
		t.Fatalf("IndexRamp error: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	_, _, _, a := img.At(1, 0).RGBA()
	if a != 0 {
		t.Fatalf("invalid pixel should be transparent, alpha=%d", a)
	}
	r, g, _, a := img.At(0, 0).RGBA()
	if a == 0 {
		t.Fatalf("valid pixel should be opaque")
	}
	if g <= r {
		t.Fatalf("high index should render green-dominant, r=%d g=%d", r, g)
	}
}

func TestRampColorEndpoints(t *testing.T) {
	low := rampColor(-1)
	high := rampColor(1)
	if low.G >= high.G {
		t.Fatalf("ramp should brighten green towards +1: %v vs %v", low, high)
	}
	if c := rampColor(-2); c != low {
		t.Fatalf("below-range should clamp: got %v want %v", c, low)
	}
	if c := rampColor(2); c != high {
		t.Fatalf("above-range should clamp: got %v want %v", c, high)
	}
}
