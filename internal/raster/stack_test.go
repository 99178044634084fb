package raster

import "testing"

func TestStackAddRejectsShapeMismatch(t *testing.T) {
	stack := NewStack(SceneMeta{Width: 4, Height: 4})
	if err := stack.Add("red", NewGrid(4, 4)); err != nil {
		t.Fatalf("add red: %v", err)
	}
	if err := stack.Add("nir", NewGrid(4, 5)); err == nil {
		t.Fatalf("expected shape mismatch error")
	}
	if err := stack.Add("red", NewGrid(4, 4)); err == nil {
		t.Fatalf("expected duplicate band error")
	}
	if len(stack.Names) != 1 {
		t.Fatalf("names: got %v", stack.Names)
	}
}

func TestSceneMetaCorners(t *testing.T) {
	meta := SceneMeta{
		Width:        100,
		Height:       50,
		GeoTransform: [6]float64{500000, 30, 0, 6000000, 0, -30},
	}
	corners := meta.Corners()
	wantUL := [2]float64{500000, 6000000}
	wantLR := [2]float64{503000, 5998500}
	if corners[0] != wantUL {
		t.Fatalf("UL corner: got %v want %v", corners[0], wantUL)
	}
	if corners[2] != wantLR {
		t.Fatalf("LR corner: got %v want %v", corners[2], wantLR)
	}
}

func TestStats(t *testing.T) {
	g := NewGrid(2, 2)
	g.Set(0, 0, -0.5)
	g.Set(1, 0, 0.5)
	g.Set(0, 1, 1.0)

	stats := Stats(g)
	if stats.Valid != 3 || stats.Total != 4 {
		t.Fatalf("counts: got valid=%d total=%d", stats.Valid, stats.Total)
	}
	if stats.Min != -0.5 || stats.Max != 1.0 {
		t.Fatalf("range: got [%v, %v]", stats.Min, stats.Max)
	}
	want := (-0.5 + 0.5 + 1.0) / 3
	if stats.Mean != want {
		t.Fatalf("mean: got %v want %v", stats.Mean, want)
	}
}
