package geotiff

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindBands(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"scene_B5.TIF", "scene_B4.TIF", "scene_MTL.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	matches, err := FindBands(filepath.Join(dir, "scene_B?.TIF"))
	if err != nil {
		t.Fatalf("FindBands error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches: got %v", matches)
	}
	if filepath.Base(matches[0]) != "scene_B4.TIF" || filepath.Base(matches[1]) != "scene_B5.TIF" {
		t.Fatalf("matches not sorted: %v", matches)
	}
}

func TestBandNameFromPath(t *testing.T) {
	cases := map[string]string{
		"data/LC09_L2SP_042034_B4.TIF": "b4",
		"red.tif":                      "red",
		"scene_nir.tiff":               "nir",
	}
	for path, want := range cases {
		if got := BandNameFromPath(path); got != want {
			t.Fatalf("BandNameFromPath(%q): got %q want %q", path, got, want)
		}
	}
}
