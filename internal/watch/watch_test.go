package watch

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, bytes.Repeat([]byte{1}, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestSplitSceneBand(t *testing.T) {
	cases := []struct {
		path  string
		scene string
		band  string
	}{
		{"data/LC09_042034_red.tif", "LC09_042034", "red"},
		{"scene1_nir.TIFF", "scene1", "nir"},
		{"noband.tif", "noband", ""},
	}
	for _, c := range cases {
		scene, band := splitSceneBand(c.path)
		if scene != c.scene || band != c.band {
			t.Fatalf("splitSceneBand(%q): got (%q, %q) want (%q, %q)", c.path, scene, band, c.scene, c.band)
		}
	}
}

func TestSettleScenesRequiresStableSizes(t *testing.T) {
	dir := t.TempDir()
	redPath := writeFile(t, dir, "s1_red.tif", 100)
	nirPath := writeFile(t, dir, "s1_nir.tif", 100)

	pending := make(map[string]*pendingFile)
	notePath(pending, redPath)
	notePath(pending, nirPath)

	// first pass records sizes, nothing is stable yet
	if jobs := settleScenes(pending, []string{"red", "nir"}); len(jobs) != 0 {
		t.Fatalf("first pass should emit nothing, got %v", jobs)
	}
	// second pass sees unchanged sizes
	jobs := settleScenes(pending, []string{"red", "nir"})
	if len(jobs) != 1 {
		t.Fatalf("jobs: got %v", jobs)
	}
	job := jobs[0]
	if job.SceneID != "s1" {
		t.Fatalf("scene: %q", job.SceneID)
	}
	if job.Bands["red"] != redPath || job.Bands["nir"] != nirPath {
		t.Fatalf("bands: %v", job.Bands)
	}
	if len(pending) != 0 {
		t.Fatalf("emitted files should leave pending, got %d", len(pending))
	}
}

func TestSettleScenesIncompleteBandSet(t *testing.T) {
	dir := t.TempDir()
	redPath := writeFile(t, dir, "s2_red.tif", 50)

	pending := make(map[string]*pendingFile)
	notePath(pending, redPath)

	settleScenes(pending, []string{"red", "nir"})
	if jobs := settleScenes(pending, []string{"red", "nir"}); len(jobs) != 0 {
		t.Fatalf("incomplete scene should not emit, got %v", jobs)
	}
}
