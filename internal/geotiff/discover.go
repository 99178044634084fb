package geotiff

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// FindBands lists files matching a glob pattern in sorted order, e.g.
// "data/LC09_*_B?.TIF" to pick up a scene's band files.
func FindBands(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// BandNameFromPath derives a band name from a file name, stripping the
// extension and any scene prefix up to the last underscore:
// "LC09_L2SP_B4.TIF" -> "b4".
func BandNameFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.LastIndex(base, "_"); i >= 0 && i < len(base)-1 {
		base = base[i+1:]
	}
	return strings.ToLower(base)
}
