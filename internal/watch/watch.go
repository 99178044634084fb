package watch

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"ndvi-map-go/internal/geotiff"
)

// SceneJob names the band files of a scene found on disk.
type SceneJob struct {
	SceneID string
	Bands   map[string]string // band name -> file path
}

// Stream watches a directory for raster band files named
// <scene>_<band>.tif and emits a job once every required band of a
// scene is present and its size has been stable for one settle
// interval. Files already in the directory are picked up at start.
func Stream(ctx context.Context, dir string, required []string, settle time.Duration) (<-chan SceneJob, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	if settle <= 0 {
		settle = time.Second
	}

	out := make(chan SceneJob, 8)
	go func() {
		defer close(out)
		defer watcher.Close()

		pending := make(map[string]*pendingFile)

		entries, err := os.ReadDir(dir)
		if err == nil {
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				notePath(pending, filepath.Join(dir, entry.Name()))
			}
		}

		ticker := time.NewTicker(settle)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					notePath(pending, event.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("watch error: %v", err)
			case <-ticker.C:
				for _, job := range settleScenes(pending, required) {
					select {
					case <-ctx.Done():
						return
					case out <- job:
					}
				}
			}
		}
	}()
	return out, nil
}

type pendingFile struct {
	path     string
	sceneID  string
	band     string
	lastSize int64
	stable   bool
}

func notePath(pending map[string]*pendingFile, path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".tif" && ext != ".tiff" {
		return
	}
	sceneID, band := splitSceneBand(path)
	if band == "" {
		return
	}
	if existing, ok := pending[path]; ok {
		existing.stable = false
		existing.lastSize = -1
		return
	}
	pending[path] = &pendingFile{
		path:     path,
		sceneID:  sceneID,
		band:     band,
		lastSize: -1,
	}
}

// settleScenes marks files whose size held steady over one tick and
// returns jobs for scenes with a full, stable band set.
func settleScenes(pending map[string]*pendingFile, required []string) []SceneJob {
	for _, pf := range pending {
		info, err := os.Stat(pf.path)
		if err != nil {
			delete(pending, pf.path)
			continue
		}
		if info.Size() == pf.lastSize && info.Size() > 0 {
			pf.stable = true
		} else {
			pf.stable = false
			pf.lastSize = info.Size()
		}
	}

	scenes := make(map[string]map[string]*pendingFile)
	for _, pf := range pending {
		if scenes[pf.sceneID] == nil {
			scenes[pf.sceneID] = make(map[string]*pendingFile)
		}
		scenes[pf.sceneID][pf.band] = pf
	}

	var jobs []SceneJob
	for sceneID, files := range scenes {
		complete := true
		for _, band := range required {
			pf, ok := files[band]
			if !ok || !pf.stable {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		job := SceneJob{SceneID: sceneID, Bands: make(map[string]string, len(files))}
		for band, pf := range files {
			job.Bands[band] = pf.path
			delete(pending, pf.path)
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func splitSceneBand(path string) (string, string) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	i := strings.LastIndex(base, "_")
	if i <= 0 || i >= len(base)-1 {
		return base, ""
	}
	return base[:i], geotiff.BandNameFromPath(path)
}
