package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SceneInfo is one catalog entry from the provider.
type SceneInfo struct {
	SceneID  string   `json:"scene_id"`
	Bands    []string `json:"bands"`
	Acquired string   `json:"acquired"`
	CloudPct float64  `json:"cloud_pct"`
}

// ListScenes queries the provider catalog.
func ListScenes(ctx context.Context, baseURL string, apiVersion string) ([]SceneInfo, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("missing base url")
	}
	client := &http.Client{Timeout: 10 * time.Second}
	url := joinPath(baseURL, apiVersion, "scenes")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned %d", resp.StatusCode)
	}

	var scenes []SceneInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&scenes); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return scenes, nil
}

// DownloadBand fetches one band file of a scene into destDir and
// returns the local path and byte count.
func DownloadBand(ctx context.Context, baseURL string, apiVersion string, sceneID string, band string, destDir string) (string, int64, error) {
	if baseURL == "" {
		return "", 0, fmt.Errorf("missing base url")
	}
	if sceneID == "" || band == "" {
		return "", 0, fmt.Errorf("missing scene or band")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", 0, err
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	url := joinPath(baseURL, apiVersion, "scenes", sceneID, "bands", band)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("download %s/%s returned %d", sceneID, band, resp.StatusCode)
	}

	path := filepath.Join(destDir, fmt.Sprintf("%s_%s.tif", sceneID, band))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("download %s/%s: %w", sceneID, band, err)
	}
	if err := f.Close(); err != nil {
		return "", 0, err
	}
	return path, n, nil
}

func joinPath(baseURL string, apiVersion string, parts ...string) string {
	segments := []string{strings.TrimRight(baseURL, "/")}
	if v := strings.Trim(apiVersion, "/"); v != "" {
		segments = append(segments, "api", v)
	}
	for _, part := range parts {
		segments = append(segments, strings.Trim(part, "/"))
	}
	return strings.Join(segments, "/")
}
