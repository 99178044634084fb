package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"ndvi-map-go/internal/config"
	"ndvi-map-go/internal/raster"
)

func TestHandleConfig(t *testing.T) {
	srv := &Server{
		cfg: config.AppConfig{
			Bands:    []string{"red", "nir"},
			Indices:  []string{"ndvi"},
			TileSize: 64,
			Port:     9999,
		},
	}

	req := httptest.NewRequest("GET", "/config", nil)
	rec := httptest.NewRecorder()
	srv.handleConfig(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if payload["tile_size"].(float64) != 64 {
		t.Fatalf("unexpected tile_size: %v", payload["tile_size"])
	}
	if payload["port"].(float64) != 9999 {
		t.Fatalf("unexpected port: %v", payload["port"])
	}
	bands, ok := payload["bands"].([]any)
	if !ok || len(bands) != 2 {
		t.Fatalf("unexpected bands: %v", payload["bands"])
	}
}

func TestHandleStatusMergesClientCount(t *testing.T) {
	srv := &Server{
		statusFn: func() map[string]any {
			return map[string]any{
				"stream":  "receiving",
				"metrics": map[string]any{"tiles_processed_total": uint64(3)},
			}
		},
	}

	req := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()
	srv.handleStatus(rec, req)

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	metrics, ok := payload["metrics"].(map[string]any)
	if !ok {
		t.Fatalf("metrics missing: %v", payload)
	}
	if metrics["ws_clients"].(float64) != 0 {
		t.Fatalf("ws_clients: %v", metrics["ws_clients"])
	}
}

func TestHandleQuicklook(t *testing.T) {
	grid := raster.NewGrid(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			grid.Set(x, y, 0.5)
		}
	}
	srv := &Server{
		quicklooksFn: func() map[string]*raster.Grid {
			return map[string]*raster.Grid{"ndvi": grid}
		},
	}

	rec := httptest.NewRecorder()
	srv.handleQuicklook(rec, httptest.NewRequest("GET", "/quicklook/ndvi.png", nil))
	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type: %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("empty body")
	}

	rec = httptest.NewRecorder()
	srv.handleQuicklook(rec, httptest.NewRequest("GET", "/quicklook/missing.png", nil))
	if rec.Code != 404 {
		t.Fatalf("missing grid should 404, got %d", rec.Code)
	}
}
