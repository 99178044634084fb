package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestJoinPath(t *testing.T) {
	got := joinPath("http://host:8080/", "1.0", "scenes", "s1", "bands", "red")
	want := "http://host:8080/api/1.0/scenes/s1/bands/red"
	if got != want {
		t.Fatalf("joinPath: got %q want %q", got, want)
	}
	got = joinPath("http://host", "", "scenes")
	if got != "http://host/scenes" {
		t.Fatalf("joinPath without version: got %q", got)
	}
}

func TestListScenes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/1.0/scenes" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"scene_id":"s1","bands":["red","nir"],"cloud_pct":12.5}]`))
	}))
	defer srv.Close()

	scenes, err := ListScenes(context.Background(), srv.URL, "1.0")
	if err != nil {
		t.Fatalf("ListScenes error: %v", err)
	}
	if len(scenes) != 1 || scenes[0].SceneID != "s1" {
		t.Fatalf("scenes: %+v", scenes)
	}
	if scenes[0].CloudPct != 12.5 {
		t.Fatalf("cloud_pct: %v", scenes[0].CloudPct)
	}
}

func TestDownloadBand(t *testing.T) {
	payload := []byte("fake-tif-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scenes/s1/bands/nir" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, n, err := DownloadBand(context.Background(), srv.URL, "", "s1", "nir", dir)
	if err != nil {
		t.Fatalf("DownloadBand error: %v", err)
	}
	if n != int64(len(payload)) {
		t.Fatalf("size: got %d want %d", n, len(payload))
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != string(payload) {
		t.Fatalf("file content: %q err=%v", data, err)
	}
}

func TestExtractState(t *testing.T) {
	state, ok := extractState([]byte(`{"value":{"state":"Ready"}}`))
	if !ok || state != "ready" {
		t.Fatalf("extractState: got %q ok=%v", state, ok)
	}
	if _, ok := extractState([]byte(`{"other":1}`)); ok {
		t.Fatalf("payload without state should not match")
	}
}
