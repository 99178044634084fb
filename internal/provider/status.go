package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Status struct {
	Catalog string
	Ingest  string
	Archive string
	Monitor string
}

// Poll queries the provider's per-module status endpoints on an
// interval and hands each result to update.
func Poll(ctx context.Context, baseURL string, apiVersion string, interval time.Duration, update func(Status)) {
	if baseURL == "" || update == nil {
		return
	}
	baseURL = strings.TrimRight(baseURL, "/")
	client := &http.Client{
		Timeout: 900 * time.Millisecond,
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status := Status{
			Catalog: fetchStatus(ctx, client, joinPath(baseURL, apiVersion, "catalog", "status")),
			Ingest:  fetchStatus(ctx, client, joinPath(baseURL, apiVersion, "ingest", "status")),
			Archive: fetchStatus(ctx, client, joinPath(baseURL, apiVersion, "archive", "status")),
			Monitor: fetchStatus(ctx, client, joinPath(baseURL, apiVersion, "monitor", "status")),
		}
		update(status)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func fetchStatus(ctx context.Context, client *http.Client, endpoint string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "error"
	}
	resp, err := client.Do(req)
	if err != nil {
		return "error"
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("http_%d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "error"
	}
	if len(body) == 0 {
		return "ok"
	}

	state, ok := extractState(body)
	if !ok {
		return "ok"
	}
	return state
}

func extractState(payload []byte) (string, bool) {
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", false
	}
	state := findState(decoded)
	if state == "" {
		return "", false
	}
	return strings.ToLower(state), true
}

func findState(value any) string {
	switch v := value.(type) {
	case map[string]any:
		for _, key := range []string{"state", "status", "value"} {
			if entry, ok := v[key]; ok {
				switch inner := entry.(type) {
				case string:
					return inner
				default:
					if nested := findState(inner); nested != "" {
						return nested
					}
				}
			}
		}
	case []any:
		for _, entry := range v {
			if nested := findState(entry); nested != "" {
				return nested
			}
		}
	}
	return ""
}
