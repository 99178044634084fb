// ndvi-fetch lists scenes from an imagery provider and downloads band
// files into a local directory, ready for ndvi-compute or the watch
// mode of ndvi-map.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ndvi-map-go/internal/provider"
)

func main() {
	var (
		baseURL    = flag.String("provider-url", "", "Base URL of the imagery provider API")
		apiVersion = flag.String("provider-api-version", "1.0", "Imagery provider API version")
		sceneID    = flag.String("scene-id", "", "Scene to download; empty lists the catalog")
		bandsStr   = flag.String("bands", "red,nir", "Comma-separated bands to download")
		destDir    = flag.String("dest-dir", "scenes", "Directory for downloaded band files")
		maxCloud   = flag.Float64("max-cloud", 100.0, "Skip catalog entries above this cloud percentage")
	)
	flag.Parse()

	if *baseURL == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *sceneID == "" {
		scenes, err := provider.ListScenes(ctx, *baseURL, *apiVersion)
		if err != nil {
			log.Fatalf("list scenes: %v", err)
		}
		if len(scenes) == 0 {
			log.Println("catalog is empty")
			return
		}
		for _, scene := range scenes {
			if scene.CloudPct > *maxCloud {
				continue
			}
			fmt.Printf("%s\t%s\tcloud=%.1f%%\tbands=%s\n",
				scene.SceneID, scene.Acquired, scene.CloudPct, strings.Join(scene.Bands, ","))
		}
		return
	}

	bands := splitList(*bandsStr)
	if len(bands) == 0 {
		log.Fatalf("no bands requested")
	}
	for _, band := range bands {
		path, n, err := provider.DownloadBand(ctx, *baseURL, *apiVersion, *sceneID, band, *destDir)
		if err != nil {
			log.Fatalf("download %s: %v", band, err)
		}
		log.Printf("downloaded %s (%d bytes)", path, n)
	}
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
