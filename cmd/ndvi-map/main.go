package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"ndvi-map-go/internal/config"
	"ndvi-map-go/internal/geotiff"
	"ndvi-map-go/internal/ingest"
	"ndvi-map-go/internal/output"
	"ndvi-map-go/internal/processing"
	"ndvi-map-go/internal/provider"
	"ndvi-map-go/internal/raster"
	"ndvi-map-go/internal/server"
	"ndvi-map-go/internal/simulator"
	"ndvi-map-go/internal/types"
	"ndvi-map-go/internal/watch"
)

type metrics struct {
	rawMessages        atomic.Uint64
	tileMessages       atomic.Uint64
	metaMessages       atomic.Uint64
	tilesProcessed     atomic.Uint64
	snapshotsBroadcast atomic.Uint64
	scenesCompleted    atomic.Uint64
	outputWriteOK      atomic.Uint64
	outputWriteError   atomic.Uint64
	metadataWriteErr   atomic.Uint64
	watchJobs          atomic.Uint64
	watchJobErrors     atomic.Uint64
	processCount       atomic.Uint64
	processNanos       atomic.Uint64
	writeCount         atomic.Uint64
	writeNanos         atomic.Uint64
}

func (m *metrics) snapshot() map[string]any {
	return map[string]any{
		"raw_messages_total":        m.rawMessages.Load(),
		"tile_messages_total":       m.tileMessages.Load(),
		"meta_messages_total":       m.metaMessages.Load(),
		"tiles_processed_total":     m.tilesProcessed.Load(),
		"snapshots_broadcast_total": m.snapshotsBroadcast.Load(),
		"scenes_completed_total":    m.scenesCompleted.Load(),
		"output_write_ok_total":     m.outputWriteOK.Load(),
		"output_write_err_total":    m.outputWriteError.Load(),
		"metadata_write_err_total":  m.metadataWriteErr.Load(),
		"watch_jobs_total":          m.watchJobs.Load(),
		"watch_job_err_total":       m.watchJobErrors.Load(),
		"process_total":             m.processCount.Load(),
		"process_nanos_total":       m.processNanos.Load(),
		"write_total":               m.writeCount.Load(),
		"write_nanos_total":         m.writeNanos.Load(),
	}
}

func main() {
	var (
		port             = flag.Int("port", 8888, "HTTP port for the web UI")
		endpoint         = flag.String("endpoint", "tcp://localhost:31001", "ZMQ endpoint of the tile producer")
		watchDir         = flag.String("watch-dir", "", "Directory to watch for scene band files (disables streaming ingest)")
		watchSettle      = flag.Duration("watch-settle", 2*time.Second, "Settle interval before a watched file counts as complete")
		providerURL      = flag.String("provider-url", "", "Base URL of the imagery provider API")
		providerVersion  = flag.String("provider-api-version", "1.0", "Imagery provider API version")
		providerInterval = flag.Duration("provider-interval", 1*time.Second, "Polling interval for provider status")
		workers          = flag.Int("workers", 4, "Number of tile processing workers")
		simWidth         = flag.Int("sim-width", 256, "Simulated scene width in pixels")
		simHeight        = flag.Int("sim-height", 256, "Simulated scene height in pixels")
		tileSize         = flag.Int("tile-size", 64, "Tile size for simulated scenes")
		indicesFlag      = flag.String("indices", "ndvi", "Comma-separated indices to compute (ndvi,ndwi,ndre,ndmi)")
		debug            = flag.Bool("debug", false, "Run with simulated data")
		debugAcqRate     = flag.Float64("debug-acq-rate", 100.0, "Simulated acquisition rate (tiles/sec)")
		uiRate           = flag.Duration("ui-rate", 1*time.Second, "UI update interval for websocket clients")
		outputDir        = flag.String("output-dir", "output", "Directory for product files")
		rawLogEnabled    = flag.Bool("raw-log", false, "Write raw CBOR tile messages to disk")
		rawLogDir        = flag.String("raw-log-dir", "rawlog", "Directory for raw tile logs")
		ingestLogEvery   = flag.Int("ingest-log-every", 100, "Log every Nth ingest error")
		ingestFallback   = flag.Bool("ingest-fallback", true, "Fall back to simulator when ingest fails")
	)
	flag.Parse()

	cfg := config.AppConfig{
		Port:                 *port,
		Endpoint:             *endpoint,
		WatchDir:             *watchDir,
		WatchSettle:          *watchSettle,
		ProviderBaseURL:      *providerURL,
		ProviderPollInterval: *providerInterval,
		Workers:              *workers,
		TileSize:             *tileSize,
		Bands:                []string{"red", "nir"},
		Indices:              splitList(*indicesFlag),
		Debug:                *debug,
		DebugAcqRate:         *debugAcqRate,
		UIRate:               *uiRate,
		RawLogEnabled:        *rawLogEnabled,
		RawLogDir:            *rawLogDir,
		OutputDir:            *outputDir,
		IngestLogEvery:       *ingestLogEvery,
		IngestFallback:       *ingestFallback,
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if len(cfg.Indices) == 0 {
		cfg.Indices = []string{"ndvi"}
	}
	if cfg.UIRate <= 0 {
		cfg.UIRate = 1 * time.Second
	}
	for _, name := range cfg.Indices {
		if _, ok := raster.IndexInputs[name]; !ok {
			log.Fatalf("unknown index %q", name)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics metrics
	var statusMu sync.Mutex
	status := map[string]any{
		"provider":    "unknown",
		"stream":      "idle",
		"filewriter":  "idle",
		"last_tile":   "",
		"last_write":  "",
		"last_ingest": "",
	}
	setStatus := func(key string, value any) {
		statusMu.Lock()
		status[key] = value
		statusMu.Unlock()
	}

	var rawMessages <-chan types.RawMessage
	switch {
	case cfg.WatchDir != "":
		setStatus("stream", "watch")
	case cfg.Debug:
		rawMessages = simulator.Stream(ctx, *simWidth, *simHeight, cfg.TileSize, cfg.DebugAcqRate)
		setStatus("provider", "simulator")
	default:
		out := make(chan types.RawMessage, 128)
		rawMessages = out
		var recorder ingest.RawRecorder
		if cfg.RawLogEnabled {
			writer, err := output.NewRawLogWriter(cfg.RawLogDir, "raw_tiles")
			if err != nil {
				log.Fatalf("failed to start raw log: %v", err)
			}
			recorder = writer
			go func() {
				<-ctx.Done()
				if err := writer.Close(); err != nil {
					log.Printf("raw log close failed: %v", err)
				}
			}()
		}
		go func() {
			defer close(out)
			var ingestCh <-chan types.RawMessage
			startIngest := func() {
				stream, err := ingest.StreamWithLogEveryAndRecorder(ctx, cfg.Endpoint, cfg.IngestLogEvery, recorder)
				if err != nil {
					if cfg.IngestFallback {
						log.Printf("failed to start ingest: %v; falling back to simulator", err)
						ingestCh = simulator.Stream(ctx, *simWidth, *simHeight, cfg.TileSize, cfg.DebugAcqRate)
					} else {
						log.Fatalf("failed to start ingest: %v", err)
					}
				} else {
					ingestCh = stream
				}
			}
			startIngest()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-ingestCh:
					if !ok {
						startIngest()
						continue
					}
					select {
					case <-ctx.Done():
						return
					case out <- msg:
					}
				}
			}
		}()
	}

	log.Printf("Starting web UI at http://localhost:%d\n", cfg.Port)

	incoming := make(chan types.RawTile, 128)
	processed := make(chan types.Tile, 128)
	sceneStarts := make(chan processing.SceneConfig, 4)
	uiMessages := make(chan any, 16)

	// Current scene geometry, shared by workers and the dispatcher.
	var sceneMu sync.RWMutex
	currentScene := processing.SceneConfig{
		Width:    *simWidth,
		Height:   *simHeight,
		TileSize: cfg.TileSize,
		Bands:    cfg.Bands,
		Scale:    1,
	}
	getScene := func() processing.SceneConfig {
		sceneMu.RLock()
		defer sceneMu.RUnlock()
		return currentScene
	}

	var runMu sync.Mutex
	currentRun := output.RunInfo{}
	getRun := func(sceneID string) output.RunInfo {
		runMu.Lock()
		defer runMu.Unlock()
		if currentRun.Timestamp == "" {
			currentRun = output.NewRunInfo(processing.Timestamp(), sceneID)
		}
		return currentRun
	}
	clearRun := func() {
		runMu.Lock()
		currentRun = output.RunInfo{}
		runMu.Unlock()
	}

	var latestSnapshotMu sync.Mutex
	var latestSnapshot types.UISnapshot
	var hasSnapshot bool

	var quicklookMu sync.Mutex
	quicklooks := make(map[string]*raster.Grid)
	setQuicklooks := func(grids map[string]*raster.Grid) {
		quicklookMu.Lock()
		for name, grid := range grids {
			quicklooks[name] = grid
		}
		quicklookMu.Unlock()
	}

	var imageStatsMu sync.Mutex
	var imageStats map[string]raster.GridStats

	if rawMessages != nil {
		go func() {
			defer close(incoming)
			for msg := range rawMessages {
				metrics.rawMessages.Add(1)
				setStatus("last_ingest", time.Now().Format(time.RFC3339))
				if msg.Type != "image" {
					metrics.metaMessages.Add(1)
					handleMeta(msg, &metrics, cfg, sceneStarts, getRun, clearRun, func(c processing.SceneConfig) {
						sceneMu.Lock()
						currentScene = c
						sceneMu.Unlock()
					})
					continue
				}

				metrics.tileMessages.Add(1)
				select {
				case <-ctx.Done():
					return
				case incoming <- msg.Tile:
				}
			}
		}()
	} else {
		close(incoming)
	}

	var wg sync.WaitGroup
	wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go func() {
			defer wg.Done()
			for raw := range incoming {
				scene := getScene()
				start := time.Now()
				tile, ok := processing.ProcessRawTile(raw, scene.Scale, scene.Offset)
				metrics.processCount.Add(1)
				metrics.processNanos.Add(uint64(time.Since(start).Nanoseconds()))
				if !ok {
					continue
				}
				metrics.tilesProcessed.Add(1)
				setStatus("stream", "receiving")
				setStatus("last_tile", time.Now().Format(time.RFC3339))
				select {
				case <-ctx.Done():
					return
				case processed <- tile:
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(processed)
	}()

	writeScene := func(agg *processing.Aggregator) {
		scene := agg.Config()
		run := getRun(scene.SceneID)
		stack, err := agg.Stack()
		if err != nil {
			metrics.outputWriteError.Add(1)
			log.Printf("assemble scene %s: %v", scene.SceneID, err)
			return
		}
		indices, err := computeIndices(stack, cfg.Indices)
		if err != nil {
			metrics.outputWriteError.Add(1)
			log.Printf("compute indices for %s: %v", scene.SceneID, err)
			return
		}

		setStatus("filewriter", "writing")
		writeStart := time.Now()
		err = output.WriteProducts(cfg.OutputDir, run, stack, indices)
		if err == nil {
			err = output.WriteSeries(cfg.OutputDir, run, indices)
		}
		metrics.writeCount.Add(1)
		metrics.writeNanos.Add(uint64(time.Since(writeStart).Nanoseconds()))
		if err != nil {
			metrics.outputWriteError.Add(1)
			log.Printf("output write failed: %v", err)
			setStatus("filewriter", "error")
		} else {
			metrics.outputWriteOK.Add(1)
			metrics.scenesCompleted.Add(1)
			log.Printf("wrote products for scene %s run %s", scene.SceneID, run.ID)
			setStatus("filewriter", "ok")
			setStatus("last_write", time.Now().Format(time.RFC3339))
		}

		merged := make(map[string]*raster.Grid, len(indices)+len(stack.Names))
		for name, grid := range indices {
			merged[name] = grid
		}
		for _, name := range stack.Names {
			grid, _ := stack.Band(name)
			merged[name] = grid
		}
		setQuicklooks(merged)
	}

	go func() {
		defer close(uiMessages)
		ticker := time.NewTicker(cfg.UIRate)
		defer ticker.Stop()

		agg := processing.NewAggregator(getScene())
		flush := func() {
			flushSnapshot(&metrics, uiMessages, agg, cfg.Indices,
				&latestSnapshotMu, &latestSnapshot, &hasSnapshot,
				&imageStatsMu, &imageStats)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case scene := <-sceneStarts:
				agg = processing.NewAggregator(scene)
				latestSnapshotMu.Lock()
				hasSnapshot = false
				latestSnapshot = types.UISnapshot{}
				latestSnapshotMu.Unlock()
			case tile, ok := <-processed:
				if !ok {
					flush()
					return
				}
				if agg.AddTile(tile) {
					writeScene(agg)
					flush()
					clearRun()
					agg.Reset()
				}
			case <-ticker.C:
				flush()
			}
		}
	}()

	if cfg.WatchDir != "" {
		jobs, err := watch.Stream(ctx, cfg.WatchDir, cfg.Bands, cfg.WatchSettle)
		if err != nil {
			log.Fatalf("failed to start watch: %v", err)
		}
		go func() {
			for job := range jobs {
				metrics.watchJobs.Add(1)
				log.Printf("watch: scene %s complete (%d bands)", job.SceneID, len(job.Bands))
				if err := processWatchedScene(cfg, job, &metrics, setStatus, setQuicklooks); err != nil {
					metrics.watchJobErrors.Add(1)
					log.Printf("watch: scene %s failed: %v", job.SceneID, err)
				}
			}
		}()
	}

	if !cfg.Debug && cfg.ProviderBaseURL != "" {
		go provider.Poll(ctx, cfg.ProviderBaseURL, *providerVersion, cfg.ProviderPollInterval, func(update provider.Status) {
			statusMu.Lock()
			status["provider"] = update.Catalog
			status["provider_ingest"] = update.Ingest
			status["provider_archive"] = update.Archive
			status["provider_monitor"] = update.Monitor
			statusMu.Unlock()
		})
	}

	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				statusMu.Lock()
				lastTile, _ := status["last_tile"].(string)
				if lastTile == "" {
					status["stream"] = "idle"
				}
				statusMu.Unlock()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snapshot := metrics.snapshot()
				log.Printf("ingest stats: raw=%v tiles=%v meta=%v decode_failures=%v",
					snapshot["raw_messages_total"],
					snapshot["tile_messages_total"],
					snapshot["meta_messages_total"],
					ingest.DecodeFailures(),
				)
			}
		}
	}()

	statusFn := func() map[string]any {
		statusMu.Lock()
		copy := map[string]any{}
		for k, v := range status {
			copy[k] = v
		}
		statusMu.Unlock()
		metricsPayload := metrics.snapshot()
		metricsPayload["ingest_decode_failures_total"] = ingest.DecodeFailures()
		decodeCount, decodeNanos := ingest.DecodeTiming()
		metricsPayload["ingest_decode_total"] = decodeCount
		metricsPayload["ingest_decode_nanos_total"] = decodeNanos
		copy["metrics"] = metricsPayload
		imageStatsMu.Lock()
		if imageStats != nil {
			copy["image_stats"] = imageStats
		}
		imageStatsMu.Unlock()
		return copy
	}

	snapshotFn := func() any {
		latestSnapshotMu.Lock()
		defer latestSnapshotMu.Unlock()
		if !hasSnapshot {
			return nil
		}
		return latestSnapshot
	}

	configFn := func() map[string]any {
		scene := getScene()
		return map[string]any{
			"type":      "config",
			"bands":     cfg.Bands,
			"indices":   cfg.Indices,
			"tile_size": scene.TileSize,
			"width":     scene.Width,
			"height":    scene.Height,
			"endpoint":  cfg.Endpoint,
			"watch_dir": cfg.WatchDir,
		}
	}

	quicklooksFn := func() map[string]*raster.Grid {
		quicklookMu.Lock()
		defer quicklookMu.Unlock()
		copy := make(map[string]*raster.Grid, len(quicklooks))
		for name, grid := range quicklooks {
			copy[name] = grid
		}
		return copy
	}

	if err := server.Run(ctx, cfg, uiMessages, statusFn, snapshotFn, configFn, quicklooksFn); err != nil {
		log.Printf("server stopped: %v", err)
	}
}

func handleMeta(
	msg types.RawMessage,
	metrics *metrics,
	cfg config.AppConfig,
	sceneStarts chan<- processing.SceneConfig,
	getRun func(string) output.RunInfo,
	clearRun func(),
	setScene func(processing.SceneConfig),
) {
	normalized, _ := output.NormalizeJSONValue(msg.Meta).(map[string]any)
	sceneID, _ := normalized["scene_id"].(string)

	switch msg.Type {
	case "start":
		log.Printf("start meta:\n%s", mustPrettyJSON(normalized))
		scene, err := processing.SceneConfigFromMeta(msg.Meta)
		if err != nil {
			log.Printf("bad start message: %v", err)
			return
		}
		setScene(scene)
		select {
		case sceneStarts <- scene:
		default:
			log.Printf("scene start dropped: aggregator busy")
		}
	case "end":
		log.Printf("end meta:\n%s", mustPrettyJSON(normalized))
	}

	run := getRun(sceneID)
	kind := msg.Type
	if kind == "" {
		kind = "metadata"
	}
	if err := output.WriteMetadata(cfg.OutputDir, run, kind, msg.Meta); err != nil {
		metrics.metadataWriteErr.Add(1)
		log.Printf("metadata write failed: %v", err)
	}
	if msg.Type == "end" {
		clearRun()
	}
}

// processWatchedScene runs the offline path for a scene that appeared
// on disk: stack the band files, compute indices, write products.
func processWatchedScene(
	cfg config.AppConfig,
	job watch.SceneJob,
	metrics *metrics,
	setStatus func(string, any),
	setQuicklooks func(map[string]*raster.Grid),
) error {
	names := make([]string, 0, len(job.Bands))
	paths := make([]string, 0, len(job.Bands))
	for _, band := range cfg.Bands {
		path, ok := job.Bands[band]
		if !ok {
			continue
		}
		names = append(names, band)
		paths = append(paths, path)
	}
	stack, err := geotiff.StackFiles(paths, names)
	if err != nil {
		return err
	}
	indices, err := computeIndices(stack, cfg.Indices)
	if err != nil {
		return err
	}

	run := output.NewRunInfo(processing.Timestamp(), job.SceneID)
	setStatus("filewriter", "writing")
	writeStart := time.Now()
	err = output.WriteProducts(cfg.OutputDir, run, stack, indices)
	if err == nil {
		err = output.WriteSeries(cfg.OutputDir, run, indices)
	}
	metrics.writeCount.Add(1)
	metrics.writeNanos.Add(uint64(time.Since(writeStart).Nanoseconds()))
	if err != nil {
		metrics.outputWriteError.Add(1)
		setStatus("filewriter", "error")
		return err
	}
	metrics.outputWriteOK.Add(1)
	metrics.scenesCompleted.Add(1)
	setStatus("filewriter", "ok")
	setStatus("last_write", time.Now().Format(time.RFC3339))

	merged := make(map[string]*raster.Grid)
	for name, grid := range indices {
		merged[name] = grid
	}
	for _, name := range stack.Names {
		grid, _ := stack.Band(name)
		merged[name] = grid
	}
	setQuicklooks(merged)
	return nil
}

// computeIndices evaluates each requested index that has its input
// bands present. At least one index must be computable.
func computeIndices(stack *raster.Stack, names []string) (map[string]*raster.Grid, error) {
	out := make(map[string]*raster.Grid)
	var lastErr error
	for _, name := range names {
		grid, err := raster.ComputeIndex(stack, name)
		if err != nil {
			lastErr = err
			continue
		}
		out[name] = grid
	}
	if len(out) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("no indices computed")
	}
	return out, nil
}

func flushSnapshot(
	metrics *metrics,
	uiMessages chan any,
	agg *processing.Aggregator,
	indices []string,
	latestSnapshotMu *sync.Mutex,
	latestSnapshot *types.UISnapshot,
	hasSnapshot *bool,
	imageStatsMu *sync.Mutex,
	imageStats *map[string]raster.GridStats,
) {
	snapshotData := agg.SnapshotCopy()
	if len(snapshotData) == 0 {
		return
	}
	scene := agg.Config()

	// Indices join the snapshot once both input bands have data.
	grids := agg.Snapshot()
	for _, name := range indices {
		inputs := raster.IndexInputs[name]
		a, okA := grids[inputs[0]]
		b, okB := grids[inputs[1]]
		if !okA || !okB {
			continue
		}
		grid, err := raster.NormalizedDifference(a, b)
		if err != nil {
			continue
		}
		snapshotData[name] = types.BandSnapshot{
			Values: grid.Samples,
			Mask:   grid.Mask,
		}
	}

	stats := make(map[string]raster.GridStats, len(snapshotData))
	for name, band := range snapshotData {
		g := &raster.Grid{
			Width:   scene.Width,
			Height:  scene.Height,
			Samples: band.Values,
			Mask:    band.Mask,
		}
		stats[name] = raster.Stats(g)
	}
	imageStatsMu.Lock()
	*imageStats = stats
	imageStatsMu.Unlock()

	message := types.UISnapshot{
		Type:    "snapshot",
		SceneID: scene.SceneID,
		Width:   scene.Width,
		Height:  scene.Height,
		Data:    snapshotData,
	}
	latestSnapshotMu.Lock()
	*latestSnapshot = message
	*hasSnapshot = true
	latestSnapshotMu.Unlock()
	select {
	case uiMessages <- message:
		metrics.snapshotsBroadcast.Add(1)
	default:
	}
}

func mustPrettyJSON(value any) string {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"%v"}`, err)
	}
	return string(data)
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
