package ingest

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"

	"ndvi-map-go/internal/types"
)

// RawRecorder receives every raw stream payload before decoding, for the
// raw tile log.
type RawRecorder interface {
	Record(payload []byte) error
}

var (
	decodeFailures atomic.Uint64
	decodeCount    atomic.Uint64
	decodeNanos    atomic.Uint64
)

func DecodeFailures() uint64 {
	return decodeFailures.Load()
}

func DecodeTiming() (uint64, uint64) {
	return decodeCount.Load(), decodeNanos.Load()
}

// Stream returns a channel of raw messages from a tile producer.
// Expects CBOR messages shaped like:
//
//	{ "type": "start", "scene_id": <str>, "width": <int>, "height": <int>,
//	  "tile_size": <int>, "bands": [<str>...], "geotransform": [<f64> x6],
//	  "crs": <str>, "scale": <f64>, "offset": <f64> }
//	{ "type": "image", "scene_id": <str>, "tile_id": <int>, "band": <str>,
//	  "start_time": <f64>, "compression": <str>, "raw_size": <int>,
//	  "data": <tag 40 multidim typed array> }
//	{ "type": "end", "scene_id": <str>, "tiles_sent": <int> }
func Stream(ctx context.Context, endpoint string) (<-chan types.RawMessage, error) {
	return streamWithConfig(ctx, endpoint, 1, nil)
}

func StreamWithLogEveryAndRecorder(ctx context.Context, endpoint string, logEvery int, recorder RawRecorder) (<-chan types.RawMessage, error) {
	if logEvery < 1 {
		logEvery = 1
	}
	return streamWithConfig(ctx, endpoint, logEvery, recorder)
}

func streamWithConfig(ctx context.Context, endpoint string, logEvery int, recorder RawRecorder) (<-chan types.RawMessage, error) {
	socket, err := zmq4.NewSocket(zmq4.PULL)
	if err != nil {
		return nil, err
	}
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, err
	}

	out := make(chan types.RawMessage, 128)
	go func() {
		defer close(out)
		defer socket.Close()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msg, err := socket.RecvBytes(0)
			if err != nil {
				logEveryN(logEvery, "ingest recv error: %v", err)
				continue
			}
			if recorder != nil {
				if err := recorder.Record(msg); err != nil {
					logEveryN(logEvery, "ingest raw record error: %v", err)
				}
			}

			raw, ok := decodeMessage(msg, logEvery)
			if !ok {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- raw:
			}
		}
	}()

	return out, nil
}

func decodeMessage(msg []byte, logEvery int) (types.RawMessage, bool) {
	start := time.Now()
	defer func() {
		decodeCount.Add(1)
		decodeNanos.Add(uint64(time.Since(start).Nanoseconds()))
	}()

	var payload map[string]any
	if err := cbor.Unmarshal(msg, &payload); err != nil {
		decodeFailures.Add(1)
		logEveryN(logEvery, "ingest CBOR decode error: %v", err)
		return types.RawMessage{}, false
	}

	msgType, _ := payload["type"].(string)
	switch msgType {
	case "start", "end":
		meta := make(map[string]any, len(payload))
		for k, v := range payload {
			if k == "type" {
				continue
			}
			meta[k] = v
		}
		return types.RawMessage{Type: msgType, Meta: meta}, true
	case "image":
		tile, ok := decodeTile(payload, logEvery)
		if !ok {
			decodeFailures.Add(1)
			return types.RawMessage{}, false
		}
		return types.RawMessage{Type: "image", Tile: tile}, true
	default:
		decodeFailures.Add(1)
		logEveryN(logEvery, "ingest ignoring message type %q", msgType)
		return types.RawMessage{}, false
	}
}

func decodeTile(payload map[string]any, logEvery int) (types.RawTile, bool) {
	sceneID, _ := payload["scene_id"].(string)
	band, _ := payload["band"].(string)
	if band == "" {
		logEveryN(logEvery, "ingest image message missing band")
		return types.RawTile{}, false
	}

	tileID, err := toInt(payload["tile_id"])
	if err != nil {
		logEveryN(logEvery, "ingest invalid tile_id: %v", err)
		return types.RawTile{}, false
	}
	startTime, err := toFloat(payload["start_time"])
	if err != nil {
		logEveryN(logEvery, "ingest invalid start_time: %v", err)
		return types.RawTile{}, false
	}

	algorithm, _ := payload["compression"].(string)
	rawSize := 0
	if v, ok := payload["raw_size"]; ok {
		if rawSize, err = toInt(v); err != nil {
			logEveryN(logEvery, "ingest invalid raw_size: %v", err)
			return types.RawTile{}, false
		}
	}

	data, err := decodeMultiDimArray(payload["data"], algorithm, rawSize)
	if err != nil {
		logEveryN(logEvery, "ingest tile payload for band %q: %v", band, err)
		return types.RawTile{}, false
	}

	return types.RawTile{
		SceneID:   sceneID,
		TileID:    tileID,
		Band:      band,
		StartTime: startTime,
		Data:      data,
	}, true
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case uint32:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unsupported int type %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unsupported float type %T", v)
	}
}

var logCounter int

func logEveryN(n int, format string, args ...any) {
	logCounter++
	if logCounter%n == 0 {
		log.Printf(format, args...)
	}
}
