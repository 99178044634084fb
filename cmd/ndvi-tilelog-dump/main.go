// ndvi-tilelog-dump inspects a raw tile log written by ndvi-map with
// -raw-log: prints the start/end metadata, per-band tile counts and,
// with -verbose, one line per record. With -replay-endpoint the
// recorded messages are pushed back out over ZMQ instead, paced by the
// recorded timestamps, so a log can drive ndvi-map like a live
// producer.
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"

	"ndvi-map-go/internal/output"
)

func main() {
	var (
		file     = flag.String("file", "", "Path to a raw tile log")
		verbose  = flag.Bool("verbose", false, "Print one line per record")
		max      = flag.Int("max", 0, "Stop after N records (0 = all)")
		replayTo = flag.String("replay-endpoint", "", "ZMQ endpoint to replay the log to, e.g. tcp://*:31001")
		speed    = flag.Float64("replay-speed", 1.0, "Replay speed factor (0 = no pacing)")
	)
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("open %s: %v", *file, err)
	}
	defer f.Close()
	r := bufio.NewReaderSize(f, 1024*1024)

	magic := make([]byte, len(output.RawLogMagic()))
	if _, err := io.ReadFull(r, magic); err != nil {
		log.Fatalf("read magic: %v", err)
	}
	if string(magic) != output.RawLogMagic() {
		log.Fatalf("%s is not a raw tile log (magic %q)", *file, magic)
	}

	var socket *zmq4.Socket
	if *replayTo != "" {
		socket, err = zmq4.NewSocket(zmq4.PUSH)
		if err != nil {
			log.Fatalf("replay socket: %v", err)
		}
		defer socket.Close()
		if err := socket.Bind(*replayTo); err != nil {
			log.Fatalf("bind %s: %v", *replayTo, err)
		}
		log.Printf("replaying %s to %s", *file, *replayTo)
	}

	var (
		records    int
		badRecords int
		totalBytes int64
		firstTS    time.Time
		lastTS     time.Time
		typeCounts = map[string]int{}
		bandCounts = map[string]int{}
	)

	for {
		if *max > 0 && records >= *max {
			break
		}
		var header [12]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if err == io.EOF {
				break
			}
			log.Fatalf("record %d: read header: %v", records, err)
		}
		ts := time.Unix(0, int64(binary.LittleEndian.Uint64(header[:8])))
		length := binary.LittleEndian.Uint32(header[8:12])

		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			log.Fatalf("record %d: read payload: %v", records, err)
		}
		records++
		totalBytes += int64(length)
		if firstTS.IsZero() {
			firstTS = ts
		}

		if socket != nil {
			if *speed > 0 && !lastTS.IsZero() && ts.After(lastTS) {
				time.Sleep(time.Duration(float64(ts.Sub(lastTS)) / *speed))
			}
			if _, err := socket.SendBytes(payload, 0); err != nil {
				log.Fatalf("record %d: replay send: %v", records, err)
			}
			lastTS = ts
			continue
		}
		lastTS = ts

		var message map[string]any
		if err := cbor.Unmarshal(payload, &message); err != nil {
			badRecords++
			if *verbose {
				fmt.Printf("%s  %6d B  <undecodable: %v>\n", ts.Format(time.RFC3339Nano), length, err)
			}
			continue
		}

		msgType, _ := message["type"].(string)
		if msgType == "" {
			msgType = "unknown"
		}
		typeCounts[msgType]++

		switch msgType {
		case "start", "end":
			fmt.Printf("%s  %s:\n%s\n", ts.Format(time.RFC3339Nano), msgType, prettyMeta(message))
		case "image":
			band, _ := message["band"].(string)
			if band == "" {
				band = "?"
			}
			bandCounts[band]++
			if *verbose {
				fmt.Printf("%s  %6d B  band=%s tile_id=%v compression=%v\n",
					ts.Format(time.RFC3339Nano), length, band, message["tile_id"], message["compression"])
			}
		default:
			if *verbose {
				fmt.Printf("%s  %6d B  type=%s\n", ts.Format(time.RFC3339Nano), length, msgType)
			}
		}
	}

	fmt.Printf("\n%d records, %d bytes of payload", records, totalBytes)
	if !firstTS.IsZero() && lastTS.After(firstTS) {
		fmt.Printf(" over %s", lastTS.Sub(firstTS).Round(time.Millisecond))
	}
	fmt.Println()
	for msgType, count := range typeCounts {
		fmt.Printf("  %-8s %d\n", msgType, count)
	}
	if len(bandCounts) > 0 {
		fmt.Println("tiles per band:")
		for band, count := range bandCounts {
			fmt.Printf("  %-8s %d\n", band, count)
		}
	}
	if badRecords > 0 {
		fmt.Printf("%d record(s) failed to decode\n", badRecords)
	}
}

func prettyMeta(message map[string]any) string {
	data, err := json.MarshalIndent(output.NormalizeJSONValue(message), "  ", "  ")
	if err != nil {
		return fmt.Sprintf("  <unprintable: %v>", err)
	}
	return "  " + string(data)
}
