// ndvi-compute runs the offline pipeline once: read scene bands from
// GeoTIFF files, compute vegetation indices and write the product set.
//
// Inputs can be named band files, a glob over single-band files, or one
// multiband file:
//
//	ndvi-compute -red B4.TIF -nir B5.TIF
//	ndvi-compute -glob "LC09_L2SP_*_B?.TIF" -band-names b1,b2,b3,b4,b5
//	ndvi-compute -stack scene.tif -band-names blue,green,red,nir
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"ndvi-map-go/internal/geotiff"
	"ndvi-map-go/internal/output"
	"ndvi-map-go/internal/processing"
	"ndvi-map-go/internal/raster"
)

func main() {
	var (
		redPath    = flag.String("red", "", "Path to the red band GeoTIFF")
		nirPath    = flag.String("nir", "", "Path to the NIR band GeoTIFF")
		globPat    = flag.String("glob", "", "Glob over single-band files, band names derived from file names")
		stackPath  = flag.String("stack", "", "Path to a multiband GeoTIFF")
		bandNames  = flag.String("band-names", "", "Comma-separated band names in file order")
		indicesStr = flag.String("indices", "ndvi", "Comma-separated indices to compute (ndvi,ndwi,ndre,ndmi)")
		sceneID    = flag.String("scene-id", "", "Scene identifier for the run manifest")
		outputDir  = flag.String("output-dir", "output", "Directory for product files")
		series     = flag.Bool("series", false, "Also write per-pixel CSV files")
		multiband  = flag.Bool("multiband", false, "Also write the stacked bands as one multiband GeoTIFF")
	)
	flag.Parse()

	stack, err := loadStack(*redPath, *nirPath, *globPat, *stackPath, splitList(*bandNames))
	if err != nil {
		log.Fatalf("load inputs: %v", err)
	}
	log.Printf("loaded %d band(s), %dx%d px: %s",
		len(stack.Names), stack.Meta.Width, stack.Meta.Height, strings.Join(stack.Names, ", "))

	indexNames := splitList(*indicesStr)
	if len(indexNames) == 0 {
		indexNames = []string{"ndvi"}
	}
	indices := make(map[string]*raster.Grid, len(indexNames))
	for _, name := range indexNames {
		grid, err := raster.ComputeIndex(stack, name)
		if err != nil {
			log.Fatalf("compute %s: %v", name, err)
		}
		stats := raster.Stats(grid)
		log.Printf("%s: min=%.4f max=%.4f mean=%.4f valid=%d/%d",
			name, stats.Min, stats.Max, stats.Mean, stats.Valid, stats.Total)
		indices[name] = grid
	}

	id := *sceneID
	if id == "" {
		id = "scene"
	}
	run := output.NewRunInfo(processing.Timestamp(), id)

	if err := output.WriteProducts(*outputDir, run, stack, indices); err != nil {
		log.Fatalf("write products: %v", err)
	}
	if *series {
		if err := output.WriteSeries(*outputDir, run, indices); err != nil {
			log.Fatalf("write series: %v", err)
		}
	}
	if *multiband {
		path := fmt.Sprintf("%s/%s_%s_stack.tif", *outputDir, run.Timestamp, id)
		if err := geotiff.WriteStack(path, stack); err != nil {
			log.Fatalf("write stack: %v", err)
		}
	}
	log.Printf("run %s written to %s", run.ID, *outputDir)
}

func loadStack(redPath, nirPath, globPat, stackPath string, names []string) (*raster.Stack, error) {
	switch {
	case stackPath != "":
		return geotiff.ReadStack(stackPath, names)
	case globPat != "":
		paths, err := geotiff.FindBands(globPat)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no files match %q", globPat)
		}
		if len(names) == 0 {
			names = make([]string, len(paths))
			for i, path := range paths {
				names[i] = geotiff.BandNameFromPath(path)
			}
		}
		return geotiff.StackFiles(paths, names)
	case redPath != "" && nirPath != "":
		return geotiff.StackFiles([]string{redPath, nirPath}, []string{"red", "nir"})
	default:
		flag.Usage()
		os.Exit(2)
		return nil, nil
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
