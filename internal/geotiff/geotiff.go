package geotiff

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"

	"ndvi-map-go/internal/raster"
)

// OutputNoData marks invalid pixels in written products.
const OutputNoData = -9999.0

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

// ReadBand reads band 1 of a single-band raster file into a grid.
// Pixels equal to the file's nodata value are masked out.
func ReadBand(path string) (*raster.Grid, raster.SceneMeta, error) {
	register()
	ds, err := godal.Open(path)
	if err != nil {
		return nil, raster.SceneMeta{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer ds.Close()

	meta, err := readMeta(ds)
	if err != nil {
		return nil, raster.SceneMeta{}, fmt.Errorf("read metadata %s: %w", path, err)
	}

	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, raster.SceneMeta{}, fmt.Errorf("%s has no raster bands", path)
	}
	grid, err := readBandData(bands[0], meta)
	if err != nil {
		return nil, raster.SceneMeta{}, fmt.Errorf("read band %s: %w", path, err)
	}
	return grid, meta, nil
}

// ReadStack reads every band of a multiband raster file. Band names
// default to band_1..band_n when names is shorter than the band count.
func ReadStack(path string, names []string) (*raster.Stack, error) {
	register()
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer ds.Close()

	meta, err := readMeta(ds)
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", path, err)
	}

	stack := raster.NewStack(meta)
	for i, band := range ds.Bands() {
		name := fmt.Sprintf("band_%d", i+1)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		grid, err := readBandData(band, meta)
		if err != nil {
			return nil, fmt.Errorf("read band %d of %s: %w", i+1, path, err)
		}
		if err := stack.Add(name, grid); err != nil {
			return nil, err
		}
	}
	return stack, nil
}

// StackFiles builds a stack from same-shaped single-band files, the
// classic "stack the scene's band files into one image" step. Metadata
// comes from the first file; every other file must match its shape.
func StackFiles(paths []string, names []string) (*raster.Stack, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input files")
	}
	if len(names) != len(paths) {
		return nil, fmt.Errorf("got %d names for %d files", len(names), len(paths))
	}

	var stack *raster.Stack
	for i, path := range paths {
		grid, meta, err := ReadBand(path)
		if err != nil {
			return nil, err
		}
		if stack == nil {
			stack = raster.NewStack(meta)
		}
		if err := stack.Add(names[i], grid); err != nil {
			return nil, fmt.Errorf("stack %s: %w", path, err)
		}
	}
	return stack, nil
}

// WriteGrid writes a grid as a single-band Float32 GeoTIFF. Invalid
// pixels become the output nodata value.
func WriteGrid(path string, grid *raster.Grid, meta raster.SceneMeta) error {
	register()
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, grid.Width, grid.Height,
		godal.CreationOption("TILED=YES", "COMPRESS=DEFLATE"))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := writeGeoref(ds, meta); err != nil {
		_ = ds.Close()
		return fmt.Errorf("georeference %s: %w", path, err)
	}

	band := ds.Bands()[0]
	if err := band.SetNoData(OutputNoData); err != nil {
		_ = ds.Close()
		return fmt.Errorf("set nodata %s: %w", path, err)
	}

	buf := make([]float32, len(grid.Samples))
	for i, v := range grid.Samples {
		if grid.Mask[i] {
			buf[i] = float32(v)
		} else {
			buf[i] = OutputNoData
		}
	}
	if err := band.Write(0, 0, buf, grid.Width, grid.Height); err != nil {
		_ = ds.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return ds.Close()
}

// WriteStack writes all bands of a stack into one multiband Float32
// GeoTIFF in stack order.
func WriteStack(path string, stack *raster.Stack) error {
	register()
	meta := stack.Meta
	ds, err := godal.Create(godal.GTiff, path, len(stack.Names), godal.Float32, meta.Width, meta.Height,
		godal.CreationOption("TILED=YES", "COMPRESS=DEFLATE"))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := writeGeoref(ds, meta); err != nil {
		_ = ds.Close()
		return fmt.Errorf("georeference %s: %w", path, err)
	}

	bands := ds.Bands()
	for i, name := range stack.Names {
		grid, _ := stack.Band(name)
		band := bands[i]
		if err := band.SetNoData(OutputNoData); err != nil {
			_ = ds.Close()
			return fmt.Errorf("set nodata band %d of %s: %w", i+1, path, err)
		}
		buf := make([]float32, len(grid.Samples))
		for j, v := range grid.Samples {
			if grid.Mask[j] {
				buf[j] = float32(v)
			} else {
				buf[j] = OutputNoData
			}
		}
		if err := band.Write(0, 0, buf, grid.Width, grid.Height); err != nil {
			_ = ds.Close()
			return fmt.Errorf("write band %d of %s: %w", i+1, path, err)
		}
	}
	return ds.Close()
}

func readMeta(ds *godal.Dataset) (raster.SceneMeta, error) {
	structure := ds.Structure()
	meta := raster.SceneMeta{
		Width:      structure.SizeX,
		Height:     structure.SizeY,
		Projection: ds.Projection(),
	}
	gt, err := ds.GeoTransform()
	if err == nil {
		meta.GeoTransform = gt
	} else {
		// Ungeoreferenced input: identity transform, pixel coordinates.
		meta.GeoTransform = [6]float64{0, 1, 0, 0, 0, 1}
	}
	bands := ds.Bands()
	if len(bands) > 0 {
		if nodata, ok := bands[0].NoData(); ok {
			meta.NoData = nodata
			meta.HasNoData = true
		}
	}
	return meta, nil
}

func readBandData(band godal.Band, meta raster.SceneMeta) (*raster.Grid, error) {
	grid := raster.NewGrid(meta.Width, meta.Height)
	if err := band.Read(0, 0, grid.Samples, meta.Width, meta.Height); err != nil {
		return nil, err
	}
	nodata, hasNoData := band.NoData()
	for i, v := range grid.Samples {
		if hasNoData && v == nodata {
			grid.Samples[i] = 0
			continue
		}
		grid.Mask[i] = true
	}
	return grid, nil
}

func writeGeoref(ds *godal.Dataset, meta raster.SceneMeta) error {
	if err := ds.SetGeoTransform(meta.GeoTransform); err != nil {
		return err
	}
	if meta.Projection != "" {
		if err := ds.SetProjection(meta.Projection); err != nil {
			return err
		}
	}
	return nil
}
