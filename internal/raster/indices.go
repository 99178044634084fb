package raster

// NormalizedDifference computes (a-b)/(a+b) per pixel. Pixels where the
// denominator is zero, or where either input is invalid, are masked out.
// Valid outputs are bounded in [-1, 1].
func NormalizedDifference(a, b *Grid) (*Grid, error) {
	if err := sameShape(a, b); err != nil {
		return nil, err
	}
	out := NewGrid(a.Width, a.Height)
	for i := range a.Samples {
		if !a.Mask[i] || !b.Mask[i] {
			continue
		}
		sum := a.Samples[i] + b.Samples[i]
		if sum == 0 {
			continue
		}
		out.Samples[i] = (a.Samples[i] - b.Samples[i]) / sum
		out.Mask[i] = true
	}
	return out, nil
}

// NDVI is the Normalized Difference Vegetation Index: (NIR-RED)/(NIR+RED).
func NDVI(nir, red *Grid) (*Grid, error) {
	return NormalizedDifference(nir, red)
}

// NDWI is the Normalized Difference Water Index: (GREEN-NIR)/(GREEN+NIR).
func NDWI(green, nir *Grid) (*Grid, error) {
	return NormalizedDifference(green, nir)
}

// NDRE is the Normalized Difference Red Edge index: (NIR-RE)/(NIR+RE).
func NDRE(nir, rededge *Grid) (*Grid, error) {
	return NormalizedDifference(nir, rededge)
}

// NDMI is the Normalized Difference Moisture Index: (NIR-SWIR)/(NIR+SWIR).
func NDMI(nir, swir *Grid) (*Grid, error) {
	return NormalizedDifference(nir, swir)
}

// IndexInputs maps an index name to the two band names feeding it, in
// numerator-first order for NormalizedDifference.
var IndexInputs = map[string][2]string{
	"ndvi": {"nir", "red"},
	"ndwi": {"green", "nir"},
	"ndre": {"nir", "rededge"},
	"ndmi": {"nir", "swir"},
}

// ComputeIndex resolves an index by name against the bands of a stack.
func ComputeIndex(s *Stack, name string) (*Grid, error) {
	inputs, ok := IndexInputs[name]
	if !ok {
		return nil, errUnknownIndex(name)
	}
	a, ok := s.Band(inputs[0])
	if !ok {
		return nil, errMissingBand(name, inputs[0])
	}
	b, ok := s.Band(inputs[1])
	if !ok {
		return nil, errMissingBand(name, inputs[1])
	}
	return NormalizedDifference(a, b)
}
