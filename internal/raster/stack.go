package raster

import "fmt"

// SceneMeta carries the spatial metadata shared by every band of a scene.
type SceneMeta struct {
	Width        int
	Height       int
	GeoTransform [6]float64
	Projection   string
	NoData       float64
	HasNoData    bool
}

// PixelToMap converts pixel coordinates to map coordinates using the
// affine geotransform.
func (m SceneMeta) PixelToMap(x, y float64) (float64, float64) {
	gt := m.GeoTransform
	return gt[0] + x*gt[1] + y*gt[2], gt[3] + x*gt[4] + y*gt[5]
}

// Corners returns the four map-space corners of the scene in
// UL, UR, LR, LL order.
func (m SceneMeta) Corners() [4][2]float64 {
	w := float64(m.Width)
	h := float64(m.Height)
	var out [4][2]float64
	out[0][0], out[0][1] = m.PixelToMap(0, 0)
	out[1][0], out[1][1] = m.PixelToMap(w, 0)
	out[2][0], out[2][1] = m.PixelToMap(w, h)
	out[3][0], out[3][1] = m.PixelToMap(0, h)
	return out
}

// Stack is an ordered set of same-shaped named bands plus scene metadata.
type Stack struct {
	Meta  SceneMeta
	Names []string
	Bands map[string]*Grid
}

func NewStack(meta SceneMeta) *Stack {
	return &Stack{
		Meta:  meta,
		Bands: make(map[string]*Grid),
	}
}

// Add appends a band. The grid must match the stack shape.
func (s *Stack) Add(name string, grid *Grid) error {
	if grid.Width != s.Meta.Width || grid.Height != s.Meta.Height {
		return fmt.Errorf("band %q shape %dx%d does not match scene %dx%d",
			name, grid.Width, grid.Height, s.Meta.Width, s.Meta.Height)
	}
	if _, ok := s.Bands[name]; ok {
		return fmt.Errorf("duplicate band %q", name)
	}
	s.Names = append(s.Names, name)
	s.Bands[name] = grid
	return nil
}

func (s *Stack) Band(name string) (*Grid, bool) {
	g, ok := s.Bands[name]
	return g, ok
}
