package types

type BandSnapshot struct {
	Values []float64 `json:"values"`
	Mask   []bool    `json:"mask"`
}

type UISnapshot struct {
	Type    string                  `json:"type"`
	SceneID string                  `json:"scene_id"`
	Width   int                     `json:"width"`
	Height  int                     `json:"height"`
	Data    map[string]BandSnapshot `json:"data"`
}
