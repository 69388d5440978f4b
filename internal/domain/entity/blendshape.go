package entity

// NamedScore is one blendshape category reported by the face landmarker.
type NamedScore struct {
	Name  string  `json:"categoryName"`
	Score float64 `json:"score"`
}

// Face holds the blendshape scores of a single detected face.
type Face struct {
	Blendshapes []NamedScore `json:"blendshapes"`
}

// RGBImage is a decoded frame: packed 8-bit RGB, row-major, no padding.
type RGBImage struct {
	Pix    []byte
	Width  int
	Height int
}
