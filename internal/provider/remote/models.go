package remote

// DetectRequest for POST /v1/detect
type DetectRequest struct {
	Pixels         string `json:"pixels"` // base64 raw RGBA, row-major
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Model          string `json:"model"`
	WithDescriptor bool   `json:"with_descriptor"`
}

// DetectResponse from POST /v1/detect
type DetectResponse struct {
	Faces []FaceResult `json:"faces"`
}

type FaceResult struct {
	Box        FaceBox   `json:"box"`
	Confidence float64   `json:"confidence"`
	Descriptor []float64 `json:"descriptor,omitempty"`
	LeftEye    []XY      `json:"left_eye,omitempty"`
	RightEye   []XY      `json:"right_eye,omitempty"`
}

type FaceBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
