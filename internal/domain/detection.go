package domain

// BoundingBox represents the face area in the source frame, in pixels
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a single landmark coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Landmarks holds the landmark clusters the quality and liveness checks use.
// Eye clusters are ordered but the checks only rely on their centroids and
// vertical extent, so any consistent landmark model works.
type Landmarks struct {
	LeftEye  []Point `json:"left_eye"`
	RightEye []Point `json:"right_eye"`
}

// EyeCentroids returns the centroid of each eye cluster.
// ok is false when either cluster is empty.
func (l *Landmarks) EyeCentroids() (left, right Point, ok bool) {
	if l == nil || len(l.LeftEye) == 0 || len(l.RightEye) == 0 {
		return Point{}, Point{}, false
	}
	return centroid(l.LeftEye), centroid(l.RightEye), true
}

func centroid(points []Point) Point {
	var c Point
	for _, p := range points {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(points))
	c.X /= n
	c.Y /= n
	return c
}

// DetectionResult is one face found in a frame by the model provider.
// Descriptor and Landmarks are optional depending on the detector mode.
type DetectionResult struct {
	Box        BoundingBox `json:"box"`
	Confidence float64     `json:"confidence"`
	Descriptor Descriptor  `json:"descriptor,omitempty"`
	Landmarks  *Landmarks  `json:"landmarks,omitempty"`
}

// QualityMetrics holds the per-frame quality measurements and verdict.
// Derived transiently per frame, never persisted.
type QualityMetrics struct {
	Brightness  float64  `json:"brightness"`
	Sharpness   float64  `json:"sharpness"`
	Size        int      `json:"size"`
	Angle       float64  `json:"angle"`
	GoodQuality bool     `json:"good_quality"`
	Issues      []string `json:"issues,omitempty"`
}

// LivenessResult is the verdict of the heuristic liveness check
type LivenessResult struct {
	IsLive           bool           `json:"is_live"`
	Confidence       float64        `json:"confidence"`
	MotionPercentage float64        `json:"motion_percentage"`
	Checks           LivenessChecks `json:"checks"`
	Reasons          []string       `json:"reasons,omitempty"`
}

// LivenessChecks contains individual liveness check results
type LivenessChecks struct {
	Motion       bool `json:"motion"`
	EyesOpen     bool `json:"eyes_open"`
	HeadMovement bool `json:"head_movement"`
	QualityOK    bool `json:"quality_ok"`
}
