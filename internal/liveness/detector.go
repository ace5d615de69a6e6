// Package liveness implements the heuristic presence check: frame-to-frame
// motion plus landmark geometry. It is best-effort anti-spoofing for photo
// and replay artifacts, not a security guarantee.
package liveness

import (
	"math"

	"github.com/civitas-labs/facegate/internal/domain"
	"github.com/civitas-labs/facegate/internal/imaging"
)

// Reason strings reported when a check fails
const (
	ReasonStaticScene   = "no natural motion detected"
	ReasonErraticMotion = "excessive frame motion"
	ReasonEyesNotOpen   = "eyes not clearly open"
	ReasonRigidPose     = "no natural head movement"
	ReasonLowQuality    = "frame quality insufficient"
)

// poseHistorySize bounds the angle window used for the movement variance
const poseHistorySize = 10

// Config holds the liveness heuristics' tuning
type Config struct {
	// Motion band, as percent of sampled pixels that changed
	MotionMinPct float64
	MotionMaxPct float64
	// PixelDelta is the summed per-channel difference above which a
	// sampled pixel counts as changed
	PixelDelta int
	// SampleStride selects every Nth pixel for the motion diff
	SampleStride int
	// Natural head movement band, in degrees of pose-angle deviation
	PoseVarMinDeg float64
	PoseVarMaxDeg float64
	// EyeOpenMinDist is the minimum vertical eyelid extent, in pixels
	EyeOpenMinDist float64
}

// DefaultConfig returns the production tuning
func DefaultConfig() Config {
	return Config{
		MotionMinPct:   0.5,
		MotionMaxPct:   15,
		PixelDelta:     30,
		SampleStride:   10,
		PoseVarMinDeg:  2,
		PoseVarMaxDeg:  20,
		EyeOpenMinDist: 3,
	}
}

// Detector accumulates per-session state: the previous frame snapshot for
// motion diffing and a short pose-angle history. One detector serves one
// capture session; it is not safe for concurrent use.
type Detector struct {
	cfg    Config
	prev   *imaging.Frame
	angles []float64
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Reset clears accumulated state at the start of a new session
func (d *Detector) Reset() {
	d.prev = nil
	d.angles = d.angles[:0]
}

// Check evaluates the current frame against accumulated session state.
// qualityOK is the quality gate verdict for this frame; a live-looking frame
// of unusable quality is still not live. The current frame becomes the
// reference snapshot for the next call.
func (d *Detector) Check(current *imaging.Frame, landmarks *domain.Landmarks, qualityOK bool) domain.LivenessResult {
	result := domain.LivenessResult{
		Checks: domain.LivenessChecks{QualityOK: qualityOK},
	}

	checksDefined := 0
	checksPassed := 0

	// Motion check. The first frame of a session has no reference and
	// passes by default rather than penalizing the sample.
	checksDefined++
	if d.prev == nil || !d.prev.SameDimensions(current) {
		result.Checks.Motion = true
		checksPassed++
	} else {
		pct := d.motionPercentage(d.prev, current)
		result.MotionPercentage = pct
		switch {
		case pct <= d.cfg.MotionMinPct:
			result.Reasons = append(result.Reasons, ReasonStaticScene)
		case pct >= d.cfg.MotionMaxPct:
			result.Reasons = append(result.Reasons, ReasonErraticMotion)
		default:
			result.Checks.Motion = true
			checksPassed++
		}
	}

	if landmarks != nil {
		checksDefined++
		if eyesOpen(landmarks, d.cfg.EyeOpenMinDist) {
			result.Checks.EyesOpen = true
			checksPassed++
		} else {
			result.Reasons = append(result.Reasons, ReasonEyesNotOpen)
		}

		d.pushAngle(poseAngle(landmarks))
	}

	// Head-movement check needs at least two observed poses
	if len(d.angles) >= 2 {
		checksDefined++
		dev := stddev(d.angles)
		if dev > d.cfg.PoseVarMinDeg && dev < d.cfg.PoseVarMaxDeg {
			result.Checks.HeadMovement = true
			checksPassed++
		} else {
			result.Reasons = append(result.Reasons, ReasonRigidPose)
		}
	}

	result.Confidence = float64(checksPassed) / float64(checksDefined)
	result.IsLive = result.Confidence >= 0.5 && qualityOK
	if !qualityOK {
		result.Reasons = append(result.Reasons, ReasonLowQuality)
	}

	d.prev = current.Clone()

	return result
}

// motionPercentage samples every Nth pixel and reports the changed fraction
func (d *Detector) motionPercentage(prev, current *imaging.Frame) float64 {
	stride := d.cfg.SampleStride
	if stride < 1 {
		stride = 1
	}

	totalPixels := prev.Width * prev.Height
	sampled := 0
	changed := 0

	for p := 0; p < totalPixels; p += stride {
		i := p * 4
		diff := absDiff(prev.Pix[i], current.Pix[i]) +
			absDiff(prev.Pix[i+1], current.Pix[i+1]) +
			absDiff(prev.Pix[i+2], current.Pix[i+2])

		if diff > d.cfg.PixelDelta {
			changed++
		}
		sampled++
	}

	if sampled == 0 {
		return 0
	}
	return float64(changed) / float64(sampled) * 100
}

func (d *Detector) pushAngle(angle float64) {
	d.angles = append(d.angles, angle)
	if len(d.angles) > poseHistorySize {
		d.angles = d.angles[len(d.angles)-poseHistorySize:]
	}
}

// eyesOpen checks the vertical eyelid extent of both eye clusters
func eyesOpen(landmarks *domain.Landmarks, minDist float64) bool {
	return verticalExtent(landmarks.LeftEye) > minDist &&
		verticalExtent(landmarks.RightEye) > minDist
}

func verticalExtent(points []domain.Point) float64 {
	if len(points) < 2 {
		return 0
	}
	minY := points[0].Y
	maxY := points[0].Y
	for _, p := range points[1:] {
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return maxY - minY
}

// poseAngle is the roll angle between the eye centroids, in degrees
func poseAngle(landmarks *domain.Landmarks) float64 {
	left, right, ok := landmarks.EyeCentroids()
	if !ok {
		return 0
	}
	return math.Atan2(right.Y-left.Y, right.X-left.X) * 180 / math.Pi
}

func stddev(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)))
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
