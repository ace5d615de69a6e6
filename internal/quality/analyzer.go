// Package quality scores a detected face region before it is allowed into
// enrollment or verification. The policy is strict-AND: any single defect
// blocks capture, trading false rejections for zero low-quality accepts.
package quality

import (
	"math"

	"github.com/civitas-labs/facegate/internal/domain"
	"github.com/civitas-labs/facegate/internal/imaging"
)

// Issue strings surfaced to the UI to guide user correction
const (
	IssueTooDark   = "too dark"
	IssueTooBright = "too bright"
	IssueBlurry    = "blurry image"
	IssueTooSmall  = "face too small"
	IssueTooLarge  = "face too large"
	IssueTilted    = "head tilted too much"
)

// Thresholds holds the acceptance bounds for each quality check
type Thresholds struct {
	BrightnessMin float64
	BrightnessMax float64
	SharpnessMin  float64
	FaceSizeMin   int
	FaceSizeMax   int
	MaxTiltDeg    float64
}

// DefaultThresholds returns the production acceptance bounds
func DefaultThresholds() Thresholds {
	return Thresholds{
		BrightnessMin: 50,
		BrightnessMax: 200,
		SharpnessMin:  0.3,
		FaceSizeMin:   100,
		FaceSizeMax:   800,
		MaxTiltDeg:    15,
	}
}

// Analyzer computes per-frame quality metrics. Pure over pixel data; safe
// for concurrent use.
type Analyzer struct {
	t Thresholds
}

func NewAnalyzer(t Thresholds) *Analyzer {
	return &Analyzer{t: t}
}

// Analyze measures the face region and classifies it. The issue list is
// ordered: brightness, sharpness, size, tilt.
func (a *Analyzer) Analyze(frame *imaging.Frame, box domain.BoundingBox, landmarks *domain.Landmarks) domain.QualityMetrics {
	region := frame.Crop(box)

	m := domain.QualityMetrics{
		Brightness: meanBrightness(region),
		Sharpness:  laplacianVariance(region),
		Size:       int(math.Min(box.Width, box.Height)),
		Angle:      tiltAngle(landmarks),
	}

	if m.Brightness < a.t.BrightnessMin {
		m.Issues = append(m.Issues, IssueTooDark)
	} else if m.Brightness > a.t.BrightnessMax {
		m.Issues = append(m.Issues, IssueTooBright)
	}

	if m.Sharpness < a.t.SharpnessMin {
		m.Issues = append(m.Issues, IssueBlurry)
	}

	if m.Size < a.t.FaceSizeMin {
		m.Issues = append(m.Issues, IssueTooSmall)
	} else if m.Size > a.t.FaceSizeMax {
		m.Issues = append(m.Issues, IssueTooLarge)
	}

	if math.Abs(m.Angle) > a.t.MaxTiltDeg {
		m.Issues = append(m.Issues, IssueTilted)
	}

	m.GoodQuality = len(m.Issues) == 0
	return m
}

// meanBrightness is the average grayscale intensity over the region
func meanBrightness(region *imaging.Frame) float64 {
	if region.Width == 0 || region.Height == 0 {
		return 0
	}

	var sum float64
	for y := 0; y < region.Height; y++ {
		for x := 0; x < region.Width; x++ {
			sum += region.Gray(x, y)
		}
	}
	return sum / float64(region.Width*region.Height)
}

// laplacianVariance applies the discrete Laplacian kernel
// [0 -1 0; -1 4 -1; 0 -1 0] over the grayscale region and returns the
// response variance normalized by the region area. Flat (blurred) regions
// score near zero.
func laplacianVariance(region *imaging.Frame) float64 {
	if region.Width < 3 || region.Height < 3 {
		return 0
	}

	var sum, sumSq float64
	count := 0

	for y := 1; y < region.Height-1; y++ {
		for x := 1; x < region.Width-1; x++ {
			lap := 4*region.Gray(x, y) -
				region.Gray(x-1, y) - region.Gray(x+1, y) -
				region.Gray(x, y-1) - region.Gray(x, y+1)
			sum += lap
			sumSq += lap * lap
			count++
		}
	}

	mean := sum / float64(count)
	variance := sumSq/float64(count) - mean*mean

	return variance / float64(region.Width*region.Height)
}

// tiltAngle derives the head roll in degrees from the eye centroids.
// Missing landmarks read as level (the check is skipped, not failed).
func tiltAngle(landmarks *domain.Landmarks) float64 {
	left, right, ok := landmarks.EyeCentroids()
	if !ok {
		return 0
	}

	dy := right.Y - left.Y
	dx := right.X - left.X
	return math.Atan2(dy, dx) * 180 / math.Pi
}
