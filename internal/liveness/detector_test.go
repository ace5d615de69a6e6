package liveness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civitas-labs/facegate/internal/domain"
	"github.com/civitas-labs/facegate/internal/imaging"
)

func uniformFrame(v uint8) *imaging.Frame {
	f := imaging.NewFrame(100, 100)
	for i := 0; i < len(f.Pix); i += 4 {
		f.Pix[i] = v
		f.Pix[i+1] = v
		f.Pix[i+2] = v
		f.Pix[i+3] = 255
	}
	return f
}

// perturbSampled bumps the red channel of the first n sampled pixels
// (stride 10) well past the pixel-delta threshold.
func perturbSampled(f *imaging.Frame, n int) *imaging.Frame {
	out := f.Clone()
	for s := 0; s < n; s++ {
		i := s * 10 * 4
		out.Pix[i] += 100
	}
	return out
}

func openEyes() *domain.Landmarks {
	return &domain.Landmarks{
		LeftEye:  []domain.Point{{X: 40, Y: 56}, {X: 40, Y: 64}},
		RightEye: []domain.Point{{X: 70, Y: 56}, {X: 70, Y: 64}},
	}
}

func TestCheck_FirstFramePassesMotionByDefault(t *testing.T) {
	d := NewDetector(DefaultConfig())

	result := d.Check(uniformFrame(100), nil, true)

	assert.True(t, result.Checks.Motion)
	assert.True(t, result.IsLive)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestCheck_MotionBands(t *testing.T) {
	// 100x100 frame sampled at stride 10 gives 1000 samples, so each
	// perturbed sample is 0.1% of motion.
	tests := []struct {
		name       string
		perturbed  int
		wantPct    float64
		wantMotion bool
	}{
		{name: "below band is a static photo", perturbed: 3, wantPct: 0.3, wantMotion: false},
		{name: "inside band is natural motion", perturbed: 100, wantPct: 10, wantMotion: true},
		{name: "above band is erratic input", perturbed: 200, wantPct: 20, wantMotion: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(DefaultConfig())
			base := uniformFrame(100)

			first := d.Check(base, nil, true)
			require.True(t, first.Checks.Motion)

			result := d.Check(perturbSampled(base, tt.perturbed), nil, true)

			assert.InDelta(t, tt.wantPct, result.MotionPercentage, 1e-9)
			assert.Equal(t, tt.wantMotion, result.Checks.Motion)
			assert.Equal(t, tt.wantMotion, result.IsLive)
		})
	}
}

func TestCheck_QualityGateBlocksLiveness(t *testing.T) {
	d := NewDetector(DefaultConfig())

	result := d.Check(uniformFrame(100), nil, false)

	assert.False(t, result.IsLive, "passing checks cannot overrule bad quality")
	assert.Contains(t, result.Reasons, ReasonLowQuality)
}

func TestCheck_EyesOpen(t *testing.T) {
	d := NewDetector(DefaultConfig())

	result := d.Check(uniformFrame(100), openEyes(), true)
	assert.True(t, result.Checks.EyesOpen)

	closed := &domain.Landmarks{
		LeftEye:  []domain.Point{{X: 40, Y: 60}, {X: 40, Y: 61}},
		RightEye: []domain.Point{{X: 70, Y: 60}, {X: 70, Y: 61}},
	}
	d.Reset()
	result = d.Check(uniformFrame(100), closed, true)
	assert.False(t, result.Checks.EyesOpen)
	assert.Contains(t, result.Reasons, ReasonEyesNotOpen)
}

func TestCheck_HeadMovementBand(t *testing.T) {
	tiltedEyes := func(dy float64) *domain.Landmarks {
		return &domain.Landmarks{
			LeftEye:  []domain.Point{{X: 40, Y: 56}, {X: 40, Y: 64}},
			RightEye: []domain.Point{{X: 70, Y: 56 + dy}, {X: 70, Y: 64 + dy}},
		}
	}

	t.Run("rigid pose fails", func(t *testing.T) {
		d := NewDetector(DefaultConfig())
		d.Check(uniformFrame(100), tiltedEyes(0), true)
		result := d.Check(uniformFrame(100), tiltedEyes(0), true)

		assert.False(t, result.Checks.HeadMovement)
		assert.Contains(t, result.Reasons, ReasonRigidPose)
	})

	t.Run("small natural variation passes", func(t *testing.T) {
		d := NewDetector(DefaultConfig())
		d.Check(uniformFrame(100), tiltedEyes(0), true)
		result := d.Check(uniformFrame(100), tiltedEyes(4), true)

		assert.True(t, result.Checks.HeadMovement)
	})
}

func TestReset_ClearsSessionState(t *testing.T) {
	d := NewDetector(DefaultConfig())
	base := uniformFrame(100)

	d.Check(base, openEyes(), true)
	d.Reset()

	// After reset the next frame is a first frame again
	result := d.Check(perturbSampled(base, 3), nil, true)
	assert.True(t, result.Checks.Motion)
	assert.Zero(t, result.MotionPercentage)
}

func TestCheck_DimensionMismatchSkipsMotion(t *testing.T) {
	d := NewDetector(DefaultConfig())
	d.Check(uniformFrame(100), nil, true)

	small := imaging.NewFrame(50, 50)
	result := d.Check(small, nil, true)

	assert.True(t, result.Checks.Motion, "mismatched snapshot cannot be diffed, skip not fail")
}
