package domain

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomDescriptor(r *rand.Rand) Descriptor {
	d := make(Descriptor, DescriptorLength)
	for i := range d {
		d[i] = r.Float64()*2 - 1
	}
	return d
}

func TestDistance_Symmetry(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 100; i++ {
		a := randomDescriptor(r)
		b := randomDescriptor(r)

		assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-12)
	}
}

func TestDistance_SelfMatch(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	a := randomDescriptor(r)

	assert.Zero(t, Distance(a, a))
	assert.Equal(t, 1.0, MatchConfidence(Distance(a, a)))
}

func TestDistance_MismatchedLengthsFailClosed(t *testing.T) {
	a := make(Descriptor, DescriptorLength)
	b := make(Descriptor, 64)

	assert.True(t, math.IsInf(Distance(a, b), 1))
	assert.True(t, math.IsInf(Distance(b, a), 1))
	assert.True(t, math.IsInf(Distance(nil, a), 1))
	assert.Zero(t, MatchConfidence(Distance(a, b)))
}

func TestDistance_KnownValue(t *testing.T) {
	a := Descriptor{0, 0, 0}
	b := Descriptor{3, 4, 0}

	assert.InDelta(t, 5.0, Distance(a, b), 1e-12)
}

func TestMatchConfidence_Clamped(t *testing.T) {
	assert.Equal(t, 0.0, MatchConfidence(1.5))
	assert.InDelta(t, 0.65, MatchConfidence(0.35), 1e-12)
	assert.Equal(t, 1.0, MatchConfidence(0))
}

func TestAverageDescriptor(t *testing.T) {
	samples := []Descriptor{
		{1, 2, 3},
		{3, 4, 5},
		{5, 6, 7},
	}

	avg := AverageDescriptor(samples)
	require.Len(t, avg, 3)
	assert.InDelta(t, 3.0, avg[0], 1e-6)
	assert.InDelta(t, 4.0, avg[1], 1e-6)
	assert.InDelta(t, 5.0, avg[2], 1e-6)
}

func TestAverageDescriptor_Empty(t *testing.T) {
	assert.Nil(t, AverageDescriptor(nil))
	assert.Nil(t, AverageDescriptor([]Descriptor{}))
}

func TestAverageDescriptor_MismatchedLengths(t *testing.T) {
	samples := []Descriptor{
		{1, 2, 3},
		{1, 2},
	}

	assert.Nil(t, AverageDescriptor(samples))
}

func TestLandmarks_EyeCentroids(t *testing.T) {
	lm := &Landmarks{
		LeftEye:  []Point{{X: 10, Y: 20}, {X: 14, Y: 24}},
		RightEye: []Point{{X: 50, Y: 20}, {X: 54, Y: 24}},
	}

	left, right, ok := lm.EyeCentroids()
	require.True(t, ok)
	assert.Equal(t, Point{X: 12, Y: 22}, left)
	assert.Equal(t, Point{X: 52, Y: 22}, right)

	_, _, ok = (&Landmarks{}).EyeCentroids()
	assert.False(t, ok)

	var nilLm *Landmarks
	_, _, ok = nilLm.EyeCentroids()
	assert.False(t, ok)
}
