package domain

import (
	"math"
)

// DescriptorLength is the fixed dimensionality of face descriptors produced
// by the model provider. Descriptors of any other length never match.
const DescriptorLength = 128

// Descriptor is a fixed-length feature vector representing one detected face.
// It is immutable once produced and serializes as a plain JSON number array.
type Descriptor []float64

// Valid reports whether the descriptor has the expected dimensionality.
func (d Descriptor) Valid() bool {
	return len(d) == DescriptorLength
}

// Distance calculates the Euclidean distance between two descriptors.
// Mismatched or empty lengths fail closed: the result is +Inf, which no
// threshold can accept.
func Distance(a, b Descriptor) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// MatchConfidence converts a distance into a confidence in [0, 1].
func MatchConfidence(distance float64) float64 {
	confidence := 1 - distance
	if confidence < 0 || math.IsInf(distance, 1) {
		return 0
	}
	return confidence
}

// AverageDescriptor computes the element-wise arithmetic mean of the given
// samples. All samples must share the same length; a mismatch returns nil.
func AverageDescriptor(samples []Descriptor) Descriptor {
	if len(samples) == 0 {
		return nil
	}

	dim := len(samples[0])
	avg := make(Descriptor, dim)
	for _, s := range samples {
		if len(s) != dim {
			return nil
		}
		for i, v := range s {
			avg[i] += v
		}
	}

	n := float64(len(samples))
	for i := range avg {
		avg[i] /= n
	}

	return avg
}
