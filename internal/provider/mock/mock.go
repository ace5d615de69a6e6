// Package mock provides a deterministic model provider for tests and
// development. Descriptors are derived from a hash of the frame pixels, so
// the same frame always produces the same identity.
package mock

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/civitas-labs/facegate/internal/domain"
	"github.com/civitas-labs/facegate/internal/imaging"
	"github.com/civitas-labs/facegate/internal/provider"
)

// minFaceFrame is the smallest frame edge that still "contains" a face
const minFaceFrame = 32

type Provider struct{}

func New() *Provider {
	return &Provider{}
}

// Detect simulates detection: any frame at least minFaceFrame on both edges
// contains exactly one centered face covering 60% of the frame.
func (p *Provider) Detect(ctx context.Context, frame *imaging.Frame) (*domain.DetectionResult, error) {
	if frame == nil || len(frame.Pix) == 0 {
		return nil, domain.ErrInvalidImage
	}
	if frame.Width < minFaceFrame || frame.Height < minFaceFrame {
		return nil, nil
	}

	w := float64(frame.Width)
	h := float64(frame.Height)

	return &domain.DetectionResult{
		Box: domain.BoundingBox{
			X:      w * 0.2,
			Y:      h * 0.2,
			Width:  w * 0.6,
			Height: h * 0.6,
		},
		Confidence: 0.99,
	}, nil
}

// DetectWithDescriptor adds a hash-derived descriptor and level eye landmarks
func (p *Provider) DetectWithDescriptor(ctx context.Context, frame *imaging.Frame) (*domain.DetectionResult, error) {
	result, err := p.Detect(ctx, frame)
	if err != nil || result == nil {
		return result, err
	}

	result.Descriptor = generateDescriptor(frame.Pix)
	result.Landmarks = syntheticLandmarks(result.Box)

	return result, nil
}

// syntheticLandmarks places level eyes at a third of the box height
func syntheticLandmarks(box domain.BoundingBox) *domain.Landmarks {
	eyeY := box.Y + box.Height/3
	return &domain.Landmarks{
		LeftEye: []domain.Point{
			{X: box.X + box.Width*0.3, Y: eyeY - 3},
			{X: box.X + box.Width*0.3, Y: eyeY + 3},
		},
		RightEye: []domain.Point{
			{X: box.X + box.Width*0.7, Y: eyeY - 3},
			{X: box.X + box.Width*0.7, Y: eyeY + 3},
		},
	}
}

// generateDescriptor derives a unit-norm descriptor from the pixel hash
func generateDescriptor(pix []uint8) domain.Descriptor {
	hash := sha256.Sum256(pix)
	descriptor := make(domain.Descriptor, domain.DescriptorLength)
	hashLen := len(hash)

	for i := 0; i < domain.DescriptorLength; i++ {
		idx := i % hashLen
		descriptor[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range descriptor {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	for i := range descriptor {
		descriptor[i] /= norm
	}

	return descriptor
}

var _ provider.ModelProvider = (*Provider)(nil)
