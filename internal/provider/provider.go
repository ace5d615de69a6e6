package provider

import (
	"context"

	"github.com/civitas-labs/facegate/internal/domain"
	"github.com/civitas-labs/facegate/internal/imaging"
)

// Detector is the minimal model-provider capability: find the most prominent
// face in a frame. Implementations return (nil, nil) when no face is found;
// an error means the model itself failed, not that the frame was empty.
type Detector interface {
	Detect(ctx context.Context, frame *imaging.Frame) (*domain.DetectionResult, error)
}

// ModelProvider is the full capability surface: detection plus landmark and
// descriptor extraction. Detection-only backends implement just Detector and
// cannot serve enrollment or verification.
type ModelProvider interface {
	Detector

	// DetectWithDescriptor behaves like Detect but also populates the
	// 128-element descriptor and eye landmarks on the result.
	DetectWithDescriptor(ctx context.Context, frame *imaging.Frame) (*domain.DetectionResult, error)
}
