// Package face selects and assembles the model provider backing the
// recognition pipeline.
package face

import (
	"context"
	"fmt"

	"github.com/civitas-labs/facegate/internal/config"
	"github.com/civitas-labs/facegate/internal/domain"
	"github.com/civitas-labs/facegate/internal/imaging"
	"github.com/civitas-labs/facegate/internal/provider"
	"github.com/civitas-labs/facegate/internal/provider/mock"
	"github.com/civitas-labs/facegate/internal/provider/rekognition"
	"github.com/civitas-labs/facegate/internal/provider/remote"
)

// NewProvider builds the ModelProvider named by cfg.ProviderType.
//
// "inference" talks to the local inference service for both detection and
// descriptors. "rekognition" routes plain detection through AWS Rekognition
// and keeps descriptor extraction on the inference service, which is the
// only backend that produces 128-element descriptors. "mock" is for tests
// and local development without any model backend.
func NewProvider(ctx context.Context, cfg *config.Config) (provider.ModelProvider, error) {
	switch cfg.ProviderType {
	case "mock":
		return mock.New(), nil

	case "inference":
		return remote.NewProvider(remote.Config{BaseURL: cfg.InferenceURL}), nil

	case "rekognition":
		detector, err := rekognition.NewProvider(ctx, rekognition.Config{Region: cfg.AWSRegion})
		if err != nil {
			return nil, fmt.Errorf("rekognition provider: %w", err)
		}
		descriptors := remote.NewProvider(remote.Config{BaseURL: cfg.InferenceURL})
		return &splitProvider{detector: detector, descriptors: descriptors}, nil

	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.ProviderType)
	}
}

// splitProvider routes cheap per-frame detection and full descriptor
// extraction to different backends
type splitProvider struct {
	detector    provider.Detector
	descriptors provider.ModelProvider
}

func (p *splitProvider) Detect(ctx context.Context, frame *imaging.Frame) (*domain.DetectionResult, error) {
	return p.detector.Detect(ctx, frame)
}

func (p *splitProvider) DetectWithDescriptor(ctx context.Context, frame *imaging.Frame) (*domain.DetectionResult, error) {
	return p.descriptors.DetectWithDescriptor(ctx, frame)
}

var _ provider.ModelProvider = (*splitProvider)(nil)
