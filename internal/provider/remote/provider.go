package remote

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/civitas-labs/facegate/internal/domain"
	"github.com/civitas-labs/facegate/internal/imaging"
	"github.com/civitas-labs/facegate/internal/provider"
)

// Provider implements provider.ModelProvider against the inference service
type Provider struct {
	client *Client
}

// NewProvider creates a new remote provider
func NewProvider(config Config) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}
	return &Provider{
		client: NewClient(config),
	}
}

// Detect finds the most prominent face without descriptor extraction
func (p *Provider) Detect(ctx context.Context, frame *imaging.Frame) (*domain.DetectionResult, error) {
	return p.detect(ctx, frame, false)
}

// DetectWithDescriptor runs detection plus the descriptor head
func (p *Provider) DetectWithDescriptor(ctx context.Context, frame *imaging.Frame) (*domain.DetectionResult, error) {
	result, err := p.detect(ctx, frame, true)
	if err != nil || result == nil {
		return result, err
	}
	if !result.Descriptor.Valid() {
		return nil, ErrNoDescriptor
	}
	return result, nil
}

func (p *Provider) detect(ctx context.Context, frame *imaging.Frame, withDescriptor bool) (*domain.DetectionResult, error) {
	if frame == nil || len(frame.Pix) == 0 {
		return nil, domain.ErrInvalidImage
	}

	req := DetectRequest{
		Pixels:         base64.StdEncoding.EncodeToString(frame.Pix),
		Width:          frame.Width,
		Height:         frame.Height,
		WithDescriptor: withDescriptor,
	}

	resp, err := p.client.Detect(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	if len(resp.Faces) == 0 {
		return nil, nil
	}

	// The service orders faces by area; the first is the subject
	best := resp.Faces[0]

	result := &domain.DetectionResult{
		Box: domain.BoundingBox{
			X:      float64(best.Box.X),
			Y:      float64(best.Box.Y),
			Width:  float64(best.Box.W),
			Height: float64(best.Box.H),
		},
		Confidence: best.Confidence,
	}

	if withDescriptor {
		result.Descriptor = domain.Descriptor(best.Descriptor)
	}

	if len(best.LeftEye) > 0 && len(best.RightEye) > 0 {
		result.Landmarks = &domain.Landmarks{
			LeftEye:  toPoints(best.LeftEye),
			RightEye: toPoints(best.RightEye),
		}
	}

	return result, nil
}

func toPoints(in []XY) []domain.Point {
	out := make([]domain.Point, len(in))
	for i, p := range in {
		out[i] = domain.Point{X: p.X, Y: p.Y}
	}
	return out
}

var _ provider.ModelProvider = (*Provider)(nil)
