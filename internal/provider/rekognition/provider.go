// Package rekognition implements the detection-only model provider on top of
// AWS Rekognition. It serves the per-frame detection loop (face present,
// confidence, eye landmarks) but cannot extract descriptors, so enrollment
// and verification always go through a full ModelProvider.
package rekognition

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"

	"github.com/civitas-labs/facegate/internal/domain"
	"github.com/civitas-labs/facegate/internal/imaging"
	"github.com/civitas-labs/facegate/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024

	errCodeAccessDenied = "AccessDeniedException"
)

// DetectFacesAPI is the subset of the Rekognition client the detector uses
type DetectFacesAPI interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

// Provider implements provider.Detector using AWS Rekognition DetectFaces
type Provider struct {
	client DetectFacesAPI
	config Config
}

var _ provider.Detector = (*Provider)(nil)

// NewProvider creates a Rekognition detector using the AWS default
// credential chain.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Region == "" {
		cfg.Region = DefaultConfig().Region
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Provider{
		client: rekognition.NewFromConfig(awsCfg),
		config: cfg,
	}, nil
}

// NewProviderWithClient wires an explicit API client, used by tests
func NewProviderWithClient(client DetectFacesAPI, cfg Config) *Provider {
	if cfg.Region == "" {
		cfg.Region = DefaultConfig().Region
	}
	return &Provider{client: client, config: cfg}
}

// Detect runs DetectFaces on the PNG-encoded frame and maps the largest
// detection into a DetectionResult. Returns (nil, nil) when Rekognition
// finds no face above MinConfidence.
func (p *Provider) Detect(ctx context.Context, frame *imaging.Frame) (*domain.DetectionResult, error) {
	if frame == nil || len(frame.Pix) == 0 {
		return nil, domain.ErrInvalidImage
	}

	var buf bytes.Buffer
	if err := frame.EncodePNG(&buf); err != nil {
		return nil, err
	}
	if buf.Len() > maxImageSize {
		return nil, ErrImageTooLarge
	}

	out, err := p.client.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: buf.Bytes()},
		Attributes: []types.Attribute{types.AttributeAll},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == errCodeAccessDenied {
			return nil, fmt.Errorf("detect faces: %w", ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	best := largestFace(out.FaceDetails, p.config.MinConfidence)
	if best == nil {
		return nil, nil
	}

	return p.toDetection(best, frame.Width, frame.Height), nil
}

// largestFace picks the biggest detection above the confidence floor
func largestFace(details []types.FaceDetail, minConfidence float64) *types.FaceDetail {
	var best *types.FaceDetail
	var bestArea float32

	for i := range details {
		d := &details[i]
		if d.BoundingBox == nil {
			continue
		}
		if d.Confidence != nil && float64(*d.Confidence)/100 < minConfidence {
			continue
		}
		area := aws.ToFloat32(d.BoundingBox.Width) * aws.ToFloat32(d.BoundingBox.Height)
		if best == nil || area > bestArea {
			best = d
			bestArea = area
		}
	}

	return best
}

// toDetection converts Rekognition's relative coordinates into frame pixels
func (p *Provider) toDetection(d *types.FaceDetail, width, height int) *domain.DetectionResult {
	w := float64(width)
	h := float64(height)

	result := &domain.DetectionResult{
		Box: domain.BoundingBox{
			X:      float64(aws.ToFloat32(d.BoundingBox.Left)) * w,
			Y:      float64(aws.ToFloat32(d.BoundingBox.Top)) * h,
			Width:  float64(aws.ToFloat32(d.BoundingBox.Width)) * w,
			Height: float64(aws.ToFloat32(d.BoundingBox.Height)) * h,
		},
	}
	if d.Confidence != nil {
		result.Confidence = float64(*d.Confidence) / 100
	}

	left := eyeCluster(d.Landmarks, w, h, types.LandmarkTypeEyeLeft, types.LandmarkTypeLeftEyeUp, types.LandmarkTypeLeftEyeDown)
	right := eyeCluster(d.Landmarks, w, h, types.LandmarkTypeEyeRight, types.LandmarkTypeRightEyeUp, types.LandmarkTypeRightEyeDown)
	if len(left) > 0 && len(right) > 0 {
		result.Landmarks = &domain.Landmarks{LeftEye: left, RightEye: right}
	}

	return result
}

// eyeCluster collects the landmarks for one eye, scaled to pixels
func eyeCluster(landmarks []types.Landmark, w, h float64, wanted ...types.LandmarkType) []domain.Point {
	var points []domain.Point
	for _, lm := range landmarks {
		for _, t := range wanted {
			if lm.Type == t {
				points = append(points, domain.Point{
					X: float64(aws.ToFloat32(lm.X)) * w,
					Y: float64(aws.ToFloat32(lm.Y)) * h,
				})
			}
		}
	}
	return points
}
