package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/civitas-labs/facegate/internal/domain"
	"github.com/civitas-labs/facegate/internal/enroll"
	"github.com/civitas-labs/facegate/internal/imaging"
	"github.com/civitas-labs/facegate/internal/liveness"
	"github.com/civitas-labs/facegate/internal/provider"
	"github.com/civitas-labs/facegate/internal/quality"
	"github.com/civitas-labs/facegate/internal/verify"
)

const maxImageSize = 10 * 1024 * 1024 // 10MB

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Enroller is the slice of the enrollment engine the handler needs
type Enroller interface {
	Enroll(ctx context.Context, source enroll.FrameSource, opts enroll.Options) (*enroll.Outcome, error)
	Remove(ctx context.Context, voterID string) error
}

// Verifier is the slice of the verification engine the handler needs
type Verifier interface {
	Verify(ctx context.Context, voterID string, live domain.Descriptor, opts verify.Options) (*verify.Decision, error)
}

// AttemptGuard blocks voters with too many recent failed attempts
type AttemptGuard interface {
	Check(ctx context.Context, voterID string) error
}

// FaceHandler serves the enrollment, verification and liveness endpoints
type FaceHandler struct {
	enroller    Enroller
	verifier    Verifier
	guard       AttemptGuard
	provider    provider.ModelProvider
	analyzer    *quality.Analyzer
	livenessCfg liveness.Config
	logger      *slog.Logger
}

// NewFaceHandler creates the handler. guard may be nil to disable the
// failure lockout.
func NewFaceHandler(enroller Enroller, verifier Verifier, guard AttemptGuard, p provider.ModelProvider, analyzer *quality.Analyzer, livenessCfg liveness.Config, logger *slog.Logger) *FaceHandler {
	return &FaceHandler{
		enroller:    enroller,
		verifier:    verifier,
		guard:       guard,
		provider:    p,
		analyzer:    analyzer,
		livenessCfg: livenessCfg,
		logger:      logger,
	}
}

// EnrollResponse response for the enroll endpoint
type EnrollResponse struct {
	Success          bool      `json:"success"`
	SamplesAttempted int       `json:"samples_attempted"`
	SamplesRetained  int       `json:"samples_retained"`
	QualityScores    []float64 `json:"quality_scores,omitempty"`
}

// VerifyResponse response for the verify endpoint
type VerifyResponse struct {
	Authorized   bool    `json:"authorized"`
	Confidence   float64 `json:"confidence"`
	BestDistance float64 `json:"best_distance"`
	Regime       string  `json:"regime"`
	LatencyMs    int64   `json:"latency_ms"`
}

// LivenessResponse response for the liveness endpoint
type LivenessResponse struct {
	IsLive           bool                   `json:"is_live"`
	Confidence       float64                `json:"confidence"`
	MotionPercentage float64                `json:"motion_percentage"`
	Checks           LivenessChecksResponse `json:"checks"`
	Reasons          []string               `json:"reasons,omitempty"`
}

// LivenessChecksResponse represents individual liveness checks in the response
type LivenessChecksResponse struct {
	Motion       bool `json:"motion"`
	EyesOpen     bool `json:"eyes_open"`
	HeadMovement bool `json:"head_movement"`
	QualityOK    bool `json:"quality_ok"`
}

// Enroll POST /v1/enroll - build a voter's reference set from uploaded frames
func (h *FaceHandler) Enroll(c *fiber.Ctx) error {
	voterID := strings.TrimSpace(c.FormValue("voter_id"))
	if voterID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("voter_id is required"))
	}
	enrolledBy := strings.TrimSpace(c.FormValue("enrolled_by"))

	frames, err := extractFrames(c)
	if err != nil {
		return fmt.Errorf("enroll: %w", err)
	}

	outcome, err := h.enroller.Enroll(c.Context(), newUploadSource(frames), enroll.Options{
		VoterID:          voterID,
		EnrolledBy:       enrolledBy,
		SampleCount:      len(frames),
		InterSampleDelay: time.Millisecond,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(EnrollResponse{
		Success:          outcome.Success,
		SamplesAttempted: outcome.SamplesAttempted,
		SamplesRetained:  outcome.SamplesRetained,
		QualityScores:    outcome.QualityScores,
	})
}

// Verify POST /v1/verify - verify a single frame against the voter's enrollment
func (h *FaceHandler) Verify(c *fiber.Ctx) error {
	start := time.Now()

	voterID := strings.TrimSpace(c.FormValue("voter_id"))
	if voterID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("voter_id is required"))
	}

	regime := verify.RegimeStrict
	if c.FormValue("regime") == string(verify.RegimeLenient) {
		regime = verify.RegimeLenient
	}
	attempt := c.QueryInt("attempt", 1)
	if attempt < 1 {
		attempt = 1
	}

	if h.guard != nil {
		if err := h.guard.Check(c.Context(), voterID); err != nil {
			return err
		}
	}

	frames, err := extractFrames(c)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	frame := frames[0]

	detectCtx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	detection, err := h.provider.DetectWithDescriptor(detectCtx, frame)
	if err != nil {
		return err
	}
	if detection == nil {
		return domain.ErrNoFaceDetected
	}

	metrics := h.analyzer.Analyze(frame, detection.Box, detection.Landmarks)
	if !metrics.GoodQuality {
		return domain.ErrQualityInsufficient.WithError(fmt.Errorf("issues: %s", strings.Join(metrics.Issues, ", ")))
	}

	decision, err := h.verifier.Verify(c.Context(), voterID, detection.Descriptor, verify.Options{
		Regime:  regime,
		Attempt: attempt,
	})
	if err != nil && !errors.Is(err, domain.ErrMatchFailed) {
		return err
	}

	return c.JSON(VerifyResponse{
		Authorized:   decision.Authorized,
		Confidence:   decision.Confidence,
		BestDistance: decision.BestDistance,
		Regime:       string(decision.Regime),
		LatencyMs:    time.Since(start).Milliseconds(),
	})
}

// CheckLiveness POST /v1/liveness - heuristic presence check on uploaded frames.
// With a single frame only the landmark checks apply; clients can send a
// short burst for motion analysis.
func (h *FaceHandler) CheckLiveness(c *fiber.Ctx) error {
	frames, err := extractFrames(c)
	if err != nil {
		return fmt.Errorf("check liveness: %w", err)
	}

	detector := liveness.NewDetector(h.livenessCfg)
	var result domain.LivenessResult

	for _, frame := range frames {
		detectCtx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		detection, err := h.provider.Detect(detectCtx, frame)
		cancel()
		if err != nil {
			return err
		}
		if detection == nil {
			return domain.ErrNoFaceDetected
		}

		metrics := h.analyzer.Analyze(frame, detection.Box, detection.Landmarks)
		result = detector.Check(frame, detection.Landmarks, metrics.GoodQuality)
	}

	return c.JSON(LivenessResponse{
		IsLive:           result.IsLive,
		Confidence:       result.Confidence,
		MotionPercentage: result.MotionPercentage,
		Checks: LivenessChecksResponse{
			Motion:       result.Checks.Motion,
			EyesOpen:     result.Checks.EyesOpen,
			HeadMovement: result.Checks.HeadMovement,
			QualityOK:    result.Checks.QualityOK,
		},
		Reasons: result.Reasons,
	})
}

// RemoveEnrollment DELETE /v1/enrollments/:voter_id - deactivate a voter's set
func (h *FaceHandler) RemoveEnrollment(c *fiber.Ctx) error {
	voterID := strings.TrimSpace(c.Params("voter_id"))
	if voterID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("voter_id is required"))
	}

	if err := h.enroller.Remove(c.Context(), voterID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// extractFrames decodes every uploaded frame file, ordered as sent
func extractFrames(c *fiber.Ctx) ([]*imaging.Frame, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	files := form.File["frames"]
	if len(files) == 0 {
		if single := form.File["frame"]; len(single) > 0 {
			files = single
		}
	}
	if len(files) == 0 {
		return nil, domain.ErrValidationFailed.WithError(errors.New("at least one frame file is required"))
	}

	frames := make([]*imaging.Frame, 0, len(files))
	for _, file := range files {
		if file.Size == 0 || file.Size > maxImageSize {
			return nil, domain.ErrInvalidImage.WithError(nil)
		}
		if contentType := file.Header.Get("Content-Type"); !validImageTypes[contentType] {
			return nil, domain.ErrInvalidImage.WithError(nil)
		}

		f, err := file.Open()
		if err != nil {
			return nil, domain.ErrInvalidImage.WithError(err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, domain.ErrInvalidImage.WithError(err)
		}

		frame, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, domain.ErrInvalidImage.WithError(err)
		}
		frames = append(frames, frame)
	}

	return frames, nil
}

// uploadSource replays uploaded frames as an enrollment frame source
type uploadSource struct {
	frames []*imaging.Frame
	next   int
}

func newUploadSource(frames []*imaging.Frame) *uploadSource {
	return &uploadSource{frames: frames}
}

func (s *uploadSource) Acquire(_ context.Context) (*imaging.Frame, error) {
	if s.next >= len(s.frames) {
		return nil, errors.New("no more frames")
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *uploadSource) Close() error { return nil }
