package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/civitas-labs/facegate/internal/capture"
	"github.com/civitas-labs/facegate/internal/domain"
	"github.com/civitas-labs/facegate/internal/imaging"
	"github.com/civitas-labs/facegate/internal/verify"
)

// SessionRunner drives one capture session over a frame source until it
// reaches a terminal state.
type SessionRunner interface {
	RunCaptureSession(ctx context.Context, source capture.FrameSource, voterID string, regime verify.Regime) (*capture.Result, error)
}

// SessionHandler serves the stateful capture session endpoint. Unlike
// the single-shot verify endpoint it runs the full detect, gate, retry
// and fallback loop, streaming state transitions over the WebSocket hub.
type SessionHandler struct {
	runner SessionRunner
	logger *slog.Logger
}

func NewSessionHandler(runner SessionRunner, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		runner: runner,
		logger: logger,
	}
}

// SessionResponse response for the capture session endpoint
type SessionResponse struct {
	SessionID       string  `json:"session_id"`
	State           string  `json:"state"`
	Authorized      bool    `json:"authorized"`
	Confidence      float64 `json:"confidence"`
	FailedAttempts  int     `json:"failed_attempts"`
	FallbackInvoked bool    `json:"fallback_invoked"`
	LatencyMs       int64   `json:"latency_ms"`
}

// StartVerification POST /v1/sessions/verify - run a capture session over
// uploaded frames
func (h *SessionHandler) StartVerification(c *fiber.Ctx) error {
	start := time.Now()

	voterID := strings.TrimSpace(c.FormValue("voter_id"))
	if voterID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("voter_id is required"))
	}

	regime := verify.RegimeStrict
	if c.FormValue("regime") == string(verify.RegimeLenient) {
		regime = verify.RegimeLenient
	}

	frames, err := extractFrames(c)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	result, err := h.runner.RunCaptureSession(c.Context(), newReplaySource(frames), voterID, regime)
	if err != nil && !errors.Is(err, domain.ErrMatchFailed) {
		return err
	}

	resp := SessionResponse{
		SessionID:       result.SessionID.String(),
		State:           string(result.State),
		FailedAttempts:  result.FailedAttempts,
		FallbackInvoked: result.FallbackInvoked,
		LatencyMs:       time.Since(start).Milliseconds(),
	}
	if result.Decision != nil {
		resp.Authorized = result.Decision.Authorized
		resp.Confidence = result.Decision.Confidence
	}
	return c.JSON(resp)
}

// replaySource cycles uploaded frames so a short clip can sustain the
// session until a terminal state
type replaySource struct {
	frames []*imaging.Frame
	next   int
}

func newReplaySource(frames []*imaging.Frame) *replaySource {
	return &replaySource{frames: frames}
}

func (s *replaySource) Acquire(_ context.Context) (*imaging.Frame, error) {
	if len(s.frames) == 0 {
		return nil, errors.New("no frames uploaded")
	}
	f := s.frames[s.next%len(s.frames)]
	s.next++
	return f, nil
}

func (s *replaySource) Close() error { return nil }
