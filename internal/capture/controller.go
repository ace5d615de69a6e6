// Package capture runs the verification session loop: detect, gate on
// quality and liveness, throttle full recognition attempts, and hand off
// to fallback authentication when the attempt budget is spent.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civitas-labs/facegate/internal/audit"
	"github.com/civitas-labs/facegate/internal/domain"
	"github.com/civitas-labs/facegate/internal/fallback"
	"github.com/civitas-labs/facegate/internal/imaging"
	"github.com/civitas-labs/facegate/internal/liveness"
	"github.com/civitas-labs/facegate/internal/provider"
	"github.com/civitas-labs/facegate/internal/quality"
	"github.com/civitas-labs/facegate/internal/verify"
)

// State is a capture session lifecycle phase
type State string

const (
	StateIdle            State = "idle"
	StateInitializing    State = "initializing"
	StateDetecting       State = "detecting"
	StateQualityGated    State = "quality_gated"
	StateCapturing       State = "capturing"
	StateProcessing      State = "processing"
	StateSucceeded       State = "succeeded"
	StateFailed          State = "failed"
	StateFallbackHandoff State = "fallback_handoff"
)

// FrameSource yields camera frames for the session
type FrameSource interface {
	Acquire(ctx context.Context) (*imaging.Frame, error)
	Close() error
}

// Verifier is the slice of the verification engine the controller needs
type Verifier interface {
	Verify(ctx context.Context, voterID string, live domain.Descriptor, opts verify.Options) (*verify.Decision, error)
}

// FrameStatus is the per-frame observable detection summary
type FrameStatus struct {
	FaceDetected  bool     `json:"face_detected"`
	Confidence    float64  `json:"confidence"`
	QualityIssues []string `json:"quality_issues,omitempty"`
	LivenessOK    bool     `json:"liveness_ok"`
}

// Event is published to listeners on every state change and frame update
type Event struct {
	SessionID uuid.UUID    `json:"session_id"`
	VoterID   string       `json:"voter_id"`
	State     State        `json:"state"`
	Frame     *FrameStatus `json:"frame,omitempty"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Listener receives session events. Listeners must not block.
type Listener func(Event)

// Config holds the loop timing and retry budget
type Config struct {
	// DetectTimeout bounds a single model call
	DetectTimeout time.Duration
	// CaptureTimeout bounds one full verification attempt
	CaptureTimeout time.Duration
	// RecognitionInterval throttles full recognition attempts while
	// lightweight detection continues every frame
	RecognitionInterval time.Duration
	// MaxAttempts is the failed-attempt budget before fallback handoff
	MaxAttempts     int
	Regime          verify.Regime
	RequireLiveness bool
}

// DefaultConfig returns the production loop tuning
func DefaultConfig() Config {
	return Config{
		DetectTimeout:       5 * time.Second,
		CaptureTimeout:      12 * time.Second,
		RecognitionInterval: 3 * time.Second,
		MaxAttempts:         2,
		Regime:              verify.RegimeStrict,
		RequireLiveness:     true,
	}
}

// Result is the terminal outcome of a session run
type Result struct {
	SessionID       uuid.UUID        `json:"session_id"`
	State           State            `json:"state"`
	Decision        *verify.Decision `json:"decision,omitempty"`
	FailedAttempts  int              `json:"failed_attempts"`
	FallbackInvoked bool             `json:"fallback_invoked"`
}

// Controller owns one verification session. All loop state, including the
// liveness detector's frame history, is scoped to the instance so
// concurrent sessions never share state. Run may be called once.
type Controller struct {
	provider provider.ModelProvider
	analyzer *quality.Analyzer
	liveness *liveness.Detector
	verifier Verifier
	fallback fallback.Authenticator
	audit    audit.Logger
	logger   *slog.Logger
	cfg      Config

	sessionID uuid.UUID

	mu        sync.Mutex
	state     State
	listeners []Listener
	running   bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewController(p provider.ModelProvider, analyzer *quality.Analyzer, live *liveness.Detector, verifier Verifier, fb fallback.Authenticator, auditLogger audit.Logger, logger *slog.Logger, cfg Config) *Controller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.DetectTimeout <= 0 {
		cfg.DetectTimeout = DefaultConfig().DetectTimeout
	}
	if cfg.CaptureTimeout <= 0 {
		cfg.CaptureTimeout = DefaultConfig().CaptureTimeout
	}
	return &Controller{
		provider:  p,
		analyzer:  analyzer,
		liveness:  live,
		verifier:  verifier,
		fallback:  fb,
		audit:     auditLogger,
		logger:    logger,
		cfg:       cfg,
		sessionID: uuid.New(),
		state:     StateIdle,
		stopCh:    make(chan struct{}),
	}
}

// SessionID identifies this session in published events
func (c *Controller) SessionID() uuid.UUID {
	return c.sessionID
}

// AddListener registers an event listener. Must be called before Run.
func (c *Controller) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// State returns the current session state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop halts the loop and releases the camera. Safe to call more than
// once and from any goroutine.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// recogOutcome carries a recognition result back to the loop. Results from
// an abandoned attempt carry a stale generation and are discarded.
type recogOutcome struct {
	gen      uint64
	decision *verify.Decision
	liveOK   bool
	err      error
}

// Run drives the session until a terminal state. It blocks, consuming
// pacer ticks, and always closes the source and stops the pacer on return.
func (c *Controller) Run(ctx context.Context, source FrameSource, pacer FramePacer, voterID string) (*Result, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, domain.ErrSessionBusy
	}
	c.running = true
	c.mu.Unlock()

	defer source.Close()
	defer pacer.Stop()

	c.transition(voterID, StateInitializing, "")
	c.liveness.Reset()

	result := &Result{SessionID: c.sessionID, State: StateFailed}

	attemptCtx, attemptCancel := context.WithTimeout(ctx, c.cfg.CaptureTimeout)
	defer func() { attemptCancel() }()

	results := make(chan recogOutcome, 4)
	var gen uint64
	inFlight := false
	var lastRecognition time.Time
	attemptNum := 1

	c.transition(voterID, StateDetecting, "")

	for {
		select {
		case <-ctx.Done():
			c.transition(voterID, StateFailed, domain.ErrOperationTimeout.Code)
			return result, domain.ErrOperationTimeout.WithError(ctx.Err())

		case <-c.stopCh:
			c.transition(voterID, StateIdle, "")
			result.State = StateIdle
			return result, nil

		case <-attemptCtx.Done():
			// Parent cancellation cancels the attempt context too; treat
			// it as a session timeout rather than a failed attempt
			if ctx.Err() != nil {
				c.transition(voterID, StateFailed, domain.ErrOperationTimeout.Code)
				return result, domain.ErrOperationTimeout.WithError(ctx.Err())
			}
			// The capture window for this attempt expired; any in-flight
			// recognition is abandoned via the stale generation
			gen++
			inFlight = false
			done, err := c.attemptFailed(ctx, voterID, result, domain.ErrOperationTimeout)
			if done {
				return result, err
			}
			attemptCancel()
			attemptCtx, attemptCancel = context.WithTimeout(ctx, c.cfg.CaptureTimeout)
			attemptNum++
			lastRecognition = time.Time{}
			c.transition(voterID, StateDetecting, "")

		case out := <-results:
			if out.gen != gen {
				continue
			}
			inFlight = false

			switch {
			case out.err == nil && out.decision != nil && out.decision.Authorized:
				result.State = StateSucceeded
				result.Decision = out.decision
				c.transition(voterID, StateSucceeded, "")
				return result, nil

			case errors.Is(out.err, domain.ErrNoFaceDetected):
				// Transient, does not consume the attempt budget
				c.transition(voterID, StateDetecting, "")

			case errors.Is(out.err, domain.ErrNoEnrollmentFound):
				c.transition(voterID, StateFailed, domain.ErrNoEnrollmentFound.Code)
				return result, out.err

			default:
				result.Decision = out.decision
				done, err := c.attemptFailed(ctx, voterID, result, failureOf(out.err))
				if done {
					return result, err
				}
				attemptCancel()
				attemptCtx, attemptCancel = context.WithTimeout(ctx, c.cfg.CaptureTimeout)
				attemptNum++
				lastRecognition = time.Time{}
				c.liveness.Reset()
				c.transition(voterID, StateDetecting, "")
			}

		case <-pacer.C():
			frame, err := source.Acquire(ctx)
			if err != nil {
				c.transition(voterID, StateFailed, domain.ErrResourceAcquisition.Code)
				return result, domain.ErrResourceAcquisition.WithError(err)
			}

			status, live := c.inspectFrame(ctx, voterID, frame)
			if status == nil {
				continue
			}

			ready := status.FaceDetected && len(status.QualityIssues) == 0
			if ready && c.cfg.RequireLiveness && !live.IsLive {
				ready = false
			}
			if !ready || inFlight {
				continue
			}
			if !lastRecognition.IsZero() && time.Since(lastRecognition) < c.cfg.RecognitionInterval {
				continue
			}

			gen++
			inFlight = true
			lastRecognition = time.Now()
			c.transition(voterID, StateCapturing, "")
			go c.recognize(attemptCtx, results, gen, frame, voterID, attemptNum, live.IsLive)
			c.transition(voterID, StateProcessing, "")
		}
	}
}

// inspectFrame runs lightweight detection plus the quality and liveness
// gates, and publishes the per-frame status. A nil status means the model
// call failed and the frame is skipped.
func (c *Controller) inspectFrame(ctx context.Context, voterID string, frame *imaging.Frame) (*FrameStatus, domain.LivenessResult) {
	detectCtx, cancel := context.WithTimeout(ctx, c.cfg.DetectTimeout)
	defer cancel()

	detection, err := c.provider.Detect(detectCtx, frame)
	if err != nil {
		c.logger.WarnContext(ctx, "frame detection failed",
			slog.String("session_id", c.sessionID.String()),
			slog.String("error", err.Error()),
		)
		return nil, domain.LivenessResult{}
	}

	status := &FrameStatus{}
	var live domain.LivenessResult

	if detection == nil {
		live = c.liveness.Check(frame, nil, false)
		c.publishFrame(voterID, StateDetecting, status)
		return status, live
	}

	status.FaceDetected = true
	status.Confidence = detection.Confidence

	metrics := c.analyzer.Analyze(frame, detection.Box, detection.Landmarks)
	status.QualityIssues = metrics.Issues

	live = c.liveness.Check(frame, detection.Landmarks, metrics.GoodQuality)
	status.LivenessOK = live.IsLive

	if !metrics.GoodQuality {
		c.transition(voterID, StateQualityGated, "")
		c.publishFrame(voterID, StateQualityGated, status)
	} else {
		c.publishFrame(voterID, StateDetecting, status)
	}

	return status, live
}

// recognize runs a full recognition attempt off the loop goroutine
func (c *Controller) recognize(ctx context.Context, results chan<- recogOutcome, gen uint64, frame *imaging.Frame, voterID string, attempt int, liveOK bool) {
	detectCtx, cancel := context.WithTimeout(ctx, c.cfg.DetectTimeout)
	defer cancel()

	detection, err := c.provider.DetectWithDescriptor(detectCtx, frame)
	if err != nil {
		if detectCtx.Err() != nil {
			err = domain.ErrOperationTimeout.WithError(detectCtx.Err())
		}
		results <- recogOutcome{gen: gen, err: err}
		return
	}
	if detection == nil {
		results <- recogOutcome{gen: gen, err: domain.ErrNoFaceDetected}
		return
	}

	decision, err := c.verifier.Verify(ctx, voterID, detection.Descriptor, verify.Options{
		Regime:         c.cfg.Regime,
		Attempt:        attempt,
		LivenessPassed: &liveOK,
	})
	results <- recogOutcome{gen: gen, decision: decision, liveOK: liveOK, err: err}
}

// attemptFailed books one failed attempt and, once the budget is spent,
// invokes fallback exactly once and moves to the terminal handoff state.
func (c *Controller) attemptFailed(ctx context.Context, voterID string, result *Result, cause *domain.AppError) (bool, error) {
	result.FailedAttempts++

	c.logger.InfoContext(ctx, "verification attempt failed",
		slog.String("session_id", c.sessionID.String()),
		slog.String("voter_id", voterID),
		slog.Int("failed_attempts", result.FailedAttempts),
		slog.String("cause", cause.Code),
	)
	c.transition(voterID, StateFailed, cause.Code)

	if result.FailedAttempts < c.cfg.MaxAttempts {
		return false, nil
	}

	result.State = StateFallbackHandoff
	result.FallbackInvoked = true

	if err := c.fallback.Trigger(ctx, voterID, cause.Code); err != nil {
		c.logger.ErrorContext(ctx, "fallback handoff failed",
			slog.String("session_id", c.sessionID.String()),
			slog.String("error", err.Error()),
		)
	}
	if err := c.audit.Log(ctx, audit.Event{
		VoterID:   voterID,
		EventType: audit.EventFallbackInvoked,
		Success:   true,
		Metadata:  map[string]string{"cause": cause.Code, "session_id": c.sessionID.String()},
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to log audit event", slog.String("error", err.Error()))
	}

	c.transition(voterID, StateFallbackHandoff, cause.Code)
	return true, cause
}

// failureOf maps a recognition error onto the attempt-failure taxonomy
func failureOf(err error) *domain.AppError {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return domain.ErrInternal.WithError(err)
}

func (c *Controller) transition(voterID string, next State, errCode string) {
	c.mu.Lock()
	if c.state == next && errCode == "" {
		c.mu.Unlock()
		return
	}
	c.state = next
	listeners := c.listeners
	c.mu.Unlock()

	event := Event{
		SessionID: c.sessionID,
		VoterID:   voterID,
		State:     next,
		Error:     errCode,
		Timestamp: time.Now().UTC(),
	}
	for _, l := range listeners {
		l(event)
	}
}

func (c *Controller) publishFrame(voterID string, state State, status *FrameStatus) {
	c.mu.Lock()
	listeners := c.listeners
	c.mu.Unlock()

	event := Event{
		SessionID: c.sessionID,
		VoterID:   voterID,
		State:     state,
		Frame:     status,
		Timestamp: time.Now().UTC(),
	}
	for _, l := range listeners {
		l(event)
	}
}
