// Package enroll builds a voter's reference descriptor set from a short
// burst of camera samples and hands the result to the enrollment store.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/civitas-labs/facegate/internal/audit"
	"github.com/civitas-labs/facegate/internal/domain"
	"github.com/civitas-labs/facegate/internal/imaging"
	"github.com/civitas-labs/facegate/internal/provider"
	"github.com/civitas-labs/facegate/internal/quality"
)

// FrameSource yields camera frames. Acquire blocks until a frame is
// available or the context is done.
type FrameSource interface {
	Acquire(ctx context.Context) (*imaging.Frame, error)
	Close() error
}

// Store persists enrollment records. Save replaces any previous active
// set for the voter.
type Store interface {
	Save(ctx context.Context, voterID string, descriptors []domain.Descriptor, threshold float64, enrolledBy string) (*domain.EnrollmentRecord, error)
	Load(ctx context.Context, voterID string) (*domain.EnrollmentRecord, error)
	Remove(ctx context.Context, voterID string) error
}

// Config holds the engine defaults, populated from the service config
type Config struct {
	SampleCount         int
	InterSampleDelay    time.Duration
	DetectTimeout       time.Duration
	ConfidenceThreshold float64
}

// Options customizes a single enrollment run. Zero values fall back to
// the engine defaults.
type Options struct {
	VoterID          string
	EnrolledBy       string
	SampleCount      int
	InterSampleDelay time.Duration
}

// Outcome reports an enrollment run. On failure Descriptors is empty and
// Error carries the reason.
type Outcome struct {
	Success           bool                `json:"success"`
	SamplesAttempted  int                 `json:"samples_attempted"`
	SamplesRetained   int                 `json:"samples_retained"`
	QualityScores     []float64           `json:"quality_scores,omitempty"`
	Descriptors       []domain.Descriptor `json:"-"`
	AverageDescriptor domain.Descriptor   `json:"-"`
	Error             string              `json:"error,omitempty"`
}

// Engine captures quality-gated samples and persists the averaged set
type Engine struct {
	provider provider.ModelProvider
	analyzer *quality.Analyzer
	store    Store
	audit    audit.Logger
	logger   *slog.Logger
	cfg      Config
}

func NewEngine(p provider.ModelProvider, analyzer *quality.Analyzer, store Store, auditLogger audit.Logger, logger *slog.Logger, cfg Config) *Engine {
	if cfg.SampleCount <= 0 {
		cfg.SampleCount = 5
	}
	if cfg.InterSampleDelay <= 0 {
		cfg.InterSampleDelay = 500 * time.Millisecond
	}
	if cfg.DetectTimeout <= 0 {
		cfg.DetectTimeout = 5 * time.Second
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.65
	}
	return &Engine{
		provider: p,
		analyzer: analyzer,
		store:    store,
		audit:    auditLogger,
		logger:   logger,
		cfg:      cfg,
	}
}

// Enroll captures up to opts.SampleCount frames from source, keeps the ones
// that pass the quality gate, and stores the retained descriptors together
// with their element-wise average. A run succeeds only when at least half of
// the requested samples (rounded up) survive the gate.
func (e *Engine) Enroll(ctx context.Context, source FrameSource, opts Options) (*Outcome, error) {
	if opts.VoterID == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("voter id is required"))
	}

	sampleCount := opts.SampleCount
	if sampleCount <= 0 {
		sampleCount = e.cfg.SampleCount
	}
	delay := opts.InterSampleDelay
	if delay <= 0 {
		delay = e.cfg.InterSampleDelay
	}

	outcome := &Outcome{SamplesAttempted: sampleCount}

	for i := 0; i < sampleCount; i++ {
		if i > 0 {
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, domain.ErrOperationTimeout.WithError(err)
			}
		}

		descriptor, score, err := e.captureSample(ctx, source, opts.VoterID, i)
		if err != nil {
			return nil, err
		}
		if descriptor == nil {
			continue
		}

		outcome.Descriptors = append(outcome.Descriptors, descriptor)
		outcome.QualityScores = append(outcome.QualityScores, score)
	}

	outcome.SamplesRetained = len(outcome.Descriptors)
	required := (sampleCount + 1) / 2

	if outcome.SamplesRetained < required {
		outcome.Descriptors = nil
		outcome.QualityScores = nil
		outcome.Error = fmt.Sprintf("only %d of %d samples passed quality checks, need %d",
			outcome.SamplesRetained, sampleCount, required)

		e.emitAudit(ctx, opts, audit.EventEnrollmentFailed, false, outcome)
		return outcome, domain.ErrEnrollmentInsufficient.WithError(errors.New(outcome.Error))
	}

	outcome.AverageDescriptor = domain.AverageDescriptor(outcome.Descriptors)

	stored := make([]domain.Descriptor, 0, len(outcome.Descriptors)+1)
	stored = append(stored, outcome.Descriptors...)
	stored = append(stored, outcome.AverageDescriptor)

	if _, err := e.store.Save(ctx, opts.VoterID, stored, e.cfg.ConfidenceThreshold, opts.EnrolledBy); err != nil {
		outcome.Error = "failed to persist enrollment"
		e.emitAudit(ctx, opts, audit.EventEnrollmentFailed, false, outcome)
		return outcome, err
	}

	outcome.Success = true
	e.emitAudit(ctx, opts, audit.EventEnrollmentCompleted, true, outcome)

	e.logger.InfoContext(ctx, "enrollment completed",
		slog.String("voter_id", opts.VoterID),
		slog.Int("samples_retained", outcome.SamplesRetained),
		slog.Int("samples_attempted", sampleCount),
	)

	return outcome, nil
}

// Remove deactivates a voter's enrollment
func (e *Engine) Remove(ctx context.Context, voterID string) error {
	if err := e.store.Remove(ctx, voterID); err != nil {
		return err
	}
	if err := e.audit.Log(ctx, audit.Event{
		VoterID:   voterID,
		EventType: audit.EventEnrollmentRemoved,
		Success:   true,
	}); err != nil {
		e.logger.WarnContext(ctx, "failed to log audit event", slog.String("error", err.Error()))
	}
	return nil
}

// captureSample acquires one frame and runs detection plus the quality gate.
// A nil descriptor with nil error means the sample was skipped: no face,
// detection timeout, or failed quality. Skips use up the attempt budget.
func (e *Engine) captureSample(ctx context.Context, source FrameSource, voterID string, index int) (domain.Descriptor, float64, error) {
	frame, err := source.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, domain.ErrOperationTimeout.WithError(err)
		}
		return nil, 0, domain.ErrResourceAcquisition.WithError(err)
	}

	detectCtx, cancel := context.WithTimeout(ctx, e.cfg.DetectTimeout)
	defer cancel()

	detection, err := e.provider.DetectWithDescriptor(detectCtx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, domain.ErrOperationTimeout.WithError(ctx.Err())
		}
		e.logger.WarnContext(ctx, "detection failed, skipping sample",
			slog.String("voter_id", voterID),
			slog.Int("sample", index),
			slog.String("error", err.Error()),
		)
		return nil, 0, nil
	}
	if detection == nil {
		e.logger.DebugContext(ctx, "no face in sample",
			slog.String("voter_id", voterID),
			slog.Int("sample", index),
		)
		return nil, 0, nil
	}
	if len(detection.Descriptor) != domain.DescriptorLength {
		e.logger.WarnContext(ctx, "provider returned malformed descriptor, skipping sample",
			slog.String("voter_id", voterID),
			slog.Int("descriptor_length", len(detection.Descriptor)),
		)
		return nil, 0, nil
	}

	metrics := e.analyzer.Analyze(frame, detection.Box, detection.Landmarks)
	if !metrics.GoodQuality {
		e.logger.DebugContext(ctx, "sample failed quality gate",
			slog.String("voter_id", voterID),
			slog.Int("sample", index),
			slog.Any("issues", metrics.Issues),
		)
		return nil, 0, nil
	}

	score := detection.Confidence * (1 - float64(len(metrics.Issues))/10)
	return detection.Descriptor, score, nil
}

func (e *Engine) emitAudit(ctx context.Context, opts Options, eventType audit.EventType, success bool, outcome *Outcome) {
	event := audit.Event{
		VoterID:   opts.VoterID,
		EventType: eventType,
		Success:   success,
		Error:     outcome.Error,
		Metadata: map[string]string{
			"samples_attempted": strconv.Itoa(outcome.SamplesAttempted),
			"samples_retained":  strconv.Itoa(outcome.SamplesRetained),
			"enrolled_by":       opts.EnrolledBy,
		},
	}
	if err := e.audit.Log(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "failed to log audit event", slog.String("error", err.Error()))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
