// Package verify decides identity claims by comparing a live descriptor
// against a voter's enrolled reference set.
package verify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/civitas-labs/facegate/internal/audit"
	"github.com/civitas-labs/facegate/internal/domain"
)

// Regime selects the active threshold set
type Regime string

const (
	RegimeStrict  Regime = "strict"
	RegimeLenient Regime = "lenient"
)

// Store loads enrolled reference sets
type Store interface {
	Load(ctx context.Context, voterID string) (*domain.EnrollmentRecord, error)
}

// AttemptRecorder persists verification attempts for audit. Recorder
// failures never change the verification decision.
type AttemptRecorder interface {
	Record(ctx context.Context, attempt domain.VerificationAttempt) error
}

// Config consolidates every matching threshold in one place
type Config struct {
	StrictDistance    float64
	StrictConfidence  float64
	LenientDistance   float64
	LenientConfidence float64
	// RelaxStep widens the lenient distance bound per extra attempt,
	// never past DistanceCeiling
	RelaxStep       float64
	DistanceCeiling float64
	// PermissiveMode authorizes on bare detection after repeated failed
	// attempts. Testing aid only. Default off.
	PermissiveMode         bool
	PermissiveAfterAttempt int
}

// DefaultConfig returns the production thresholds
func DefaultConfig() Config {
	return Config{
		StrictDistance:         0.35,
		StrictConfidence:       0.65,
		LenientDistance:        0.5,
		LenientConfidence:      0.4,
		RelaxStep:              0.05,
		DistanceCeiling:        0.6,
		PermissiveMode:         false,
		PermissiveAfterAttempt: 3,
	}
}

// Options customizes a single verification call
type Options struct {
	Regime Regime
	// Attempt is the 1-based attempt number within the capture session;
	// it drives lenient relaxation and the permissive escape hatch
	Attempt        int
	LivenessPassed *bool
}

// Decision is the outcome of one verification call
type Decision struct {
	Authorized        bool    `json:"authorized"`
	Confidence        float64 `json:"confidence"`
	BestDistance      float64 `json:"best_distance"`
	DistanceThreshold float64 `json:"distance_threshold"`
	Regime            Regime  `json:"regime"`
	Relaxed           bool    `json:"relaxed,omitempty"`
	Permissive        bool    `json:"permissive,omitempty"`
}

// Engine matches live descriptors against stored enrollments
type Engine struct {
	store    Store
	attempts AttemptRecorder
	audit    audit.Logger
	logger   *slog.Logger
	cfg      Config
}

func NewEngine(store Store, attempts AttemptRecorder, auditLogger audit.Logger, logger *slog.Logger, cfg Config) *Engine {
	return &Engine{
		store:    store,
		attempts: attempts,
		audit:    auditLogger,
		logger:   logger,
		cfg:      cfg,
	}
}

// Verify finds the nearest enrolled descriptor and applies the active
// regime's thresholds. A missing enrollment is reported as its own error,
// never as a failed match. Every call, success or failure, is recorded.
func (e *Engine) Verify(ctx context.Context, voterID string, live domain.Descriptor, opts Options) (*Decision, error) {
	start := time.Now()

	if voterID == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("voter id is required"))
	}

	record, err := e.store.Load(ctx, voterID)
	if err != nil {
		return nil, err
	}
	if record == nil || len(record.Descriptors) == 0 {
		e.record(ctx, voterID, start, nil, opts, domain.ErrNoEnrollmentFound.Code)
		return nil, domain.ErrNoEnrollmentFound
	}

	decision := e.match(ctx, voterID, live, record, opts)

	if !decision.Authorized && e.permissiveEscape(opts, live) {
		decision.Authorized = true
		decision.Permissive = true
		e.logger.WarnContext(ctx, "PERMISSIVE MODE authorized a failed match on bare detection",
			slog.String("voter_id", voterID),
			slog.Int("attempt", opts.Attempt),
			slog.Float64("best_distance", decision.BestDistance),
		)
	}

	errCode := ""
	if !decision.Authorized {
		errCode = domain.ErrMatchFailed.Code
	}
	e.record(ctx, voterID, start, decision, opts, errCode)

	if !decision.Authorized {
		return decision, domain.ErrMatchFailed
	}
	return decision, nil
}

// match runs nearest-neighbor over the enrolled set and applies thresholds
func (e *Engine) match(ctx context.Context, voterID string, live domain.Descriptor, record *domain.EnrollmentRecord, opts Options) *Decision {
	best := domain.Distance(live, record.Descriptors[0])
	for _, ref := range record.Descriptors[1:] {
		if d := domain.Distance(live, ref); d < best {
			best = d
		}
	}

	confidence := domain.MatchConfidence(best)
	regime := opts.Regime
	if regime == "" {
		regime = RegimeStrict
	}

	distanceMax, confidenceMin, relaxed := e.thresholds(regime, opts.Attempt)
	if regime == RegimeStrict && record.ConfidenceThreshold > confidenceMin {
		confidenceMin = record.ConfidenceThreshold
	}
	if relaxed {
		e.logger.InfoContext(ctx, "lenient threshold relaxed for retry",
			slog.String("voter_id", voterID),
			slog.Int("attempt", opts.Attempt),
			slog.Float64("distance_threshold", distanceMax),
		)
	}

	return &Decision{
		Authorized:        best <= distanceMax && confidence >= confidenceMin,
		Confidence:        confidence,
		BestDistance:      best,
		DistanceThreshold: distanceMax,
		Regime:            regime,
		Relaxed:           relaxed,
	}
}

// thresholds resolves the effective bounds for the regime and attempt
func (e *Engine) thresholds(regime Regime, attempt int) (distanceMax, confidenceMin float64, relaxed bool) {
	if regime == RegimeStrict {
		return e.cfg.StrictDistance, e.cfg.StrictConfidence, false
	}

	distanceMax = e.cfg.LenientDistance
	if attempt > 1 && e.cfg.RelaxStep > 0 {
		distanceMax += e.cfg.RelaxStep * float64(attempt-1)
		if distanceMax > e.cfg.DistanceCeiling {
			distanceMax = e.cfg.DistanceCeiling
		}
		relaxed = distanceMax > e.cfg.LenientDistance
	}
	return distanceMax, e.cfg.LenientConfidence, relaxed
}

func (e *Engine) permissiveEscape(opts Options, live domain.Descriptor) bool {
	return e.cfg.PermissiveMode &&
		opts.Attempt >= e.cfg.PermissiveAfterAttempt &&
		len(live) == domain.DescriptorLength
}

// record persists the attempt and emits the audit event. Both sinks are
// log-and-continue.
func (e *Engine) record(ctx context.Context, voterID string, start time.Time, decision *Decision, opts Options, errCode string) {
	attempt := domain.VerificationAttempt{
		VoterID:        voterID,
		LivenessPassed: opts.LivenessPassed,
		ErrorCode:      errCode,
		LatencyMs:      time.Since(start).Milliseconds(),
	}
	if decision != nil {
		attempt.Success = decision.Authorized
		attempt.Confidence = decision.Confidence
		attempt.BestDistance = decision.BestDistance
	}

	if e.attempts != nil {
		if err := e.attempts.Record(ctx, attempt); err != nil {
			e.logger.WarnContext(ctx, "failed to persist verification attempt",
				slog.String("voter_id", voterID),
				slog.String("error", err.Error()),
			)
		}
	}

	metadata := map[string]string{"regime": string(opts.Regime)}
	if decision != nil && decision.Permissive {
		metadata["permissive"] = "true"
	}
	if err := e.audit.Log(ctx, audit.Event{
		VoterID:   voterID,
		EventType: audit.EventVerificationResult,
		Success:   attempt.Success,
		Error:     errCode,
		Metadata:  metadata,
	}); err != nil {
		e.logger.WarnContext(ctx, "failed to log audit event", slog.String("error", err.Error()))
	}
}
