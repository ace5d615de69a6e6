package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/civitas-labs/facegate/internal/domain"
)

// AttemptRepository persists verification attempts for audit
type AttemptRepository struct {
	pool PgxPool
}

func NewAttemptRepository(pool PgxPool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Record inserts one verification attempt
func (r *AttemptRepository) Record(ctx context.Context, attempt domain.VerificationAttempt) error {
	query := `
		INSERT INTO verification_attempts (id, voter_id, success, confidence, best_distance, liveness_passed, error_code, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`

	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}

	if _, err := r.pool.Exec(ctx, query,
		attempt.ID,
		attempt.VoterID,
		attempt.Success,
		attempt.Confidence,
		attempt.BestDistance,
		attempt.LivenessPassed,
		attempt.ErrorCode,
		attempt.LatencyMs,
	); err != nil {
		return fmt.Errorf("record verification attempt: %w", err)
	}

	return nil
}

// RecentFailures counts failed attempts for the voter within the last
// window of attempts, newest first.
func (r *AttemptRepository) RecentFailures(ctx context.Context, voterID string, limit int) (int, error) {
	query := `
		SELECT COUNT(*) FROM (
			SELECT success FROM verification_attempts
			WHERE voter_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		WHERE success = false
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, voterID, limit).Scan(&count); err != nil {
		return 0, fmt.Errorf("count recent failures: %w", err)
	}
	return count, nil
}
