package repository

import (
	"context"

	"github.com/civitas-labs/facegate/internal/domain"
)

// EnrollmentRepositoryInterface defines operations for enrollment data access
type EnrollmentRepositoryInterface interface {
	Save(ctx context.Context, voterID string, descriptors []domain.Descriptor, threshold float64, enrolledBy string) (*domain.EnrollmentRecord, error)
	Load(ctx context.Context, voterID string) (*domain.EnrollmentRecord, error)
	Remove(ctx context.Context, voterID string) error
}

// AttemptRepositoryInterface defines operations for verification attempt logging
type AttemptRepositoryInterface interface {
	Record(ctx context.Context, attempt domain.VerificationAttempt) error
	RecentFailures(ctx context.Context, voterID string, limit int) (int, error)
}
