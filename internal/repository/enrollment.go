package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/civitas-labs/facegate/internal/domain"
)

// EnrollmentRepository stores reference descriptor sets in Postgres with
// pgvector. A voter's samples share a set id; re-enrollment deactivates
// the previous set in the same transaction that inserts the new one.
type EnrollmentRepository struct {
	pool PgxPool
}

func NewEnrollmentRepository(pool PgxPool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// Save replaces the voter's active descriptor set
func (r *EnrollmentRepository) Save(ctx context.Context, voterID string, descriptors []domain.Descriptor, threshold float64, enrolledBy string) (*domain.EnrollmentRecord, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("save enrollment: empty descriptor set")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer tx.Rollback(ctx)

	deactivate := `
		UPDATE enrollments
		SET is_active = false, updated_at = NOW()
		WHERE voter_id = $1 AND is_active = true
	`
	if _, err := tx.Exec(ctx, deactivate, voterID); err != nil {
		return nil, fmt.Errorf("deactivate previous enrollment: %w", err)
	}

	insert := `
		INSERT INTO enrollments (id, set_id, voter_id, sample_index, descriptor, confidence_threshold, enrolled_by, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true, NOW(), NOW())
	`

	setID := uuid.New()
	for i, descriptor := range descriptors {
		if _, err := tx.Exec(ctx, insert,
			uuid.New(),
			setID,
			voterID,
			i,
			toVector(descriptor),
			threshold,
			enrolledBy,
		); err != nil {
			return nil, fmt.Errorf("insert enrollment sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit enrollment: %w", err)
	}

	now := time.Now().UTC()
	return &domain.EnrollmentRecord{
		ID:                  setID,
		VoterID:             voterID,
		Descriptors:         descriptors,
		ConfidenceThreshold: threshold,
		EnrolledBy:          enrolledBy,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// Load returns the voter's active descriptor set, or nil when the voter
// has never enrolled.
func (r *EnrollmentRepository) Load(ctx context.Context, voterID string) (*domain.EnrollmentRecord, error) {
	query := `
		SELECT set_id, descriptor, confidence_threshold, enrolled_by, created_at, updated_at
		FROM enrollments
		WHERE voter_id = $1 AND is_active = true
		ORDER BY sample_index
	`

	rows, err := r.pool.Query(ctx, query, voterID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	defer rows.Close()

	var record *domain.EnrollmentRecord
	for rows.Next() {
		var setID uuid.UUID
		var embedding pgvector.Vector
		var threshold float64
		var enrolledBy string
		var createdAt, updatedAt time.Time

		if err := rows.Scan(&setID, &embedding, &threshold, &enrolledBy, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan enrollment sample: %w", err)
		}

		if record == nil {
			record = &domain.EnrollmentRecord{
				ID:                  setID,
				VoterID:             voterID,
				ConfidenceThreshold: threshold,
				EnrolledBy:          enrolledBy,
				IsActive:            true,
				CreatedAt:           createdAt,
				UpdatedAt:           updatedAt,
			}
		}
		record.Descriptors = append(record.Descriptors, fromVector(embedding))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}

	return record, nil
}

// Remove deactivates the voter's active set
func (r *EnrollmentRepository) Remove(ctx context.Context, voterID string) error {
	query := `
		UPDATE enrollments
		SET is_active = false, updated_at = NOW()
		WHERE voter_id = $1 AND is_active = true
	`

	result, err := r.pool.Exec(ctx, query, voterID)
	if err != nil {
		return fmt.Errorf("remove enrollment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNoEnrollmentFound
	}
	return nil
}

func toVector(d domain.Descriptor) pgvector.Vector {
	floats := make([]float32, len(d))
	for i, v := range d {
		floats[i] = float32(v)
	}
	return pgvector.NewVector(floats)
}

func fromVector(v pgvector.Vector) domain.Descriptor {
	slice := v.Slice()
	d := make(domain.Descriptor, len(slice))
	for i, f := range slice {
		d[i] = float64(f)
	}
	return d
}
