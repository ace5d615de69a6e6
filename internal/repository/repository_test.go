package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civitas-labs/facegate/internal/domain"
)

func testDescriptor(fill float64) domain.Descriptor {
	d := make(domain.Descriptor, domain.DescriptorLength)
	for i := range d {
		d[i] = fill
	}
	return d
}

// Enrollment Repository Tests

func TestEnrollmentRepository_Save(t *testing.T) {
	descriptors := []domain.Descriptor{testDescriptor(0.1), testDescriptor(0.2)}

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   bool
	}{
		{
			name: "supersedes previous set and inserts samples",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE enrollments SET is_active = false, updated_at = NOW\(\) WHERE voter_id = \$1 AND is_active = true`).
					WithArgs("voter-1").
					WillReturnResult(pgxmock.NewResult("UPDATE", 6))
				for i := range descriptors {
					mock.ExpectExec(`INSERT INTO enrollments`).
						WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "voter-1", i, pgxmock.AnyArg(), 0.65, "admin-7").
						WillReturnResult(pgxmock.NewResult("INSERT", 1))
				}
				mock.ExpectCommit()
			},
		},
		{
			name: "insert failure rolls back",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE enrollments`).
					WithArgs("voter-1").
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
				mock.ExpectExec(`INSERT INTO enrollments`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "voter-1", 0, pgxmock.AnyArg(), 0.65, "admin-7").
					WillReturnError(errors.New("insert failed"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewEnrollmentRepository(mock)
			record, err := repo.Save(context.Background(), "voter-1", descriptors, 0.65, "admin-7")

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "voter-1", record.VoterID)
				assert.Len(t, record.Descriptors, 2)
				assert.True(t, record.IsActive)
				assert.NotEqual(t, uuid.Nil, record.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEnrollmentRepository_Save_EmptySet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEnrollmentRepository(mock)
	_, err = repo.Save(context.Background(), "voter-1", nil, 0.65, "")

	assert.ErrorContains(t, err, "empty descriptor set")
}

func TestEnrollmentRepository_Load(t *testing.T) {
	setID := uuid.New()
	now := time.Now()

	t.Run("reconstructs record with float64 descriptors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{
			"set_id", "descriptor", "confidence_threshold", "enrolled_by", "created_at", "updated_at",
		}).
			AddRow(setID, toVector(testDescriptor(0.25)), 0.65, "admin-7", now, now).
			AddRow(setID, toVector(testDescriptor(0.75)), 0.65, "admin-7", now, now)

		mock.ExpectQuery(`SELECT set_id, descriptor, confidence_threshold, enrolled_by, created_at, updated_at FROM enrollments WHERE voter_id = \$1 AND is_active = true ORDER BY sample_index`).
			WithArgs("voter-1").
			WillReturnRows(rows)

		repo := NewEnrollmentRepository(mock)
		record, err := repo.Load(context.Background(), "voter-1")

		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, setID, record.ID)
		require.Len(t, record.Descriptors, 2)
		require.Len(t, record.Descriptors[0], domain.DescriptorLength)
		assert.InDelta(t, 0.25, record.Descriptors[0][0], 1e-6)
		assert.InDelta(t, 0.75, record.Descriptors[1][0], 1e-6)
		assert.Equal(t, 0.65, record.ConfidenceThreshold)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("never enrolled returns nil record", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT set_id, descriptor`).
			WithArgs("voter-unknown").
			WillReturnRows(pgxmock.NewRows([]string{
				"set_id", "descriptor", "confidence_threshold", "enrolled_by", "created_at", "updated_at",
			}))

		repo := NewEnrollmentRepository(mock)
		record, err := repo.Load(context.Background(), "voter-unknown")

		require.NoError(t, err)
		assert.Nil(t, record)
	})
}

func TestEnrollmentRepository_Remove(t *testing.T) {
	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "deactivates active set",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE enrollments SET is_active = false`).
					WithArgs("voter-1").
					WillReturnResult(pgxmock.NewResult("UPDATE", 6))
			},
		},
		{
			name: "nothing active to remove",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE enrollments SET is_active = false`).
					WithArgs("voter-1").
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			wantErr: domain.ErrNoEnrollmentFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewEnrollmentRepository(mock)
			err = repo.Remove(context.Background(), "voter-1")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// Attempt Repository Tests

func TestAttemptRepository_Record(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	livenessPassed := true
	attempt := domain.VerificationAttempt{
		VoterID:        "voter-1",
		Success:        true,
		Confidence:     0.91,
		BestDistance:   0.09,
		LivenessPassed: &livenessPassed,
		LatencyMs:      240,
	}

	mock.ExpectExec(`INSERT INTO verification_attempts`).
		WithArgs(pgxmock.AnyArg(), "voter-1", true, 0.91, 0.09, &livenessPassed, "", int64(240)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewAttemptRepository(mock)
	require.NoError(t, repo.Record(context.Background(), attempt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptRepository_RecentFailures(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM`).
		WithArgs("voter-1", 10).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	repo := NewAttemptRepository(mock)
	count, err := repo.RecentFailures(context.Background(), "voter-1", 10)

	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

var (
	_ EnrollmentRepositoryInterface = (*EnrollmentRepository)(nil)
	_ AttemptRepositoryInterface    = (*AttemptRepository)(nil)
)
