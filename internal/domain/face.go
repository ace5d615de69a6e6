package domain

import (
	"time"

	"github.com/google/uuid"
)

// EnrollmentRecord represents the stored reference set for one voter.
// One voter has at most one active set; re-enrollment supersedes the
// previous records (enforced by the store, not by the engines).
type EnrollmentRecord struct {
	ID                  uuid.UUID    `json:"id"`
	VoterID             string       `json:"voter_id"`
	Descriptors         []Descriptor `json:"-"`
	ConfidenceThreshold float64      `json:"confidence_threshold"`
	EnrolledBy          string       `json:"enrolled_by,omitempty"`
	IsActive            bool         `json:"is_active"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// VerificationAttempt represents a single verification decision (audit)
type VerificationAttempt struct {
	ID             uuid.UUID `json:"id"`
	VoterID        string    `json:"voter_id"`
	Success        bool      `json:"success"`
	Confidence     float64   `json:"confidence"`
	BestDistance   float64   `json:"best_distance"`
	LivenessPassed *bool     `json:"liveness_passed,omitempty"`
	ErrorCode      string    `json:"error_code,omitempty"`
	LatencyMs      int64     `json:"latency_ms"`
	CreatedAt      time.Time `json:"created_at"`
}
