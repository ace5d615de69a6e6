package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by code, so wrapped copies produced by WithError
// still compare equal to their sentinel
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	// ErrResourceAcquisition is fatal to the current session: the camera or
	// model could not be acquired. Never degraded to mock data.
	ErrResourceAcquisition = &AppError{
		Code:       "RESOURCE_ACQUISITION",
		Message:    "Camera or model resources unavailable",
		StatusCode: 503,
	}

	// ErrNoFaceDetected is transient and expected during positioning; it
	// does not count toward the attempt-failure budget.
	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the frame",
		StatusCode: 422,
	}

	ErrMultipleFaces = &AppError{
		Code:       "MULTIPLE_FACES",
		Message:    "Multiple faces detected, please provide a frame with a single face",
		StatusCode: 422,
	}

	ErrQualityInsufficient = &AppError{
		Code:       "QUALITY_INSUFFICIENT",
		Message:    "Frame quality too low for reliable recognition",
		StatusCode: 422,
	}

	ErrLivenessFailed = &AppError{
		Code:       "LIVENESS_FAILED",
		Message:    "Liveness check failed, possible spoofing attempt",
		StatusCode: 422,
	}

	// ErrNoEnrollmentFound directs the caller toward the enrollment flow.
	// It is never conflated with a failed match.
	ErrNoEnrollmentFound = &AppError{
		Code:       "NO_ENROLLMENT_FOUND",
		Message:    "No active enrollment found for this voter",
		StatusCode: 404,
	}

	ErrEnrollmentExists = &AppError{
		Code:       "ENROLLMENT_EXISTS",
		Message:    "An active enrollment already exists for this voter",
		StatusCode: 409,
	}

	ErrEnrollmentInsufficient = &AppError{
		Code:       "ENROLLMENT_INSUFFICIENT_SAMPLES",
		Message:    "Not enough good-quality samples captured for enrollment",
		StatusCode: 422,
	}

	ErrMatchFailed = &AppError{
		Code:       "MATCH_FAILED",
		Message:    "Face does not match the enrolled identity",
		StatusCode: 401,
	}

	ErrOperationTimeout = &AppError{
		Code:       "OPERATION_TIMEOUT",
		Message:    "Recognition operation exceeded its time bound",
		StatusCode: 504,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted frame",
		StatusCode: 422,
	}

	ErrSessionBusy = &AppError{
		Code:       "SESSION_BUSY",
		Message:    "A capture is already in flight for this session",
		StatusCode: 409,
	}

	ErrSessionNotFound = &AppError{
		Code:       "SESSION_NOT_FOUND",
		Message:    "Capture session not found",
		StatusCode: 404,
	}

	ErrTooManyAttempts = &AppError{
		Code:       "TOO_MANY_ATTEMPTS",
		Message:    "Too many failed verification attempts, use the fallback channel",
		StatusCode: 429,
	}
)
