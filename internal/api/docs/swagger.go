package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// EnrollResponse represents the response for a completed enrollment
type EnrollResponse struct {
	Success          bool      `json:"success" example:"true"`
	SamplesAttempted int       `json:"samples_attempted" example:"5"`
	SamplesRetained  int       `json:"samples_retained" example:"4"`
	QualityScores    []float64 `json:"quality_scores"`
}

// VerifyResponse represents the response for a verification decision
type VerifyResponse struct {
	Authorized   bool    `json:"authorized" example:"true"`
	Confidence   float64 `json:"confidence" example:"0.92"`
	BestDistance float64 `json:"best_distance" example:"0.08"`
	Regime       string  `json:"regime" example:"strict"`
	LatencyMs    int64   `json:"latency_ms" example:"45"`
}

// LivenessResponse represents the response for a liveness check
type LivenessResponse struct {
	IsLive           bool               `json:"is_live" example:"true"`
	Confidence       float64            `json:"confidence" example:"0.75"`
	MotionPercentage float64            `json:"motion_percentage" example:"2.4"`
	Checks           LivenessChecksData `json:"checks"`
	Reasons          []string           `json:"reasons,omitempty"`
}

// LivenessChecksData represents individual liveness checks
type LivenessChecksData struct {
	Motion       bool `json:"motion" example:"true"`
	EyesOpen     bool `json:"eyes_open" example:"true"`
	HeadMovement bool `json:"head_movement" example:"true"`
	QualityOK    bool `json:"quality_ok" example:"true"`
}

// SessionResponse represents the terminal outcome of a capture session
type SessionResponse struct {
	SessionID       string  `json:"session_id" example:"66b3f2aa-8c4e-4b4e-9e53-5a4c6d2f9b01"`
	State           string  `json:"state" example:"succeeded"`
	Authorized      bool    `json:"authorized" example:"true"`
	Confidence      float64 `json:"confidence" example:"0.92"`
	FailedAttempts  int     `json:"failed_attempts" example:"0"`
	FallbackInvoked bool    `json:"fallback_invoked" example:"false"`
	LatencyMs       int64   `json:"latency_ms" example:"1840"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version,omitempty" example:"0.1.0"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

// NewSwagger builds the OpenAPI definition for the public endpoints
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Facegate Face Verification API",
		Version:     "v1.0.0",
		Description: "Face enrollment, liveness and verification service for voter identity checks",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/enroll - Enroll a voter
		endpoint.New(
			endpoint.POST,
			"/enroll",
			endpoint.WithTags("Enrollment"),
			endpoint.WithSummary("Enroll a voter's reference descriptors"),
			endpoint.WithDescription("Builds a voter's reference set from the uploaded frames. Frames that fail quality checks are skipped; at least half must survive or the enrollment is rejected. Re-enrolling supersedes the previous set."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollResponse{}, "201", "Enrollment completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "voter_id and frames are required"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Image could not be decoded"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "ENROLLMENT_INSUFFICIENT", Message: "Too few usable samples"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// POST /v1/verify - Verify a face against an enrollment
		endpoint.New(
			endpoint.POST,
			"/verify",
			endpoint.WithTags("Verification"),
			endpoint.WithSummary("Verify a frame against a voter's enrollment"),
			endpoint.WithDescription("Performs 1:1 verification of the uploaded frame against the voter's stored reference set. The regime form field selects strict or lenient thresholds; the attempt query parameter drives lenient retry relaxation."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("attempt", parameter.Query, parameter.WithDescription("1-based retry attempt number (default: 1)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(VerifyResponse{}, "200", "Verification decision"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "NO_ENROLLMENT_FOUND", Message: "No active enrollment for voter"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in the frame"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "QUALITY_INSUFFICIENT", Message: "Frame quality too low for reliable recognition"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "TOO_MANY_ATTEMPTS", Message: "Too many failed verification attempts"}, "429", "Too Many Requests"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// POST /v1/sessions/verify - Run a full capture session
		endpoint.New(
			endpoint.POST,
			"/sessions/verify",
			endpoint.WithTags("Verification"),
			endpoint.WithSummary("Run a capture session over uploaded frames"),
			endpoint.WithDescription("Drives the full verification loop: per-frame detection, quality and liveness gating, throttled recognition attempts and fallback handoff once the attempt budget is spent. State transitions are streamed to WebSocket subscribers of the session."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Terminal session outcome"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "NO_ENROLLMENT_FOUND", Message: "No active enrollment for voter"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "voter_id and frames are required"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "RESOURCE_ACQUISITION", Message: "Frame source unavailable"}, "503", "Service Unavailable"),
				response.New(ErrorResponse{Code: "OPERATION_TIMEOUT", Message: "Session expired before a decision"}, "504", "Gateway Timeout"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// POST /v1/liveness - Liveness check
		endpoint.New(
			endpoint.POST,
			"/liveness",
			endpoint.WithTags("Liveness"),
			endpoint.WithSummary("Run liveness heuristics over uploaded frames"),
			endpoint.WithDescription("Runs motion, eye-opening and head-movement heuristics over the uploaded frame burst. A single frame exercises only the landmark checks; send several consecutive frames for motion analysis."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LivenessResponse{}, "200", "Liveness result"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in the frame"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Image could not be decoded"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// DELETE /v1/enrollments/{voter_id} - Remove an enrollment
		endpoint.New(
			endpoint.DELETE,
			"/enrollments/{voter_id}",
			endpoint.WithTags("Enrollment"),
			endpoint.WithSummary("Remove a voter's enrollment"),
			endpoint.WithDescription("Deactivates the voter's active reference set. Subsequent verifications return NO_ENROLLMENT_FOUND until the voter re-enrolls."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("voter_id", parameter.Path, parameter.WithDescription("Voter identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Enrollment removed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "NO_ENROLLMENT_FOUND", Message: "No active enrollment for voter"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /health - Health check
		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Service health"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Service is healthy"),
			}),
		),

		// GET /ready - Readiness check
		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Service readiness"),
			endpoint.WithDescription("Verifies database connectivity"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Service is ready"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "RESOURCE_ACQUISITION", Message: "Database unreachable"}, "503", "Service Unavailable"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
