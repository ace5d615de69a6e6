package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Static bearer token for the v1 API. Empty disables authentication,
	// for local development only.
	APIKey string `envconfig:"API_KEY" default:""`

	// Model provider
	ProviderType string `envconfig:"PROVIDER_TYPE" default:"inference"`
	InferenceURL string `envconfig:"INFERENCE_URL" default:"http://localhost:8500"`
	AWSRegion    string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Fallback OTP channel, invoked after the attempt budget is exhausted
	FallbackURL string `envconfig:"FALLBACK_OTP_URL" default:""`

	Recognition Recognition
}

// Recognition consolidates every tunable threshold of the capture, quality,
// liveness, enrollment and verification pipeline. Regime changes are data
// here, not constants buried at call sites.
type Recognition struct {
	// Quality gating
	BrightnessMin float64 `envconfig:"QUALITY_BRIGHTNESS_MIN" default:"50"`
	BrightnessMax float64 `envconfig:"QUALITY_BRIGHTNESS_MAX" default:"200"`
	SharpnessMin  float64 `envconfig:"QUALITY_SHARPNESS_MIN" default:"0.3"`
	FaceSizeMin   int     `envconfig:"QUALITY_FACE_SIZE_MIN" default:"100"`
	FaceSizeMax   int     `envconfig:"QUALITY_FACE_SIZE_MAX" default:"800"`
	MaxTiltDeg    float64 `envconfig:"QUALITY_MAX_TILT_DEG" default:"15"`

	// Liveness motion band (percent of sampled pixels)
	MotionMinPct   float64 `envconfig:"LIVENESS_MOTION_MIN_PCT" default:"0.5"`
	MotionMaxPct   float64 `envconfig:"LIVENESS_MOTION_MAX_PCT" default:"15"`
	PixelDelta     int     `envconfig:"LIVENESS_PIXEL_DELTA" default:"30"`
	SampleStride   int     `envconfig:"LIVENESS_SAMPLE_STRIDE" default:"10"`
	PoseVarMinDeg  float64 `envconfig:"LIVENESS_POSE_VAR_MIN_DEG" default:"2"`
	PoseVarMaxDeg  float64 `envconfig:"LIVENESS_POSE_VAR_MAX_DEG" default:"20"`
	EyeOpenMinDist float64 `envconfig:"LIVENESS_EYE_OPEN_MIN_DIST" default:"3"`

	// Enrollment
	SampleCount      int           `envconfig:"ENROLL_SAMPLE_COUNT" default:"5"`
	InterSampleDelay time.Duration `envconfig:"ENROLL_SAMPLE_DELAY" default:"500ms"`

	// Verification regimes
	StrictDistance    float64 `envconfig:"VERIFY_STRICT_DISTANCE" default:"0.35"`
	StrictConfidence  float64 `envconfig:"VERIFY_STRICT_CONFIDENCE" default:"0.65"`
	LenientDistance   float64 `envconfig:"VERIFY_LENIENT_DISTANCE" default:"0.5"`
	LenientConfidence float64 `envconfig:"VERIFY_LENIENT_CONFIDENCE" default:"0.4"`
	RelaxStep         float64 `envconfig:"VERIFY_RELAX_STEP" default:"0.05"`
	DistanceCeiling   float64 `envconfig:"VERIFY_DISTANCE_CEILING" default:"0.6"`

	// Failure lockout over the verification endpoint
	LockoutLookback int `envconfig:"VERIFY_LOCKOUT_LOOKBACK" default:"20"`
	LockoutFailures int `envconfig:"VERIFY_LOCKOUT_FAILURES" default:"10"`

	// Permissive testing mode: auto-approves on bare detection after
	// repeated recognition failures. Demo convenience only, never a
	// security control. Defaults off.
	PermissiveMode         bool `envconfig:"PERMISSIVE_MODE" default:"false"`
	PermissiveAfterAttempt int  `envconfig:"PERMISSIVE_AFTER_ATTEMPT" default:"3"`

	// Capture loop
	FrameInterval       time.Duration `envconfig:"CAPTURE_FRAME_INTERVAL" default:"100ms"`
	DetectTimeout       time.Duration `envconfig:"CAPTURE_DETECT_TIMEOUT" default:"5s"`
	CaptureTimeout      time.Duration `envconfig:"CAPTURE_TOTAL_TIMEOUT" default:"12s"`
	RecognitionInterval time.Duration `envconfig:"CAPTURE_RECOGNITION_INTERVAL" default:"3s"`
	MaxAttempts         int           `envconfig:"CAPTURE_MAX_ATTEMPTS" default:"2"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
