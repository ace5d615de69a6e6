package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name: "loads with all required vars",
			envVars: map[string]string{
				"PORT":         "8080",
				"ENV":          "production",
				"DATABASE_URL": "postgres://localhost/facegate",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 8080 &&
					c.Environment == "production" &&
					c.DatabaseURL == "postgres://localhost/facegate"
			},
		},
		{
			name: "uses defaults when optional vars missing",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/facegate",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 3000 &&
					c.Environment == "development" &&
					c.ProviderType == "inference" &&
					c.Recognition.SampleCount == 5 &&
					c.Recognition.InterSampleDelay == 500*time.Millisecond &&
					c.Recognition.StrictDistance == 0.35 &&
					c.Recognition.StrictConfidence == 0.65 &&
					c.Recognition.MaxAttempts == 2 &&
					!c.Recognition.PermissiveMode
			},
		},
		{
			name: "recognition thresholds can be overridden",
			envVars: map[string]string{
				"DATABASE_URL":           "postgres://localhost/facegate",
				"VERIFY_STRICT_DISTANCE": "0.4",
				"ENROLL_SAMPLE_COUNT":    "7",
				"CAPTURE_MAX_ATTEMPTS":   "3",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Recognition.StrictDistance == 0.4 &&
					c.Recognition.SampleCount == 7 &&
					c.Recognition.MaxAttempts == 3
			},
		},
		{
			name:    "fails when DATABASE_URL missing",
			envVars: map[string]string{},
			wantErr: true,
			check:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Load() config check failed, got: %+v", cfg)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"development", "development", true},
		{"production", "production", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	c := &Config{Environment: "production"}
	if !c.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}
	c.Environment = "development"
	if c.IsProduction() {
		t.Error("IsProduction() = true, want false")
	}
}
