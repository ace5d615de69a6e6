// Package fallback hands a failed verification session over to the
// platform's secondary authentication flow.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Authenticator triggers the secondary authentication flow for a voter
// after face verification has been exhausted.
type Authenticator interface {
	Trigger(ctx context.Context, voterID, reason string) error
}

// Config holds the OTP client settings
type Config struct {
	BaseURL string
	Timeout time.Duration
	APIKey  string
}

// DefaultConfig returns sensible client defaults
func DefaultConfig() Config {
	return Config{
		Timeout: 10 * time.Second,
	}
}

// Client posts fallback requests to the platform's OTP challenge endpoint
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type triggerRequest struct {
	VoterID     string    `json:"voter_id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// Trigger requests an OTP challenge for the voter
func (c *Client) Trigger(ctx context.Context, voterID, reason string) error {
	body, err := json.Marshal(triggerRequest{
		VoterID:     voterID,
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal fallback request: %w", err)
	}

	url := c.cfg.BaseURL + "/v1/otp-challenge"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create fallback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fallback request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fallback service returned status %d", resp.StatusCode)
	}
	return nil
}

// NoOp is an Authenticator that does nothing, for deployments without a
// fallback flow configured.
type NoOp struct{}

func (NoOp) Trigger(_ context.Context, _, _ string) error { return nil }
