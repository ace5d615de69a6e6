// Package ratelimit guards the verification endpoint against brute-force
// probing of enrolled identities.
package ratelimit

import (
	"context"
	"fmt"

	"github.com/civitas-labs/facegate/internal/domain"
)

// FailureSource counts failed verification attempts among a voter's most
// recent ones
type FailureSource interface {
	RecentFailures(ctx context.Context, voterID string, limit int) (int, error)
}

// Guard blocks verification for a voter whose recent attempt history is
// dominated by failures. The lockout clears itself as new attempts push
// old failures out of the lookback window.
type Guard struct {
	source      FailureSource
	lookback    int
	maxFailures int
}

// NewGuard creates a guard that inspects the voter's last lookback
// attempts and blocks once maxFailures of them failed
func NewGuard(source FailureSource, lookback, maxFailures int) *Guard {
	if lookback <= 0 {
		lookback = 20
	}
	if maxFailures <= 0 {
		maxFailures = 10
	}
	return &Guard{
		source:      source,
		lookback:    lookback,
		maxFailures: maxFailures,
	}
}

// Check returns ErrTooManyAttempts when the voter is locked out
func (g *Guard) Check(ctx context.Context, voterID string) error {
	failures, err := g.source.RecentFailures(ctx, voterID, g.lookback)
	if err != nil {
		return fmt.Errorf("count recent failures: %w", err)
	}

	if failures >= g.maxFailures {
		return domain.ErrTooManyAttempts.WithError(
			fmt.Errorf("%d failures in last %d attempts", failures, g.lookback))
	}

	return nil
}
