package face

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civitas-labs/facegate/internal/config"
	"github.com/civitas-labs/facegate/internal/provider/mock"
	"github.com/civitas-labs/facegate/internal/provider/remote"
)

func TestNewProvider(t *testing.T) {
	t.Run("Mock", func(t *testing.T) {
		p, err := NewProvider(context.Background(), &config.Config{ProviderType: "mock"})
		require.NoError(t, err)
		assert.IsType(t, &mock.Provider{}, p)
	})

	t.Run("Inference", func(t *testing.T) {
		p, err := NewProvider(context.Background(), &config.Config{
			ProviderType: "inference",
			InferenceURL: "http://localhost:8500",
		})
		require.NoError(t, err)
		assert.IsType(t, &remote.Provider{}, p)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := NewProvider(context.Background(), &config.Config{ProviderType: "onnx"})
		assert.Error(t, err)
	})
}
