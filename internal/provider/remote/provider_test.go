package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civitas-labs/facegate/internal/domain"
	"github.com/civitas-labs/facegate/internal/imaging"
)

func testProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewProvider(Config{
		BaseURL:    server.URL,
		Timeout:    2 * time.Second,
		RetryCount: 0,
	})
}

func TestProvider_Detect(t *testing.T) {
	tests := []struct {
		name         string
		response     DetectResponse
		status       int
		wantFace     bool
		wantErr      bool
		validateFace func(*testing.T, *domain.DetectionResult)
	}{
		{
			name: "single face",
			response: DetectResponse{
				Faces: []FaceResult{
					{Box: FaceBox{X: 10, Y: 20, W: 120, H: 140}, Confidence: 0.97},
				},
			},
			status:   http.StatusOK,
			wantFace: true,
			validateFace: func(t *testing.T, r *domain.DetectionResult) {
				assert.Equal(t, 10.0, r.Box.X)
				assert.Equal(t, 140.0, r.Box.Height)
				assert.Equal(t, 0.97, r.Confidence)
				assert.Nil(t, r.Descriptor)
			},
		},
		{
			name:     "no face returns nil, not error",
			response: DetectResponse{Faces: []FaceResult{}},
			status:   http.StatusOK,
			wantFace: false,
			wantErr:  false,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/detect", r.URL.Path)
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(tt.response)
			})

			result, err := p.Detect(context.Background(), imaging.NewFrame(640, 480))

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			if !tt.wantFace {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			if tt.validateFace != nil {
				tt.validateFace(t, result)
			}
		})
	}
}

func TestProvider_DetectWithDescriptor(t *testing.T) {
	descriptor := make([]float64, domain.DescriptorLength)
	descriptor[0] = 0.5

	var gotReq DetectRequest
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(DetectResponse{
			Faces: []FaceResult{
				{
					Box:        FaceBox{X: 0, Y: 0, W: 100, H: 100},
					Confidence: 0.9,
					Descriptor: descriptor,
					LeftEye:    []XY{{X: 30, Y: 35}},
					RightEye:   []XY{{X: 70, Y: 35}},
				},
			},
		})
	})

	result, err := p.DetectWithDescriptor(context.Background(), imaging.NewFrame(200, 200))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, gotReq.WithDescriptor)
	assert.Equal(t, 200, gotReq.Width)
	assert.True(t, result.Descriptor.Valid())
	require.NotNil(t, result.Landmarks)
	left, right, ok := result.Landmarks.EyeCentroids()
	require.True(t, ok)
	assert.Equal(t, 30.0, left.X)
	assert.Equal(t, 70.0, right.X)
}

func TestProvider_DetectWithDescriptor_TruncatedDescriptor(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(DetectResponse{
			Faces: []FaceResult{
				{Box: FaceBox{W: 100, H: 100}, Confidence: 0.9, Descriptor: make([]float64, 64)},
			},
		})
	})

	_, err := p.DetectWithDescriptor(context.Background(), imaging.NewFrame(200, 200))
	assert.ErrorIs(t, err, ErrNoDescriptor)
}

func TestClient_RetriesOnServerError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(DetectResponse{})
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, Timeout: 2 * time.Second, RetryCount: 1})
	_, err := c.Detect(context.Background(), DetectRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, Timeout: 2 * time.Second, RetryCount: 3})
	_, err := c.Detect(context.Background(), DetectRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, time.Second, calculateBackoff(0))
	assert.Equal(t, time.Second, calculateBackoff(1))
	assert.Equal(t, 2*time.Second, calculateBackoff(2))
	assert.Equal(t, 4*time.Second, calculateBackoff(3))
}
