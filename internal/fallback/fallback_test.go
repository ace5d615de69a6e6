package fallback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Trigger(t *testing.T) {
	var got triggerRequest
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/otp-challenge", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Timeout: time.Second, APIKey: "secret"})

	err := client.Trigger(context.Background(), "voter-1", "verification attempts exhausted")
	require.NoError(t, err)

	assert.Equal(t, "voter-1", got.VoterID)
	assert.Equal(t, "verification attempts exhausted", got.Reason)
	assert.False(t, got.RequestedAt.IsZero())
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestClient_Trigger_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})

	err := client.Trigger(context.Background(), "voter-1", "test")
	assert.ErrorContains(t, err, "status 500")
}

func TestClient_Trigger_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := client.Trigger(ctx, "voter-1", "test")
	assert.Error(t, err)
}
