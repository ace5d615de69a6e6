package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_Log(t *testing.T) {
	tests := []struct {
		name         string
		event        Event
		wantType     string
		wantSuccess  bool
		wantHasError bool
	}{
		{
			name: "successful verification",
			event: Event{
				VoterID:   "voter-123",
				EventType: EventVerificationResult,
				Provider:  "inference",
				Success:   true,
				Metadata:  map[string]string{"confidence": "0.91"},
			},
			wantType:    "VERIFICATION_RESULT",
			wantSuccess: true,
		},
		{
			name: "failed enrollment carries error",
			event: Event{
				VoterID:   "voter-456",
				EventType: EventEnrollmentFailed,
				Success:   false,
				Error:     "insufficient quality samples",
			},
			wantType:     "ENROLLMENT_FAILED",
			wantSuccess:  false,
			wantHasError: true,
		},
		{
			name: "fallback invocation",
			event: Event{
				VoterID:   "voter-789",
				EventType: EventFallbackInvoked,
				Success:   true,
			},
			wantType:    "FALLBACK_INVOKED",
			wantSuccess: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

			err := logger.Log(context.Background(), tt.event)
			require.NoError(t, err)

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

			assert.Equal(t, "audit_event", line["msg"])
			assert.Equal(t, tt.wantType, line["event_type"])
			assert.Equal(t, tt.wantSuccess, line["success"])
			assert.Equal(t, tt.event.VoterID, line["voter_id"])
			assert.NotEmpty(t, line["event_id"])

			var payload Event
			require.NoError(t, json.Unmarshal([]byte(line["event_data"].(string)), &payload))
			assert.NotEqual(t, uuid.Nil, payload.ID)
			assert.False(t, payload.Timestamp.IsZero())
			if tt.wantHasError {
				assert.NotEmpty(t, payload.Error)
			}
		})
	}
}

func TestSlogLogger_Log_PreservesProvidedID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	id := uuid.New()
	err := logger.Log(context.Background(), Event{
		ID:        id,
		VoterID:   "voter-1",
		EventType: EventEnrollmentCompleted,
		Success:   true,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), id.String())
}

func TestNoOpLogger_Log(t *testing.T) {
	var logger Logger = &NoOpLogger{}
	assert.NoError(t, logger.Log(context.Background(), Event{EventType: EventEnrollmentRemoved}))
}
