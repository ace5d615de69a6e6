package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civitas-labs/facegate/internal/capture"
)

func TestCaptureListener(t *testing.T) {
	tests := []struct {
		name     string
		event    capture.Event
		wantType EventType
	}{
		{
			name:     "state transition",
			event:    capture.Event{State: capture.StateDetecting},
			wantType: EventSessionState,
		},
		{
			name: "frame status",
			event: capture.Event{
				State: capture.StateDetecting,
				Frame: &capture.FrameStatus{FaceDetected: true},
			},
			wantType: EventFrameUpdate,
		},
		{
			name:     "verification success",
			event:    capture.Event{State: capture.StateSucceeded},
			wantType: EventVerification,
		},
		{
			name:     "fallback handoff",
			event:    capture.Event{State: capture.StateFallbackHandoff},
			wantType: EventFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := runHub(t)

			sessionID := uuid.New()
			client := &Client{
				hub:       hub,
				sessionID: sessionID,
				send:      make(chan []byte, 10),
			}
			hub.register <- client
			time.Sleep(50 * time.Millisecond)

			listener := CaptureListener(hub)
			tt.event.SessionID = sessionID
			listener(tt.event)

			select {
			case msg := <-client.send:
				var event Event
				require.NoError(t, json.Unmarshal(msg, &event))
				assert.Equal(t, tt.wantType, event.Type)
			case <-time.After(1 * time.Second):
				t.Fatal("timeout waiting for message")
			}
		})
	}
}
