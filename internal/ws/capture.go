package ws

import (
	"github.com/civitas-labs/facegate/internal/capture"
)

// CaptureListener bridges a capture session onto the hub: every state
// transition and frame status the controller publishes is broadcast to
// the clients subscribed to that session.
func CaptureListener(hub *Hub) capture.Listener {
	return func(e capture.Event) {
		eventType := EventSessionState
		switch {
		case e.Frame != nil:
			eventType = EventFrameUpdate
		case e.State == capture.StateSucceeded:
			eventType = EventVerification
		case e.State == capture.StateFallbackHandoff:
			eventType = EventFallback
		}
		hub.BroadcastToSession(e.SessionID, eventType, e)
	}
}
