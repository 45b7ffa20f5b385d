package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_STARTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the concrete implementation every constructor below returns.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func newEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func SessionStarted(sessionID, videoPath string) Event {
	return newEvent("SESSION_STARTED", map[string]interface{}{
		"session_id": sessionID,
		"video_path": videoPath,
	})
}

func SessionClosed(sessionID string) Event {
	return newEvent("SESSION_CLOSED", map[string]interface{}{
		"session_id": sessionID,
	})
}

func ObjectRemoved(sessionID string, objectID int) Event {
	return newEvent("OBJECT_REMOVED", map[string]interface{}{
		"session_id": sessionID,
		"object_id":  objectID,
	})
}

func PropagationStarted(sessionID string, startFrame int) Event {
	return newEvent("PROPAGATION_STARTED", map[string]interface{}{
		"session_id":  sessionID,
		"start_frame": startFrame,
	})
}

// PropagationProgress is published once per emitted frame; the websocket
// hub relays it to observing clients.
func PropagationProgress(sessionID string, frameIndex, totalFrames int) Event {
	return newEvent("PROPAGATION_PROGRESS", map[string]interface{}{
		"session_id":   sessionID,
		"frame_index":  frameIndex,
		"total_frames": totalFrames,
	})
}

func PropagationCompleted(sessionID string, lastFrame int) Event {
	return newEvent("PROPAGATION_COMPLETED", map[string]interface{}{
		"session_id": sessionID,
		"last_frame": lastFrame,
	})
}

func PropagationCancelled(sessionID string, lastFrame int) Event {
	return newEvent("PROPAGATION_CANCELLED", map[string]interface{}{
		"session_id": sessionID,
		"last_frame": lastFrame,
	})
}

func PropagationFailed(sessionID string, frameIndex int, cause error) Event {
	data := map[string]interface{}{
		"session_id":  sessionID,
		"frame_index": frameIndex,
	}
	if cause != nil {
		data["error"] = cause.Error()
	}
	return newEvent("PROPAGATION_FAILED", data)
}
