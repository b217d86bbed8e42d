package types

import "time"

// EventType represents the type of real-time event
type EventType string

const (
	EventUploadCompleted EventType = "upload.completed"
	EventThumbnailReady  EventType = "thumbnail.ready"
)

// Event represents a real-time event that can be sent over WebSocket
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// UploadCompletedEvent is pushed to the uploader once the completion
// verifier has persisted the upload record.
type UploadCompletedEvent struct {
	UploadID  string `json:"upload_id"`
	ObjectKey string `json:"object_key"`
	EventID   string `json:"event_id"`
}

// ThumbnailReadyEvent is pushed to the uploader when the derived thumbnail
// has been stored. There is no ordering guarantee relative to the
// completion response; a client that never receives it must fall back to
// polling the record's thumbnail field.
type ThumbnailReadyEvent struct {
	UploadID     string `json:"upload_id"`
	ThumbnailKey string `json:"thumbnail_key"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
