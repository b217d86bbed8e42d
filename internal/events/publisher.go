package events

import (
	"github.com/mosaicmedia/media-service/internal/types"
)

// Publisher interface for publishing upload lifecycle events
type Publisher interface {
	PublishUploadCompleted(userID, uploadID, objectKey, eventID string) error
	PublishThumbnailReady(userID, uploadID, thumbnailKey string) error
}

// WebSocketHub interface for the WebSocket hub
type WebSocketHub interface {
	BroadcastToUser(userID string, event *types.Event)
	IsUserConnected(userID string) bool
}

// EventPublisher implements the Publisher interface
type EventPublisher struct {
	hub WebSocketHub
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(hub WebSocketHub) *EventPublisher {
	return &EventPublisher{
		hub: hub,
	}
}

// PublishUploadCompleted notifies the uploader that their record was
// persisted. A disconnected uploader simply misses the push.
func (p *EventPublisher) PublishUploadCompleted(userID, uploadID, objectKey, eventID string) error {
	if !p.hub.IsUserConnected(userID) {
		return nil
	}

	eventData := &types.UploadCompletedEvent{
		UploadID:  uploadID,
		ObjectKey: objectKey,
		EventID:   eventID,
	}

	p.hub.BroadcastToUser(userID, types.NewEvent(types.EventUploadCompleted, eventData))

	return nil
}

// PublishThumbnailReady notifies the uploader that the derived thumbnail is
// available under its key.
func (p *EventPublisher) PublishThumbnailReady(userID, uploadID, thumbnailKey string) error {
	if !p.hub.IsUserConnected(userID) {
		return nil
	}

	eventData := &types.ThumbnailReadyEvent{
		UploadID:     uploadID,
		ThumbnailKey: thumbnailKey,
	}

	p.hub.BroadcastToUser(userID, types.NewEvent(types.EventThumbnailReady, eventData))

	return nil
}

// NopPublisher discards all events. Used by worker binaries that run
// without a WebSocket hub.
type NopPublisher struct{}

func (NopPublisher) PublishUploadCompleted(userID, uploadID, objectKey, eventID string) error {
	return nil
}

func (NopPublisher) PublishThumbnailReady(userID, uploadID, thumbnailKey string) error {
	return nil
}
