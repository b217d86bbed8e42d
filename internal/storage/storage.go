package storage

import (
	"context"
	"time"

	"github.com/mosaicmedia/media-service/internal/types"
)

type Storage interface {
	CreateUpload(ctx context.Context, rec *types.UploadRecord) error
	GetUpload(ctx context.Context, id string) (types.UploadRecord, error)
	GetUploadByObjectKey(ctx context.Context, objectKey string) (types.UploadRecord, error)
	SetThumbnailKey(ctx context.Context, uploadID, thumbnailKey string) error
	DeleteUpload(ctx context.Context, id string) error
	CountUploadsByUserSince(ctx context.Context, userID string, since time.Time) (int, error)
	ListMissingThumbnails(ctx context.Context, limit int) ([]types.UploadRecord, error)
}

// EventDirectory answers whether an event currently accepts uploads. Event
// CRUD itself lives outside this service.
type EventDirectory interface {
	AcceptsUploads(ctx context.Context, eventID string) (bool, error)
}
