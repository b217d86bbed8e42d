package types

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryDocument Category = "document"
)

// CategoryForContentType maps a MIME type to its content category.
// Anything that is neither image, video nor audio is treated as a document.
func CategoryForContentType(contentType string) Category {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return CategoryImage
	case strings.HasPrefix(contentType, "video/"):
		return CategoryVideo
	case strings.HasPrefix(contentType, "audio/"):
		return CategoryAudio
	default:
		return CategoryDocument
	}
}

// UploadRecord is the persisted record of a completed upload. One is created
// only after the object's existence in the store has been confirmed, never
// at presign time.
type UploadRecord struct {
	ID           string    `json:"id" db:"id"`
	EventID      string    `json:"event_id" db:"event_id"`
	UserID       string    `json:"user_id" db:"user_id"`
	FileName     string    `json:"file_name" db:"file_name"`
	ObjectKey    string    `json:"object_key" db:"object_key"`
	ThumbnailKey string    `json:"thumbnail_key,omitempty" db:"thumbnail_key"`
	ContentType  string    `json:"content_type" db:"content_type"`
	Category     Category  `json:"category" db:"category"`
	Size         int64     `json:"size" db:"size"`
	Description  string    `json:"description,omitempty" db:"description"`
	Anonymous    bool      `json:"anonymous" db:"anonymous"`
	Approved     bool      `json:"approved" db:"approved"`
	Featured     bool      `json:"featured" db:"featured"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
