package uploads

// PresignRequest asks for a presigned PUT URL for a direct upload.
type PresignRequest struct {
	EventID     string `json:"event_id" validate:"required"`
	FileName    string `json:"file_name" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	Size        int64  `json:"size" validate:"required,min=1"`
	ContentHash string `json:"content_hash,omitempty"`
}

// PresignResponse carries everything the client needs to PUT the bytes
// straight to the object store. No upload record exists yet at this point.
type PresignResponse struct {
	ObjectKey   string `json:"object_key"`
	UploadURL   string `json:"upload_url"`
	Method      string `json:"method"`
	ContentType string `json:"content_type"`
	ExpiresAt   int64  `json:"expires_at"`
	ContentHash string `json:"content_hash,omitempty"`
}

// CompleteRequest is the client's notice that a direct upload finished.
type CompleteRequest struct {
	EventID     string `json:"event_id" validate:"required"`
	ObjectKey   string `json:"object_key" validate:"required"`
	FileName    string `json:"file_name" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	Size        int64  `json:"size" validate:"required,min=1"`
	Description string `json:"description,omitempty"`
	Anonymous   bool   `json:"anonymous,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`
}

// CompleteResponse acknowledges a verified upload.
type CompleteResponse struct {
	UploadID  string `json:"upload_id"`
	ObjectKey string `json:"object_key"`
	EventID   string `json:"event_id"`
	Size      int64  `json:"size"`
}
