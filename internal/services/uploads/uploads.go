// Package uploads implements the direct upload pipeline: issuing presigned
// PUT URLs and verifying client-reported completions. It also carries the
// legacy proxied ingestion path where bytes pass through the service.
package uploads

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mosaicmedia/media-service/internal/blobstore"
	"github.com/mosaicmedia/media-service/internal/events"
	"github.com/mosaicmedia/media-service/internal/policy"
	"github.com/mosaicmedia/media-service/internal/storage"
	"github.com/mosaicmedia/media-service/internal/types"
	uploadtypes "github.com/mosaicmedia/media-service/internal/types/uploads"
)

// ThumbnailScheduler submits a best-effort thumbnail job. Submit must not
// block; it reports whether the job was accepted.
type ThumbnailScheduler interface {
	Submit(uploadID, objectKey, userID string) bool
}

// VideoTranscoder re-encodes a proxied video stream, returning the path of
// the output temp file. The caller owns its deletion.
type VideoTranscoder interface {
	Transcode(ctx context.Context, in io.Reader) (string, error)
}

type Service struct {
	store      blobstore.ObjectStore
	storage    storage.Storage
	eventDir   storage.EventDirectory
	policy     *policy.Engine
	publisher  events.Publisher
	thumbs     ThumbnailScheduler
	transcoder VideoTranscoder
	expiry     time.Duration
}

// NewService wires the upload pipeline. thumbs and transcoder may be nil in
// binaries that never complete image uploads or ingest proxied video.
func NewService(
	store blobstore.ObjectStore,
	st storage.Storage,
	eventDir storage.EventDirectory,
	pol *policy.Engine,
	publisher events.Publisher,
	thumbs ThumbnailScheduler,
	transcoder VideoTranscoder,
	presignExpiry time.Duration,
) *Service {
	return &Service{
		store:      store,
		storage:    st,
		eventDir:   eventDir,
		policy:     pol,
		publisher:  publisher,
		thumbs:     thumbs,
		transcoder: transcoder,
		expiry:     presignExpiry,
	}
}

// keyPrefixForContentType derives the folder prefix for a fresh object key.
// Only images and videos are eligible for direct upload.
func keyPrefixForContentType(contentType string) (string, error) {
	switch types.CategoryForContentType(contentType) {
	case types.CategoryImage:
		return "images/", nil
	case types.CategoryVideo:
		return "videos/", nil
	default:
		return "", policy.ErrUnsupportedContentType
	}
}

// extensionForContentType resolves a file extension for the object key.
func extensionForContentType(contentType string) string {
	extensions, err := mime.ExtensionsByType(contentType)
	if err == nil && len(extensions) > 0 {
		return extensions[0]
	}
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "video/mpeg":
		return ".mpeg"
	default:
		return ""
	}
}

// newObjectKey mints a globally unique key under the category prefix.
func newObjectKey(contentType string) (string, error) {
	prefix, err := keyPrefixForContentType(contentType)
	if err != nil {
		return "", err
	}
	return prefix + uuid.New().String() + extensionForContentType(contentType), nil
}

// IssuePresignedUpload validates the request and mints a signed PUT URL.
// Preconditions run in order and short-circuit; the object store is not
// touched until all of them pass. No upload record is created here.
func (s *Service) IssuePresignedUpload(ctx context.Context, req uploadtypes.PresignRequest, userID, role string) (*uploadtypes.PresignResponse, error) {
	accepting, err := s.eventDir.AcceptsUploads(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to check event %q: %w", req.EventID, err)
	}
	if !accepting {
		return nil, ErrEventNotAccepting
	}

	if err := s.policy.EnforceDailyLimit(ctx, userID, role); err != nil {
		return nil, err
	}

	if err := s.policy.ValidateContentType(req.ContentType); err != nil {
		return nil, err
	}

	if ceiling := s.policy.MaxSizeForRole(role); req.Size > ceiling {
		return nil, &policy.PayloadTooLargeError{Ceiling: ceiling, Requested: req.Size}
	}

	objectKey, err := newObjectKey(req.ContentType)
	if err != nil {
		return nil, err
	}

	signedURL, err := s.store.PresignPut(ctx, objectKey, req.ContentType, s.expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload for %q: %w", objectKey, err)
	}

	return &uploadtypes.PresignResponse{
		ObjectKey:   objectKey,
		UploadURL:   signedURL.String(),
		Method:      http.MethodPut,
		ContentType: req.ContentType,
		ExpiresAt:   time.Now().Add(s.expiry).Unix(),
		ContentHash: req.ContentHash,
	}, nil
}

// CompleteUpload verifies a client-reported direct upload and persists the
// record. The thumbnail job is fire-and-forget: once the record exists,
// nothing about thumbnailing can fail the completion.
func (s *Service) CompleteUpload(ctx context.Context, req uploadtypes.CompleteRequest, userID string) (*uploadtypes.CompleteResponse, error) {
	info, found, err := s.store.Head(ctx, req.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to stat object %q: %w", req.ObjectKey, err)
	}
	if !found {
		return nil, &ObjectNotFoundError{Key: req.ObjectKey}
	}

	if req.Size > 0 && info.Size != req.Size {
		return nil, &SizeMismatchError{Declared: req.Size, Stored: info.Size}
	}
	s.checkDeclaredHash(req.ContentHash, info)

	rec := &types.UploadRecord{
		ID:          uuid.New().String(),
		EventID:     req.EventID,
		UserID:      userID,
		FileName:    req.FileName,
		ObjectKey:   req.ObjectKey,
		ContentType: req.ContentType,
		Category:    types.CategoryForContentType(req.ContentType),
		Size:        info.Size,
		Description: req.Description,
		Anonymous:   req.Anonymous,
		CreatedAt:   time.Now(),
	}

	if err := s.storage.CreateUpload(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist upload record: %w", err)
	}

	s.afterPersist(rec)

	return &uploadtypes.CompleteResponse{
		UploadID:  rec.ID,
		ObjectKey: rec.ObjectKey,
		EventID:   rec.EventID,
		Size:      rec.Size,
	}, nil
}

// checkDeclaredHash compares the declared hash against the stored ETag.
// Multipart ETags are not content hashes, so the check is advisory: a
// mismatch is logged, never enforced.
func (s *Service) checkDeclaredHash(declared string, info blobstore.ObjectInfo) {
	if declared == "" || info.ETag == "" {
		return
	}
	etag := strings.Trim(info.ETag, `"`)
	if strings.Contains(etag, "-") {
		return
	}
	if !strings.EqualFold(etag, declared) {
		slog.Warn("Declared content hash does not match stored ETag",
			slog.String("object_key", info.Key),
			slog.String("declared", declared),
			slog.String("etag", etag))
	}
}

// afterPersist runs the best-effort tail of a completion.
func (s *Service) afterPersist(rec *types.UploadRecord) {
	if rec.Category == types.CategoryImage && s.thumbs != nil {
		if !s.thumbs.Submit(rec.ID, rec.ObjectKey, rec.UserID) {
			slog.Warn("Thumbnail queue full, job dropped",
				slog.String("upload_id", rec.ID),
				slog.String("object_key", rec.ObjectKey))
		}
	}

	if err := s.publisher.PublishUploadCompleted(rec.UserID, rec.ID, rec.ObjectKey, rec.EventID); err != nil {
		slog.Error("Failed to publish upload completed event",
			slog.String("upload_id", rec.ID),
			slog.String("error", err.Error()))
	}
}

// ProxiedUploadRequest carries a legacy in-process upload, bytes included.
type ProxiedUploadRequest struct {
	EventID     string
	FileName    string
	ContentType string
	Size        int64
	Description string
	Anonymous   bool
	Body        io.Reader
}

// IngestProxied handles the legacy path where bytes travel through the
// service. Videos are transcoded synchronously before the object reaches
// the store; the call blocks for the full subprocess lifetime.
func (s *Service) IngestProxied(ctx context.Context, req ProxiedUploadRequest, userID, role string) (*uploadtypes.CompleteResponse, error) {
	if req.Size <= 0 {
		return nil, fmt.Errorf("missing or empty file")
	}

	accepting, err := s.eventDir.AcceptsUploads(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to check event %q: %w", req.EventID, err)
	}
	if !accepting {
		return nil, ErrEventNotAccepting
	}

	if err := s.policy.EnforceDailyLimit(ctx, userID, role); err != nil {
		return nil, err
	}

	if err := s.policy.ValidateContentType(req.ContentType); err != nil {
		return nil, err
	}

	if ceiling := s.policy.MaxSizeForRole(role); req.Size > ceiling {
		return nil, &policy.PayloadTooLargeError{Ceiling: ceiling, Requested: req.Size}
	}

	objectKey, err := newObjectKey(req.ContentType)
	if err != nil {
		return nil, err
	}

	size := req.Size
	contentType := req.ContentType

	if types.CategoryForContentType(req.ContentType) == types.CategoryVideo {
		if s.transcoder == nil {
			return nil, fmt.Errorf("video ingestion is not enabled")
		}

		outPath, err := s.transcoder.Transcode(ctx, req.Body)
		if err != nil {
			return nil, err
		}
		defer os.Remove(outPath)

		out, err := os.Open(outPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open transcoded file: %w", err)
		}
		defer out.Close()

		stat, err := out.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat transcoded file: %w", err)
		}

		size = stat.Size()
		contentType = "video/mp4"
		objectKey = strings.TrimSuffix(objectKey, extensionForContentType(req.ContentType)) + ".mp4"

		if err := s.store.Put(ctx, objectKey, out, size, contentType); err != nil {
			return nil, err
		}
	} else {
		if err := s.store.Put(ctx, objectKey, req.Body, size, contentType); err != nil {
			return nil, err
		}
	}

	rec := &types.UploadRecord{
		ID:          uuid.New().String(),
		EventID:     req.EventID,
		UserID:      userID,
		FileName:    req.FileName,
		ObjectKey:   objectKey,
		ContentType: contentType,
		Category:    types.CategoryForContentType(contentType),
		Size:        size,
		Description: req.Description,
		Anonymous:   req.Anonymous,
		CreatedAt:   time.Now(),
	}

	if err := s.storage.CreateUpload(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist upload record: %w", err)
	}

	s.afterPersist(rec)

	return &uploadtypes.CompleteResponse{
		UploadID:  rec.ID,
		ObjectKey: rec.ObjectKey,
		EventID:   rec.EventID,
		Size:      rec.Size,
	}, nil
}
