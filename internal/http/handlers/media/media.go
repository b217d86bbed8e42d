package media

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mosaicmedia/media-service/internal/blobstore"
	"github.com/mosaicmedia/media-service/internal/cache"
	"github.com/mosaicmedia/media-service/internal/http/middleware"
	"github.com/mosaicmedia/media-service/internal/storage"
	"github.com/mosaicmedia/media-service/internal/utils/response"
)

const downloadURLExpiry = time.Hour

type MediaHandlers struct {
	store    blobstore.ObjectStore
	storage  storage.Storage
	urlCache *cache.URLCache
}

type MediaInfoResponse struct {
	UploadID     string    `json:"upload_id"`
	ObjectKey    string    `json:"object_key"`
	ThumbnailKey string    `json:"thumbnail_key,omitempty"`
	FileName     string    `json:"file_name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	Category     string    `json:"category"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// NewMediaHandlers creates a new media handlers instance
func NewMediaHandlers(store blobstore.ObjectStore, st storage.Storage, urlCache *cache.URLCache) *MediaHandlers {
	return &MediaHandlers{
		store:    store,
		storage:  st,
		urlCache: urlCache,
	}
}

// Info returns the upload record behind an object key
// @Summary Get media file information
// @Tags media
// @Produce json
// @Param key path string true "Object key"
// @Success 200 {object} MediaInfoResponse "Media information retrieved successfully"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 404 {object} response.Response "Media not found"
// @Security BearerAuth
// @Router /media/info/{key} [get]
func (h *MediaHandlers) Info() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		objectKey := r.PathValue("key")
		if objectKey == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("object key is required")))
			return
		}

		rec, err := h.storage.GetUploadByObjectKey(r.Context(), objectKey)
		if err != nil {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("media not found")))
			return
		}

		resp := MediaInfoResponse{
			UploadID:     rec.ID,
			ObjectKey:    rec.ObjectKey,
			ThumbnailKey: rec.ThumbnailKey,
			FileName:     rec.FileName,
			Size:         rec.Size,
			ContentType:  rec.ContentType,
			Category:     string(rec.Category),
			UploadedAt:   rec.CreatedAt,
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Media information retrieved successfully", resp))
	}
}

// DownloadURL issues (or serves a cached) presigned GET URL
// @Summary Generate presigned download URL
// @Tags media
// @Produce json
// @Param key path string true "Object key"
// @Success 200 {object} map[string]interface{} "Download URL generated successfully"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 404 {object} response.Response "Media not found"
// @Security BearerAuth
// @Router /media/download-url/{key} [get]
func (h *MediaHandlers) DownloadURL() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		objectKey := r.PathValue("key")
		if objectKey == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("object key is required")))
			return
		}

		if cached, ok := h.urlCache.GetDownloadURL(r.Context(), objectKey); ok {
			response.WriteJSON(w, http.StatusOK, response.RequestOK("Download URL generated successfully", map[string]interface{}{
				"object_key":   objectKey,
				"download_url": cached,
			}))
			return
		}

		signedURL, err := h.store.PresignGet(r.Context(), objectKey, downloadURLExpiry)
		if err != nil {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("failed to generate download URL")))
			return
		}

		h.urlCache.PutDownloadURL(r.Context(), objectKey, signedURL.String())

		resp := map[string]interface{}{
			"object_key":   objectKey,
			"download_url": signedURL.String(),
			"expires_at":   time.Now().Add(downloadURLExpiry).Unix(),
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Download URL generated successfully", resp))
	}
}

// Delete removes a media file and its record
// @Summary Delete media file
// @Tags media
// @Param key path string true "Object key"
// @Success 200 {object} response.Response "Media file deleted successfully"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 403 {object} response.Response "Not the owner"
// @Failure 404 {object} response.Response "Media not found"
// @Security BearerAuth
// @Router /media/{key} [delete]
func (h *MediaHandlers) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		objectKey := r.PathValue("key")
		if objectKey == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("object key is required")))
			return
		}

		rec, err := h.storage.GetUploadByObjectKey(r.Context(), objectKey)
		if errors.Is(err, sql.ErrNoRows) {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("media not found")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		if rec.UserID != userID {
			response.WriteJSON(w, http.StatusForbidden, response.GeneralError(errors.New("access denied")))
			return
		}

		if err := h.store.Delete(r.Context(), rec.ObjectKey); err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to delete media file")))
			return
		}

		// Thumbnail removal is best-effort; an orphaned thumbnail is harmless.
		if rec.ThumbnailKey != "" {
			if err := h.store.Delete(r.Context(), rec.ThumbnailKey); err != nil {
				slog.Warn("Failed to delete thumbnail", slog.String("thumbnail_key", rec.ThumbnailKey), slog.String("error", err.Error()))
			}
		}

		if err := h.storage.DeleteUpload(r.Context(), rec.ID); err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to delete upload record")))
			return
		}

		h.urlCache.Invalidate(r.Context(), objectKey)

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Media file deleted successfully", nil))
	}
}
