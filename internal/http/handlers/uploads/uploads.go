package uploads

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mosaicmedia/media-service/internal/http/middleware"
	uploadService "github.com/mosaicmedia/media-service/internal/services/uploads"
	uploadtypes "github.com/mosaicmedia/media-service/internal/types/uploads"
	"github.com/mosaicmedia/media-service/internal/utils/response"
)

// Multipart form memory ceiling for the legacy proxied path; anything
// larger spills to disk before the service reads it.
const maxMultipartMemory = 32 << 20

type UploadHandlers struct {
	uploads *uploadService.Service
}

// NewUploadHandlers creates a new upload handlers instance
func NewUploadHandlers(uploads *uploadService.Service) *UploadHandlers {
	return &UploadHandlers{
		uploads: uploads,
	}
}

// Presign issues a presigned PUT URL for a direct upload
// @Summary Request a presigned upload URL
// @Description Validate the upload against policy and mint a time-limited signed PUT URL
// @Tags uploads
// @Accept json
// @Produce json
// @Param request body uploadtypes.PresignRequest true "Presign request"
// @Success 200 {object} uploadtypes.PresignResponse "Presigned URL issued"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 413 {object} response.Response "Payload too large"
// @Failure 415 {object} response.Response "Unsupported content type"
// @Failure 429 {object} response.Response "Daily quota exceeded"
// @Security BearerAuth
// @Router /uploads/presign [post]
func (h *UploadHandlers) Presign() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, ok := identity(r)
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		var req uploadtypes.PresignRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			return
		}

		resp, err := h.uploads.IssuePresignedUpload(r.Context(), req, userID, role)
		if err != nil {
			status, body := response.FromError(err)
			response.WriteJSON(w, status, body)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Upload URL issued successfully", resp))
	}
}

// Complete verifies a finished direct upload and persists its record
// @Summary Confirm a direct upload
// @Description Verify the object exists in the store, persist the upload record and schedule thumbnailing
// @Tags uploads
// @Accept json
// @Produce json
// @Param request body uploadtypes.CompleteRequest true "Completion notice"
// @Success 201 {object} uploadtypes.CompleteResponse "Upload recorded"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 404 {object} response.Response "Object not found in store"
// @Failure 422 {object} response.Response "Declared size mismatch"
// @Security BearerAuth
// @Router /uploads/complete [post]
func (h *UploadHandlers) Complete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, ok := identity(r)
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		var req uploadtypes.CompleteRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			return
		}

		resp, err := h.uploads.CompleteUpload(r.Context(), req, userID)
		if err != nil {
			status, body := response.FromError(err)
			response.WriteJSON(w, status, body)
			return
		}

		slog.Info("Upload completed", slog.String("upload_id", resp.UploadID), slog.String("object_key", resp.ObjectKey))

		response.WriteJSON(w, http.StatusCreated, response.RequestOK("Upload recorded successfully", resp))
	}
}

// Ingest accepts a multipart upload through the service (legacy path)
// @Summary Upload a file through the service
// @Description Legacy proxied path; videos are transcoded synchronously before storage
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param event_id formData string true "Event ID"
// @Param file formData file true "File to upload"
// @Success 201 {object} uploadtypes.CompleteResponse "Upload recorded"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 422 {object} response.Response "Video exceeds duration limit"
// @Failure 500 {object} response.Response "Processing error"
// @Security BearerAuth
// @Router /uploads/direct [post]
func (h *UploadHandlers) Ingest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, ok := identity(r)
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid multipart form")))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("file is required")))
			return
		}
		defer file.Close()

		eventID := r.FormValue("event_id")
		if eventID == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("event_id is required")))
			return
		}

		req := uploadService.ProxiedUploadRequest{
			EventID:     eventID,
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Description: r.FormValue("description"),
			Anonymous:   r.FormValue("anonymous") == "true",
			Body:        file,
		}

		resp, err := h.uploads.IngestProxied(r.Context(), req, userID, role)
		if err != nil {
			status, body := response.FromError(err)
			response.WriteJSON(w, status, body)
			return
		}

		response.WriteJSON(w, http.StatusCreated, response.RequestOK("Upload recorded successfully", resp))
	}
}

func identity(r *http.Request) (userID, role string, ok bool) {
	userID, ok = middleware.GetUserIDFromContext(r.Context())
	if !ok {
		return "", "", false
	}
	role, _ = middleware.GetRoleFromContext(r.Context())
	return userID, role, true
}

// decodeAndValidate decodes the JSON body into dst and runs struct
// validation, writing the error response itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		err = errors.New("request body cannot be empty")
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return err
	} else if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return err
	}

	validate := validator.New()
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
			return err
		}
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return err
	}

	return nil
}
