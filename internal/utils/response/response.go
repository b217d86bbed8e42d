package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mosaicmedia/media-service/internal/policy"
	"github.com/mosaicmedia/media-service/internal/services/transcode"
	"github.com/mosaicmedia/media-service/internal/services/uploads"
)

type Response struct {
	Status  string      `json:"status"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errorMessages string
	for _, err := range errs {
		errorMessages += err.Field() + ": " + err.Tag() + "; "
	}

	return Response{
		Status: StatusError,
		Error:  errorMessages,
	}
}

func RequestOK(message string, data interface{}) Response {
	return Response{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	}
}

// Rejection is the structured payload attached to a policy, validation or
// processing failure so clients can render an exact user-facing message.
type Rejection struct {
	Kind         string `json:"kind"`
	Ceiling      int64  `json:"ceiling,omitempty"`
	Requested    int64  `json:"requested,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	CurrentCount int    `json:"current_count,omitempty"`
	Role         string `json:"role,omitempty"`
	ObjectKey    string `json:"object_key,omitempty"`
	Declared     int64  `json:"declared,omitempty"`
	Stored       int64  `json:"stored,omitempty"`
	MaxSeconds   int    `json:"max_seconds,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

func rejection(err error, r Rejection) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
		Data:   r,
	}
}

// FromError maps a pipeline error to an HTTP status and a structured
// rejection body. Unknown errors come back as a plain 500.
func FromError(err error) (int, Response) {
	var tooLarge *policy.PayloadTooLargeError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, rejection(err, Rejection{
			Kind:      "payload_too_large",
			Ceiling:   tooLarge.Ceiling,
			Requested: tooLarge.Requested,
		})
	}

	var quota *policy.QuotaExceededError
	if errors.As(err, &quota) {
		return http.StatusTooManyRequests, rejection(err, Rejection{
			Kind:         "quota_exceeded",
			Limit:        quota.Limit,
			CurrentCount: quota.CurrentCount,
			Role:         quota.Role,
		})
	}

	if errors.Is(err, policy.ErrUnsupportedContentType) {
		return http.StatusUnsupportedMediaType, rejection(err, Rejection{
			Kind: "unsupported_content_type",
		})
	}

	if errors.Is(err, uploads.ErrEventNotAccepting) {
		return http.StatusForbidden, rejection(err, Rejection{
			Kind: "event_not_accepting",
		})
	}

	var notFound *uploads.ObjectNotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound, rejection(err, Rejection{
			Kind:      "object_not_found",
			ObjectKey: notFound.Key,
		})
	}

	var mismatch *uploads.SizeMismatchError
	if errors.As(err, &mismatch) {
		return http.StatusUnprocessableEntity, rejection(err, Rejection{
			Kind:     "size_mismatch",
			Declared: mismatch.Declared,
			Stored:   mismatch.Stored,
		})
	}

	var tooLong *transcode.VideoTooLongError
	if errors.As(err, &tooLong) {
		return http.StatusUnprocessableEntity, rejection(err, Rejection{
			Kind:       "video_too_long",
			MaxSeconds: tooLong.MaxSeconds,
		})
	}

	var processing *transcode.ProcessingError
	if errors.As(err, &processing) {
		return http.StatusInternalServerError, rejection(err, Rejection{
			Kind:   "processing_error",
			Detail: processing.Detail,
		})
	}

	return http.StatusInternalServerError, GeneralError(err)
}
