package server

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/NVIDIA/hwtelemetry/pkg/errors"
	"github.com/NVIDIA/hwtelemetry/pkg/serializer"
)

// Error codes returned by the server itself. Handler errors carry the
// code of their StructuredError.
const (
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId"`
	Timestamp time.Time      `json:"timestamp"`
	Retryable bool           `json:"retryable"`
}

// WriteError writes an ErrorResponse as JSON.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int,
	code, message string, retryable bool, details map[string]any) {

	requestID, _ := r.Context().Value(contextKeyRequestID).(string)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	serializer.RespondJSON(w, statusCode, ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	})
}

// WriteStructuredError maps err to a status code and writes it.
func WriteStructuredError(w http.ResponseWriter, r *http.Request, err error) {
	code, ok := errors.CodeOf(err)
	if !ok {
		code = errors.ErrCodeInternal
	}

	status := http.StatusInternalServerError
	retryable := false
	switch code {
	case errors.ErrCodeInvalidRequest:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeUnavailable, errors.ErrCodeTimeout:
		status = http.StatusServiceUnavailable
		retryable = true
	}

	var details map[string]any
	var se *errors.StructuredError
	if stderrors.As(err, &se) {
		details = se.Context
	}
	WriteError(w, r, status, string(code), err.Error(), retryable, details)
}
