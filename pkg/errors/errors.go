package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers
// and classified by the sync core's failure taxonomy.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Failure taxonomy. Transport and storage errors degrade locally and are
// never user-facing; fetch errors surface as recoverable flags; adapter
// errors are swallowed at the adapter boundary.
var (
	ErrTransportClosed = &AppError{
		Code:       "TRANSPORT_CLOSED",
		Message:    "Realtime channel is closed",
		StatusCode: http.StatusServiceUnavailable,
	}

	ErrTransportConfig = &AppError{
		Code:       "TRANSPORT_CONFIG",
		Message:    "Realtime endpoint configuration is invalid",
		StatusCode: http.StatusInternalServerError,
	}

	ErrProbeTimeout = &AppError{
		Code:       "PROBE_TIMEOUT",
		Message:    "Connection probe timed out",
		StatusCode: http.StatusGatewayTimeout,
	}

	ErrStorageUnavailable = &AppError{
		Code:       "STORAGE_UNAVAILABLE",
		Message:    "Durable storage is unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}

	ErrSnapshotInvalid = &AppError{
		Code:       "SNAPSHOT_INVALID",
		Message:    "Persisted snapshot failed validation",
		StatusCode: http.StatusUnprocessableEntity,
	}

	ErrFetchFailed = &AppError{
		Code:       "FETCH_FAILED",
		Message:    "Backend fetch failed",
		StatusCode: http.StatusBadGateway,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for
// logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to
// ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}
