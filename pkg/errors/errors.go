// Package errors defines the sentinel errors shared across the engine and an
// AppError wrapper that carries an HTTP status code to the service boundary.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrSourceMissing      = errors.New("original source file not found")
	ErrEmptyQuery         = errors.New("empty query")
	ErrInvalidInput       = errors.New("invalid input")
	ErrStoreUnavailable   = errors.New("document store unavailable")
	ErrChannelUnavailable = errors.New("search channel unavailable")
	ErrTimeout            = errors.New("operation timed out")
	ErrInternal           = errors.New("internal error")
)

// AppError wraps a sentinel with a human-readable message and the HTTP
// status the boundary should return.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError around a sentinel.
func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Newf is New with a format string.
func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error to the HTTP status the boundary should serve.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	switch {
	case errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrSourceMissing):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyQuery), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrChannelUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
