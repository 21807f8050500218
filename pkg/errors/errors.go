// Package errors defines the sentinel errors shared by the indexing and search
// paths and maps them onto HTTP status codes for the request handlers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrShardLoad        = errors.New("shard load failed")
	ErrIndexDecode      = errors.New("index decode failed")
	ErrNoShards         = errors.New("no shards for tenant")
	ErrInvalidQuery     = errors.New("invalid query")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

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

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode picks the response status for err. An explicit AppError wins;
// otherwise the wrapped sentinel decides.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNoShards):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrShardLoad), errors.Is(err, ErrIndexDecode):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns a short label for the error class, used in logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoShards):
		return "no_shards"
	case errors.Is(err, ErrIndexDecode):
		return "index_decode"
	case errors.Is(err, ErrShardLoad):
		return "shard_load"
	case errors.Is(err, ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "internal"
	}
}
