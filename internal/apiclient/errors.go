package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-2xx answer from the API.
type Error struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Rejected reports a client error that retrying will not fix. 401, 408,
// 409 and 429 are excluded: a new token or a later attempt may succeed.
// The server answers 409 when a document changed under a concurrent write.
func (e *Error) Rejected() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func (e *Error) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *Error) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}

// StatusCode returns the HTTP status carried by err, or 0 for transport
// failures.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
