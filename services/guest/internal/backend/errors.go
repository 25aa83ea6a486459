package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// APIError describes a failed call to the restaurant backend. Status is zero
// when the server could not be reached at all.
type APIError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("backend unreachable: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("backend error %d: %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("backend error %d", e.Status)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsUncertain reports whether a failed write may still have been applied by
// the backend: the request left but no answer came back in time.
func IsUncertain(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 0 && apiErr.Err != nil
}

// UserMessage turns an error from this package into text a guest can read.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "An unexpected error occurred"
	}

	switch apiErr.Status {
	case 0:
		return "Server not reachable"
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusNotFound:
		return "Item not found"
	}

	if apiErr.Message != "" {
		return apiErr.Message
	}
	return "An unexpected error occurred"
}
