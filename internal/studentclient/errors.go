package studentclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("student not found")
	ErrInvalidInput = errors.New("invalid input")
)

// APIError is returned for every non-2xx response from the backend.
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string
	// Fields holds per-field messages from a 422 response body.
	Fields map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// FieldErrors returns the validation payload of a 422 error, nil otherwise.
func FieldErrors(err error) map[string]string {
	apiErr, ok := AsAPIError(err)
	if !ok || apiErr.Status != http.StatusUnprocessableEntity {
		return nil
	}
	return apiErr.Fields
}

// IsRetryable reports whether repeating the call could succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrInvalidInput) {
		return false
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Status >= http.StatusInternalServerError || apiErr.Status == http.StatusTooManyRequests
	}
	return true
}
