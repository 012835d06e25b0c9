package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound matches a TransportError carrying a 404 via errors.Is.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized matches a TransportError carrying a 401 via errors.Is.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError reports input rejected before any request is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// TransportError reports a failed request: a network failure (Status 0) or
// a non-2xx response.
type TransportError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request failed: %s", e.Message)
	}
	return fmt.Sprintf("request failed. Status: %d, Message: %s", e.Status, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}
