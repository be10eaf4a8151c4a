package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/abhisek/examtaker/internal/auth"
)

var (
	// ErrUnauthorized matches any 401. It is auth.ErrCredentialInvalid, so
	// callers can test for either.
	ErrUnauthorized = auth.ErrCredentialInvalid

	// ErrNotFound matches any 404.
	ErrNotFound = errors.New("not found")
)

// StatusError is a non-2xx response. Detail holds the server's detail
// message verbatim.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	return e.Detail
}

// Is maps status codes onto the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// Unavailable reports whether the response indicates the endpoint itself
// is down rather than rejecting the request.
func (e *StatusError) Unavailable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusNotFound
}

// ErrInvalidPayload means a 2xx response body could not be decoded or does
// not conform to the expected shape.
type ErrInvalidPayload struct {
	Path    string
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidPayload) Error() string {
	return fmt.Sprintf("invalid response from %s: %v", e.Path, e.Err)
}

func (e *ErrInvalidPayload) Unwrap() error { return e.Err }

// detailFrom extracts the message of an error body. String details are
// returned as-is; structured ones (validation errors) as their JSON.
func detailFrom(status int, body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Detail) > 0 && string(env.Detail) != "null" {
		var s string
		if err := json.Unmarshal(env.Detail, &s); err == nil {
			return s
		}
		return string(env.Detail)
	}
	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") {
		return text
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}
