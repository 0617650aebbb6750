package cxone

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tphakala/go-cxone/internal/token"
)

// Sentinel errors for common failure modes.
var (
	// ErrNoAPIKey is returned by NewClient when no API key was configured.
	ErrNoAPIKey = errors.New("cxone: no API key configured")

	// ErrInvalidCredential indicates the API key is malformed or the
	// identity-provider exchange rejected it. Fatal at client creation.
	ErrInvalidCredential = errors.New("cxone: invalid credential")

	// ErrInvalidToken indicates a bearer token that does not parse as
	// header.payload segments. Aliased from the codec so errors.Is works
	// across packages.
	ErrInvalidToken = token.ErrInvalid
)

// APIError represents a general Checkmarx One API error.
type APIError struct {
	StatusCode int    `json:"status"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cxone: API error %d: %s", e.StatusCode, e.Message)
}

// AuthenticationError indicates authentication failure (401/403).
type AuthenticationError struct {
	APIError
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("cxone: authentication failed: %s", e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *AuthenticationError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// NotFoundError indicates the requested resource was not found (404).
type NotFoundError struct {
	APIError
	ResourceType string
	ResourceID   string
}

func (e *NotFoundError) Error() string {
	if e.ResourceType != "" && e.ResourceID != "" {
		return fmt.Sprintf("cxone: %s not found: %s", e.ResourceType, e.ResourceID)
	}
	return fmt.Sprintf("cxone: resource not found: %s", e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *NotFoundError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// ValidationError indicates invalid request data, either rejected locally
// before a request is issued or by the server (400).
type ValidationError struct {
	APIError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cxone: validation error: %s", e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *ValidationError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// ServerError indicates an internal server error (5xx).
type ServerError struct {
	APIError
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("cxone: server error %d: %s", e.StatusCode, e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *ServerError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// ConfigurationError indicates invalid collaborator input, such as a branch
// mapping with more than one row for the same project. It is detected before
// any network activity for the affected resource.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "cxone: configuration error: " + e.Message
}

// newValidationError builds a local ValidationError with no HTTP status.
func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{APIError: APIError{Message: fmt.Sprintf(format, args...)}}
}

// parseError converts an HTTP error response into the appropriate error type.
func parseError(statusCode int, body []byte) error {
	base := APIError{StatusCode: statusCode}

	// Try to parse structured JSON error response
	if err := json.Unmarshal(body, &base); err != nil {
		// Fallback to raw body if not valid JSON
		base.Message = string(body)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &AuthenticationError{APIError: base}
	case statusCode == http.StatusNotFound:
		return &NotFoundError{APIError: base}
	case statusCode == http.StatusBadRequest:
		return &ValidationError{APIError: base}
	case statusCode >= http.StatusInternalServerError:
		return &ServerError{APIError: base}
	default:
		return &base
	}
}
