package core

import (
	"errors"
	"fmt"
	"time"
)

// API error type strings sent on the wire in the "type" field.
const (
	TypeInvalidParameters  = "invalid_parameters"
	TypeInvalidImageFormat = "invalid_image_format"
	TypeImageTooLarge      = "image_too_large"
	TypeRateLimitExceeded  = "rate_limit_exceeded"
	TypeModelUnavailable   = "model_unavailable"
	TypeGenerationError    = "generation_error"
	TypeInternalError      = "internal_error"
)

// APIError is the error taxonomy for client-visible failures.
// Status suggests the HTTP status code; Message is safe to send to the
// client; the wrapped cause (if any) is for logs only and is never
// serialized into a response.
type APIError struct {
	Status     int           // Suggested HTTP status code
	Type       string        // Wire error type (see Type* constants)
	Message    string        // Client-safe description
	RetryAfter time.Duration // Non-zero only for rate-limit rejections
	cause      error
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *APIError) Unwrap() error {
	return e.cause
}

// ErrInvalidParameters reports a client-fixable parameter problem (422).
func ErrInvalidParameters(format string, args ...interface{}) *APIError {
	return &APIError{Status: 422, Type: TypeInvalidParameters, Message: fmt.Sprintf(format, args...)}
}

// ErrInvalidImageFormat reports an unparseable or disallowed input image (400).
func ErrInvalidImageFormat(format string, args ...interface{}) *APIError {
	return &APIError{Status: 400, Type: TypeInvalidImageFormat, Message: fmt.Sprintf(format, args...)}
}

// ErrImageTooLarge reports an input image exceeding the byte ceiling (413).
func ErrImageTooLarge(size, max int64) *APIError {
	return &APIError{
		Status:  413,
		Type:    TypeImageTooLarge,
		Message: fmt.Sprintf("image size %d exceeds maximum %d bytes", size, max),
	}
}

// ErrRequestTooLarge reports a request body exceeding the configured ceiling (413).
func ErrRequestTooLarge(size, max int64) *APIError {
	return &APIError{
		Status:  413,
		Type:    TypeImageTooLarge,
		Message: fmt.Sprintf("request size %d exceeds maximum %d bytes", size, max),
	}
}

// ErrRateLimitExceeded reports an admission-control rejection (429).
// retryAfter is advisory and surfaces in the Retry-After header.
func ErrRateLimitExceeded(limit int, window, retryAfter time.Duration) *APIError {
	return &APIError{
		Status:     429,
		Type:       TypeRateLimitExceeded,
		Message:    fmt.Sprintf("rate limit exceeded: maximum %d requests per %d seconds", limit, int(window.Seconds())),
		RetryAfter: retryAfter,
	}
}

// ErrModelUnavailable reports that the model is still loading or failed to
// load (503). Transient from the client's point of view.
func ErrModelUnavailable(cause error) *APIError {
	return &APIError{
		Status:  503,
		Type:    TypeModelUnavailable,
		Message: "model is not available; try again later",
		cause:   cause,
	}
}

// ErrGenerationFailed reports a failure inside a model call (500).
// The cause is retained for diagnostics but never sent to the client.
func ErrGenerationFailed(cause error) *APIError {
	return &APIError{
		Status:  500,
		Type:    TypeGenerationError,
		Message: "image generation failed",
		cause:   cause,
	}
}

// ErrInternal wraps an unanticipated failure (500).
func ErrInternal(cause error) *APIError {
	return &APIError{
		Status:  500,
		Type:    TypeInternalError,
		Message: "internal server error",
		cause:   cause,
	}
}

// AsAPIError extracts an *APIError from err's chain, or wraps err as an
// internal error so every failure path produces a well-formed response.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternal(err)
}

// ConfigError represents a configuration problem with an actionable hint.
type ConfigError struct {
	Key     string // Environment variable (or variable group) at fault
	Message string // What is wrong
	Action  string // How to fix it
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s: %s. %s", e.Key, e.Message, e.Action)
	}
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

// ErrInvalidConfig returns a ConfigError for a malformed setting.
func ErrInvalidConfig(key, message string) *ConfigError {
	return &ConfigError{
		Key:     key,
		Message: message,
		Action:  fmt.Sprintf("Fix %s in your .env file", key),
	}
}

// ErrMissingConfig returns a ConfigError for a required setting that is unset.
func ErrMissingConfig(key string) *ConfigError {
	return &ConfigError{
		Key:     key,
		Message: "required configuration is missing",
		Action:  fmt.Sprintf("Set %s in your .env file", key),
	}
}
