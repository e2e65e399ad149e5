// Package errors defines the error kinds shared by the token lifecycle
// components and the HTTP status each kind maps to.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorType represents the kind of error
type ErrorType string

const (
	// ErrTypeConnection represents backend connection errors (store, redis, broker)
	ErrTypeConnection ErrorType = "connection"
	// ErrTypeValidation represents bad input
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeNotFound represents a missing installation or resource
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeInternal represents unclassified failures
	ErrTypeInternal ErrorType = "internal"
	// ErrTypeTimeout represents a provider call that ran out of time
	ErrTypeTimeout ErrorType = "timeout"
	// ErrTypeRateLimit represents rate limit errors
	ErrTypeRateLimit ErrorType = "rate_limit"
	// ErrTypeProviderRejected is a 4xx answer from the OAuth provider.
	// Not retryable without new user action.
	ErrTypeProviderRejected ErrorType = "provider_rejected"
	// ErrTypeProviderUnavailable is a 5xx, 429 or transport failure. Retryable.
	ErrTypeProviderUnavailable ErrorType = "provider_unavailable"
	// ErrTypeMissingCredentials means the OAuth client id/secret/redirect are not configured
	ErrTypeMissingCredentials ErrorType = "missing_credentials"
	// ErrTypeLocationConversion means the Company to Location token exchange failed
	ErrTypeLocationConversion ErrorType = "location_conversion_failed"
	// ErrTypeConcurrentRefresh means another refresh for the same installation is in flight
	ErrTypeConcurrentRefresh ErrorType = "concurrent_refresh"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		contextParts := make([]string, 0, len(keys))
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithCause attaches the underlying error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// ConnectionError creates a new connection error
func ConnectionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeConnection,
		Message: msg,
		Cause:   cause,
	}
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// InstallationNotFound is the not found error for an installation id
func InstallationNotFound(id string) *AppError {
	return NotFoundError("installation").WithContext("installation_id", id)
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// TimeoutError creates a new timeout error
func TimeoutError(operation string) *AppError {
	return &AppError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("timeout during %s", operation),
	}
}

// RateLimitError creates a new rate limit error
func RateLimitError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeRateLimit,
		Message: fmt.Sprintf("rate limit exceeded for %s", resource),
	}
}

// ProviderRejectedError records a 4xx answer from the provider. The OAuth
// error code (e.g. invalid_grant) goes into Code; status and body are kept
// in Context for logs only.
func ProviderRejectedError(status int, oauthCode, body string) *AppError {
	e := &AppError{
		Type:    ErrTypeProviderRejected,
		Message: fmt.Sprintf("provider rejected the request with status %d", status),
		Code:    oauthCode,
	}
	return e.WithContext("provider_status", status).WithContext("provider_body", body)
}

// ProviderUnavailableError creates a retryable provider error
func ProviderUnavailableError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeProviderUnavailable,
		Message: msg,
		Cause:   cause,
	}
}

// MissingCredentialsError creates a missing credentials error
func MissingCredentialsError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeMissingCredentials,
		Message: msg,
	}
}

// LocationConversionError creates a location conversion error
func LocationConversionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeLocationConversion,
		Message: msg,
		Cause:   cause,
	}
}

// ConcurrentRefreshError reports an in-flight refresh for the installation
func ConcurrentRefreshError(id string) *AppError {
	e := &AppError{
		Type:    ErrTypeConcurrentRefresh,
		Message: "refresh already in progress",
	}
	return e.WithContext("installation_id", id)
}

// As returns the first AppError in the chain
func As(err error) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := As(err)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}

// Retryable reports whether retrying the same call may succeed
func Retryable(err error) bool {
	switch GetType(err) {
	case ErrTypeProviderUnavailable, ErrTypeTimeout:
		return true
	default:
		return false
	}
}

// ProviderStatus returns the provider HTTP status recorded on a rejected error, or 0
func ProviderStatus(err error) int {
	appErr, ok := As(err)
	if !ok || appErr.Context == nil {
		return 0
	}
	status, _ := appErr.Context["provider_status"].(int)
	return status
}

// OAuthCode returns the provider's OAuth error code (invalid_grant, ...) or ""
func OAuthCode(err error) string {
	appErr, ok := As(err)
	if !ok || appErr.Type != ErrTypeProviderRejected {
		return ""
	}
	return appErr.Code
}

// HTTPStatus maps an error to the status returned to API clients
func HTTPStatus(err error) int {
	switch GetType(err) {
	case ErrTypeNotFound:
		return http.StatusNotFound
	case ErrTypeValidation, ErrTypeMissingCredentials:
		return http.StatusBadRequest
	case ErrTypeProviderUnavailable, ErrTypeTimeout, ErrTypeProviderRejected, ErrTypeLocationConversion:
		return http.StatusBadGateway
	case ErrTypeConcurrentRefresh:
		return http.StatusConflict
	case ErrTypeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// SafeMessage returns a message that can be shown to API clients. Causes and
// provider bodies are never included.
func SafeMessage(err error) string {
	appErr, ok := As(err)
	if !ok || appErr.Type == ErrTypeInternal || appErr.Type == ErrTypeConnection {
		return "internal error"
	}
	return appErr.Message
}
