// Package domain provides the core types and error taxonomy for the
// itinerary generation service.
package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCategory is the stable machine-readable class of a failure.
// Every outward-facing error carries one of these alongside its
// human-readable message.
type ErrorCategory string

const (
	// CategoryValidation indicates a bad request shape or an
	// out-of-range value. Never retried.
	CategoryValidation ErrorCategory = "validation_error"

	// CategoryConfiguration indicates a required credential is
	// missing for the selected provider.
	CategoryConfiguration ErrorCategory = "configuration_error"

	// CategoryProviderUnavailable indicates an unknown or
	// unconfigured provider name.
	CategoryProviderUnavailable ErrorCategory = "provider_unavailable"

	// CategoryUpstream indicates a network failure, non-2xx status,
	// or timeout talking to a backend.
	CategoryUpstream ErrorCategory = "upstream_error"

	// CategoryMalformedResponse indicates a 2xx backend response
	// whose body could not be parsed into the expected shape.
	CategoryMalformedResponse ErrorCategory = "malformed_response"

	// CategoryInternal is the fallback for untyped failures.
	CategoryInternal ErrorCategory = "internal_error"
)

// ValidationError rejects a request field before any generation work.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConfigurationError means a provider requires a credential that is
// not configured.
type ConfigurationError struct {
	Provider string
	Missing  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %s: %s not configured", e.Provider, e.Missing)
}

// ProviderUnavailableError reports a provider name that matched no
// initialized provider, with the set of valid names.
type ProviderUnavailableError struct {
	Requested string
	Available []string
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %q not available, configured providers: %s",
		e.Requested, strings.Join(e.Available, ", "))
}

// UpstreamError wraps a network, status, or timeout failure from a
// backend call.
type UpstreamError struct {
	Provider string
	Cause    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider %s: upstream request failed: %v", e.Provider, e.Cause)
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

// MalformedResponseError reports a 2xx backend response that did not
// parse into the expected shape.
type MalformedResponseError struct {
	Provider string
	Detail   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("provider %s: malformed response: %s", e.Provider, e.Detail)
}

// Category classifies err into its stable error category.
func Category(err error) ErrorCategory {
	var (
		ve *ValidationError
		ce *ConfigurationError
		pe *ProviderUnavailableError
		ue *UpstreamError
		me *MalformedResponseError
	)
	switch {
	case errors.As(err, &ve):
		return CategoryValidation
	case errors.As(err, &ce):
		return CategoryConfiguration
	case errors.As(err, &pe):
		return CategoryProviderUnavailable
	case errors.As(err, &ue):
		return CategoryUpstream
	case errors.As(err, &me):
		return CategoryMalformedResponse
	default:
		return CategoryInternal
	}
}

// HTTPStatus maps an error to the status code the transport layer
// should answer with.
func HTTPStatus(err error) int {
	switch Category(err) {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryConfiguration:
		return http.StatusBadRequest
	case CategoryProviderUnavailable:
		return http.StatusNotFound
	case CategoryUpstream:
		return http.StatusBadGateway
	case CategoryMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
