// Package errors defines the application's structured error type and the
// sentinel error kinds used across the engine and its HTTP surface.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Generic sentinels used by the Content CRUD interface and the HTTP layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInternal     = errors.New("internal error")
	ErrConflict     = errors.New("conflict")
)

// Domain-specific sentinels, one per error kind named in the engine's error
// handling design: network/upstream failures from platform scraping,
// credential-acquisition failures, non-serviceable locations, embedding and
// geocoding failures, and content-store failures.
var (
	ErrNetwork                = errors.New("network error")
	ErrUpstreamStatus         = errors.New("unexpected upstream status")
	ErrParse                  = errors.New("parse error")
	ErrCredentialAcquisition  = errors.New("credential acquisition failed")
	ErrNonServiceableLocation = errors.New("location not serviceable")
	ErrEmbedding              = errors.New("embedding provider error")
	ErrGeocode                = errors.New("geocode error")
	ErrContentStore           = errors.New("content store error")
)

// AppError is a structured application error carrying an HTTP status and a
// stable machine-readable code. Only Code and Message are ever serialized
// to a client; Err is for internal wrapping/logging only.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Internal creates a 500 error. The wrapped err is logged but never
// serialized to the client.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Network wraps a transport-level failure reaching a platform's upstream.
func Network(platform string, err error) *AppError {
	return &AppError{
		Code:    "NETWORK_ERROR",
		Message: fmt.Sprintf("%s: network request failed", platform),
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%w: %v", ErrNetwork, err),
	}
}

// UpstreamStatus wraps a non-2xx response from a platform's upstream.
func UpstreamStatus(platform string, code int) *AppError {
	return &AppError{
		Code:    "UPSTREAM_STATUS_ERROR",
		Message: fmt.Sprintf("%s: upstream returned status %d", platform, code),
		Status:  http.StatusBadGateway,
		Err:     ErrUpstreamStatus,
	}
}

// Parse wraps a failure to parse an upstream response body.
func Parse(platform string, err error) *AppError {
	return &AppError{
		Code:    "PARSE_ERROR",
		Message: fmt.Sprintf("%s: failed to parse response", platform),
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%w: %v", ErrParse, err),
	}
}

// CredentialAcquisition wraps an exhausted credential-acquisition attempt
// for a platform handler.
func CredentialAcquisition(platform string, err error) *AppError {
	return &AppError{
		Code:    "CREDENTIAL_ACQUISITION_ERROR",
		Message: fmt.Sprintf("%s: could not acquire credentials", platform),
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%w: %v", ErrCredentialAcquisition, err),
	}
}

// NonServiceableLocation marks a location outside a platform's delivery area.
func NonServiceableLocation(platform string) *AppError {
	return &AppError{
		Code:    "NON_SERVICEABLE_LOCATION",
		Message: fmt.Sprintf("%s: location is not serviceable", platform),
		Status:  http.StatusOK,
		Err:     ErrNonServiceableLocation,
	}
}

// Embedding wraps a failure from the embedding provider.
func Embedding(err error) *AppError {
	return &AppError{
		Code:    "EMBEDDING_ERROR",
		Message: "embedding provider failed",
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%w: %v", ErrEmbedding, err),
	}
}

// Geocode wraps a non-OK response from the geocoding provider.
func Geocode(reason string) *AppError {
	return &AppError{
		Code:    "GEOCODE_ERROR",
		Message: reason,
		Status:  http.StatusBadGateway,
		Err:     ErrGeocode,
	}
}

// ContentStore wraps a failure from the Content CRUD collaborator.
func ContentStore(op, table string, err error) *AppError {
	return &AppError{
		Code:    "CONTENT_STORE_ERROR",
		Message: fmt.Sprintf("%s %s failed", op, table),
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %v", ErrContentStore, err),
	}
}

// Wrap wraps an error with additional context, preserving errors.Is/As.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
