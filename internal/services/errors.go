package services

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind classifies service failures for handler translation and
// gateway fallback decisions
type ErrorKind int

const (
	// ErrKindUnknown - unclassified failure, treated as internal
	ErrKindUnknown ErrorKind = iota

	// ErrKindInvalidInput - caller sent missing/empty/wrong-typed data
	ErrKindInvalidInput

	// ErrKindNotFound - requested artifact does not exist
	ErrKindNotFound

	// ErrKindNetwork - upstream unreachable (timeout, refused, DNS).
	// Recovered inside the gateway via fallback generation, never surfaced.
	ErrKindNetwork

	// ErrKindUpstreamHTTP - upstream reachable but returned a non-200 status
	ErrKindUpstreamHTTP

	// ErrKindMalformedResponse - upstream returned 200 with unusable data
	ErrKindMalformedResponse

	// ErrKindStorageIO - disk read/write failure
	ErrKindStorageIO
)

// String returns a human-readable kind name
func (k ErrorKind) String() string {
	switch k {
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindNotFound:
		return "not_found"
	case ErrKindNetwork:
		return "network_failure"
	case ErrKindUpstreamHTTP:
		return "upstream_http_error"
	case ErrKindMalformedResponse:
		return "malformed_response"
	case ErrKindStorageIO:
		return "storage_io_error"
	default:
		return "unknown"
	}
}

// ServiceError wraps failures with a kind for translation at the HTTP boundary
type ServiceError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int   // upstream HTTP status, if applicable
	Cause      error // original error
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s [%d]: %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// KindOf extracts the error kind, ErrKindUnknown for foreign errors
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrKindUnknown
}

// HTTPStatus maps an error to the status code the route layer should return
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrKindInvalidInput:
		return fiber.StatusBadRequest
	case ErrKindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func invalidInput(format string, args ...any) *ServiceError {
	return &ServiceError{Kind: ErrKindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *ServiceError {
	return &ServiceError{Kind: ErrKindNotFound, Message: fmt.Sprintf(format, args...)}
}

func storageErr(cause error, format string, args ...any) *ServiceError {
	return &ServiceError{Kind: ErrKindStorageIO, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func networkErr(cause error, format string, args ...any) *ServiceError {
	return &ServiceError{Kind: ErrKindNetwork, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func upstreamErr(statusCode int, format string, args ...any) *ServiceError {
	return &ServiceError{Kind: ErrKindUpstreamHTTP, StatusCode: statusCode, Message: fmt.Sprintf(format, args...)}
}

func malformedErr(cause error, format string, args ...any) *ServiceError {
	return &ServiceError{Kind: ErrKindMalformedResponse, Message: fmt.Sprintf(format, args...), Cause: cause}
}
