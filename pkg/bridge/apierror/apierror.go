// Package apierror defines the JSON error envelope returned by the bridge's
// HTTP surface.
package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is the structured error returned to HTTP callers.
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Param     string    `json:"param,omitempty"`
	Code      string    `json:"code,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrConfiguration  ErrorType = "configuration_error"
	ErrNotFound       ErrorType = "not_found_error"
	ErrSynthesis      ErrorType = "synthesis_error"
	ErrUpstream       ErrorType = "upstream_error"
	ErrAPI            ErrorType = "api_error"
)

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{Type: ErrInvalidRequest, Message: message}
}

// NewInvalidRequestErrorWithParam creates an invalid request error naming the
// offending parameter.
func NewInvalidRequestErrorWithParam(message, param string) *Error {
	return &Error{Type: ErrInvalidRequest, Message: message, Param: param}
}

// NewConfigurationError reports a missing or invalid server-side credential.
func NewConfigurationError(message string) *Error {
	return &Error{Type: ErrConfiguration, Message: message}
}

// NewSynthesisError reports a failed audio synthesis attempt.
func NewSynthesisError(message string) *Error {
	return &Error{Type: ErrSynthesis, Message: message}
}

// NewUpstreamError reports a failure from an external dependency.
func NewUpstreamError(message string) *Error {
	return &Error{Type: ErrUpstream, Message: message}
}

// HTTPStatus maps an error type to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConfiguration:
		return http.StatusInternalServerError
	case ErrSynthesis, ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type envelope struct {
	Error *Error `json:"error"`
}

// WriteJSON writes the error envelope with its mapped status code.
func WriteJSON(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err.HTTPStatus())
	_ = json.NewEncoder(w).Encode(envelope{Error: err})
}
