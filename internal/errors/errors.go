// Package errors provides the error taxonomy for the agentdeck client.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrBackendUnavailable = errors.New("backend is unavailable")
	ErrBusy               = errors.New("a submission is already in flight")
	ErrEmptyInput         = errors.New("input is empty")
	ErrTransport          = errors.New("transport failure")
	ErrDecode             = errors.New("frame decode failure")
)

// TransportError means the request could not be sent or the response body was
// unreadable. It is terminal for the submission; content already streamed is
// kept.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport failure during %s", e.Op)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is allows comparison with the ErrTransport sentinel
func (e *TransportError) Is(target error) bool {
	if target == ErrTransport {
		return true
	}
	_, ok := target.(*TransportError)
	return ok
}

// NewTransportError creates a new TransportError
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// DecodeError means a single frame's JSON was malformed. It is local: the
// frame is skipped and decoding continues.
type DecodeError struct {
	Frame string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is allows comparison with the ErrDecode sentinel
func (e *DecodeError) Is(target error) bool {
	if target == ErrDecode {
		return true
	}
	_, ok := target.(*DecodeError)
	return ok
}

// NewDecodeError creates a new DecodeError for the given raw frame payload
func NewDecodeError(frame string, err error) *DecodeError {
	return &DecodeError{Frame: frame, Err: err}
}

// APIError represents a non-2xx reply from a backend proxy endpoint. The
// upstream status code is surfaced as-is.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("API error at %s: %s", e.Endpoint, e.Message)
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, endpoint, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// GetHTTPStatus extracts the upstream status code from an error chain, or 0.
func GetHTTPStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsTransportError reports whether the error chain contains a transport
// failure.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}
