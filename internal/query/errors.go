package query

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindInvalidQuery      Kind = "invalid_query"
	KindNotFound          Kind = "not_found"
	KindConnectionFailure Kind = "connection_failure"
	KindTimeout           Kind = "timeout"
	KindNoColumns         Kind = "no_columns"
	KindExecutionError    Kind = "execution_error"
	KindStreamingFault    Kind = "streaming_fault"
)

// Error is a classified pipeline failure.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"` // Internal error for logging
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the failure kind to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidQuery, KindNoColumns, KindExecutionError:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindConnectionFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// newError creates a classified Error
func newError(kind Kind, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// ErrInvalidQuery creates an InvalidQuery error
func ErrInvalidQuery(message string) *Error {
	return newError(KindInvalidQuery, message, nil)
}

// ErrNotFound creates a NotFound error for a missing database file
func ErrNotFound(err error) *Error {
	return newError(KindNotFound, "database file not found", err)
}

// ErrConnectionFailure creates a ConnectionFailure error
func ErrConnectionFailure(err error) *Error {
	return newError(KindConnectionFailure, "failed to open database connection", err)
}

// ErrTimeout creates a Timeout error
func ErrTimeout(err error) *Error {
	return newError(KindTimeout, "query execution exceeded the configured timeout", err)
}

// ErrNoColumns creates a NoColumns error
func ErrNoColumns() *Error {
	return newError(KindNoColumns, "statement produced no column metadata", nil)
}

// ErrExecution creates an ExecutionError with driver-provided detail
func ErrExecution(err error) *Error {
	return newError(KindExecutionError, "query execution failed", err)
}

// ErrStreaming creates a StreamingFault error
func ErrStreaming(err error) *Error {
	return newError(KindStreamingFault, "streaming failed after response began", err)
}

// KindOf returns the failure kind of err, or an empty Kind for unclassified
// errors.
func KindOf(err error) Kind {
	var qerr *Error
	if errors.As(err, &qerr) {
		return qerr.Kind
	}
	return ""
}
