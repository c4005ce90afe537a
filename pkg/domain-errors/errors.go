// Package domainerrors defines the coded error type shared across the
// service. Handlers translate codes to HTTP statuses; services and stores
// attach codes at the point where a failure acquires domain meaning.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure independent of its message.
type Code string

const (
	// Input and parsing failures, detected before any merge stage runs.
	CodeInvalidInput        Code = "invalid_input"
	CodeInvalidIdentifier   Code = "invalid_identifier"
	CodeEmptyContent        Code = "empty_content"
	CodeInvalidFormat       Code = "invalid_format"
	CodeSampleLimitExceeded Code = "sample_limit_exceeded"
	CodeKOLimitExceeded     Code = "ko_limit_exceeded"
	CodeValidation          Code = "validation_failed"

	// Reference table failures, surfaced immediately and never retried.
	CodeTableNotFound     Code = "table_not_found"
	CodeSchemaValidation  Code = "schema_validation_failed"
	CodeJoinColumnMissing Code = "join_column_missing"

	// Pipeline protection and processing failures.
	CodeCircuitOpen     Code = "circuit_breaker_open"
	CodeRetryExhausted  Code = "retry_exhausted"
	CodeEmptyResult     Code = "empty_result"
	CodeStageProcessing Code = "stage_processing_failed"
	CodeTimeout         Code = "processing_timeout"

	// Transport-level codes.
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeUnavailable  Code = "unavailable"
	CodeInternal     Code = "internal_error"
)

// Error is a coded error. The zero Code is treated as CodeInternal.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is match coded errors structurally: a target built with
// New matches any chain error carrying the same code and message. A target
// with an empty message matches on code alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" && t.Message != e.Message {
		return false
	}
	return t.Code == e.Code
}

// New creates a coded error with a message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause stays
// reachable through errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err or any error in its chain carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
		if err == nil {
			return false
		}
	}
	return false
}

// Is is shorthand for HasCode, matching the call sites that read better as
// a predicate.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code in the chain, or CodeInternal when err
// carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status handlers should return.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeInvalidIdentifier, CodeEmptyContent,
		CodeInvalidFormat, CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeSampleLimitExceeded, CodeKOLimitExceeded:
		return http.StatusRequestEntityTooLarge
	case CodeNotFound, CodeTableNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeCircuitOpen, CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
