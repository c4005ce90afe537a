package pipeline

import (
	"context"
	"errors"
	"fmt"

	dErrors "biorempp/pkg/domain-errors"
)

// Sentinel failures surfaced by the orchestrator. Both abort the run.
var (
	// ErrCircuitOpen means a stage was skipped because its reference
	// table's circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrEmptyResult means a merge produced no rows.
	ErrEmptyResult = errors.New("merge produced an empty table")
)

// RetryExhaustedError means every attempt of a merge stage failed. Err holds
// the last attempt's failure.
type RetryExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("merge failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// StageError wraps any stage failure with the stage it happened in. The
// pipeline aborts on the first StageError; there is no partial result.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ErrorCode maps a pipeline failure to its domain error code, preferring the
// most specific condition in the chain.
func ErrorCode(err error) dErrors.Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.CodeTimeout
	case errors.Is(err, ErrCircuitOpen):
		return dErrors.CodeCircuitOpen
	case errors.Is(err, ErrEmptyResult):
		return dErrors.CodeEmptyResult
	}

	var retryErr *RetryExhaustedError
	if errors.As(err, &retryErr) {
		return dErrors.CodeRetryExhausted
	}

	// Dependency failures carry their own codes through the stage wrapper.
	if code := dErrors.CodeOf(err); code != dErrors.CodeInternal {
		return code
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return dErrors.CodeStageProcessing
	}
	return dErrors.CodeInternal
}
