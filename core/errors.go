package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a run is rejected before any worker is
	// spawned (empty dataset, K out of range, non-positive page size, ...).
	ErrInvalidInput = errors.New("invalid input")

	// ErrCancelled is returned when the caller cancelled a run.
	//
	// It is not a failure: engines return whatever partial result they
	// collected together with this error.
	ErrCancelled = errors.New("run cancelled")

	// ErrRateLimited marks an upstream "too many requests" response.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransientNetwork marks an upstream failure that is worth retrying.
	ErrTransientNetwork = errors.New("transient network error")

	// ErrWorkerCommunication is returned when a worker reports an error,
	// panics, or goes away before answering.
	ErrWorkerCommunication = errors.New("worker communication error")

	// ErrPoolTerminated is returned by pool operations issued after
	// TerminateAll.
	ErrPoolTerminated = errors.New("worker pool terminated")
)

// InvalidInputError describes why a run was rejected.
//
// It satisfies errors.Is(err, ErrInvalidInput).
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// Invalid is a shorthand for &InvalidInputError{...}.
func Invalid(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// WorkerError is a failure attributed to a single worker.
//
// It satisfies errors.Is(err, ErrWorkerCommunication). The original
// underlying error (if any) can be accessed via errors.Unwrap chains.
type WorkerError struct {
	WorkerID int
	Message  string
	cause    error
}

// NewWorkerError creates a WorkerError. cause may be nil.
func NewWorkerError(id int, msg string, cause error) *WorkerError {
	return &WorkerError{WorkerID: id, Message: msg, cause: cause}
}

func (e *WorkerError) Error() string {
	if e.cause != nil && e.Message == "" {
		return fmt.Sprintf("worker %d: %v", e.WorkerID, e.cause)
	}
	return fmt.Sprintf("worker %d: %s", e.WorkerID, e.Message)
}

func (e *WorkerError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrWorkerCommunication}
	}
	return []error{ErrWorkerCommunication, e.cause}
}
