package geocluster

import "github.com/hupe1980/geocluster/core"

var (
	// ErrInvalidInput is returned when a run is rejected before it starts.
	ErrInvalidInput = core.ErrInvalidInput

	// ErrCancelled accompanies the partial result of a cancelled run.
	ErrCancelled = core.ErrCancelled

	// ErrWorkerCommunication is returned when a worker fails.
	ErrWorkerCommunication = core.ErrWorkerCommunication

	// ErrRateLimited marks upstream "too many requests" responses.
	ErrRateLimited = core.ErrRateLimited
)
