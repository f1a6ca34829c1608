// Package metrics defines the operational metrics hooks of the fetch and
// cluster engines.
package metrics

import (
	"math"
	"sync/atomic"
	"time"
)

// Collector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus (see package prom).
type Collector interface {
	// RecordPage is called by the fetch coordinator for every page that
	// arrives. records is the page size, duration the time since the run
	// started.
	RecordPage(records int, duration time.Duration)

	// RecordRetry is called before every retried upstream request.
	RecordRetry(attempt int, rateLimited bool)

	// RecordWorkerError is called once per failed worker. engine is "fetch"
	// or "cluster".
	RecordWorkerError(engine string)

	// RecordIteration is called after each clustering iteration.
	RecordIteration(iteration int, inertia float64, reseeded int, duration time.Duration)

	// RecordRun is called when a run reaches a terminal state.
	RecordRun(engine, state string, duration time.Duration)
}

// Noop is a no-op implementation of Collector.
type Noop struct{}

func (Noop) RecordPage(int, time.Duration)                    {}
func (Noop) RecordRetry(int, bool)                            {}
func (Noop) RecordWorkerError(string)                         {}
func (Noop) RecordIteration(int, float64, int, time.Duration) {}
func (Noop) RecordRun(string, string, time.Duration)          {}

// OrNoop returns c, or Noop when c is nil.
func OrNoop(c Collector) Collector {
	if c == nil {
		return Noop{}
	}
	return c
}

// Basic provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type Basic struct {
	Pages           atomic.Int64
	Records         atomic.Int64
	Retries         atomic.Int64
	RateLimited     atomic.Int64
	WorkerErrors    atomic.Int64
	Iterations      atomic.Int64
	Reseeds         atomic.Int64
	IterationNanos  atomic.Int64
	Runs            atomic.Int64
	lastInertiaBits atomic.Uint64
}

// RecordPage implements Collector.
func (b *Basic) RecordPage(records int, _ time.Duration) {
	b.Pages.Add(1)
	b.Records.Add(int64(records))
}

// RecordRetry implements Collector.
func (b *Basic) RecordRetry(_ int, rateLimited bool) {
	b.Retries.Add(1)
	if rateLimited {
		b.RateLimited.Add(1)
	}
}

// RecordWorkerError implements Collector.
func (b *Basic) RecordWorkerError(string) {
	b.WorkerErrors.Add(1)
}

// RecordIteration implements Collector.
func (b *Basic) RecordIteration(_ int, inertia float64, reseeded int, duration time.Duration) {
	b.Iterations.Add(1)
	b.Reseeds.Add(int64(reseeded))
	b.IterationNanos.Add(duration.Nanoseconds())
	b.lastInertiaBits.Store(math.Float64bits(inertia))
}

// RecordRun implements Collector.
func (b *Basic) RecordRun(string, string, time.Duration) {
	b.Runs.Add(1)
}

// Stats returns a snapshot of current metrics.
func (b *Basic) Stats() Stats {
	s := Stats{
		Pages:        b.Pages.Load(),
		Records:      b.Records.Load(),
		Retries:      b.Retries.Load(),
		RateLimited:  b.RateLimited.Load(),
		WorkerErrors: b.WorkerErrors.Load(),
		Iterations:   b.Iterations.Load(),
		Reseeds:      b.Reseeds.Load(),
		Runs:         b.Runs.Load(),
		LastInertia:  math.Float64frombits(b.lastInertiaBits.Load()),
	}
	if s.Iterations > 0 {
		s.IterationAvgNanos = b.IterationNanos.Load() / s.Iterations
	}
	return s
}

// Stats is a snapshot of Basic state.
type Stats struct {
	Pages             int64
	Records           int64
	Retries           int64
	RateLimited       int64
	WorkerErrors      int64
	Iterations        int64
	Reseeds           int64
	IterationAvgNanos int64
	Runs              int64
	LastInertia       float64
}
