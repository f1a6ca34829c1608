// Package resource enforces the process-wide limits shared by all workers:
// upstream request rate, concurrently active fetch workers, and output IO
// throughput.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits. Zero values disable the limit.
type Config struct {
	// RequestsPerSecond is the global upstream request budget shared by every
	// fetch worker. If 0, unlimited.
	RequestsPerSecond float64

	// RequestBurst is the token bucket size. If 0, defaults to 1.
	RequestBurst int

	// MaxActiveWorkers caps how many fetch workers may be fetching at the same
	// time. If 0, unlimited.
	MaxActiveWorkers int64

	// IOLimitBytesPerSec is the maximum throughput when writing or reading
	// exported record sets. If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages global resources (request rate, concurrency, IO).
//
// A nil *Controller is valid and imposes no limits.
type Controller struct {
	cfg Config

	reqLimiter *rate.Limiter
	requests   atomic.Int64

	workerSem *semaphore.Weighted
	active    atomic.Int64

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.RequestBurst <= 0 {
		cfg.RequestBurst = 1
	}

	c := &Controller{cfg: cfg}

	if cfg.RequestsPerSecond > 0 {
		c.reqLimiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestBurst)
	}

	if cfg.MaxActiveWorkers > 0 {
		c.workerSem = semaphore.NewWeighted(cfg.MaxActiveWorkers)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Config returns the limits the controller was built with.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireRequest blocks until the global request budget allows one more
// upstream call, or ctx is done.
func (c *Controller) AcquireRequest(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.reqLimiter != nil {
		if err := c.reqLimiter.Wait(ctx); err != nil {
			return err
		}
	}
	c.requests.Add(1)
	return nil
}

// Requests returns the number of requests admitted so far.
func (c *Controller) Requests() int64 {
	if c == nil {
		return 0
	}
	return c.requests.Load()
}

// AcquireWorker reserves an active worker slot.
// Blocks if all slots are busy.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.workerSem != nil {
		if err := c.workerSem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	c.active.Add(1)
	return nil
}

// TryAcquireWorker reserves an active worker slot without blocking.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}
	if c.workerSem != nil && !c.workerSem.TryAcquire(1) {
		return false
	}
	c.active.Add(1)
	return true
}

// ReleaseWorker releases an active worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	if c.workerSem != nil {
		c.workerSem.Release(1)
	}
	c.active.Add(-1)
}

// ActiveWorkers returns the number of currently held worker slots.
func (c *Controller) ActiveWorkers() int64 {
	if c == nil {
		return 0
	}
	return c.active.Load()
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil || bytes <= 0 {
		return nil
	}
	// WaitN rejects requests larger than the burst.
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
