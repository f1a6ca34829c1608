// Package workerpool runs a fixed set of message-driven workers.
//
// Each worker is a goroutine with its own inbox and outbox. The coordinator
// talks to a worker either synchronously (DispatchAndAwait: exactly one
// matching response) or as a stream (Post plus Events). A single pool must use
// one of the two styles per worker; Events consumes the outboxes.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/geocluster/core"
	"github.com/hupe1980/geocluster/protocol"
)

// ErrAlreadySpawned is returned by Spawn when the pool already has workers.
var ErrAlreadySpawned = errors.New("workerpool: workers already spawned")

// Emit delivers a response to the coordinator. It returns false when the pool
// has been terminated and the response was dropped.
type Emit func(protocol.Response) bool

// Handler processes the requests sent to one worker.
//
// A returned error (or a panic) is reported to the coordinator as a
// protocol.Error; the worker keeps serving later requests.
type Handler interface {
	Handle(ctx context.Context, req protocol.Request, emit Emit) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req protocol.Request, emit Emit) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, req protocol.Request, emit Emit) error {
	return f(ctx, req, emit)
}

// Factory builds the handler for worker id.
type Factory func(id int) (Handler, error)

// Envelope tags a streamed response with its sender.
type Envelope struct {
	WorkerID int
	Response protocol.Response
}

// Handle addresses one spawned worker.
type Handle struct {
	ID int

	inbox  chan protocol.Request
	outbox chan protocol.Response
}

// Pool owns a set of workers.
type Pool struct {
	opts options

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	handles []*Handle

	workers    sync.WaitGroup
	forwarders sync.WaitGroup
	eventsOnce sync.Once
	events     chan Envelope

	closed atomic.Bool
}

// New creates an empty pool.
func New(optFns ...Option) *Pool {
	return &Pool{opts: applyOptions(optFns)}
}

// Spawn starts count workers with ids 0..count-1. Workers stop when ctx is
// done or TerminateAll is called.
//
// If the factory fails for any id, the workers spawned so far are terminated
// and the error is returned.
func (p *Pool) Spawn(ctx context.Context, count int, factory Factory) ([]*Handle, error) {
	if count < 1 {
		return nil, core.Invalid("workers", "must be at least 1, got %d", count)
	}
	if p.closed.Load() {
		return nil, core.ErrPoolTerminated
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handles != nil {
		return nil, ErrAlreadySpawned
	}

	p.ctx, p.cancel = context.WithCancel(ctx)

	handles := make([]*Handle, 0, count)
	for id := 0; id < count; id++ {
		h, err := factory(id)
		if err != nil {
			p.handles = handles
			p.closed.Store(true)
			p.cancel()
			p.workers.Wait()
			return nil, fmt.Errorf("workerpool: spawn worker %d: %w", id, err)
		}

		wh := &Handle{
			ID:     id,
			inbox:  make(chan protocol.Request, 1),
			outbox: make(chan protocol.Response, p.opts.outboxSize),
		}
		handles = append(handles, wh)

		p.workers.Add(1)
		go p.run(wh, h)
	}

	p.handles = handles
	p.opts.logger.DebugContext(ctx, "workers spawned", "count", count)

	return append([]*Handle(nil), handles...), nil
}

// Handles returns the spawned workers in id order.
func (p *Pool) Handles() []*Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Handle(nil), p.handles...)
}

func (p *Pool) run(wh *Handle, h Handler) {
	defer p.workers.Done()
	defer close(wh.outbox)

	emit := func(resp protocol.Response) bool {
		select {
		case wh.outbox <- resp:
			return true
		case <-p.ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-p.ctx.Done():
			return
		case req := <-wh.inbox:
			if err := p.handle(h, req, emit); err != nil {
				failure := protocol.Error{ID: wh.ID, Message: err.Error(), Err: err}
				if step, ok := req.(protocol.Step); ok {
					failure.Iteration = step.Iteration
				}
				if !emit(failure) {
					return
				}
			}
		}
	}
}

func (p *Pool) handle(h Handler, req protocol.Request, emit Emit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Handle(p.ctx, req, emit)
}

// Post enqueues req for its worker without waiting for a response.
func (p *Pool) Post(ctx context.Context, h *Handle, req protocol.Request) error {
	if req.WorkerID() != h.ID {
		return fmt.Errorf("workerpool: request for worker %d posted to worker %d: %w",
			req.WorkerID(), h.ID, core.ErrWorkerCommunication)
	}
	if p.closed.Load() {
		return core.ErrPoolTerminated
	}

	select {
	case h.inbox <- req:
		return nil
	case <-p.ctx.Done():
		return core.ErrPoolTerminated
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DispatchAndAwait sends req and waits for the single response that answers
// it. Responses from a different worker or for another iteration are
// discarded. A protocol.Error reply or an exited worker yields a
// *core.WorkerError.
func (p *Pool) DispatchAndAwait(ctx context.Context, h *Handle, req protocol.Request) (protocol.Response, error) {
	if err := p.Post(ctx, h, req); err != nil {
		return nil, err
	}

	for {
		select {
		case resp, ok := <-h.outbox:
			if !ok {
				if p.closed.Load() {
					return nil, core.ErrPoolTerminated
				}
				return nil, core.NewWorkerError(h.ID, "worker exited", nil)
			}
			if !protocol.Answers(req, resp) {
				p.opts.logger.WarnContext(ctx, "discarding stale response",
					"worker", h.ID,
					"request", req.Kind(),
					"response", resp.Kind(),
				)
				continue
			}
			if e, isErr := resp.(protocol.Error); isErr {
				return nil, core.NewWorkerError(e.ID, e.Message, e.Err)
			}
			return resp, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Initialize sends init to its worker and waits for Ready.
func (p *Pool) Initialize(ctx context.Context, h *Handle, init protocol.Init) error {
	resp, err := p.DispatchAndAwait(ctx, h, init)
	if err != nil {
		return err
	}
	if _, ok := resp.(protocol.Ready); !ok {
		return core.NewWorkerError(h.ID, "unexpected "+resp.Kind()+" during init", nil)
	}
	return nil
}

// InitializeAll initializes every worker in parallel and returns once all of
// them are ready. inits[i] is sent to handles[i]. The first failure cancels
// the remaining waits and is returned.
func (p *Pool) InitializeAll(ctx context.Context, handles []*Handle, inits []protocol.Init) error {
	if len(inits) != len(handles) {
		return core.Invalid("inits", "got %d for %d workers", len(inits), len(handles))
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, h := range handles {
		g.Go(func() error {
			return p.Initialize(gctx, h, inits[i])
		})
	}
	return g.Wait()
}

// Events merges the outboxes of all spawned workers. The channel is closed
// after every worker has exited and its outbox is drained.
func (p *Pool) Events() <-chan Envelope {
	p.eventsOnce.Do(func() {
		handles := p.Handles()
		p.events = make(chan Envelope, len(handles))

		for _, h := range handles {
			p.forwarders.Add(1)
			go func() {
				defer p.forwarders.Done()
				for resp := range h.outbox {
					select {
					case p.events <- Envelope{WorkerID: h.ID, Response: resp}:
					case <-p.ctx.Done():
						return
					}
				}
			}()
		}

		go func() {
			p.forwarders.Wait()
			close(p.events)
		}()
	})
	return p.events
}

// TerminateAll stops every worker. It is idempotent and does not wait; use
// Wait for that.
func (p *Pool) TerminateAll() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Terminated reports whether TerminateAll has been called.
func (p *Pool) Terminated() bool {
	return p.closed.Load()
}

// Wait blocks until all worker goroutines have exited.
func (p *Pool) Wait() {
	p.workers.Wait()
	p.forwarders.Wait()
}
