// Package fetch implements the parallel paginated bulk loader.
//
// Offsets [0, pageSize, 2*pageSize, ...] are dealt round-robin to workers.
// Every worker fetches its offsets sequentially with retries and a fixed
// delay between requests, optionally sharing a global request budget with
// its siblings. The coordinator collects pages as they arrive and truncates
// the result to the requested target.
package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"go.uber.org/multierr"

	"github.com/hupe1980/geocluster/core"
	"github.com/hupe1980/geocluster/model"
	"github.com/hupe1980/geocluster/partition"
	"github.com/hupe1980/geocluster/protocol"
	"github.com/hupe1980/geocluster/source"
	"github.com/hupe1980/geocluster/workerpool"
)

// Progress is reported after every page.
type Progress struct {
	// Records is the number of records collected so far, capped at Target.
	Records    int
	Target     int
	Pages      int
	PagesTotal int
}

// Result is the outcome of a fetch run.
//
// Records is always set, also for cancelled and failed runs.
type Result struct {
	RunID   string
	State   core.State
	Records []model.City

	// Received is the number of records received before truncation.
	Received int

	// Pages holds the page indices (offset / pageSize) that arrived. Pages
	// skipped after rate limiting are not included.
	Pages      *roaring.Bitmap
	PagesTotal int
	PageSize   int

	// WorkerErrors combines the errors of failed workers (nil if none).
	// Use multierr.Errors to split it.
	WorkerErrors error

	Duration time.Duration
}

// MissingPages returns the page indices that never arrived.
func (r *Result) MissingPages() []uint32 {
	all := roaring.New()
	all.AddRange(0, uint64(r.PagesTotal))
	all.AndNot(r.Pages)
	return all.ToArray()
}

// MissingOffsets returns the offsets of MissingPages.
func (r *Result) MissingOffsets() []int {
	pages := r.MissingPages()
	offsets := make([]int, len(pages))
	for i, p := range pages {
		offsets[i] = int(p) * r.PageSize
	}
	return offsets
}

// Engine runs bulk loads against a source.
type Engine struct {
	factory source.Factory
	opts    options
}

// New creates an Engine. factory is called by every worker with the
// configured credentials.
func New(factory source.Factory, optFns ...Option) *Engine {
	return &Engine{factory: factory, opts: applyOptions(optFns)}
}

// Run fetches target records.
//
// When ctx is cancelled the pool is torn down immediately and the records
// collected so far are returned together with core.ErrCancelled. A failing
// worker abandons its remaining offsets without affecting its siblings; the
// run fails only if every worker failed and no record arrived.
func (e *Engine) Run(ctx context.Context, target int) (*Result, error) {
	o := e.opts

	if target <= 0 {
		return nil, core.Invalid("target", "must be positive, got %d", target)
	}
	if o.pageSize <= 0 {
		return nil, core.Invalid("pageSize", "must be positive, got %d", o.pageSize)
	}
	if o.workers <= 0 {
		return nil, core.Invalid("workers", "must be positive, got %d", o.workers)
	}
	if e.factory == nil {
		return nil, core.Invalid("source", "factory is nil")
	}

	began := time.Now()
	run := core.NewRunState()
	log := o.logger.WithRun(run.ID).WithComponent("fetch")

	offsets := partition.Offsets(target, o.pageSize)
	plan := partition.RoundRobin(offsets, o.workers)

	res := &Result{
		RunID:      run.ID.String(),
		Pages:      roaring.New(),
		PagesTotal: len(offsets),
		PageSize:   o.pageSize,
	}

	finish := func(state core.State, err error) (*Result, error) {
		run.Transition(state)
		res.State = run.State()
		res.Received = len(res.Records)
		if o.dedup {
			res.Records = model.UniqueByID(res.Records)
		}
		if len(res.Records) > target {
			res.Records = res.Records[:target]
		}
		res.Duration = time.Since(began)

		log.LogRunFinished(ctx, res.State.String(), res.Duration, err)
		o.metrics.RecordRun("fetch", res.State.String(), res.Duration)
		return res, err
	}

	pool := workerpool.New(workerpool.WithLogger(log))
	defer pool.Wait()
	defer pool.TerminateAll()

	handles, err := pool.Spawn(ctx, len(plan), func(id int) (workerpool.Handler, error) {
		return newWorker(id, e.factory, &o), nil
	})
	if err != nil {
		return finish(core.StateFailed, err)
	}

	run.Workers = make([]int, len(handles))
	run.Transition(core.StateRunning)
	log.InfoContext(ctx, "fetch started",
		"target", target,
		"page_size", o.pageSize,
		"pages", len(offsets),
		"workers", len(handles),
	)

	for i, h := range handles {
		run.Workers[i] = h.ID
		start := protocol.Start{
			ID:              h.ID,
			Offsets:         plan[i],
			PageSize:        o.pageSize,
			PerRequestDelay: o.perRequestDelay,
			InitialDelay:    time.Duration(i) * o.perRequestDelay,
			Credentials:     o.credentials,
		}
		if err := pool.Post(ctx, h, start); err != nil {
			if ctx.Err() != nil {
				return e.cancel(pool, run, finish)
			}
			return finish(core.StateFailed, err)
		}
	}

	events := pool.Events()
	pending := len(handles)
	failed := 0

	for pending > 0 {
		if ctx.Err() != nil {
			return e.cancel(pool, run, finish)
		}

		var env workerpool.Envelope
		var ok bool
		select {
		case <-ctx.Done():
			return e.cancel(pool, run, finish)
		case env, ok = <-events:
		}
		if !ok {
			break
		}

		switch m := env.Response.(type) {
		case protocol.Page:
			if m.Skipped {
				log.WarnContext(ctx, "page skipped after rate limiting", "worker", m.ID, "offset", m.Offset)
				continue
			}
			res.Records = append(res.Records, m.Data...)
			res.Pages.Add(uint32(m.Offset / o.pageSize))

			log.LogPage(ctx, m.ID, m.Offset, len(m.Data), len(res.Records))
			o.metrics.RecordPage(len(m.Data), time.Since(began))
			if o.progress != nil {
				o.progress(Progress{
					Records:    min(len(res.Records), target),
					Target:     target,
					Pages:      int(res.Pages.GetCardinality()),
					PagesTotal: res.PagesTotal,
				})
			}
		case protocol.Done:
			pending--
			log.DebugContext(ctx, "worker done", "worker", m.ID, "total", m.Total)
		case protocol.Error:
			pending--
			failed++
			werr := core.NewWorkerError(m.ID, m.Message, m.Err)
			res.WorkerErrors = multierr.Append(res.WorkerErrors, werr)
			log.LogWorkerError(ctx, m.ID, werr)
			o.metrics.RecordWorkerError("fetch")
		}
	}

	if pending > 0 {
		res.WorkerErrors = multierr.Append(res.WorkerErrors,
			errors.New("worker pool closed before all workers finished"))
	}

	if failed == len(handles) && len(res.Records) == 0 {
		return finish(core.StateFailed, res.WorkerErrors)
	}
	return finish(core.StateCompleted, nil)
}

func (e *Engine) cancel(pool *workerpool.Pool, run *core.RunState, finish func(core.State, error) (*Result, error)) (*Result, error) {
	run.Cancel()
	pool.TerminateAll()
	return finish(core.StateCancelled, core.ErrCancelled)
}
