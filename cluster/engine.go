// Package cluster implements parallel K-means (Lloyd's algorithm) over city
// records.
//
// Cities are normalized into a shared PointBuffer of 3-D feature vectors
// (latitude, longitude, log population, min-max scaled). The buffer is split
// into contiguous ranges, one per worker. Every iteration the coordinator
// broadcasts the centroids, each worker assigns its own range and writes only
// its own region of the shared AssignmentTable, and the coordinator reduces
// the partial sums in worker order once every worker has answered.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/geocluster/core"
	"github.com/hupe1980/geocluster/model"
	"github.com/hupe1980/geocluster/partition"
	"github.com/hupe1980/geocluster/protocol"
	"github.com/hupe1980/geocluster/workerpool"
)

// IterationStat describes one completed iteration.
type IterationStat struct {
	Iteration int
	Changed   bool

	// Inertia is the sum of squared distances of every point to the centroid
	// it was assigned to in this iteration.
	Inertia float64

	// Reseeded lists clusters that were empty and got a random point.
	Reseeded []int

	// Centroids are the centroids computed from this iteration, i.e. the
	// ones broadcast in the next one.
	Centroids [][3]float64
	Sizes     []int
	Duration  time.Duration
}

// Result is the outcome of a clustering run.
type Result struct {
	RunID      string
	State      core.State
	K          int
	Workers    int
	Iterations int

	// Clusters[c] lists the cities assigned to cluster c in input order.
	// Cities still unassigned are omitted.
	Clusters    [][]model.City
	Sizes       []int
	Centroids   [][3]float64
	Assignments []int32
	History     []IterationStat
	Duration    time.Duration
}

// Engine runs K-means.
type Engine struct {
	opts options
}

// New creates an Engine.
func New(optFns ...Option) *Engine {
	return &Engine{opts: applyOptions(optFns)}
}

// Run clusters cities into k groups.
//
// Input is validated before any worker starts. Cancellation is checked at the
// top of every iteration; a cancelled run returns the clusters of the last
// completed iteration together with core.ErrCancelled. Any worker failure
// aborts the run with an error wrapping core.ErrWorkerCommunication.
func (e *Engine) Run(ctx context.Context, cities []model.City, k int) (*Result, error) {
	o := e.opts
	n := len(cities)

	switch {
	case n == 0:
		return nil, core.Invalid("cities", "empty dataset")
	case k < 1:
		return nil, core.Invalid("k", "must be at least 1, got %d", k)
	case k > n:
		return nil, core.Invalid("k", "%d exceeds the number of cities (%d)", k, n)
	case o.workers < 1:
		return nil, core.Invalid("workers", "must be at least 1, got %d", o.workers)
	case o.maxIterations < 1:
		return nil, core.Invalid("maxIterations", "must be at least 1, got %d", o.maxIterations)
	}

	began := time.Now()
	run := core.NewRunState()
	log := o.logger.WithRun(run.ID).WithComponent("cluster").WithK(k)

	run.Transition(core.StateInitializing)

	points := Normalize(cities)
	table := NewAssignmentTable(n)
	ranges := partition.Contiguous(n, o.workers)

	res := &Result{RunID: run.ID.String(), K: k, Workers: len(ranges)}

	pool := workerpool.New(workerpool.WithLogger(log))
	defer pool.Wait()
	defer pool.TerminateAll()

	// Workers may still be writing their regions when a step is abandoned;
	// the table is read only after they have exited.
	finish := func(state core.State, centroids [][3]float64, err error) (*Result, error) {
		pool.TerminateAll()
		pool.Wait()

		run.Transition(state)
		res.State = run.State()
		res.Iterations = run.Iteration
		res.Centroids = centroids
		res.Assignments = table
		res.Clusters, res.Sizes = group(cities, table, k)
		res.Duration = time.Since(began)

		log.LogRunFinished(ctx, res.State.String(), res.Duration, err)
		o.metrics.RecordRun("cluster", res.State.String(), res.Duration)
		return res, err
	}
	fail := func(centroids [][3]float64, err error) (*Result, error) {
		if ctx.Err() != nil {
			run.Cancel()
			return finish(core.StateCancelled, centroids, core.ErrCancelled)
		}
		var we *core.WorkerError
		if errors.As(err, &we) {
			o.metrics.RecordWorkerError("cluster")
		}
		return finish(core.StateFailed, centroids, err)
	}

	handles, err := pool.Spawn(ctx, len(ranges), func(id int) (workerpool.Handler, error) {
		return newAssigner(id), nil
	})
	if err != nil {
		return fail(nil, err)
	}

	run.Workers = make([]int, len(handles))
	inits := make([]protocol.Init, len(handles))
	for i, h := range handles {
		run.Workers[i] = h.ID
		inits[i] = protocol.Init{
			ID:          h.ID,
			K:           k,
			Points:      points,
			Assignments: table,
			RangeStart:  ranges[i].Start,
			RangeEnd:    ranges[i].End,
		}
	}
	if err := pool.InitializeAll(ctx, handles, inits); err != nil {
		return fail(nil, err)
	}

	seed := o.runSeed()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	centroids, _ := InitialCentroids(points, k, rng)

	run.Transition(core.StateIterating)
	log.InfoContext(ctx, "clustering started",
		"points", n,
		"workers", len(handles),
		"max_iterations", o.maxIterations,
	)

	for {
		if ctx.Err() != nil {
			run.Cancel()
			return finish(core.StateCancelled, centroids, core.ErrCancelled)
		}

		run.Iteration++
		iterStart := time.Now()

		partials, err := step(ctx, pool, handles, run.Iteration, centroids)
		if err != nil {
			return fail(centroids, err)
		}

		red, err := Reduce(k, partials)
		if err != nil {
			return fail(centroids, fmt.Errorf("reduce iteration %d: %w: %v", run.Iteration, core.ErrWorkerCommunication, err))
		}

		next, reseeded := UpdateCentroids(red, points, rng)
		centroids = next

		stat := IterationStat{
			Iteration: run.Iteration,
			Changed:   red.Changed,
			Inertia:   red.Inertia,
			Reseeded:  reseeded,
			Centroids: next,
			Sizes:     red.Counts,
			Duration:  time.Since(iterStart),
		}
		res.History = append(res.History, stat)

		log.LogIteration(ctx, stat.Iteration, stat.Inertia, stat.Changed, len(reseeded))
		o.metrics.RecordIteration(stat.Iteration, stat.Inertia, len(reseeded), stat.Duration)
		if o.hook != nil {
			o.hook(stat)
		}

		if !red.Changed {
			return finish(core.StateConverged, centroids, nil)
		}
		if run.Iteration >= o.maxIterations {
			return finish(core.StateMaxIterReached, centroids, nil)
		}
	}
}

// step broadcasts the centroids and waits for every worker's partial. This is
// the iteration barrier: partials are returned in worker order.
func step(ctx context.Context, pool *workerpool.Pool, handles []*workerpool.Handle, iteration int, centroids [][3]float64) ([]protocol.Partial, error) {
	partials := make([]protocol.Partial, len(handles))

	g, gctx := errgroup.WithContext(ctx)
	for i, h := range handles {
		g.Go(func() error {
			resp, err := pool.DispatchAndAwait(gctx, h, protocol.Step{
				ID:        h.ID,
				Iteration: iteration,
				Centroids: centroids,
			})
			if err != nil {
				return err
			}
			partial, ok := resp.(protocol.Partial)
			if !ok {
				return core.NewWorkerError(h.ID, "unexpected "+resp.Kind()+" during step", nil)
			}
			partials[i] = partial
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return partials, nil
}

func group(cities []model.City, table AssignmentTable, k int) ([][]model.City, []int) {
	clusters := make([][]model.City, k)
	sizes := make([]int, k)
	for i, a := range table {
		if a < 0 || int(a) >= k {
			continue
		}
		clusters[a] = append(clusters[a], cities[i])
		sizes[a]++
	}
	return clusters, sizes
}
