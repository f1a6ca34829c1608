package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/geocluster/logging"
	"github.com/hupe1980/geocluster/metrics"
	"github.com/hupe1980/geocluster/model"
	"github.com/hupe1980/geocluster/protocol"
	"github.com/hupe1980/geocluster/resource"
	"github.com/hupe1980/geocluster/retry"
	"github.com/hupe1980/geocluster/source"
	"github.com/hupe1980/geocluster/workerpool"
)

// worker fetches the offsets of one Start request sequentially.
type worker struct {
	id         int
	factory    source.Factory
	sort       string
	policy     retry.Policy
	controller *resource.Controller
	logger     *logging.Logger
	metrics    metrics.Collector
}

func newWorker(id int, factory source.Factory, o *options) *worker {
	w := &worker{
		id:         id,
		factory:    factory,
		sort:       o.sort,
		policy:     o.policy,
		controller: o.controller,
		logger:     o.logger.WithWorker(id),
		metrics:    o.metrics,
	}

	userHook := o.policy.OnRetry
	w.policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		w.logger.LogRetry(context.Background(), attempt, delay, err)
		w.metrics.RecordRetry(attempt, retry.IsRateLimited(err))
		if userHook != nil {
			userHook(attempt, delay, err)
		}
	}

	return w
}

// Handle implements workerpool.Handler.
func (w *worker) Handle(ctx context.Context, req protocol.Request, emit workerpool.Emit) error {
	start, ok := req.(protocol.Start)
	if !ok {
		return fmt.Errorf("fetch worker: unexpected %s request", req.Kind())
	}

	src, err := w.factory(start.Credentials)
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}

	if err := w.controller.AcquireWorker(ctx); err != nil {
		return err
	}
	defer w.controller.ReleaseWorker()

	if err := w.sleep(ctx, start.InitialDelay); err != nil {
		return err
	}

	total := 0
	for i, offset := range start.Offsets {
		data, err := w.fetchPage(ctx, src, offset, start.PageSize)
		skipped := errors.Is(err, retry.ErrGaveUp)
		if err != nil && !skipped {
			return fmt.Errorf("offset %d: %w", offset, err)
		}

		if !emit(protocol.Page{ID: w.id, Offset: offset, Data: data, Skipped: skipped}) {
			return ctx.Err()
		}
		total += len(data)

		if i < len(start.Offsets)-1 {
			if err := w.sleep(ctx, start.PerRequestDelay); err != nil {
				return err
			}
		}
	}

	emit(protocol.Done{ID: w.id, Total: total})
	return nil
}

func (w *worker) fetchPage(ctx context.Context, src source.Source, offset, limit int) ([]model.City, error) {
	q := source.Query{Offset: offset, Limit: limit, Sort: w.sort}

	return retry.Do(ctx, w.policy, func(ctx context.Context, _ int) ([]model.City, error) {
		if err := w.controller.AcquireRequest(ctx); err != nil {
			return nil, err
		}
		page, err := src.FindCities(ctx, q)
		if err != nil {
			return nil, err
		}
		return page.Data, nil
	})
}

func (w *worker) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return retry.Sleep(ctx, d)
}
