package cluster

import (
	"runtime"
	"time"

	"github.com/hupe1980/geocluster/logging"
	"github.com/hupe1980/geocluster/metrics"
)

const (
	// DefaultMaxIterations bounds a run.
	DefaultMaxIterations = 100

	// MaxDefaultWorkers caps the default worker count.
	MaxDefaultWorkers = 8
)

type options struct {
	workers       int
	maxIterations int
	seed          uint64
	seedSet       bool
	hook          func(IterationStat)
	logger        *logging.Logger
	metrics       metrics.Collector
}

// Option configures an Engine.
type Option func(*options)

// WithWorkers sets the number of assignment workers. 1 runs the assignment
// step on a single worker. The effective count never exceeds the number of
// points.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMaxIterations sets the iteration bound. Default 100.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		o.maxIterations = n
	}
}

// WithSeed makes the initial centroid choice and reseeding deterministic.
// Without it every Run derives a fresh seed from the clock.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seedSet = true
	}
}

// WithIterationHook registers a callback invoked by the coordinator after
// every iteration.
func WithIterationHook(fn func(IterationStat)) Option {
	return func(o *options) {
		o.hook = fn
	}
}

// WithLogger configures structured logging.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics configures the metrics collector.
func WithMetrics(c metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		workers:       min(runtime.GOMAXPROCS(0), MaxDefaultWorkers),
		maxIterations: DefaultMaxIterations,
		logger:        logging.NoopLogger(),
		metrics:       metrics.Noop{},
	}
	for _, fn := range optFns {
		fn(&o)
	}
	o.logger = logging.OrNoop(o.logger)
	o.metrics = metrics.OrNoop(o.metrics)
	return o
}

// runSeed returns the seed for one Run.
func (o *options) runSeed() uint64 {
	if o.seedSet {
		return o.seed
	}
	return uint64(time.Now().UnixNano())
}
