package fetch

import (
	"time"

	"github.com/hupe1980/geocluster/logging"
	"github.com/hupe1980/geocluster/metrics"
	"github.com/hupe1980/geocluster/resource"
	"github.com/hupe1980/geocluster/retry"
	"github.com/hupe1980/geocluster/source"
)

const (
	// DefaultPageSize is the largest page the free GeoDB plan serves.
	DefaultPageSize = 10

	// DefaultPerRequestDelay keeps a single worker around one request per
	// second.
	DefaultPerRequestDelay = 1200 * time.Millisecond

	// DefaultWorkers is the number of fetch workers.
	DefaultWorkers = 1
)

type options struct {
	pageSize        int
	perRequestDelay time.Duration
	workers         int
	sort            string
	credentials     source.Credentials
	policy          retry.Policy
	policySet       bool
	controller      *resource.Controller
	dedup           bool
	progress        func(Progress)
	logger          *logging.Logger
	metrics         metrics.Collector
}

// Option configures an Engine.
type Option func(*options)

// WithPageSize sets the number of records requested per page.
func WithPageSize(n int) Option {
	return func(o *options) {
		o.pageSize = n
	}
}

// WithPerRequestDelay sets the pause between two requests of the same worker.
// Worker i also waits i times this delay before its first request.
//
// Unless WithRetryPolicy is given, it is also the base delay of the retry
// backoff.
func WithPerRequestDelay(d time.Duration) Option {
	return func(o *options) {
		o.perRequestDelay = d
	}
}

// WithWorkers sets the number of fetch workers. The effective count never
// exceeds the number of pages.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithSort sets the upstream sort key. Default source.DefaultSort.
func WithSort(key string) Option {
	return func(o *options) {
		o.sort = key
	}
}

// WithCredentials sets the credentials handed to every worker.
func WithCredentials(c source.Credentials) Option {
	return func(o *options) {
		o.credentials = c
	}
}

// WithRetryPolicy overrides the per-page retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *options) {
		o.policy = p
		o.policySet = true
	}
}

// WithController shares a resource controller (global request rate, active
// worker cap) with the engine.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithRequestsPerSecond installs a controller that limits all workers of a
// run to rps upstream requests per second. Ignored if WithController is set.
func WithRequestsPerSecond(rps float64) Option {
	return func(o *options) {
		if o.controller == nil && rps > 0 {
			o.controller = resource.NewController(resource.Config{RequestsPerSecond: rps})
		}
	}
}

// WithDedup drops records whose id was already seen before truncating to the
// target.
func WithDedup(enabled bool) Option {
	return func(o *options) {
		o.dedup = enabled
	}
}

// WithProgress registers a callback invoked by the coordinator after every
// page.
func WithProgress(fn func(Progress)) Option {
	return func(o *options) {
		o.progress = fn
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
		pageSize:        DefaultPageSize,
		perRequestDelay: DefaultPerRequestDelay,
		workers:         DefaultWorkers,
		sort:            source.DefaultSort,
		logger:          logging.NoopLogger(),
		metrics:         metrics.Noop{},
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if !o.policySet {
		o.policy = retry.Policy{BaseDelay: o.perRequestDelay}
	}
	o.logger = logging.OrNoop(o.logger)
	o.metrics = metrics.OrNoop(o.metrics)
	return o
}
