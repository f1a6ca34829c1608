package geocluster

import (
	"log/slog"

	"github.com/hupe1980/geocluster/blobstore"
	"github.com/hupe1980/geocluster/cluster"
	"github.com/hupe1980/geocluster/export"
	"github.com/hupe1980/geocluster/fetch"
	"github.com/hupe1980/geocluster/logging"
	"github.com/hupe1980/geocluster/metrics"
	"github.com/hupe1980/geocluster/source"
	"github.com/hupe1980/geocluster/source/geodb"
)

type options struct {
	factory     source.Factory
	credentials source.Credentials
	store       blobstore.Store
	fetchOpts   []fetch.Option
	clusterOpts []cluster.Option
	exportOpts  []export.Option
	logger      *logging.Logger
	metrics     metrics.Collector
}

// Option configures a Pipeline.
type Option func(*options)

// WithSource sets the source factory. Defaults to the GeoDB client.
func WithSource(f source.Factory) Option {
	return func(o *options) {
		if f != nil {
			o.factory = f
		}
	}
}

// WithCredentials sets the credentials handed to every fetch worker.
func WithCredentials(c source.Credentials) Option {
	return func(o *options) {
		o.credentials = c
	}
}

// WithStore sets where record sets are saved. Defaults to an in-memory store.
func WithStore(s blobstore.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithFetchOptions appends options for the fetch engine.
func WithFetchOptions(optFns ...fetch.Option) Option {
	return func(o *options) {
		o.fetchOpts = append(o.fetchOpts, optFns...)
	}
}

// WithClusterOptions appends options for the cluster engine.
func WithClusterOptions(optFns ...cluster.Option) Option {
	return func(o *options) {
		o.clusterOpts = append(o.clusterOpts, optFns...)
	}
}

// WithExportOptions appends options for saving and loading record sets.
func WithExportOptions(optFns ...export.Option) Option {
	return func(o *options) {
		o.exportOpts = append(o.exportOpts, optFns...)
	}
}

// WithMetricsCollector sets the metrics collector shared by both engines.
func WithMetricsCollector(mc metrics.Collector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

// WithLogger sets the logger shared by both engines.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel installs a text logger at level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = logging.NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		factory: geodb.Factory(),
	}
	for _, fn := range optFns {
		fn(&o)
	}
	o.logger = logging.OrNoop(o.logger)
	o.metrics = metrics.OrNoop(o.metrics)
	if o.store == nil {
		o.store = blobstore.NewMemoryStore()
	}
	return o
}
