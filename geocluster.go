package geocluster

import (
	"context"
	"errors"

	"github.com/hupe1980/geocluster/blobstore"
	"github.com/hupe1980/geocluster/cluster"
	"github.com/hupe1980/geocluster/export"
	"github.com/hupe1980/geocluster/fetch"
	"github.com/hupe1980/geocluster/model"
)

// Pipeline wires the fetch engine, persistence and the cluster engine with a
// shared logger and metrics collector. It is safe for concurrent use.
type Pipeline struct {
	opts   options
	writer *export.Writer
	reader *export.Reader
}

// New creates a Pipeline.
func New(optFns ...Option) *Pipeline {
	o := applyOptions(optFns)

	exportOpts := append([]export.Option{export.WithLogger(o.logger)}, o.exportOpts...)
	return &Pipeline{
		opts:   o,
		writer: export.NewWriter(o.store, exportOpts...),
		reader: export.NewReader(o.store, exportOpts...),
	}
}

// Store returns the store record sets are saved to.
func (p *Pipeline) Store() blobstore.Store { return p.opts.store }

// Fetch runs the bulk loader for target records.
func (p *Pipeline) Fetch(ctx context.Context, target int) (*fetch.Result, error) {
	optFns := append([]fetch.Option{
		fetch.WithCredentials(p.opts.credentials),
		fetch.WithLogger(p.opts.logger),
		fetch.WithMetrics(p.opts.metrics),
	}, p.opts.fetchOpts...)

	return fetch.New(p.opts.factory, optFns...).Run(ctx, target)
}

// Save stores cities and returns the stored name.
func (p *Pipeline) Save(ctx context.Context, cities []model.City) (string, error) {
	return p.writer.Save(ctx, cities)
}

// FetchAndSave fetches target records and saves what arrived.
//
// A cancelled fetch still saves its partial records and returns ErrCancelled.
// A failed fetch saves nothing.
func (p *Pipeline) FetchAndSave(ctx context.Context, target int) (*fetch.Result, string, error) {
	res, err := p.Fetch(ctx, target)
	if err != nil && !errors.Is(err, ErrCancelled) {
		return res, "", err
	}

	// The run context may be cancelled; saving must still go through.
	name, serr := p.Save(context.WithoutCancel(ctx), res.Records)
	if serr != nil {
		return res, "", serr
	}
	return res, name, err
}

// Load reads a saved record set. An empty name loads the largest one.
func (p *Pipeline) Load(ctx context.Context, name string) ([]model.City, error) {
	if name == "" {
		latest, err := p.reader.Latest(ctx)
		if err != nil {
			return nil, err
		}
		name = latest.Name
	}
	return p.reader.Load(ctx, name)
}

// List returns the saved record sets, largest first.
func (p *Pipeline) List(ctx context.Context) ([]export.Entry, error) {
	return p.reader.List(ctx)
}

// Cluster partitions cities into k clusters.
func (p *Pipeline) Cluster(ctx context.Context, cities []model.City, k int) (*cluster.Result, error) {
	optFns := append([]cluster.Option{
		cluster.WithLogger(p.opts.logger),
		cluster.WithMetrics(p.opts.metrics),
	}, p.opts.clusterOpts...)

	return cluster.New(optFns...).Run(ctx, cities, k)
}

// Fetch is a shorthand for New(optFns...).Fetch(ctx, target).
func Fetch(ctx context.Context, target int, optFns ...Option) (*fetch.Result, error) {
	return New(optFns...).Fetch(ctx, target)
}

// Cluster is a shorthand for New(optFns...).Cluster(ctx, cities, k).
func Cluster(ctx context.Context, cities []model.City, k int, optFns ...Option) (*cluster.Result, error) {
	return New(optFns...).Cluster(ctx, cities, k)
}
