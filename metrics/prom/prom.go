// Package prom exposes engine metrics to Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/geocluster/metrics"
)

var _ metrics.Collector = (*Collector)(nil)

// Collector implements metrics.Collector with Prometheus instruments.
type Collector struct {
	pages        prometheus.Counter
	records      prometheus.Counter
	retries      *prometheus.CounterVec
	workerErrors *prometheus.CounterVec
	iterations   prometheus.Counter
	iterLatency  prometheus.Histogram
	inertia      prometheus.Gauge
	reseeds      prometheus.Counter
	runs         *prometheus.CounterVec
	runLatency   *prometheus.HistogramVec
}

// New creates a Collector and registers it with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geocluster_fetch_pages_total",
			Help: "Pages received by the fetch coordinator",
		}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geocluster_fetch_records_total",
			Help: "Records received by the fetch coordinator",
		}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geocluster_fetch_retries_total",
			Help: "Retried upstream requests",
		}, []string{"reason"}),
		workerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geocluster_worker_errors_total",
			Help: "Workers that ended with an error",
		}, []string{"engine"}),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geocluster_cluster_iterations_total",
			Help: "Completed clustering iterations",
		}),
		iterLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "geocluster_cluster_iteration_seconds",
			Help:    "Latency of one clustering iteration",
			Buckets: prometheus.DefBuckets,
		}),
		inertia: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geocluster_cluster_inertia",
			Help: "Sum of squared distances after the last iteration",
		}),
		reseeds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geocluster_cluster_reseeds_total",
			Help: "Empty clusters reseeded to a random point",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geocluster_runs_total",
			Help: "Runs by engine and terminal state",
		}, []string{"engine", "state"}),
		runLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geocluster_run_seconds",
			Help:    "Run duration by engine",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"engine"}),
	}

	for _, col := range []prometheus.Collector{
		c.pages, c.records, c.retries, c.workerErrors, c.iterations,
		c.iterLatency, c.inertia, c.reseeds, c.runs, c.runLatency,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// RecordPage implements metrics.Collector.
func (c *Collector) RecordPage(records int, _ time.Duration) {
	c.pages.Inc()
	c.records.Add(float64(records))
}

// RecordRetry implements metrics.Collector.
func (c *Collector) RecordRetry(_ int, rateLimited bool) {
	reason := "error"
	if rateLimited {
		reason = "rate_limited"
	}
	c.retries.WithLabelValues(reason).Inc()
}

// RecordWorkerError implements metrics.Collector.
func (c *Collector) RecordWorkerError(engine string) {
	c.workerErrors.WithLabelValues(engine).Inc()
}

// RecordIteration implements metrics.Collector.
func (c *Collector) RecordIteration(_ int, inertia float64, reseeded int, d time.Duration) {
	c.iterations.Inc()
	c.iterLatency.Observe(d.Seconds())
	c.inertia.Set(inertia)
	c.reseeds.Add(float64(reseeded))
}

// RecordRun implements metrics.Collector.
func (c *Collector) RecordRun(engine, state string, d time.Duration) {
	c.runs.WithLabelValues(engine, state).Inc()
	c.runLatency.WithLabelValues(engine).Observe(d.Seconds())
}
