package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hupe1980/geocluster"
	"github.com/hupe1980/geocluster/blobstore"
	"github.com/hupe1980/geocluster/blobstore/minio"
	"github.com/hupe1980/geocluster/blobstore/s3"
	"github.com/hupe1980/geocluster/codec"
	"github.com/hupe1980/geocluster/compress"
	"github.com/hupe1980/geocluster/config"
	"github.com/hupe1980/geocluster/export"
	"github.com/hupe1980/geocluster/logging"
	"github.com/hupe1980/geocluster/metrics"
	"github.com/hupe1980/geocluster/metrics/prom"
	"github.com/hupe1980/geocluster/source/geodb"
)

// sourceFactory builds the upstream source for fetch and fetch --page.
var sourceFactory = geodb.Factory()

// env is everything a command needs, built from config and flags.
type env struct {
	cfg      *config.Config
	logger   *logging.Logger
	metrics  metrics.Collector
	store    blobstore.Store
	pipeline *geocluster.Pipeline

	shutdown func()
}

func (e *env) Close() {
	if e.shutdown != nil {
		e.shutdown()
	}
}

// loadConfig reads --config and the environment, then applies persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()

	if v, _ := cmd.Flags().GetString("metrics-addr"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		cfg.Output.Backend = config.BackendLocal
		cfg.Output.Dir = v
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) *logging.Logger {
	level := logging.ParseLevel(cfg.Level)
	if strings.EqualFold(cfg.Format, "json") {
		return logging.NewJSONLogger(level)
	}
	return logging.NewTextLogger(level)
}

// openStore builds the configured output store.
func openStore(ctx context.Context, cfg config.OutputConfig) (blobstore.Store, error) {
	switch cfg.Backend {
	case config.BackendLocal, "":
		return blobstore.NewLocalStore(cfg.Dir), nil
	case config.BackendMemory:
		return blobstore.NewMemoryStore(), nil
	case config.BackendS3:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return s3.NewStore(awss3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
	case config.BackendMinio:
		return minio.Dial(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Secure, cfg.Bucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown output backend %q", cfg.Backend)
	}
}

// serveMetrics registers a Prometheus collector on a private registry and
// serves it on addr. The returned func shuts the server down.
func serveMetrics(addr string, logger *logging.Logger) (metrics.Collector, func(), error) {
	reg := prometheus.NewRegistry()
	col, err := prom.New(reg)
	if err != nil {
		return nil, nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return col, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func exportOptions(cfg config.OutputConfig, logger *logging.Logger) ([]export.Option, error) {
	c, err := compress.Parse(cfg.Compression)
	if err != nil {
		return nil, err
	}
	cd, ok := codec.ByName(cfg.Codec)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", cfg.Codec)
	}
	return []export.Option{
		export.WithCompression(c),
		export.WithCodec(cd),
		export.WithIndent(cfg.Indent),
		export.WithLogger(logger),
	}, nil
}

// newEnv validates cfg and opens the store, logger and metrics.
func newEnv(ctx context.Context, cfg *config.Config, extra ...geocluster.Option) (*env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, logger: newLogger(cfg.Log)}

	if cfg.Metrics.Addr != "" {
		col, shutdown, err := serveMetrics(cfg.Metrics.Addr, e.logger)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		e.metrics, e.shutdown = col, shutdown
	}

	store, err := openStore(ctx, cfg.Output)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.store = store

	exportOpts, err := exportOptions(cfg.Output, e.logger)
	if err != nil {
		e.Close()
		return nil, err
	}

	optFns := append([]geocluster.Option{
		geocluster.WithSource(sourceFactory),
		geocluster.WithCredentials(cfg.Source),
		geocluster.WithStore(store),
		geocluster.WithLogger(e.logger),
		geocluster.WithMetricsCollector(e.metrics),
		geocluster.WithExportOptions(exportOpts...),
	}, extra...)
	e.pipeline = geocluster.New(optFns...)
	return e, nil
}
