// Package config provides process configuration for the geocluster CLI.
//
// Configuration can be loaded from:
//   - Environment variables (recommended for containers)
//   - YAML configuration file
//   - Programmatic defaults
//
// Environment variables override file values:
//
//	GEOCLUSTER_API_KEY             - upstream API key
//	GEOCLUSTER_BASE_URL            - upstream base URL
//	GEOCLUSTER_HOST                - upstream host header
//	GEOCLUSTER_TARGET              - records to fetch (default: 10000)
//	GEOCLUSTER_PAGE_SIZE           - records per request (default: 10)
//	GEOCLUSTER_WORKERS             - fetch workers (default: 1)
//	GEOCLUSTER_REQUEST_DELAY       - per-request delay (default: 1200ms)
//	GEOCLUSTER_RPS                 - global request rate, 0 disables (default: 0)
//	GEOCLUSTER_DEDUP               - drop duplicate ids (default: false)
//	GEOCLUSTER_K                   - cluster count (default: 5)
//	GEOCLUSTER_MAX_ITERATIONS      - iteration cap (default: 100)
//	GEOCLUSTER_CLUSTER_WORKERS     - cluster workers, 0 is automatic
//	GEOCLUSTER_SEED                - RNG seed, 0 is random
//	GEOCLUSTER_OUTPUT_BACKEND      - local, memory, s3 or minio (default: local)
//	GEOCLUSTER_OUTPUT_DIR          - local directory (default: .)
//	GEOCLUSTER_OUTPUT_BUCKET       - s3/minio bucket
//	GEOCLUSTER_OUTPUT_PREFIX       - key prefix inside the bucket
//	GEOCLUSTER_OUTPUT_COMPRESSION  - none, zstd or lz4 (default: none)
//	GEOCLUSTER_OUTPUT_CODEC        - go-json or json (default: go-json)
//	GEOCLUSTER_OUTPUT_INDENT       - pretty-print JSON (default: true)
//	GEOCLUSTER_MINIO_ENDPOINT      - minio endpoint
//	GEOCLUSTER_MINIO_ACCESS_KEY    - minio access key
//	GEOCLUSTER_MINIO_SECRET_KEY    - minio secret key
//	GEOCLUSTER_MINIO_SECURE        - use TLS (default: true)
//	GEOCLUSTER_LOG_LEVEL           - debug, info, warn, error (default: info)
//	GEOCLUSTER_LOG_FORMAT          - text or json (default: text)
//	GEOCLUSTER_METRICS_ADDR        - serve /metrics on this address
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/geocluster/codec"
	"github.com/hupe1980/geocluster/compress"
	"github.com/hupe1980/geocluster/source"
	"gopkg.in/yaml.v3"
)

const envPrefix = "GEOCLUSTER_"

// Output backends.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendS3     = "s3"
	BackendMinio  = "minio"
)

// Config is the full process configuration.
//
// Example:
//
//	// Load from environment
//	cfg := config.LoadFromEnv()
//
//	// Or load from YAML file, then apply env overrides
//	cfg, err := config.Load("./geocluster.yaml")
type Config struct {
	Source  source.Credentials `yaml:"source"`
	Fetch   FetchConfig        `yaml:"fetch"`
	Cluster ClusterConfig      `yaml:"cluster"`
	Output  OutputConfig       `yaml:"output"`
	Log     LogConfig          `yaml:"log"`
	Metrics MetricsConfig      `yaml:"metrics"`
}

// FetchConfig configures the bulk loader.
type FetchConfig struct {
	Target            int           `yaml:"target"`
	PageSize          int           `yaml:"page_size"`
	Workers           int           `yaml:"workers"`
	PerRequestDelay   time.Duration `yaml:"per_request_delay"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	MaxAttempts       int           `yaml:"max_attempts"`
	Dedup             bool          `yaml:"dedup"`
}

// ClusterConfig configures k-means.
type ClusterConfig struct {
	K             int    `yaml:"k"`
	MaxIterations int    `yaml:"max_iterations"`
	Workers       int    `yaml:"workers"`
	Seed          uint64 `yaml:"seed"`
}

// OutputConfig selects where record sets are stored.
type OutputConfig struct {
	Backend     string      `yaml:"backend"`
	Dir         string      `yaml:"dir"`
	Bucket      string      `yaml:"bucket"`
	Prefix      string      `yaml:"prefix"`
	Compression string      `yaml:"compression"`
	Codec       string      `yaml:"codec"`
	Indent      bool        `yaml:"indent"`
	Minio       MinioConfig `yaml:"minio"`
}

// MinioConfig holds connection settings for the minio backend.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the defaults used by the bulk loader and k-means.
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			Target:          10000,
			PageSize:        10,
			Workers:         1,
			PerRequestDelay: 1200 * time.Millisecond,
			MaxAttempts:     5,
		},
		Cluster: ClusterConfig{
			K:             5,
			MaxIterations: 100,
		},
		Output: OutputConfig{
			Backend:     BackendLocal,
			Dir:         ".",
			Compression: "none",
			Codec:       "go-json",
			Indent:      true,
			Minio:       MinioConfig{Secure: true},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromEnv returns DefaultConfig with environment overrides applied.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg
}

// LoadConfig loads configuration from a YAML file. Fields missing from the
// file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads path (if not empty) and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from GEOCLUSTER_* environment variables.
// Unparsable values are ignored.
func (c *Config) ApplyEnv() {
	envString("API_KEY", &c.Source.APIKey)
	envString("BASE_URL", &c.Source.BaseURL)
	envString("HOST", &c.Source.Host)

	envInt("TARGET", &c.Fetch.Target)
	envInt("PAGE_SIZE", &c.Fetch.PageSize)
	envInt("WORKERS", &c.Fetch.Workers)
	envDuration("REQUEST_DELAY", &c.Fetch.PerRequestDelay)
	envFloat("RPS", &c.Fetch.RequestsPerSecond)
	envInt("MAX_ATTEMPTS", &c.Fetch.MaxAttempts)
	envBool("DEDUP", &c.Fetch.Dedup)

	envInt("K", &c.Cluster.K)
	envInt("MAX_ITERATIONS", &c.Cluster.MaxIterations)
	envInt("CLUSTER_WORKERS", &c.Cluster.Workers)
	if v := os.Getenv(envPrefix + "SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Cluster.Seed = seed
		}
	}

	envString("OUTPUT_BACKEND", &c.Output.Backend)
	envString("OUTPUT_DIR", &c.Output.Dir)
	envString("OUTPUT_BUCKET", &c.Output.Bucket)
	envString("OUTPUT_PREFIX", &c.Output.Prefix)
	envString("OUTPUT_COMPRESSION", &c.Output.Compression)
	envString("OUTPUT_CODEC", &c.Output.Codec)
	envBool("OUTPUT_INDENT", &c.Output.Indent)
	envString("MINIO_ENDPOINT", &c.Output.Minio.Endpoint)
	envString("MINIO_ACCESS_KEY", &c.Output.Minio.AccessKey)
	envString("MINIO_SECRET_KEY", &c.Output.Minio.SecretKey)
	envBool("MINIO_SECURE", &c.Output.Minio.Secure)

	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)
	envString("METRICS_ADDR", &c.Metrics.Addr)
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if c.Fetch.Target < 0 {
		errs = append(errs, errors.New("fetch.target must not be negative"))
	}
	if c.Fetch.PageSize < 1 {
		errs = append(errs, errors.New("fetch.page_size must be positive"))
	}
	if c.Fetch.Workers < 1 {
		errs = append(errs, errors.New("fetch.workers must be positive"))
	}
	if c.Fetch.PerRequestDelay < 0 {
		errs = append(errs, errors.New("fetch.per_request_delay must not be negative"))
	}
	if c.Cluster.K < 1 {
		errs = append(errs, errors.New("cluster.k must be positive"))
	}
	if c.Cluster.MaxIterations < 1 {
		errs = append(errs, errors.New("cluster.max_iterations must be positive"))
	}
	switch c.Output.Backend {
	case BackendLocal, BackendMemory:
	case BackendS3, BackendMinio:
		if c.Output.Bucket == "" {
			errs = append(errs, fmt.Errorf("output.bucket is required for backend %q", c.Output.Backend))
		}
		if c.Output.Backend == BackendMinio && c.Output.Minio.Endpoint == "" {
			errs = append(errs, errors.New("output.minio.endpoint is required for backend \"minio\""))
		}
	default:
		errs = append(errs, fmt.Errorf("output.backend %q is not one of local, memory, s3, minio", c.Output.Backend))
	}
	if _, err := compress.Parse(c.Output.Compression); err != nil {
		errs = append(errs, err)
	}
	if _, ok := codec.ByName(c.Output.Codec); !ok {
		errs = append(errs, fmt.Errorf("output.codec %q is not one of %s", c.Output.Codec, strings.Join(codec.Names(), ", ")))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}
	return errors.Join(errs...)
}

func envString(key string, dst *string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	// Bare integers are milliseconds.
	if ms, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(ms) * time.Millisecond
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = parseBool(v, *dst)
	}
}

// parseBool parses a boolean from string with a default value.
func parseBool(s string, defaultVal bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultVal
	}
}
