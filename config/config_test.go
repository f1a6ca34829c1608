package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10000, cfg.Fetch.Target)
	assert.Equal(t, 10, cfg.Fetch.PageSize)
	assert.Equal(t, 1, cfg.Fetch.Workers)
	assert.Equal(t, 1200*time.Millisecond, cfg.Fetch.PerRequestDelay)
	assert.Equal(t, 100, cfg.Cluster.MaxIterations)
	assert.Equal(t, BackendLocal, cfg.Output.Backend)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source:
  api_key: secret
fetch:
  target: 25
  workers: 4
  per_request_delay: 500ms
cluster:
  k: 3
  seed: 42
output:
  backend: minio
  bucket: cities
  compression: zstd
  minio:
    endpoint: localhost:9000
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Source.APIKey)
	assert.Equal(t, 25, cfg.Fetch.Target)
	assert.Equal(t, 4, cfg.Fetch.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetch.PerRequestDelay)
	// Unspecified fields keep defaults.
	assert.Equal(t, 10, cfg.Fetch.PageSize)
	assert.Equal(t, 3, cfg.Cluster.K)
	assert.Equal(t, uint64(42), cfg.Cluster.Seed)
	assert.Equal(t, "zstd", cfg.Output.Compression)
	assert.True(t, cfg.Output.Minio.Secure)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch: [1, 2"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GEOCLUSTER_API_KEY", "env-key")
	t.Setenv("GEOCLUSTER_WORKERS", "3")
	t.Setenv("GEOCLUSTER_REQUEST_DELAY", "250")
	t.Setenv("GEOCLUSTER_RPS", "2.5")
	t.Setenv("GEOCLUSTER_DEDUP", "yes")
	t.Setenv("GEOCLUSTER_SEED", "7")
	t.Setenv("GEOCLUSTER_PAGE_SIZE", "not-a-number")
	t.Setenv("GEOCLUSTER_MINIO_SECURE", "off")

	cfg := LoadFromEnv()
	assert.Equal(t, "env-key", cfg.Source.APIKey)
	assert.Equal(t, 3, cfg.Fetch.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Fetch.PerRequestDelay)
	assert.Equal(t, 2.5, cfg.Fetch.RequestsPerSecond)
	assert.True(t, cfg.Fetch.Dedup)
	assert.Equal(t, uint64(7), cfg.Cluster.Seed)
	assert.Equal(t, 10, cfg.Fetch.PageSize)
	assert.False(t, cfg.Output.Minio.Secure)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cluster:\n  k: 3\n"), 0o600))
	t.Setenv("GEOCLUSTER_K", "8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Cluster.K)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fetch.PageSize = 0
	cfg.Cluster.K = 0
	cfg.Output.Backend = "s3"
	cfg.Output.Compression = "brotli"
	cfg.Output.Codec = "xml"
	cfg.Log.Format = "yaml"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"page_size", "cluster.k", "bucket", "brotli", "xml", "log.format"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestParseBool(t *testing.T) {
	assert.True(t, parseBool("ON", false))
	assert.False(t, parseBool("0", true))
	assert.True(t, parseBool("maybe", true))
}
