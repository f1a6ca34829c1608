package geocluster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hupe1980/geocluster/blobstore"
	"github.com/hupe1980/geocluster/cluster"
	"github.com/hupe1980/geocluster/compress"
	"github.com/hupe1980/geocluster/core"
	"github.com/hupe1980/geocluster/export"
	"github.com/hupe1980/geocluster/fetch"
	"github.com/hupe1980/geocluster/metrics"
	"github.com/hupe1980/geocluster/source"
	"github.com/hupe1980/geocluster/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPipeline_FetchSaveLoadCluster(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(7)
	src := testutil.NewSource(rng.ClusteredCities(60, 3, 0.5))
	stats := &metrics.Basic{}
	store := blobstore.NewMemoryStore()

	p := New(
		WithSource(src.Factory()),
		WithStore(store),
		WithMetricsCollector(stats),
		WithFetchOptions(fetch.WithPerRequestDelay(0), fetch.WithWorkers(3)),
		WithClusterOptions(cluster.WithSeed(1), cluster.WithWorkers(2)),
		WithExportOptions(export.WithCompression(compress.Zstd)),
	)

	res, name, err := p.FetchAndSave(ctx, 55)
	require.NoError(t, err)
	assert.Equal(t, core.StateCompleted, res.State)
	assert.Len(t, res.Records, 55)
	assert.Equal(t, "cities-55.json.zst", name)

	cities, err := p.Load(ctx, "")
	require.NoError(t, err)
	require.Len(t, cities, 55)

	out, err := p.Cluster(ctx, cities, 3)
	require.NoError(t, err)
	assert.Len(t, out.Clusters, 3)

	total := 0
	for _, size := range out.Sizes {
		total += size
	}
	assert.Equal(t, 55, total)

	s := stats.Stats()
	assert.Equal(t, int64(6), s.Pages)
	assert.Equal(t, int64(2), s.Runs)
	assert.Positive(t, s.Iterations)
}

func TestPipeline_CancelledFetchStillSaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := testutil.NewSource(testutil.NewRNG(1).Cities(100))
	p := New(
		WithSource(src.Factory()),
		WithFetchOptions(
			fetch.WithPerRequestDelay(0),
			fetch.WithProgress(func(pr fetch.Progress) {
				if pr.Pages == 2 {
					cancel()
				}
			}),
		),
	)

	res, name, err := p.FetchAndSave(ctx, 100)
	require.ErrorIs(t, err, ErrCancelled)
	require.NotNil(t, res)
	assert.NotEmpty(t, name)

	loaded, err := p.Load(context.Background(), name)
	require.NoError(t, err)
	assert.Len(t, loaded, len(res.Records))
}

func TestPipeline_LoadEmptyStore(t *testing.T) {
	_, err := New().Load(context.Background(), "")
	assert.ErrorIs(t, err, export.ErrNoExports)
}

func TestFetch_InvalidTarget(t *testing.T) {
	src := testutil.NewSource(nil)
	_, err := Fetch(context.Background(), 0, WithSource(src.Factory()))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCluster_KGreaterThanN(t *testing.T) {
	cities := testutil.NewRNG(1).Cities(2)
	_, err := Cluster(context.Background(), cities, 3)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPipeline_Credentials(t *testing.T) {
	var got source.Credentials
	factory := func(c source.Credentials) (source.Source, error) {
		got = c
		return testutil.NewSource(testutil.NewRNG(1).Cities(10)), nil
	}

	_, err := Fetch(context.Background(), 5,
		WithSource(factory),
		WithCredentials(source.Credentials{APIKey: "k"}),
		WithFetchOptions(fetch.WithPerRequestDelay(time.Duration(0))),
	)
	require.NoError(t, err)
	assert.Equal(t, "k", got.APIKey)
}
