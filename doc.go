// Package geocluster fetches city records from a rate-limited, paginated API
// and clusters them with parallel K-means.
//
// Both engines run on the same worker-pool core: the bulk loader partitions
// page offsets round-robin across fetch workers, and K-means partitions the
// normalized point buffer into contiguous regions, one per worker.
//
// # Quick Start
//
//	ctx := context.Background()
//	p := geocluster.New(
//	    geocluster.WithCredentials(source.Credentials{APIKey: key}),
//	    geocluster.WithStore(blobstore.NewLocalStore("./data")),
//	)
//
//	res, name, err := p.FetchAndSave(ctx, 10000)
//	cities, err := p.Load(ctx, name)
//	clusters, err := p.Cluster(ctx, cities, 8)
//
// # Engines
//
// The packages fetch and cluster can be used directly:
//
//	res, err := fetch.New(geodb.Factory(), fetch.WithWorkers(4)).Run(ctx, 500)
//	out, err := cluster.New(cluster.WithSeed(42)).Run(ctx, res.Records, 5)
//
// # Cancellation
//
// Cancelling ctx stops a run cooperatively. Fetch returns the records
// collected so far and clustering returns the clusters of the last completed
// iteration, both together with ErrCancelled.
//
// # Persistence
//
// Record sets are written as cities-<n>.json (optionally .zst or .lz4) to any
// blobstore.Store: local disk, memory, S3 or MinIO.
package geocluster
