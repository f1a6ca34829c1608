// Package main provides the geocluster CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "geocluster",
		Short: "Fetch cities from GeoDB and cluster them with parallel K-means",
		Long: `geocluster bulk-loads city records from a rate-limited, paginated API
with a pool of fetch workers, stores them as cities-<n>.json, and clusters
them by latitude, longitude and log population.

Configuration is read from --config (YAML) and GEOCLUSTER_* environment
variables; flags override both. Ctrl-C cancels a running command and keeps
the partial result.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("output-dir", "", "Directory of the local output store")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "geocluster v%s (%s)\n", version, commit)
		},
	})

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Bulk-load cities and save them",
		RunE:  runFetch,
	}
	fetchCmd.Flags().Int("target", 0, "Number of records to fetch")
	fetchCmd.Flags().Int("page-size", 0, "Records per request")
	fetchCmd.Flags().Int("workers", 0, "Concurrent fetch workers")
	fetchCmd.Flags().Duration("delay", 0, "Delay between requests of one worker")
	fetchCmd.Flags().Float64("rps", 0, "Global request rate limit (0 disables)")
	fetchCmd.Flags().Bool("dedup", false, "Drop records with duplicate ids")
	fetchCmd.Flags().String("compression", "", "Output compression (none, zstd, lz4)")
	fetchCmd.Flags().Int("page", -1, "Fetch and print a single page instead of bulk loading")
	rootCmd.AddCommand(fetchCmd)

	clusterCmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster a saved record set",
		RunE:  runCluster,
	}
	clusterCmd.Flags().Int("k", 0, "Number of clusters")
	clusterCmd.Flags().String("input", "", "Record set to load (default: the largest saved one)")
	clusterCmd.Flags().Int("max-iterations", 0, "Iteration cap")
	clusterCmd.Flags().Int("workers", 0, "Cluster workers (0 is automatic)")
	clusterCmd.Flags().Uint64("seed", 0, "RNG seed (0 is random)")
	clusterCmd.Flags().Int("show", 10, "Cities printed per cluster (0 prints all)")
	rootCmd.AddCommand(clusterCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved record sets",
		RunE:  runList,
	}
	rootCmd.AddCommand(listCmd)

	return rootCmd
}
