package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/geocluster"
	"github.com/hupe1980/geocluster/cluster"
	"github.com/hupe1980/geocluster/config"
)

// applyClusterFlags copies explicitly set cluster flags onto cfg.
func applyClusterFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("k") {
		cfg.Cluster.K, _ = flags.GetInt("k")
	}
	if flags.Changed("max-iterations") {
		cfg.Cluster.MaxIterations, _ = flags.GetInt("max-iterations")
	}
	if flags.Changed("workers") {
		cfg.Cluster.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("seed") {
		cfg.Cluster.Seed, _ = flags.GetUint64("seed")
	}
}

func clusterOptions(cfg config.ClusterConfig, out io.Writer) []cluster.Option {
	optFns := []cluster.Option{
		cluster.WithMaxIterations(cfg.MaxIterations),
		cluster.WithIterationHook(func(s cluster.IterationStat) {
			fmt.Fprintf(out, "\riteration %d inertia %.6f", s.Iteration, s.Inertia)
		}),
	}
	if cfg.Workers > 0 {
		optFns = append(optFns, cluster.WithWorkers(cfg.Workers))
	}
	if cfg.Seed != 0 {
		optFns = append(optFns, cluster.WithSeed(cfg.Seed))
	}
	return optFns
}

func runCluster(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyClusterFlags(cmd, cfg)

	e, err := newEnv(ctx, cfg, geocluster.WithClusterOptions(clusterOptions(cfg.Cluster, cmd.ErrOrStderr())...))
	if err != nil {
		return err
	}
	defer e.Close()

	input, _ := cmd.Flags().GetString("input")
	cities, err := e.pipeline.Load(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "loaded %d cities\n", len(cities))

	res, err := e.pipeline.Cluster(ctx, cities, cfg.Cluster.K)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil && !errors.Is(err, geocluster.ErrCancelled) {
		return err
	}

	show, _ := cmd.Flags().GetInt("show")
	printClusters(cmd.OutOrStdout(), res, show)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Clustering cancelled after %d iterations.\n", res.Iterations)
	}
	return nil
}

// printClusters writes a summary per cluster. show limits the cities listed
// per cluster; 0 lists all.
func printClusters(w io.Writer, res *cluster.Result, show int) {
	fmt.Fprintf(w, "%s after %d iterations (%s)\n", res.State, res.Iterations, res.Duration.Round(time.Millisecond))
	for i, members := range res.Clusters {
		fmt.Fprintf(w, "\nCluster %d – %d cities\n", i+1, len(members))
		n := len(members)
		if show > 0 {
			n = min(n, show)
		}
		for _, c := range members[:n] {
			fmt.Fprintf(w, "  %s\n", formatCity(c))
		}
		if n < len(members) {
			fmt.Fprintf(w, "  ... %d more\n", len(members)-n)
		}
	}
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	e, err := newEnv(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	entries, err := e.pipeline.List(cmd.Context())
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", entry.Name, entry.Records, entry.Compression)
	}
	return nil
}
