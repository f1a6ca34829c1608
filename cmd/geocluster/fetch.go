package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/geocluster"
	"github.com/hupe1980/geocluster/config"
	"github.com/hupe1980/geocluster/fetch"
	"github.com/hupe1980/geocluster/model"
	"github.com/hupe1980/geocluster/retry"
	"github.com/hupe1980/geocluster/source"
)

// applyFetchFlags copies explicitly set fetch flags onto cfg.
func applyFetchFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("target") {
		cfg.Fetch.Target, _ = flags.GetInt("target")
	}
	if flags.Changed("page-size") {
		cfg.Fetch.PageSize, _ = flags.GetInt("page-size")
	}
	if flags.Changed("workers") {
		cfg.Fetch.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("delay") {
		cfg.Fetch.PerRequestDelay, _ = flags.GetDuration("delay")
	}
	if flags.Changed("rps") {
		cfg.Fetch.RequestsPerSecond, _ = flags.GetFloat64("rps")
	}
	if flags.Changed("dedup") {
		cfg.Fetch.Dedup, _ = flags.GetBool("dedup")
	}
	if flags.Changed("compression") {
		cfg.Output.Compression, _ = flags.GetString("compression")
	}
}

func fetchOptions(cfg config.FetchConfig, out io.Writer) []fetch.Option {
	optFns := []fetch.Option{
		fetch.WithPageSize(cfg.PageSize),
		fetch.WithWorkers(cfg.Workers),
		fetch.WithPerRequestDelay(cfg.PerRequestDelay),
		fetch.WithDedup(cfg.Dedup),
		fetch.WithRetryPolicy(retry.Policy{
			BaseDelay:   cfg.PerRequestDelay,
			MaxAttempts: cfg.MaxAttempts,
		}),
		fetch.WithProgress(func(p fetch.Progress) {
			fmt.Fprintf(out, "\r%d / %d (page %d/%d)", p.Records, p.Target, p.Pages, p.PagesTotal)
		}),
	}
	if cfg.RequestsPerSecond > 0 {
		optFns = append(optFns, fetch.WithRequestsPerSecond(cfg.RequestsPerSecond))
	}
	return optFns
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyFetchFlags(cmd, cfg)

	if page, _ := cmd.Flags().GetInt("page"); page >= 0 {
		return runFetchPage(cmd, cfg, page)
	}

	e, err := newEnv(ctx, cfg, geocluster.WithFetchOptions(fetchOptions(cfg.Fetch, cmd.ErrOrStderr())...))
	if err != nil {
		return err
	}
	defer e.Close()

	res, name, err := e.pipeline.FetchAndSave(ctx, cfg.Fetch.Target)
	fmt.Fprintln(cmd.ErrOrStderr())

	switch {
	case errors.Is(err, geocluster.ErrCancelled):
		fmt.Fprintf(cmd.OutOrStdout(), "Load cancelled (%d cities collected, saved to %s).\n", len(res.Records), name)
		return nil
	case err != nil:
		return err
	}

	if missing := res.MissingOffsets(); len(missing) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Warning: %d pages failed (offsets %v).\n", len(missing), missing)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Done: %d cities saved to %s in %s.\n", len(res.Records), name, res.Duration.Round(time.Millisecond))
	return nil
}

// runFetchPage fetches one page for interactive browsing.
func runFetchPage(cmd *cobra.Command, cfg *config.Config, page int) error {
	pager := source.Pager{Limit: cfg.Fetch.PageSize}
	client, err := sourceFactory(cfg.Source)
	if err != nil {
		return err
	}

	p, err := retry.Do(cmd.Context(), retry.Policy{BaseDelay: cfg.Fetch.PerRequestDelay, MaxAttempts: cfg.Fetch.MaxAttempts},
		func(ctx context.Context, _ int) (source.Page, error) {
			return client.FindCities(ctx, pager.Query(page))
		})
	if errors.Is(err, retry.ErrGaveUp) {
		fmt.Fprintf(cmd.OutOrStdout(), "Page %d is rate limited, try again later.\n", page+1)
		return nil
	}
	if err != nil {
		return err
	}

	printPage(cmd.OutOrStdout(), page, pager.Offset(page), p.Data)
	return nil
}

func printPage(w io.Writer, page, offset int, cities []model.City) {
	fmt.Fprintf(w, "Page %d (offset %d)\n", page+1, offset)
	for _, c := range cities {
		fmt.Fprintf(w, "  %s\n", formatCity(c))
	}
}

func formatCity(c model.City) string {
	return fmt.Sprintf("%s, %s (%.4f, %.4f) pop. %.0f",
		c.DisplayName(), c.DisplayCountry(), c.Latitude.Float(), c.Longitude.Float(), c.Population.Float())
}
