package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-apps/catalog"
	"github.com/aluiziolira/go-scrape-apps/harvester"
	"github.com/aluiziolira/go-scrape-apps/models"
	"github.com/aluiziolira/go-scrape-apps/pipeline"
	"github.com/aluiziolira/go-scrape-apps/retry"
)

func newHarvestCmd(c *cli) *cobra.Command {
	var (
		start, end, chunk int
		collections       []string
		checkpointPath    string
		output, format    string
	)

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Page through ranked collections, checkpointing every chunk",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.cfg
			flags := cmd.Flags()
			if flags.Changed("start") {
				cfg.Harvest.StartRank = start
			}
			if flags.Changed("end") {
				cfg.Harvest.EndRank = end
			}
			if flags.Changed("chunk") {
				cfg.Harvest.ChunkSize = chunk
			}
			if flags.Changed("collections") {
				parsed, err := parseCollections(collections)
				if err != nil {
					return err
				}
				cfg.Harvest.Collections = parsed
			}
			if flags.Changed("checkpoint") {
				cfg.Checkpoint.Backend = "file"
				cfg.Checkpoint.Path = checkpointPath
			}
			if flags.Changed("output") {
				cfg.Output.GamesFile = output
			}
			if flags.Changed("format") {
				cfg.Output.Format = strings.ToLower(format)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return c.runHarvest(cmd)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&start, "start", 0, "first rank to harvest (1-based)")
	flags.IntVar(&end, "end", 0, "last rank to harvest, inclusive")
	flags.IntVar(&chunk, "chunk", 0, "ranks requested per call")
	flags.StringSliceVar(&collections, "collections", nil, "collections as NAME=VALUE[:CATEGORY], e.g. TOP_PAID_GAMES=TOP_PAID:GAME")
	flags.StringVar(&checkpointPath, "checkpoint", "", "checkpoint file path")
	flags.StringVar(&output, "output", "", "harvested games output file")
	flags.StringVar(&format, "format", "", "output format: csv, json, dual, or mongo")
	return cmd
}

func (c *cli) runHarvest(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := c.cfg
	defer c.serveMetrics()()

	lister, err := catalog.NewPlayClient(c.catalogOptions(cfg.Catalog.PlayBaseURL))
	if err != nil {
		return fmt.Errorf("initialising play client: %w", err)
	}
	if c.transport != nil {
		lister.WithTransport(c.transport)
	}

	store, closeStore, err := c.checkpointStore()
	if err != nil {
		return fmt.Errorf("opening checkpoint: %w", err)
	}
	defer closeStore()

	writer, err := createWriter(ctx, cfg.Output, cfg.Output.GamesFile, "games", true)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	games := pipeline.NewStream("games", writer, c.metrics)
	if c.verbose {
		games.StartMetricsReporting(30*time.Second, c.logger)
	}

	c.logger.Info("starting harvest",
		slog.Int("start_rank", cfg.Harvest.StartRank),
		slog.Int("end_rank", cfg.Harvest.EndRank),
		slog.Int("chunk_size", cfg.Harvest.ChunkSize),
		slog.Int("collections", len(cfg.Harvest.Collections)),
	)

	h := harvester.New(harvester.Config{
		RunID:       c.runID,
		Collections: cfg.Harvest.Collections,
		StartRank:   cfg.Harvest.StartRank,
		EndRank:     cfg.Harvest.EndRank,
		ChunkSize:   cfg.Harvest.ChunkSize,
		FullDetail:  cfg.Harvest.FullDetail,
		Country:     cfg.Catalog.Country,
		Retry: retry.Policy{
			MaxAttempts: cfg.Harvest.MaxAttempts,
			Backoff:     retry.Exponential{Initial: cfg.Harvest.RetryBackoff, Max: cfg.Harvest.RetryBackoffMax},
			Timeout:     cfg.Harvest.Timeout,
		},
		ChunkDelay:       cfg.Harvest.ChunkDelay,
		CollectionDelay:  cfg.Harvest.CollectionDelay,
		MaxChunkFailures: cfg.Harvest.MaxChunkFailures,
	}, lister, store, games, c.logger, c.metrics)

	result, runErr := h.Run(ctx)
	if err := games.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("closing output: %w", err)
	}
	if result != nil {
		printHarvestSummary(c.stdout, result, cfg.Output.GamesFile, games.Written())
	}
	if runErr != nil {
		if errors.Is(runErr, ctx.Err()) {
			c.logger.Warn("harvest interrupted; re-run to resume from the last checkpoint")
		}
		return fmt.Errorf("harvest failed: %w", runErr)
	}
	return nil
}

func parseCollections(specs []string) ([]models.Collection, error) {
	out := make([]models.Collection, 0, len(specs))
	for _, spec := range specs {
		name, rest, ok := strings.Cut(strings.TrimSpace(spec), "=")
		if !ok || name == "" || rest == "" {
			return nil, fmt.Errorf("invalid collection %q: want NAME=VALUE[:CATEGORY]", spec)
		}
		value, category, _ := strings.Cut(rest, ":")
		out = append(out, models.Collection{Name: name, Value: value, Category: category})
	}
	return out, nil
}
