package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-apps/catalog"
	"github.com/aluiziolira/go-scrape-apps/parser"
	"github.com/aluiziolira/go-scrape-apps/pipeline"
	"github.com/aluiziolira/go-scrape-apps/retry"
	"github.com/aluiziolira/go-scrape-apps/verifier"
)

func newVerifyCmd(c *cli) *cobra.Command {
	var input, exclusiveOut, unverifiedOut, format string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Search each harvested app in the second store and keep the exclusives",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.cfg
			flags := cmd.Flags()
			if flags.Changed("input") {
				cfg.Verify.InputFile = input
			}
			if flags.Changed("exclusive-out") {
				cfg.Verify.ExclusiveFile = exclusiveOut
			}
			if flags.Changed("unverified-out") {
				cfg.Verify.UnverifiableFile = unverifiedOut
			}
			if flags.Changed("format") {
				cfg.Output.Format = strings.ToLower(format)
			}
			if cfg.Verify.InputFile == "" {
				return fmt.Errorf("an input file is required (--input or verify.input_file)")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return c.runVerify(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&input, "input", "", "CSV of apps to verify (needs title, developer, appId columns)")
	flags.StringVar(&exclusiveOut, "exclusive-out", "", "output for apps missing from the second store")
	flags.StringVar(&unverifiedOut, "unverified-out", "", "output for apps whose search kept failing")
	flags.StringVar(&format, "format", "", "output format: csv, json, dual, or mongo")
	return cmd
}

func (c *cli) runVerify(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := c.cfg
	defer c.serveMetrics()()

	f, err := os.Open(cfg.Verify.InputFile)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	in, err := parser.ReadRows(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	for _, skipped := range in.Skipped {
		c.logger.Error("skipping malformed input row", slog.Int("row", skipped.Row), slog.Any("error", skipped))
	}
	header, rows := in.Header, in.Rows

	searcher, err := catalog.NewAppStoreClient(c.catalogOptions(cfg.Catalog.AppStoreBaseURL))
	if err != nil {
		return fmt.Errorf("initialising app store client: %w", err)
	}
	if c.transport != nil {
		searcher.WithTransport(c.transport)
	}

	exclusiveWriter, err := createWriter(ctx, cfg.Output, cfg.Verify.ExclusiveFile, "exclusive", false, pipeline.WithHeader(header))
	if err != nil {
		return fmt.Errorf("creating exclusive writer: %w", err)
	}
	exclusive := pipeline.NewStream("exclusive", exclusiveWriter, c.metrics)

	unverifiableWriter, err := createWriter(ctx, cfg.Output, cfg.Verify.UnverifiableFile, "unverifiable", false, pipeline.WithHeader(header))
	if err != nil {
		exclusive.Close()
		return fmt.Errorf("creating unverifiable writer: %w", err)
	}
	unverifiable := pipeline.NewStream("unverifiable", unverifiableWriter, c.metrics)
	if c.verbose {
		exclusive.StartMetricsReporting(time.Minute, c.logger)
	}

	v, err := verifier.New(verifier.Config{
		RunID:       c.runID,
		Country:     cfg.Catalog.Country,
		SearchLimit: cfg.Verify.SearchResultLimit,
		Retry: retry.Policy{
			MaxAttempts: cfg.Verify.MaxAttempts,
			Backoff:     retry.Constant(cfg.Verify.RetryDelay),
			Timeout:     cfg.Verify.Timeout,
		},
		RowDelay:      cfg.Verify.RowDelay,
		DedupeMaxSize: cfg.DedupeMaxSize,
	}, searcher, exclusive, unverifiable, c.logger, c.metrics)
	if err != nil {
		exclusive.Close()
		unverifiable.Close()
		return err
	}

	c.logger.Info("starting verification",
		slog.String("input", cfg.Verify.InputFile),
		slog.Int("rows", len(rows)),
	)

	result, runErr := v.Run(ctx, rows)
	if result != nil {
		result.TotalRows += len(in.Skipped)
		result.InvalidRows += len(in.Skipped)
	}
	for _, s := range []*pipeline.Stream{exclusive, unverifiable} {
		if err := s.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("closing %s output: %w", s.Name(), err)
		}
	}
	if result != nil {
		printVerifySummary(c.stdout, result, cfg.Verify.ExclusiveFile, cfg.Verify.UnverifiableFile)
	}
	if runErr != nil {
		return fmt.Errorf("verification failed: %w", runErr)
	}
	return nil
}
