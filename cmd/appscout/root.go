package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-apps/catalog"
	"github.com/aluiziolira/go-scrape-apps/checkpoint"
	"github.com/aluiziolira/go-scrape-apps/config"
	"github.com/aluiziolira/go-scrape-apps/logging"
	"github.com/aluiziolira/go-scrape-apps/metrics"
)

// cli carries what every subcommand shares once the root has set it up.
type cli struct {
	cfgPath     string
	verbose     bool
	metricsAddr string
	logFile     string

	stdout    io.Writer
	transport http.RoundTripper // overrides the catalog transport in tests

	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	metrics   *metrics.Metrics
	runID     string
}

func newCLI(stdout io.Writer) *cli {
	return &cli{stdout: stdout}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "appscout",
		Short:         "Harvest ranked store collections and find store-exclusive apps",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgPath, "config", "appscout.yaml", "config file (missing file keeps defaults)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&c.metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	flags.StringVar(&c.logFile, "log-file", "", "append logs to this file")

	root.AddCommand(newHarvestCmd(c), newVerifyCmd(c), newExportCmd(c))
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr = c.metricsAddr
	}
	if cmd.Flags().Changed("log-file") {
		cfg.Logging.File = c.logFile
	}

	logger, closer, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Verbose: c.verbose,
		File:    cfg.Logging.File,
		Console: c.stdout,
	})
	if err != nil {
		return err
	}

	c.runID = uuid.NewString()
	c.cfg = cfg
	c.logger = logger.With(slog.String("run_id", c.runID))
	c.logCloser = closer
	c.metrics = metrics.New()
	slog.SetDefault(c.logger)
	return nil
}

func (c *cli) close() {
	if c.logCloser != nil {
		c.logCloser.Close()
	}
}

// serveMetrics starts the Prometheus endpoint when configured and returns its stop func.
func (c *cli) serveMetrics() func() {
	if c.cfg.MetricsAddr == "" {
		return func() {}
	}
	server := &http.Server{
		Addr:    c.cfg.MetricsAddr,
		Handler: promhttp.HandlerFor(c.metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	c.logger.Info("metrics server enabled", slog.String("addr", c.cfg.MetricsAddr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			c.logger.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

func (c *cli) catalogOptions(baseURL string) catalog.Options {
	return catalog.Options{
		BaseURL:           baseURL,
		UserAgent:         c.cfg.Catalog.UserAgent,
		Timeout:           c.cfg.Catalog.RequestTimeout,
		RequestsPerSecond: c.cfg.Catalog.RequestsPerSecond,
		Metrics:           c.metrics,
	}
}

// checkpointStore opens the configured backend. The returned close func is never nil.
func (c *cli) checkpointStore() (checkpoint.Store, func(), error) {
	switch c.cfg.Checkpoint.Backend {
	case "redis":
		store, err := checkpoint.NewRedisStore(c.cfg.Checkpoint.RedisURL, c.cfg.Checkpoint.RedisKey, c.logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "file":
		store := checkpoint.NewFileStore(c.cfg.Checkpoint.Path, c.logger)
		c.logger.Debug("using file checkpoint", slog.String("path", store.Path()))
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported checkpoint backend: %s", c.cfg.Checkpoint.Backend)
	}
}
