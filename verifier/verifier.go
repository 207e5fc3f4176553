// Package verifier checks harvested apps against a second store and keeps the
// ones that store does not carry.
package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-apps/catalog"
	"github.com/aluiziolira/go-scrape-apps/dedup"
	"github.com/aluiziolira/go-scrape-apps/metrics"
	"github.com/aluiziolira/go-scrape-apps/models"
	"github.com/aluiziolira/go-scrape-apps/parser"
	"github.com/aluiziolira/go-scrape-apps/pipeline"
	"github.com/aluiziolira/go-scrape-apps/retry"
)

// Searcher queries the secondary store.
type Searcher interface {
	Search(ctx context.Context, req catalog.SearchRequest) ([]models.RawApp, error)
}

// Config controls one verification run.
type Config struct {
	RunID         string
	Country       string
	SearchLimit   int
	Retry         retry.Policy
	RowDelay      time.Duration
	DedupeMaxSize int
}

// Verifier classifies input rows one at a time, in input order.
type Verifier struct {
	cfg          Config
	searcher     Searcher
	exclusive    *pipeline.Stream
	unverifiable *pipeline.Stream
	developers   *dedup.Ledger
	exec         *retry.Executor
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// New builds a verifier writing to the two given streams.
func New(cfg Config, searcher Searcher, exclusive, unverifiable *pipeline.Stream, logger *slog.Logger, m *metrics.Metrics) (*Verifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 1
	}
	developers, err := dedup.NewLedger(cfg.DedupeMaxSize)
	if err != nil {
		return nil, err
	}
	return &Verifier{
		cfg:          cfg,
		searcher:     searcher,
		exclusive:    exclusive,
		unverifiable: unverifiable,
		developers:   developers,
		exec:         retry.NewExecutor(logger, m),
		logger:       logger,
		metrics:      m,
	}, nil
}

// Run processes rows in order. Output write failures and cancellation stop
// the run; search failures only mark a row unverifiable.
func (v *Verifier) Run(ctx context.Context, rows []models.Row) (*models.VerifyResult, error) {
	result := &models.VerifyResult{
		RunID:     v.cfg.RunID,
		StartTime: time.Now(),
	}
	defer func() {
		result.EndTime = time.Now()
		result.ExclusiveDevelopers = v.developers.Len()
	}()

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.TotalRows++

		if err := parser.ValidateRow(row); err != nil {
			result.InvalidRows++
			v.logger.Error("invalid input row", slog.Int("row", row.Number), slog.Any("error", err))
			continue
		}

		developer := parser.NormalizeKey(row.Developer())
		if v.developers.Seen(developer) {
			result.SkippedDeveloper++
			v.logger.Info("skipping app from exclusive developer",
				slog.Int("row", row.Number),
				slog.String("developer", row.Developer()),
				slog.String("title", row.Title()),
			)
			continue
		}

		outcome, err := v.Classify(ctx, row)
		result.Searches++
		if err != nil && ctx.Err() != nil {
			return result, ctx.Err()
		}
		v.metrics.IncRow(outcome.String())

		switch outcome {
		case models.Exclusive:
			result.Exclusive++
			v.developers.Mark(developer)
			v.logger.Info("exclusive app",
				slog.Int("row", row.Number),
				slog.String("title", row.Title()),
				slog.String("developer", row.Developer()),
			)
			if err := v.exclusive.Append(row); err != nil {
				return result, err
			}
		case models.Unverifiable:
			result.Unverifiable++
			v.logger.Error("could not verify app",
				slog.Int("row", row.Number),
				slog.String("title", row.Title()),
				slog.Any("error", err),
			)
			if err := v.unverifiable.Append(row); err != nil {
				return result, err
			}
		case models.PresentElsewhere:
			result.PresentElsewhere++
			v.logger.Debug("app found in both stores",
				slog.Int("row", row.Number),
				slog.String("title", row.Title()),
			)
		}

		if i < len(rows)-1 {
			if err := retry.Sleep(ctx, v.cfg.RowDelay); err != nil {
				return result, err
			}
		}
	}

	return result, nil
}

// Classify searches for row's title and decides its outcome. The error is
// set only for Unverifiable.
func (v *Verifier) Classify(ctx context.Context, row models.Row) (models.Outcome, error) {
	req := catalog.SearchRequest{
		Term:    row.Title(),
		Limit:   v.cfg.SearchLimit,
		Country: v.cfg.Country,
	}
	results, err := retry.Do(ctx, v.exec, "search", v.cfg.Retry, func(ctx context.Context) ([]models.RawApp, error) {
		return v.searcher.Search(ctx, req)
	})
	if err != nil {
		return models.Unverifiable, fmt.Errorf("search %q: %w", row.Title(), err)
	}
	if len(results) > 0 && Matches(results[0], row) {
		return models.PresentElsewhere, nil
	}
	return models.Exclusive, nil
}

// Matches reports whether a search hit is the same app as row, comparing
// title or identifier without regard to case.
func Matches(hit models.RawApp, row models.Row) bool {
	return strings.EqualFold(hit.Title, row.Title()) || strings.EqualFold(hit.AppID, row.AppID())
}
