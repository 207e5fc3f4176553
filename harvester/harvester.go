// Package harvester walks ranked catalog collections in fixed-size chunks,
// checkpointing after every chunk so an interrupted run resumes where it stopped.
package harvester

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aluiziolira/go-scrape-apps/catalog"
	"github.com/aluiziolira/go-scrape-apps/checkpoint"
	"github.com/aluiziolira/go-scrape-apps/dedup"
	"github.com/aluiziolira/go-scrape-apps/metrics"
	"github.com/aluiziolira/go-scrape-apps/models"
	"github.com/aluiziolira/go-scrape-apps/parser"
	"github.com/aluiziolira/go-scrape-apps/pipeline"
	"github.com/aluiziolira/go-scrape-apps/retry"
)

// Lister fetches one page of a ranked collection.
type Lister interface {
	List(ctx context.Context, req catalog.ListRequest) ([]models.RawApp, error)
}

// Config controls one harvest run. Ranks are 1-based and inclusive.
type Config struct {
	RunID            string
	Collections      []models.Collection
	StartRank        int
	EndRank          int
	ChunkSize        int
	FullDetail       bool
	Country          string
	Retry            retry.Policy
	ChunkDelay       time.Duration
	CollectionDelay  time.Duration
	MaxChunkFailures int // 0 retries a failing chunk until cancelled
}

// Harvester drives the chunk loop for every configured collection.
type Harvester struct {
	cfg     Config
	lister  Lister
	store   checkpoint.Store
	games   *pipeline.Stream
	exec    *retry.Executor
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New builds a harvester. games may be nil when no incremental output is wanted.
func New(cfg Config, lister Lister, store checkpoint.Store, games *pipeline.Stream, logger *slog.Logger, m *metrics.Metrics) *Harvester {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 100
	}
	return &Harvester{
		cfg:     cfg,
		lister:  lister,
		store:   store,
		games:   games,
		exec:    retry.NewExecutor(logger, m),
		logger:  logger,
		metrics: m,
	}
}

// Run harvests every collection, finalizes the accumulated games and saves
// the final state. On cancellation it returns the partial result with ctx.Err().
func (h *Harvester) Run(ctx context.Context) (*models.HarvestResult, error) {
	result := &models.HarvestResult{
		RunID:       h.cfg.RunID,
		StartTime:   time.Now(),
		Collections: make(map[string]models.CollectionStatus, len(h.cfg.Collections)),
		LastRank:    make(map[string]int, len(h.cfg.Collections)),
	}
	defer func() { result.EndTime = time.Now() }()

	state, err := h.store.Load(ctx)
	if err != nil {
		return result, fmt.Errorf("load checkpoint: %w", err)
	}
	state.Normalize()
	if h.cfg.RunID != "" {
		state.RunID = h.cfg.RunID
	}

	for i, collection := range h.cfg.Collections {
		status, err := h.harvestCollection(ctx, collection, state, result)
		result.Collections[collection.Name] = status
		result.LastRank[collection.Name] = state.LastScrapedRank[collection.Name]
		if err != nil {
			return result, err
		}
		h.logger.Info("collection finished",
			slog.String("collection", collection.Name),
			slog.String("status", string(status)),
			slog.Int("last_rank", state.LastScrapedRank[collection.Name]),
		)

		if i < len(h.cfg.Collections)-1 {
			if err := retry.Sleep(ctx, h.cfg.CollectionDelay); err != nil {
				return result, err
			}
		}
	}

	final, err := Finalize(state.Games)
	if err != nil {
		return result, err
	}
	state.Games = final
	if err := h.store.Save(ctx, state); err != nil {
		return result, fmt.Errorf("save final checkpoint: %w", err)
	}
	result.UniqueGames = len(final)
	h.logger.Info("harvest finalized", slog.Int("unique_games", len(final)))
	return result, nil
}

func (h *Harvester) harvestCollection(ctx context.Context, c models.Collection, state *models.ProgressState, result *models.HarvestResult) (models.CollectionStatus, error) {
	current := h.cfg.StartRank
	if last, ok := state.LastScrapedRank[c.Name]; ok && last+1 > current {
		current = last + 1
	}
	if current > h.cfg.StartRank {
		h.logger.Info("resuming collection",
			slog.String("collection", c.Name),
			slog.Int("from_rank", current),
		)
	}

	failures := 0
	for current <= h.cfg.EndRank {
		if ctx.Err() != nil {
			return models.CollectionInterrupted, ctx.Err()
		}

		count := min(h.cfg.ChunkSize, h.cfg.EndRank-current+1)
		req := catalog.ListRequest{
			Collection: c.Value,
			Category:   c.Category,
			Start:      current - 1,
			Num:        count,
			FullDetail: h.cfg.FullDetail,
			Country:    h.cfg.Country,
		}

		page, err := retry.Do(ctx, h.exec, "list "+c.Name, h.cfg.Retry, func(ctx context.Context) ([]models.RawApp, error) {
			return h.lister.List(ctx, req)
		})
		if err != nil {
			if ctx.Err() != nil {
				return models.CollectionInterrupted, ctx.Err()
			}
			failures++
			result.ChunksFailed++
			h.metrics.IncChunk(c.Name, "failed")
			h.logger.Error("chunk failed",
				slog.String("collection", c.Name),
				slog.Int("start_rank", current),
				slog.Int("count", count),
				slog.Int("consecutive_failures", failures),
				slog.String("error_type", catalog.ErrorType(err)),
				slog.Any("error", err),
			)
			if h.cfg.MaxChunkFailures > 0 && failures >= h.cfg.MaxChunkFailures {
				h.logger.Error("collection aborted",
					slog.String("collection", c.Name),
					slog.Int("stuck_at_rank", current),
				)
				return models.CollectionAborted, nil
			}
			if err := retry.Sleep(ctx, h.cfg.ChunkDelay); err != nil {
				return models.CollectionInterrupted, err
			}
			continue
		}
		failures = 0

		if len(page) == 0 {
			h.logger.Info("catalog exhausted before end rank",
				slog.String("collection", c.Name),
				slog.Int("rank", current),
			)
			return models.CollectionExhausted, nil
		}
		if len(page) > count {
			page = page[:count]
		}

		records := h.normalize(c, current, page)
		last := current + len(page) - 1

		// Stream before the checkpoint advances. A crash in between replays
		// the chunk, and Finalize collapses the duplicate lines on export.
		if h.games != nil {
			if err := h.games.Append(pipeline.Records(records)...); err != nil {
				return models.CollectionInterrupted, err
			}
		}
		state.Games = append(state.Games, records...)
		state.LastScrapedRank[c.Name] = last
		if err := h.store.Save(ctx, state); err != nil {
			return models.CollectionInterrupted, fmt.Errorf("save checkpoint: %w", err)
		}

		result.ChunksFetched++
		result.GamesFetched += len(records)
		h.metrics.IncChunk(c.Name, "ok")
		h.metrics.AddGames(c.Name, len(records))
		h.logger.Info("chunk saved",
			slog.String("collection", c.Name),
			slog.Int("from_rank", current),
			slog.Int("to_rank", last),
			slog.Int("games", len(records)),
			slog.Int("total_games", len(state.Games)),
		)

		current = last + 1
		if current <= h.cfg.EndRank {
			if err := retry.Sleep(ctx, h.cfg.ChunkDelay); err != nil {
				return models.CollectionInterrupted, err
			}
		}
	}

	return models.CollectionCompleted, nil
}

// normalize ranks a page by position. Unkeyed or repeated items are dropped
// but still consume their rank.
func (h *Harvester) normalize(c models.Collection, startRank int, page []models.RawApp) []models.AppRecord {
	records := make([]models.AppRecord, 0, len(page))
	seen := make(map[string]struct{}, len(page))
	for offset, raw := range page {
		rank := startRank + offset
		if err := parser.ValidateApp(&raw); err != nil {
			h.logger.Warn("dropping catalog item",
				slog.String("collection", c.Name),
				slog.Int("rank", rank),
				slog.Any("error", err),
			)
			continue
		}
		record := parser.NormalizeApp(raw, rank)
		if _, dup := seen[record.AppID]; dup {
			h.logger.Warn("dropping duplicate in page",
				slog.String("collection", c.Name),
				slog.Int("rank", rank),
				slog.String("app_id", record.AppID),
			)
			continue
		}
		seen[record.AppID] = struct{}{}
		records = append(records, record)
	}
	return records
}

// Finalize keeps the latest record per appId and sorts by rank. Applying it
// twice yields the same slice.
func Finalize(games []models.AppRecord) ([]models.AppRecord, error) {
	ledger, err := dedup.NewLedger(len(games))
	if err != nil {
		return nil, err
	}

	kept := make([]models.AppRecord, 0, len(games))
	for i := len(games) - 1; i >= 0; i-- {
		if ledger.Seen(games[i].AppID) {
			continue
		}
		ledger.Mark(games[i].AppID)
		kept = append(kept, games[i])
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Rank < kept[j].Rank
	})
	return kept, nil
}

// ErrNoGames is returned by Export when the checkpoint holds nothing to write.
var ErrNoGames = errors.New("checkpoint has no games")

// Export writes the finalized games held by store to out.
func Export(ctx context.Context, store checkpoint.Store, out pipeline.OutputWriter) (int, error) {
	state, err := store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}
	games, err := Finalize(state.Games)
	if err != nil {
		return 0, err
	}
	if len(games) == 0 {
		return 0, ErrNoGames
	}
	if err := out.Write(pipeline.Records(games)); err != nil {
		return 0, fmt.Errorf("write games: %w", err)
	}
	return len(games), nil
}
