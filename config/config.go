package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-apps/models"
)

// Config holds harvester, verifier and shared catalog settings.
type Config struct {
	Catalog    CatalogConfig    `yaml:"catalog"`
	Harvest    HarvestConfig    `yaml:"harvest"`
	Verify     VerifyConfig     `yaml:"verify"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`

	MetricsAddr   string `yaml:"metrics_addr"`
	DedupeMaxSize int    `yaml:"dedupe_max_size"`
}

// CatalogConfig configures both store clients.
type CatalogConfig struct {
	PlayBaseURL       string        `yaml:"play_base_url"`
	AppStoreBaseURL   string        `yaml:"appstore_base_url"`
	Country           string        `yaml:"country"`
	UserAgent         string        `yaml:"user_agent"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// HarvestConfig controls the paginated harvester.
type HarvestConfig struct {
	Collections      []models.Collection `yaml:"collections"`
	StartRank        int                 `yaml:"start_rank"`
	EndRank          int                 `yaml:"end_rank"`
	ChunkSize        int                 `yaml:"chunk_size"`
	FullDetail       bool                `yaml:"full_detail"`
	MaxAttempts      int                 `yaml:"max_attempts"`
	RetryBackoff     time.Duration       `yaml:"retry_backoff"`
	RetryBackoffMax  time.Duration       `yaml:"retry_backoff_max"`
	Timeout          time.Duration       `yaml:"timeout"`
	ChunkDelay       time.Duration       `yaml:"chunk_delay"`
	CollectionDelay  time.Duration       `yaml:"collection_delay"`
	MaxChunkFailures int                 `yaml:"max_chunk_failures"`
}

// VerifyConfig controls the cross-store verifier.
type VerifyConfig struct {
	InputFile         string        `yaml:"input_file"`
	ExclusiveFile     string        `yaml:"exclusive_file"`
	UnverifiableFile  string        `yaml:"unverifiable_file"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	Timeout           time.Duration `yaml:"timeout"`
	RowDelay          time.Duration `yaml:"row_delay"`
	SearchResultLimit int           `yaml:"search_result_limit"`
}

// CheckpointConfig selects where harvest progress is persisted.
type CheckpointConfig struct {
	Backend  string `yaml:"backend"` // file or redis
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
	RedisKey string `yaml:"redis_key"`
}

// OutputConfig controls the record sinks.
type OutputConfig struct {
	GamesFile     string `yaml:"games_file"`
	Format        string `yaml:"format"` // csv, json, dual or mongo
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

// LoggingConfig controls the console and file log stream.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the conservative pacing the public stores tolerate.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			PlayBaseURL:       "http://localhost:3000",
			AppStoreBaseURL:   "https://itunes.apple.com",
			Country:           "us",
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
			RequestTimeout:    30 * time.Second,
			RequestsPerSecond: 0,
		},
		Harvest: HarvestConfig{
			Collections: []models.Collection{
				{Name: "TOP_PAID_GAMES", Value: "TOP_PAID", Category: "GAME"},
			},
			StartRank:        200,
			EndRank:          700,
			ChunkSize:        100,
			FullDetail:       true,
			MaxAttempts:      10,
			RetryBackoff:     5 * time.Second,
			RetryBackoffMax:  0,
			Timeout:          30 * time.Second,
			ChunkDelay:       10 * time.Second,
			CollectionDelay:  30 * time.Second,
			MaxChunkFailures: 5,
		},
		Verify: VerifyConfig{
			ExclusiveFile:     "android_only_apps.csv",
			UnverifiableFile:  "unverified_apps.csv",
			MaxAttempts:       3,
			RetryDelay:        5 * time.Second,
			Timeout:           30 * time.Second,
			RowDelay:          2 * time.Second,
			SearchResultLimit: 1,
		},
		Checkpoint: CheckpointConfig{
			Backend:  "file",
			Path:     "scrape_progress.json",
			RedisKey: "appscout:checkpoint",
		},
		Output: OutputConfig{
			GamesFile:     "output/games.csv",
			Format:        "csv",
			MongoDatabase: "appscout",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "app_search_log.txt",
		},
		DedupeMaxSize: 1_000_000,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := validateBaseURL("play base URL", c.Catalog.PlayBaseURL); err != nil {
		return err
	}
	if err := validateBaseURL("app store base URL", c.Catalog.AppStoreBaseURL); err != nil {
		return err
	}
	if c.Catalog.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Catalog.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Catalog.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}

	h := c.Harvest
	if len(h.Collections) == 0 {
		return fmt.Errorf("at least one collection is required")
	}
	seen := make(map[string]struct{}, len(h.Collections))
	for _, col := range h.Collections {
		if strings.TrimSpace(col.Name) == "" || strings.TrimSpace(col.Value) == "" {
			return fmt.Errorf("collection name and value cannot be empty")
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("duplicate collection name %q", col.Name)
		}
		seen[col.Name] = struct{}{}
	}
	if h.StartRank < 1 {
		return fmt.Errorf("start rank must be at least 1")
	}
	if h.EndRank < h.StartRank {
		return fmt.Errorf("end rank (%d) cannot be below start rank (%d)", h.EndRank, h.StartRank)
	}
	if h.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if h.MaxAttempts < 1 {
		return fmt.Errorf("harvest max attempts must be at least 1")
	}
	if h.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if h.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if h.RetryBackoffMax > 0 && h.RetryBackoff > h.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", h.RetryBackoff, h.RetryBackoffMax)
	}
	if h.Timeout <= 0 {
		return fmt.Errorf("harvest timeout must be positive")
	}
	// An abandoned request keeps running until the request timeout, so it
	// must not outlive the attempt that issued it.
	if c.Catalog.RequestTimeout > h.Timeout {
		return fmt.Errorf("request timeout (%s) cannot exceed harvest timeout (%s)", c.Catalog.RequestTimeout, h.Timeout)
	}
	if h.ChunkDelay < 0 || h.CollectionDelay < 0 {
		return fmt.Errorf("harvest delays cannot be negative")
	}
	if h.MaxChunkFailures < 0 {
		return fmt.Errorf("max chunk failures cannot be negative")
	}

	v := c.Verify
	if v.MaxAttempts < 1 {
		return fmt.Errorf("verify max attempts must be at least 1")
	}
	if v.RetryDelay < 0 || v.RowDelay < 0 {
		return fmt.Errorf("verify delays cannot be negative")
	}
	if v.Timeout <= 0 {
		return fmt.Errorf("verify timeout must be positive")
	}
	if c.Catalog.RequestTimeout > v.Timeout {
		return fmt.Errorf("request timeout (%s) cannot exceed verify timeout (%s)", c.Catalog.RequestTimeout, v.Timeout)
	}
	if v.SearchResultLimit < 1 {
		return fmt.Errorf("search result limit must be at least 1")
	}

	switch c.Checkpoint.Backend {
	case "file":
		if c.Checkpoint.Path == "" {
			return fmt.Errorf("checkpoint path cannot be empty")
		}
	case "redis":
		if c.Checkpoint.RedisURL == "" || c.Checkpoint.RedisKey == "" {
			return fmt.Errorf("redis checkpoint requires redis_url and redis_key")
		}
	default:
		return fmt.Errorf("checkpoint backend must be file or redis")
	}

	switch c.Output.Format {
	case "csv", "json", "dual":
	case "mongo":
		if c.Output.MongoURI == "" || c.Output.MongoDatabase == "" {
			return fmt.Errorf("mongo output requires mongo_uri and mongo_database")
		}
	default:
		return fmt.Errorf("output format must be csv, json, dual, or mongo")
	}

	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}

	return nil
}

func validateBaseURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
