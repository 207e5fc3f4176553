package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aluiziolira/go-scrape-apps/models"
)

// RedisStore keeps the checkpoint document under a single Redis key.
// SET replaces the value atomically.
type RedisStore struct {
	rdb    *redis.Client
	key    string
	logger *slog.Logger
}

// NewRedisStore connects to url and verifies the connection.
func NewRedisStore(url, key string, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreFromClient(rdb, key, logger), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(rdb *redis.Client, key string, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{rdb: rdb, key: key, logger: logger}
}

// Load fetches the checkpoint, falling back to an empty state when the key is
// missing or holds something unparseable.
func (s *RedisStore) Load(ctx context.Context) (*models.ProgressState, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		s.logger.Info("no checkpoint found, starting fresh", slog.String("key", s.key))
		return models.NewProgressState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}

	state, err := decode("redis:"+s.key, data)
	if err != nil {
		s.logger.Warn("ignoring unreadable checkpoint, starting with empty progress",
			slog.String("key", s.key),
			slog.Any("error", err),
		)
		return models.NewProgressState(), nil
	}
	return state, nil
}

// Save overwrites the checkpoint key.
func (s *RedisStore) Save(ctx context.Context, state *models.ProgressState) error {
	if state != nil {
		state.UpdatedAt = time.Now().UTC()
	}
	data, err := encode(state)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set checkpoint: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
