package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aluiziolira/go-scrape-apps/models"
)

// FileStore keeps the checkpoint as indented JSON on disk.
type FileStore struct {
	path   string
	logger *slog.Logger

	// rename is os.Rename; tests replace it to simulate a crash before the swap.
	rename func(oldpath, newpath string) error
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger, rename: os.Rename}
}

// Path returns the checkpoint file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the checkpoint, falling back to an empty state when the file is
// missing or cannot be parsed.
func (s *FileStore) Load(ctx context.Context) (*models.ProgressState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("no checkpoint found, starting fresh", slog.String("path", s.path))
		return models.NewProgressState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	state, err := decode(s.path, data)
	if err != nil {
		s.logger.Warn("ignoring unreadable checkpoint, starting with empty progress",
			slog.String("path", s.path),
			slog.Any("error", err),
		)
		return models.NewProgressState(), nil
	}
	return state, nil
}

// Save writes state to a temporary file next to the checkpoint and renames it into place.
func (s *FileStore) Save(ctx context.Context, state *models.ProgressState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state != nil {
		state.UpdatedAt = time.Now().UTC()
	}
	data, err := encode(state)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err := s.rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	committed = true
	return nil
}
