// Package checkpoint persists harvest progress so an interrupted run can resume.
//
// Load never fails on a missing or corrupt checkpoint: both yield a fresh state,
// the latter with a warning. Save replaces the previous checkpoint atomically, so
// a reader sees either the old document or the new one, never a partial write.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aluiziolira/go-scrape-apps/models"
)

// Store loads and saves the progress state.
type Store interface {
	Load(ctx context.Context) (*models.ProgressState, error)
	Save(ctx context.Context, state *models.ProgressState) error
}

// MalformedCheckpointError reports a checkpoint that could not be decoded.
type MalformedCheckpointError struct {
	Source string
	Err    error
}

func (e *MalformedCheckpointError) Error() string {
	return fmt.Sprintf("malformed checkpoint %s: %v", e.Source, e.Err)
}

func (e *MalformedCheckpointError) Unwrap() error {
	return e.Err
}

func decode(source string, data []byte) (*models.ProgressState, error) {
	state := models.NewProgressState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, &MalformedCheckpointError{Source: source, Err: err}
	}
	state.Normalize()
	return state, nil
}

func encode(state *models.ProgressState) ([]byte, error) {
	if state == nil {
		state = models.NewProgressState()
	}
	state.Normalize()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	return data, nil
}
