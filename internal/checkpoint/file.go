package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/numbermill/squarehunt/pkg/errors"
)

// FileStore keeps one JSON file per checkpoint under a directory. Writes go
// through a temp file and rename so a crash mid-write leaves the previous
// checkpoint intact.
type FileStore struct {
	dir string
}

// NewFileStore creates the checkpoint directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) write(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	target := s.path(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

func (s *FileStore) read(key string, v any) (bool, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode checkpoint %s: %w", key, apperrors.ErrInvalidCheckpoint)
	}
	return true, nil
}

func (s *FileStore) delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

func (s *FileStore) SaveEngine(_ context.Context, state EngineState) error {
	state.SavedAt = time.Now().UTC()
	return s.write(state.Key(), state)
}

func (s *FileStore) LoadEngine(_ context.Context, magic uint64, power int, mode string) (EngineState, bool, error) {
	var state EngineState
	ok, err := s.read(EngineKey(magic, power, mode), &state)
	return state, ok, err
}

func (s *FileStore) DeleteEngine(_ context.Context, magic uint64, power int, mode string) error {
	return s.delete(EngineKey(magic, power, mode))
}

func (s *FileStore) SaveRange(_ context.Context, state RangeState) error {
	state.SavedAt = time.Now().UTC()
	return s.write(state.Key(), state)
}

func (s *FileStore) LoadRange(_ context.Context, from, to uint64) (RangeState, bool, error) {
	var state RangeState
	ok, err := s.read(RangeKey(from, to), &state)
	return state, ok, err
}

func (s *FileStore) DeleteRange(_ context.Context, from, to uint64) error {
	return s.delete(RangeKey(from, to))
}
