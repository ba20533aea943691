// Package storage provides persistence backends for search history.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bull/bge-search/internal/history"
)

// FileStore keeps the history as a JSON array in a single file.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path. The file and its
// directory are created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the history. A missing file is an empty history.
func (s *FileStore) Load(ctx context.Context) ([]history.Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}

	var entries []history.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHistory, err)
	}
	return entries, nil
}

// Save replaces the file contents atomically via a temporary file.
func (s *FileStore) Save(ctx context.Context, entries []history.Entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

// Health reports whether the history directory is reachable.
func (s *FileStore) Health(ctx context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("history directory: %w", err)
	}
	return nil
}
