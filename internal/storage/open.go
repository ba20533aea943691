package storage

import (
	"context"
	"fmt"

	"github.com/bull/bge-search/internal/history"
)

// Backend names accepted by Open.
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// Options selects and configures a history backend.
type Options struct {
	Backend    string
	Path       string
	QdrantHost string
	QdrantPort int
}

// Open returns the history store for opts.Backend and a close function.
// The "none" backend returns a nil store, keeping history in memory.
func Open(ctx context.Context, opts Options) (history.Store, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case "", BackendNone:
		return nil, noop, nil
	case BackendFile:
		return NewFileStore(opts.Path), noop, nil
	case BackendSQLite:
		s, err := NewSQLiteStore(opts.Path)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case BackendQdrant:
		s, err := NewQdrantStore(opts.QdrantHost, opts.QdrantPort)
		if err != nil {
			return nil, noop, err
		}
		if err := s.EnsureCollection(ctx); err != nil {
			s.Close()
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
