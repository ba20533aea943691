// Package collector provides the content sources that feed the search index:
// a static TOML catalog, the site's category API, and markdown pages read
// from disk or from a GitHub repository.
package collector

import (
	"context"
	"fmt"
	"slices"

	"github.com/bull/bge-search/internal/search"
)

// Collector produces the documents of one content source.
type Collector interface {
	Name() string
	FetchDocuments(ctx context.Context) ([]search.Document, error)
}

// Failure is a collector error annotated with the collector's name. The
// index builder logs it and indexes zero documents from that source.
type Failure struct {
	Collector string
	Err       error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("collector %s: %v", f.Collector, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Static serves a fixed list of documents.
type Static struct {
	name string
	docs []search.Document
}

// NewStatic creates a collector that always returns docs.
func NewStatic(name string, docs []search.Document) *Static {
	return &Static{name: name, docs: slices.Clone(docs)}
}

func (s *Static) Name() string { return s.name }

// FetchDocuments returns a copy of the configured documents.
func (s *Static) FetchDocuments(ctx context.Context) ([]search.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.docs), nil
}
