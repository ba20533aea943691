// Package indexer rebuilds the search index from the configured collectors.
package indexer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bull/bge-search/internal/collector"
	"github.com/bull/bge-search/internal/search"
)

// ErrSuperseded is returned by Rebuild when a newer rebuild started before
// this one finished. The newer rebuild's store wins.
var ErrSuperseded = errors.New("rebuild superseded by a newer request")

// BuildResult contains statistics about a rebuild.
type BuildResult struct {
	BuildID    string            `json:"buildId"`
	TotalDocs  int               `json:"totalDocs"` // documents returned by collectors
	Indexed    int               `json:"indexed"`   // accepted by the store
	Skipped    int               `json:"skipped"`   // rejected as invalid
	Documents  int               `json:"documents"` // distinct documents in the new store
	Failures   []FailedCollector `json:"failures,omitempty"`
	Duration   time.Duration     `json:"duration"`
	FinishedAt time.Time         `json:"finishedAt"`
}

// FailedCollector represents a collector that contributed no documents.
type FailedCollector struct {
	Collector string `json:"collector"`
	Reason    string `json:"reason"`
}

// Observer receives rebuild telemetry.
type Observer interface {
	ObserveCollector(name string, docs int, elapsed time.Duration, err error)
	ObserveRebuild(result *BuildResult, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveCollector(string, int, time.Duration, error) {}
func (nopObserver) ObserveRebuild(*BuildResult, error)                 {}

// Option configures a Builder.
type Option func(*Builder)

// WithObserver sets the telemetry sink.
func WithObserver(o Observer) Option {
	return func(b *Builder) { b.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// Builder fans out to every collector, builds a fresh store and swaps it
// into the engine. Concurrent rebuilds cancel each other: the most recently
// requested one is the only one allowed to publish.
type Builder struct {
	engine     *search.Engine
	collectors []collector.Collector
	observer   Observer
	logger     *slog.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	last   *BuildResult
}

// NewBuilder creates a builder that publishes into engine.
func NewBuilder(engine *search.Engine, collectors []collector.Collector, opts ...Option) *Builder {
	b := &Builder{
		engine:     engine,
		collectors: collectors,
		observer:   nopObserver{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Collectors returns the names of the configured collectors.
func (b *Builder) Collectors() []string {
	names := make([]string, len(b.collectors))
	for i, c := range b.collectors {
		names[i] = c.Name()
	}
	return names
}

// LastResult returns the result of the last published rebuild, or nil.
func (b *Builder) LastResult() *BuildResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return nil
	}
	r := *b.last
	return &r
}

// Rebuild fetches every collector concurrently and publishes the new index.
// A failing collector is logged and contributes zero documents.
func (b *Builder) Rebuild(ctx context.Context) (*BuildResult, error) {
	ctx, seq := b.begin(ctx)
	defer b.end(seq)

	start := time.Now()
	result := &BuildResult{BuildID: uuid.NewString()}
	logger := b.logger.With("build_id", result.BuildID)
	logger.Info("Starting rebuild", "collectors", len(b.collectors))

	// 1. Fetch all collectors concurrently
	batches := make([][]search.Document, len(b.collectors))
	failures := make([]error, len(b.collectors))

	var g errgroup.Group
	for i, c := range b.collectors {
		g.Go(func() error {
			fetchStart := time.Now()
			docs, err := c.FetchDocuments(ctx)
			b.observer.ObserveCollector(c.Name(), len(docs), time.Since(fetchStart), err)
			if err != nil {
				failures[i] = &collector.Failure{Collector: c.Name(), Err: err}
				return nil
			}
			batches[i] = docs
			return nil
		})
	}
	g.Wait()

	if err := b.interrupted(ctx, seq); err != nil {
		logger.Info("Rebuild abandoned", "reason", err)
		b.observer.ObserveRebuild(nil, err)
		return nil, err
	}

	// 2. Build the new store in collector order
	store := search.NewStore()
	for i, docs := range batches {
		if failures[i] != nil {
			logger.Warn("Collector failed", "error", failures[i])
			var f *collector.Failure
			errors.As(failures[i], &f)
			result.Failures = append(result.Failures, FailedCollector{
				Collector: f.Collector,
				Reason:    f.Err.Error(),
			})
			continue
		}
		for _, doc := range docs {
			result.TotalDocs++
			if err := store.Upsert(doc); err != nil {
				logger.Debug("Skipping document", "collector", b.collectors[i].Name(), "title", doc.Title, "error", err)
				result.Skipped++
				continue
			}
			result.Indexed++
		}
	}
	result.Documents = store.Len()

	// 3. Publish unless a newer rebuild started meanwhile
	b.mu.Lock()
	if seq != b.seq {
		b.mu.Unlock()
		b.observer.ObserveRebuild(nil, ErrSuperseded)
		return nil, ErrSuperseded
	}
	b.engine.Swap(store)
	result.Duration = time.Since(start)
	result.FinishedAt = time.Now()
	b.last = result
	b.mu.Unlock()

	logger.Info("Rebuild complete",
		"documents", result.Documents,
		"indexed", result.Indexed,
		"skipped", result.Skipped,
		"failed_collectors", len(result.Failures),
		"duration", result.Duration,
	)
	b.observer.ObserveRebuild(result, nil)

	r := *result
	return &r, nil
}

// begin cancels any in-flight rebuild and registers a new one.
func (b *Builder) begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
	b.seq++
	b.cancel = cancel
	return ctx, b.seq
}

func (b *Builder) end(seq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if seq == b.seq && b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func (b *Builder) interrupted(ctx context.Context, seq uint64) error {
	b.mu.Lock()
	superseded := seq != b.seq
	b.mu.Unlock()
	if superseded {
		return ErrSuperseded
	}
	return ctx.Err()
}

// Run rebuilds immediately and then every interval until ctx is done.
// A non-positive interval rebuilds once. Failed rebuilds are logged.
func (b *Builder) Run(ctx context.Context, interval time.Duration) error {
	b.runOnce(ctx)
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.runOnce(ctx)
		}
	}
}

func (b *Builder) runOnce(ctx context.Context) {
	if _, err := b.Rebuild(ctx); err != nil && !errors.Is(err, ErrSuperseded) && ctx.Err() == nil {
		b.logger.Error("Scheduled rebuild failed", "error", err)
	}
}
