// Package app wires configuration into a ready-to-serve search engine:
// history persistence, content collectors, the index builder and metrics.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bull/bge-search/internal/collector"
	"github.com/bull/bge-search/internal/config"
	ghclient "github.com/bull/bge-search/internal/github"
	"github.com/bull/bge-search/internal/history"
	"github.com/bull/bge-search/internal/indexer"
	"github.com/bull/bge-search/internal/metadata"
	"github.com/bull/bge-search/internal/metrics"
	"github.com/bull/bge-search/internal/search"
	"github.com/bull/bge-search/internal/storage"
)

const closeTimeout = 10 * time.Second

// App holds the long-lived components shared by the server and the CLI.
type App struct {
	Config  *config.Config
	Engine  *search.Engine
	Builder *indexer.Builder
	Metrics *metrics.Recorder

	history history.Store
	tracker *history.Tracker
	close   func() error
	logger  *slog.Logger
}

// New builds every component described by cfg. The index starts empty;
// call Builder.Rebuild or Builder.Run to populate it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger, close: func() error { return nil }}

	// 1. History persistence. An unreachable backend degrades to in-memory history.
	store, closeStore, err := storage.Open(ctx, storage.Options{
		Backend:    cfg.HistoryBackend,
		Path:       cfg.HistoryPath,
		QdrantHost: cfg.QdrantHost,
		QdrantPort: cfg.QdrantPort,
	})
	switch {
	case errors.Is(err, storage.ErrUnknownBackend):
		return nil, err
	case err != nil:
		logger.Warn("History backend unavailable, keeping history in memory",
			"backend", cfg.HistoryBackend, "error", err)
	default:
		a.history = store
		a.close = closeStore
	}

	tracker := history.NewTracker(a.history, logger)
	tracker.Load(ctx)
	a.tracker = tracker

	// 2. Static catalog and corrections
	catalog, err := collector.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	// 3. Engine
	a.Metrics = metrics.NewRecorder()
	a.Engine = search.NewEngine(
		search.WithHistory(tracker),
		search.WithCorrections(catalog.CorrectionTable()),
		search.WithObserver(a.Metrics),
		search.WithLogger(logger),
	)

	// 4. Collectors
	collectors, err := a.collectors(catalog)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Builder = indexer.NewBuilder(a.Engine, collectors,
		indexer.WithObserver(a.Metrics),
		indexer.WithLogger(logger),
	)
	return a, nil
}

func (a *App) collectors(catalog *collector.Catalog) ([]collector.Collector, error) {
	cfg := a.Config
	collectors := catalog.Collectors()

	if cfg.ContentAPIURL != "" {
		collectors = append(collectors, collector.NewAPI(cfg.ContentAPIURL, collector.WithAPILogger(a.logger)))
	}

	mdOpts := []collector.MarkdownOption{collector.WithMarkdownLogger(a.logger)}
	if cfg.OpenAIAPIKey != "" {
		client, err := metadata.NewClient(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		mdOpts = append(mdOpts, collector.WithSummarizer(metadata.NewGenerator(client, a.logger)))
	}

	if cfg.DocsDir != "" {
		if _, err := os.Stat(cfg.DocsDir); err != nil {
			return nil, fmt.Errorf("DOCS_DIR: %w", err)
		}
		collectors = append(collectors, collector.NewMarkdownDir("docs", os.DirFS(cfg.DocsDir), cfg.DocsBaseURL, mdOpts...))
	}

	if cfg.GitHubEnabled() {
		client, err := ghclient.NewClient(cfg.GitHubToken)
		if err != nil {
			return nil, fmt.Errorf("create GitHub client: %w", err)
		}
		fetcher := ghclient.NewFetcher(client, cfg.GitHubOwner, cfg.GitHubRepo, cfg.GitHubPath, cfg.GitHubRef)
		collectors = append(collectors, collector.NewGitHubDocs(fetcher, mdOpts...))
	}

	return collectors, nil
}

// HistoryStore returns the persistent history backend, or nil when history
// lives only in memory.
func (a *App) HistoryStore() history.Store {
	return a.history
}

// Close saves pending history and releases the history backend.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := a.tracker.Close(ctx); err != nil {
		a.logger.Warn("History not flushed before shutdown", "error", err)
	}
	return a.close()
}

// NewLogger returns a text logger on stderr. Stdout is reserved for the
// stdio MCP transport.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
