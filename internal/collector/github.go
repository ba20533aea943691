package collector

import (
	"context"
	"slices"
	"sync"

	"github.com/bull/bge-search/internal/github"
	"github.com/bull/bge-search/internal/search"
)

// DocFetcher lists and fetches markdown files from a repository.
type DocFetcher interface {
	Source() string
	ListDocs(ctx context.Context) ([]string, error)
	FetchDoc(ctx context.Context, relativePath string) (*github.FetchedDoc, error)
	GetLatestCommitSHA(ctx context.Context) (string, error)
}

// GitHubDocs indexes markdown documentation kept in a GitHub repository.
// Documents are cached per commit so unchanged repositories cost one request.
type GitHubDocs struct {
	fetcher DocFetcher
	mapper  *pageMapper

	mu        sync.Mutex
	commitSHA string
	cached    []search.Document
}

// NewGitHubDocs creates a collector backed by fetcher.
func NewGitHubDocs(fetcher DocFetcher, opts ...MarkdownOption) *GitHubDocs {
	return &GitHubDocs{fetcher: fetcher, mapper: newPageMapper(opts)}
}

func (g *GitHubDocs) Name() string { return "github" }

// FetchDocuments returns the documents of the latest commit touching the docs
// directory. Files that fail to download or parse are logged and skipped.
func (g *GitHubDocs) FetchDocuments(ctx context.Context) ([]search.Document, error) {
	logger := g.mapper.logger.With("collector", g.Name(), "source", g.fetcher.Source())

	// 1. Reuse the previous result when the commit has not moved
	sha, err := g.fetcher.GetLatestCommitSHA(ctx)
	if err != nil {
		logger.Warn("latest commit unavailable, refetching", "error", err)
	}
	g.mu.Lock()
	if sha != "" && sha == g.commitSHA {
		docs := slices.Clone(g.cached)
		g.mu.Unlock()
		logger.Debug("docs unchanged", "commit", sha, "documents", len(docs))
		return docs, nil
	}
	g.mu.Unlock()

	// 2. List markdown files
	paths, err := g.fetcher.ListDocs(ctx)
	if err != nil {
		return nil, err
	}

	// 3. Fetch and map each file
	var docs []search.Document
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fetched, err := g.fetcher.FetchDoc(ctx, p)
		if err != nil {
			logger.Warn("skipping doc", "path", p, "error", err)
			continue
		}
		fileDocs, err := g.mapper.documents(ctx, g.Name(), fetched.Path, fetched.URL, []byte(fetched.Content))
		if err != nil {
			logger.Warn("skipping doc", "path", p, "error", err)
			continue
		}
		docs = append(docs, fileDocs...)
	}

	logger.Info("fetched docs", "commit", sha, "files", len(paths), "documents", len(docs))

	g.mu.Lock()
	g.commitSHA = sha
	g.cached = slices.Clone(docs)
	g.mu.Unlock()

	return docs, nil
}
