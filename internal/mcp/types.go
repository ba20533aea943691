// Package mcp exposes the site search engine as Model Context Protocol tools.
package mcp

import (
	"time"

	"github.com/bull/bge-search/internal/history"
	"github.com/bull/bge-search/internal/indexer"
	"github.com/bull/bge-search/internal/search"
)

// SearchDocsInput defines the input parameters for the search_docs tool.
type SearchDocsInput struct {
	// Query is the free-text search query.
	Query string `json:"query" jsonschema:"the search query, at least two characters"`
	// Category restricts results to one category.
	Category string `json:"category,omitempty" jsonschema:"only return documents in this category"`
	// Kind restricts results to page, feature or dynamic documents.
	Kind string `json:"kind,omitempty" jsonschema:"only return documents of this kind: page, feature or dynamic"`
	// MaxResults is the maximum number of documents to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"maximum number of documents to return"`
	// IncludeSnippet asks for a body excerpt around the first match.
	IncludeSnippet bool `json:"include_snippet,omitempty" jsonschema:"include a body excerpt with highlight offsets"`
	// Authenticated includes documents that require a signed-in user.
	Authenticated bool `json:"authenticated,omitempty" jsonschema:"whether the caller is signed in; enables restricted documents"`
}

// SearchDocsOutput contains the search results.
type SearchDocsOutput struct {
	// Results is the ranked list of matching documents.
	Results []SearchResult `json:"results"`
	// TotalMatched counts every match before MaxResults is applied.
	TotalMatched int `json:"total_matched"`
	// DidYouMean lists corrections when nothing matched.
	DidYouMean []string `json:"did_you_mean,omitempty"`
	// Suggestions are offered instead of results for too-short queries.
	Suggestions []string `json:"suggestions,omitempty"`
	// Message provides informational context (e.g., "No matching documents found").
	Message string `json:"message,omitempty"`
}

// SearchResult represents a single ranked document.
type SearchResult struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	URL          string        `json:"url"`
	Kind         search.Kind   `json:"kind"`
	Category     string        `json:"category"`
	Score        float64       `json:"score"`
	Weighted     float64       `json:"weighted"`
	MatchedTerms []string      `json:"matched_terms"`
	Snippet      string        `json:"snippet,omitempty"`
	Highlights   []search.Span `json:"highlights,omitempty"`
	UpdatedAt    *time.Time    `json:"updated_at,omitempty"`
}

// SuggestInput defines the input parameters for the suggest tool.
type SuggestInput struct {
	Partial string `json:"partial" jsonschema:"the partially typed query"`
}

// SuggestOutput contains autocomplete suggestions.
type SuggestOutput struct {
	Suggestions []string `json:"suggestions"`
	Count       int      `json:"count"`
}

// StatusInput defines the input parameters for the get_index_status tool.
type StatusInput struct {
	TopQueries int `json:"top_queries,omitempty" jsonschema:"number of most frequent past queries to include (default 10)"`
}

// StatusOutput describes the published index and the query history.
type StatusOutput struct {
	Documents    int                  `json:"documents"`
	HistorySize  int                  `json:"history_size"`
	Categories   []string             `json:"categories"`
	Kinds        []search.Kind        `json:"kinds"`
	TopQueries   []history.Entry      `json:"top_queries"`
	Collectors   []string             `json:"collectors"`
	LastBuild    *indexer.BuildResult `json:"last_build,omitempty"`
	StaleWarning string               `json:"stale_warning,omitempty"`
}

// ReindexInput defines the input parameters for the reindex tool.
// This tool takes no parameters.
type ReindexInput struct{}

// ReindexOutput reports the outcome of a rebuild.
type ReindexOutput struct {
	Result     *indexer.BuildResult `json:"result,omitempty"`
	Superseded bool                 `json:"superseded,omitempty"`
	Message    string               `json:"message"`
}
