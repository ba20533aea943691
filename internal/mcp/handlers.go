package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/bge-search/internal/indexer"
	"github.com/bull/bge-search/internal/search"
)

const (
	defaultMaxResults = 10
	defaultTopQueries = 10
	// staleAfter is how old the last published build may be before
	// get_index_status warns about it.
	staleAfter = 24 * time.Hour
)

// Rebuilder is the subset of indexer.Builder the tools use.
type Rebuilder interface {
	Rebuild(ctx context.Context) (*indexer.BuildResult, error)
	LastResult() *indexer.BuildResult
	Collectors() []string
}

// makeSearchHandler creates the search_docs tool handler.
// Search flow:
// 1. Too-short queries get autocomplete suggestions instead of results
// 2. Rank with the engine using the caller's filters and auth context
// 3. Map results, attaching snippets when requested
// 4. Zero matches return "did you mean" corrections
func makeSearchHandler(engine *search.Engine, defaultLimit int) func(
	context.Context, *mcp.CallToolRequest, SearchDocsInput,
) (*mcp.CallToolResult, SearchDocsOutput, error) {
	if defaultLimit <= 0 {
		defaultLimit = defaultMaxResults
	}
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchDocsInput) (
		*mcp.CallToolResult, SearchDocsOutput, error,
	) {
		limit := input.MaxResults
		if limit <= 0 {
			limit = defaultLimit
		}

		resp := engine.Search(input.Query, search.Options{
			Category:        input.Category,
			Kind:            search.Kind(input.Kind),
			Limit:           limit,
			IncludeSnippet:  input.IncludeSnippet,
			IsAuthenticated: input.Authenticated,
		})

		out := SearchDocsOutput{
			Results:      make([]SearchResult, 0, len(resp.Results)),
			TotalMatched: resp.TotalMatched,
			DidYouMean:   resp.DidYouMean,
		}
		for _, r := range resp.Results {
			out.Results = append(out.Results, toSearchResult(r))
		}

		switch {
		case isShortQuery(input.Query):
			out.Suggestions = engine.Suggest(input.Query)
			out.Message = fmt.Sprintf("Query must be at least %d characters.", search.MinQueryLength)
		case len(out.Results) == 0:
			out.Message = "No matching documents found. Try broader search terms."
		}
		return nil, out, nil
	}
}

func isShortQuery(q string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(q)) < search.MinQueryLength
}

func toSearchResult(r search.Result) SearchResult {
	res := SearchResult{
		ID:           r.Document.ID,
		Title:        r.Document.Title,
		URL:          r.Document.URL,
		Kind:         r.Document.Kind,
		Category:     r.Document.Category,
		Score:        r.Score,
		Weighted:     r.Weighted,
		MatchedTerms: r.MatchedTerms,
	}
	if res.MatchedTerms == nil {
		res.MatchedTerms = []string{} // Ensure non-nil for JSON marshaling
	}
	if r.Snippet != nil {
		res.Snippet = r.Snippet.Text
		res.Highlights = r.Snippet.Highlights
	}
	if !r.Document.LastUpdated.IsZero() {
		t := r.Document.LastUpdated
		res.UpdatedAt = &t
	}
	return res
}

// makeSuggestHandler creates the suggest tool handler.
func makeSuggestHandler(engine *search.Engine) func(
	context.Context, *mcp.CallToolRequest, SuggestInput,
) (*mcp.CallToolResult, SuggestOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SuggestInput) (
		*mcp.CallToolResult, SuggestOutput, error,
	) {
		suggestions := engine.Suggest(input.Partial)
		return nil, SuggestOutput{Suggestions: suggestions, Count: len(suggestions)}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
// Returns index size, available filters, history statistics and the last
// published build, with a warning when that build is old.
func makeStatusHandler(engine *search.Engine, builder Rebuilder, now func() time.Time) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		n := input.TopQueries
		if n <= 0 {
			n = defaultTopQueries
		}
		stats := engine.Stats(n)

		out := StatusOutput{
			Documents:   stats.Documents,
			HistorySize: stats.HistorySize,
			Categories:  stats.Filters.Categories,
			Kinds:       stats.Filters.Kinds,
			TopQueries:  stats.TopQueries,
			Collectors:  []string{},
		}

		if builder != nil {
			out.Collectors = builder.Collectors()
			out.LastBuild = builder.LastResult()
		}
		switch {
		case builder == nil:
		case out.LastBuild == nil:
			out.StaleWarning = "Index has not been built yet."
		case now().Sub(out.LastBuild.FinishedAt) > staleAfter:
			out.StaleWarning = fmt.Sprintf("Index was last rebuilt %s ago. Consider running reindex.",
				now().Sub(out.LastBuild.FinishedAt).Round(time.Minute))
		}
		return nil, out, nil
	}
}

// makeReindexHandler creates the reindex tool handler.
func makeReindexHandler(builder Rebuilder) func(
	context.Context, *mcp.CallToolRequest, ReindexInput,
) (*mcp.CallToolResult, ReindexOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ReindexInput) (
		*mcp.CallToolResult, ReindexOutput, error,
	) {
		result, err := builder.Rebuild(ctx)
		if errors.Is(err, indexer.ErrSuperseded) {
			return nil, ReindexOutput{
				Superseded: true,
				Message:    "A newer reindex request replaced this one.",
			}, nil
		}
		if err != nil {
			return nil, ReindexOutput{}, fmt.Errorf("reindex failed: %w", err)
		}

		msg := fmt.Sprintf("Indexed %d documents in %s.", result.Documents, result.Duration.Round(time.Millisecond))
		if len(result.Failures) > 0 {
			msg += fmt.Sprintf(" %d collector(s) failed and contributed no documents.", len(result.Failures))
		}
		return nil, ReindexOutput{Result: result, Message: msg}, nil
	}
}
