// Package main provides the bge-search CLI for rebuilding and querying the
// site search index from a terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/bge-search/internal/app"
	"github.com/bull/bge-search/internal/config"
	"github.com/bull/bge-search/internal/search"
)

const envHelp = `
Environment variables:
  CATALOG_PATH      TOML catalog of pages, features and corrections (default: embedded)
  CONTENT_API_URL   Base URL of the categories API (optional)
  DOCS_DIR          Local markdown directory (optional)
  GITHUB_DOCS_OWNER GitHub docs repository owner (optional)
  GITHUB_DOCS_REPO  GitHub docs repository name (optional)
  GITHUB_TOKEN      GitHub token for higher rate limits (optional)
  OPENAI_API_KEY    Enables generated summaries for markdown pages (optional)
  HISTORY_BACKEND   none, file, sqlite or qdrant (default: none)`

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var asJSON bool

	root := &cobra.Command{
		Use:           "bge-search",
		Short:         "Bachillerato General Estatal site search tool",
		Long:          "CLI tool for building and querying the BGE site search index." + envHelp,
		SilenceUsage:  true,
	}
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "print machine-readable JSON")

	root.AddCommand(
		newReindexCmd(&asJSON),
		newQueryCmd(&asJSON),
		newSuggestCmd(&asJSON),
		newStatsCmd(&asJSON),
	)
	return root
}

// loadApp builds the application and populates the index once.
func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, app.NewLogger(cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	if _, err := a.Builder.Rebuild(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("build index: %w", err)
	}
	return a, nil
}

func newReindexCmd(asJSON *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the index from every content source",
		Long: `Fetches every configured collector and reports what was indexed.

This command:
1. Loads the static catalog and corrections
2. Fetches the category API, markdown directory and GitHub docs when configured
3. Builds a fresh index, skipping invalid documents
4. Prints document counts and failed collectors` + envHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := app.New(ctx, cfg, app.NewLogger(cfg.LogLevel))
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if !*asJSON {
				fmt.Fprintf(out, "Rebuilding from %s...\n\n", strings.Join(a.Builder.Collectors(), ", "))
			}
			result, err := a.Builder.Rebuild(ctx)
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}
			if *asJSON {
				return writeJSON(out, result)
			}

			fmt.Fprintln(out, "Reindex complete!")
			fmt.Fprintf(out, "  Build: %s\n", result.BuildID)
			fmt.Fprintf(out, "  Documents: %d (%d indexed, %d skipped)\n", result.Documents, result.Indexed, result.Skipped)
			fmt.Fprintf(out, "  Duration: %s\n", result.Duration.Round(time.Millisecond))
			if len(result.Failures) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Failed collectors:")
				for _, f := range result.Failures {
					fmt.Fprintf(out, "  - %s: %s\n", f.Collector, f.Reason)
				}
			}
			return nil
		},
	}
}

func newQueryCmd(asJSON *bool) *cobra.Command {
	var opts search.Options
	var kind string

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Search the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if opts.Limit <= 0 {
				opts.Limit = a.Config.SearchLimit
			}
			opts.Kind = search.Kind(kind)
			query := strings.Join(args, " ")
			resp := a.Engine.Search(query, opts)

			out := cmd.OutOrStdout()
			if *asJSON {
				return writeJSON(out, resp)
			}

			if len(resp.Results) == 0 {
				fmt.Fprintf(out, "No results for %q.\n", query)
				if len(resp.DidYouMean) > 0 {
					fmt.Fprintf(out, "Did you mean: %s?\n", strings.Join(resp.DidYouMean, ", "))
				}
				if s := a.Engine.Suggest(query); len(s) > 0 && len([]rune(strings.TrimSpace(query))) < search.MinQueryLength {
					fmt.Fprintf(out, "Suggestions: %s\n", strings.Join(s, ", "))
				}
				return nil
			}

			fmt.Fprintf(out, "%d of %d results for %q (%s)\n\n", len(resp.Results), resp.TotalMatched, query, resp.Elapsed.Round(time.Microsecond))
			for i, r := range resp.Results {
				fmt.Fprintf(out, "%2d. %s  [%s/%s]  %.1f\n", i+1, r.Document.Title, r.Document.Kind, r.Document.Category, r.Weighted)
				fmt.Fprintf(out, "    %s\n", r.Document.URL)
				if r.Snippet != nil {
					fmt.Fprintf(out, "    %s\n", r.Snippet.Text)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Category, "category", "", "only return documents in this category")
	cmd.Flags().StringVar(&kind, "kind", "", "only return documents of this kind (page, feature, dynamic)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of results (default SEARCH_LIMIT)")
	cmd.Flags().BoolVar(&opts.IsAuthenticated, "auth", false, "include documents that require sign-in")
	cmd.Flags().BoolVar(&opts.IncludeSnippet, "snippet", false, "print a body excerpt for each result")
	return cmd
}

func newSuggestCmd(asJSON *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <partial>",
		Short: "Autocomplete a partial query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			suggestions := a.Engine.Suggest(strings.Join(args, " "))
			out := cmd.OutOrStdout()
			if *asJSON {
				return writeJSON(out, suggestions)
			}
			for _, s := range suggestions {
				fmt.Fprintln(out, s)
			}
			return nil
		},
	}
}

func newStatsCmd(asJSON *bool) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index size, filters and the most frequent queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			stats := a.Engine.Stats(top)
			out := cmd.OutOrStdout()
			if *asJSON {
				return writeJSON(out, stats)
			}

			fmt.Fprintf(out, "Documents: %d\n", stats.Documents)
			fmt.Fprintf(out, "Categories: %s\n", strings.Join(stats.Filters.Categories, ", "))
			kinds := make([]string, len(stats.Filters.Kinds))
			for i, k := range stats.Filters.Kinds {
				kinds[i] = string(k)
			}
			fmt.Fprintf(out, "Kinds: %s\n", strings.Join(kinds, ", "))
			fmt.Fprintf(out, "History: %d queries\n", stats.HistorySize)
			for _, e := range stats.TopQueries {
				fmt.Fprintf(out, "  %4d  %s (last %d results)\n", e.Frequency, e.Query, e.LastResultCount)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of frequent queries to show")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
