package search

import (
	"strings"

	"github.com/bull/bge-search/internal/history"
)

// MaxSuggestions caps autocomplete output.
const MaxSuggestions = history.MaxSuggestions

// Suggest returns autocomplete candidates for a partial query: matching
// document titles in store order, then matching past queries. Duplicates
// are dropped, keeping the first occurrence.
func (e *Engine) Suggest(partial string) []string {
	partial = strings.TrimSpace(partial)
	if partial == "" {
		return []string{}
	}
	needle := Fold(partial)

	out := make([]string, 0, MaxSuggestions)
	seen := make(map[string]struct{}, MaxSuggestions)
	add := func(s string) bool {
		if _, ok := seen[s]; ok {
			return len(out) < MaxSuggestions
		}
		seen[s] = struct{}{}
		out = append(out, s)
		return len(out) < MaxSuggestions
	}

	for en := range e.store.Load().scan() {
		if strings.Contains(en.title, needle) {
			if !add(en.doc.Title) {
				return out
			}
		}
	}

	if e.history != nil {
		for _, q := range e.history.Suggestions(partial) {
			if !add(q) {
				return out
			}
		}
	}
	return out
}
