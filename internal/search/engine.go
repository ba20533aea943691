package search

import (
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bull/bge-search/internal/history"
)

// Defaults applied to zero-valued Options fields.
const (
	DefaultLimit            = 50
	DefaultSnippetContext   = 50
	DefaultSnippetMaxLength = 150
	MinQueryLength          = 2
	maxDidYouMean           = 3
)

// Options narrows and shapes a search.
type Options struct {
	Category         string
	Kind             Kind
	Limit            int
	IncludeSnippet   bool
	IsAuthenticated  bool
	SnippetContext   int
	SnippetMaxLength int
}

// Result is one ranked document.
type Result struct {
	Document     Document `json:"document"`
	Score        float64  `json:"score"`
	Weighted     float64  `json:"weighted"`
	MatchedTerms []string `json:"matchedTerms"`
	Snippet      *Snippet `json:"snippet,omitempty"`
}

// Response is the outcome of a search. TotalMatched counts every matching
// document before the limit is applied.
type Response struct {
	Results      []Result      `json:"results"`
	TotalMatched int           `json:"totalMatched"`
	Elapsed      time.Duration `json:"elapsed"`
	DidYouMean   []string      `json:"didYouMean,omitempty"`
}

// Observer receives a notification for every search the engine runs.
type Observer interface {
	ObserveSearch(matched int, short bool, elapsed time.Duration)
}

// Stats is a read-only view of the engine state.
type Stats struct {
	Documents   int             `json:"documents"`
	HistorySize int             `json:"historySize"`
	Filters     Filters         `json:"filters"`
	TopQueries  []history.Entry `json:"topQueries"`
}

// Engine answers searches and suggestions against the current store.
// The store is replaced wholesale by Swap; a search keeps using the
// snapshot it started with.
type Engine struct {
	store       atomic.Pointer[Store]
	history     *history.Tracker
	corrections []Correction
	observer    Observer
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithHistory records every completed search in h and uses it for suggestions.
func WithHistory(h *history.Tracker) Option {
	return func(e *Engine) { e.history = h }
}

// WithCorrections replaces the default "did you mean" table.
func WithCorrections(c []Correction) Option {
	return func(e *Engine) { e.corrections = c }
}

// WithObserver reports searches to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the clock used for staleness decay.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over an empty store.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		corrections: DefaultCorrections(),
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.store.Store(NewStore())
	return e
}

// Store returns the current store. Upserts on it are visible to searches
// immediately.
func (e *Engine) Store() *Store {
	return e.store.Load()
}

// Swap publishes s as the current store and returns the previous one.
func (e *Engine) Swap(s *Store) *Store {
	if s == nil {
		s = NewStore()
	}
	return e.store.Swap(s)
}

// Search ranks the documents matching query. Queries shorter than
// MinQueryLength runes return an empty response without touching the index.
func (e *Engine) Search(query string, opts Options) Response {
	start := time.Now()
	query = strings.TrimSpace(query)

	if len([]rune(query)) < MinQueryLength {
		resp := Response{Results: []Result{}, Elapsed: time.Since(start)}
		e.observe(0, true, resp.Elapsed)
		return resp
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	phrase := Fold(query)
	terms := uniqueTokens(Tokenize(query))
	now := e.now()

	var matches []Result
	for en := range e.store.Load().scan() {
		doc := en.doc
		if opts.Category != "" && doc.Category != opts.Category {
			continue
		}
		if opts.Kind != "" && doc.Kind != opts.Kind {
			continue
		}
		if doc.RequiresAuth && !opts.IsAuthenticated {
			continue
		}

		sc := score(en, phrase, terms, now)
		if sc.score <= 0 {
			continue
		}
		matches = append(matches, Result{
			Document:     doc,
			Score:        sc.score,
			Weighted:     sc.score * float64(doc.Weight),
			MatchedTerms: sc.matched,
		})
	}

	// Stable so equal keys keep store order.
	slices.SortStableFunc(matches, func(a, b Result) int {
		switch {
		case a.Weighted > b.Weighted:
			return -1
		case a.Weighted < b.Weighted:
			return 1
		}
		return 0
	})

	total := len(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	if opts.IncludeSnippet {
		ctxRunes := opts.SnippetContext
		if ctxRunes <= 0 {
			ctxRunes = DefaultSnippetContext
		}
		maxLen := opts.SnippetMaxLength
		if maxLen <= 0 {
			maxLen = DefaultSnippetMaxLength
		}
		for i := range matches {
			sn := MakeSnippet(matches[i].Document.Body, query, terms, ctxRunes, maxLen)
			matches[i].Snippet = &sn
		}
	}

	resp := Response{
		Results:      matches,
		TotalMatched: total,
	}
	if resp.Results == nil {
		resp.Results = []Result{}
	}
	if total == 0 {
		resp.DidYouMean = e.DidYouMean(query)
	}

	resp.Elapsed = time.Since(start)
	e.logger.Debug("Search complete",
		"query", query,
		"terms", len(terms),
		"matched", total,
		"returned", len(resp.Results),
		"duration", resp.Elapsed,
	)
	e.observe(total, false, resp.Elapsed)

	// Recording only queues a snapshot; persistence runs in the background.
	if e.history != nil {
		e.history.Record(query, total)
	}
	return resp
}

// Stats reports index and history diagnostics, including the n most
// frequent past queries.
func (e *Engine) Stats(n int) Stats {
	s := e.store.Load()
	st := Stats{
		Documents:  s.Len(),
		Filters:    s.AvailableFilters(),
		TopQueries: []history.Entry{},
	}
	if e.history != nil {
		st.HistorySize = e.history.Len()
		st.TopQueries = e.history.Top(n)
	}
	return st
}

// History returns the tracker the engine records into, or nil.
func (e *Engine) History() *history.Tracker {
	return e.history
}

func (e *Engine) observe(matched int, short bool, elapsed time.Duration) {
	if e.observer != nil {
		e.observer.ObserveSearch(matched, short, elapsed)
	}
}
