// Package history tracks past search queries with frequency and recency.
package history

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	// MaxEntries bounds the number of remembered queries.
	MaxEntries = 50
	// MaxSuggestions caps the output of Suggestions.
	MaxSuggestions = 8

	persistTimeout = 5 * time.Second
)

// Entry is one remembered query. It is the persisted JSON shape.
type Entry struct {
	Query           string    `json:"query"`
	Frequency       int       `json:"frequency"`
	FirstSeen       time.Time `json:"firstSeen"`
	LastSeen        time.Time `json:"lastSeen"`
	LastResultCount int       `json:"lastResultCount"`
}

// Store persists the entry list. Implementations live in internal/storage.
type Store interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}

// Tracker records queries, newest first. It is safe for concurrent use.
//
// Writes to the store happen on a background goroutine that only ever saves
// the latest snapshot; Record never waits for the store. Close flushes it.
type Tracker struct {
	mu      sync.Mutex
	entries []Entry
	store   Store
	logger  *slog.Logger
	now     func() time.Time

	pending chan []Entry // latest unsaved snapshot, capacity 1
	done    chan struct{}
	closed  bool
}

// NewTracker creates an empty tracker. store may be nil, in which case the
// history lives in memory only.
func NewTracker(store Store, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		store:  store,
		logger: logger,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	if store == nil {
		close(t.done)
		return t
	}
	t.pending = make(chan []Entry, 1)
	go t.writeLoop()
	return t
}

// SetClock overrides the tracker clock. Intended for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Load replaces the in-memory history with the persisted one. A failing
// store leaves the history empty; the error is logged, not returned.
func (t *Tracker) Load(ctx context.Context) {
	if t.store == nil {
		return
	}
	entries, err := t.store.Load(ctx)
	if err != nil {
		t.logger.Warn("Failed to load search history, starting empty", "error", err)
		entries = nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
	for _, e := range entries {
		if strings.TrimSpace(e.Query) == "" {
			continue
		}
		t.entries = append(t.entries, e)
	}
	t.trim()
	t.logger.Debug("Loaded search history", "entries", len(t.entries))
}

// Record notes a completed search for query that matched resultCount
// documents. Repeated queries, compared case-insensitively, update the
// existing entry in place.
func (t *Tracker) Record(query string, resultCount int) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	key := strings.ToLower(query)

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	i := slices.IndexFunc(t.entries, func(e Entry) bool {
		return strings.ToLower(e.Query) == key
	})
	if i >= 0 {
		e := &t.entries[i]
		e.Frequency++
		e.LastSeen = now
		e.LastResultCount = resultCount
	} else {
		t.entries = slices.Insert(t.entries, 0, Entry{
			Query:           query,
			Frequency:       1,
			FirstSeen:       now,
			LastSeen:        now,
			LastResultCount: resultCount,
		})
		t.trim()
	}
	t.enqueue(slices.Clone(t.entries))
}

// Close stops the background writer once the latest snapshot is saved, or
// when ctx ends. Records after Close stay in memory.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		if t.pending != nil {
			close(t.pending)
		}
	}
	t.mu.Unlock()

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue replaces any unsaved snapshot with entries. Callers hold t.mu, so
// snapshots enter the queue in the order they were taken.
func (t *Tracker) enqueue(entries []Entry) {
	if t.pending == nil || t.closed {
		return
	}
	for {
		select {
		case t.pending <- entries:
			return
		default:
		}
		// Drop the stale snapshot; the writer may have just taken it.
		select {
		case <-t.pending:
		default:
		}
	}
}

func (t *Tracker) writeLoop() {
	defer close(t.done)
	for entries := range t.pending {
		t.persist(entries)
	}
}

// Suggestions returns past queries containing partial, case-insensitively,
// most frequent first and then most recent. An empty partial matches every
// entry.
func (t *Tracker) Suggestions(partial string) []string {
	needle := strings.ToLower(strings.TrimSpace(partial))

	t.mu.Lock()
	var matches []Entry
	for _, e := range t.entries {
		if strings.Contains(strings.ToLower(e.Query), needle) {
			matches = append(matches, e)
		}
	}
	t.mu.Unlock()

	sortByPopularity(matches)
	out := make([]string, 0, min(len(matches), MaxSuggestions))
	for _, e := range matches {
		if len(out) == MaxSuggestions {
			break
		}
		out = append(out, e.Query)
	}
	return out
}

// Top returns up to n entries, most frequent first.
func (t *Tracker) Top(n int) []Entry {
	t.mu.Lock()
	entries := slices.Clone(t.entries)
	t.mu.Unlock()

	sortByPopularity(entries)
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries
}

// Entries returns a copy of the history, newest first.
func (t *Tracker) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.entries)
}

// Len returns the number of remembered queries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// trim drops the entries with the oldest FirstSeen until the cap holds.
// Callers hold t.mu.
func (t *Tracker) trim() {
	for len(t.entries) > MaxEntries {
		oldest := 0
		for i, e := range t.entries {
			if !e.FirstSeen.After(t.entries[oldest].FirstSeen) {
				oldest = i
			}
		}
		t.entries = slices.Delete(t.entries, oldest, oldest+1)
	}
}

func (t *Tracker) persist(entries []Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := t.store.Save(ctx, entries); err != nil {
		t.logger.Warn("Failed to save search history", "error", err)
	}
}

func sortByPopularity(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if a.Frequency != b.Frequency {
			return b.Frequency - a.Frequency
		}
		return b.LastSeen.Compare(a.LastSeen)
	})
}
