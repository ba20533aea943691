package search

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"
)

// Store maps document IDs to indexed documents. Iteration follows first
// insertion order so equal-score ties resolve the same way on every query.
// A Store is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	order      []string
	categories map[string]int
	kinds      map[Kind]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries:    make(map[string]*entry),
		categories: make(map[string]int),
		kinds:      make(map[Kind]int),
	}
}

// Upsert indexes doc, replacing any document with the same ID. A replaced
// document keeps its original position in iteration order.
func (s *Store) Upsert(doc Document) error {
	if strings.TrimSpace(doc.ID) == "" {
		return fmt.Errorf("%w: missing id (title %q)", ErrInvalidDocument, doc.Title)
	}
	if doc.Weight <= 0 {
		doc.Weight = 1
	}
	e := newEntry(doc)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[doc.ID]; ok {
		s.untrack(old.doc)
	} else {
		s.order = append(s.order, doc.ID)
	}
	s.entries[doc.ID] = e
	s.track(doc)
	return nil
}

// Remove deletes the document with the given ID if present.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.entries[id]
	if !ok {
		return
	}
	s.untrack(old.doc)
	delete(s.entries, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

// Clear empties the store and its derived filter sets.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)
	s.order = nil
	s.categories = make(map[string]int)
	s.kinds = make(map[Kind]int)
}

// Get returns the document with the given ID.
func (s *Store) Get(id string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return Document{}, false
	}
	return e.doc, true
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// All returns the stored documents in insertion order. The sequence can be
// ranged over any number of times; each pass sees the store as it was when
// that pass started.
func (s *Store) All() iter.Seq[Document] {
	return func(yield func(Document) bool) {
		for e := range s.scan() {
			if !yield(e.doc) {
				return
			}
		}
	}
}

// AvailableFilters returns the distinct categories and kinds, sorted.
func (s *Store) AvailableFilters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := Filters{
		Categories: make([]string, 0, len(s.categories)),
		Kinds:      make([]Kind, 0, len(s.kinds)),
	}
	for c := range s.categories {
		f.Categories = append(f.Categories, c)
	}
	for k := range s.kinds {
		f.Kinds = append(f.Kinds, k)
	}
	slices.Sort(f.Categories)
	slices.Sort(f.Kinds)
	return f
}

// scan yields a snapshot of the entries in insertion order.
func (s *Store) scan() iter.Seq[*entry] {
	return func(yield func(*entry) bool) {
		s.mu.RLock()
		snapshot := make([]*entry, 0, len(s.order))
		for _, id := range s.order {
			snapshot = append(snapshot, s.entries[id])
		}
		s.mu.RUnlock()

		for _, e := range snapshot {
			if !yield(e) {
				return
			}
		}
	}
}

func (s *Store) track(doc Document) {
	if doc.Category != "" {
		s.categories[doc.Category]++
	}
	if doc.Kind != "" {
		s.kinds[doc.Kind]++
	}
}

func (s *Store) untrack(doc Document) {
	if doc.Category != "" {
		s.categories[doc.Category]--
		if s.categories[doc.Category] <= 0 {
			delete(s.categories, doc.Category)
		}
	}
	if doc.Kind != "" {
		s.kinds[doc.Kind]--
		if s.kinds[doc.Kind] <= 0 {
			delete(s.kinds, doc.Kind)
		}
	}
}
