// Package search implements the in-memory site search engine: tokenizer,
// index store, relevance ranking, suggestions and snippets.
package search

import (
	"errors"
	"time"
)

// ErrInvalidDocument is returned by Store.Upsert when a document has no ID.
var ErrInvalidDocument = errors.New("invalid document")

// Kind is the categorical tag of an indexed document.
type Kind string

const (
	KindPage    Kind = "page"
	KindFeature Kind = "feature"
	KindDynamic Kind = "dynamic"
)

// StaleAfter is the age after which a document's score is decayed.
const StaleAfter = 30 * 24 * time.Hour

// Document is one indexed, searchable unit.
type Document struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	URL          string    `json:"url"`
	Kind         Kind      `json:"kind"`
	Category     string    `json:"category"`
	Weight       int       `json:"weight"`
	RequiresAuth bool      `json:"requiresAuth"`
	LastUpdated  time.Time `json:"lastUpdated,omitzero"`

	// Tokens is derived from Title and Body on every upsert.
	Tokens []string `json:"-"`
}

// Filters lists the distinct categories and kinds present in a store.
type Filters struct {
	Categories []string `json:"categories"`
	Kinds      []Kind   `json:"kinds"`
}

// entry is the stored form of a document with precomputed match text.
type entry struct {
	doc        Document
	title      string // folded title
	searchable string // folded title + body
	tokenSet   map[string]struct{}
}

func newEntry(doc Document) *entry {
	text := doc.Title + " " + doc.Body
	doc.Tokens = Tokenize(text)
	set := make(map[string]struct{}, len(doc.Tokens))
	for _, t := range doc.Tokens {
		set[t] = struct{}{}
	}
	return &entry{
		doc:        doc,
		title:      Fold(doc.Title),
		searchable: Fold(text),
		tokenSet:   set,
	}
}
