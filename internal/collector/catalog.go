package collector

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bull/bge-search/internal/search"
)

//go:embed catalog.toml
var defaultCatalog []byte

// CatalogEntry is one hand-maintained page or feature descriptor.
type CatalogEntry struct {
	ID           string    `toml:"id"`
	Title        string    `toml:"title"`
	Description  string    `toml:"description"`
	Keywords     []string  `toml:"keywords"`
	URL          string    `toml:"url"`
	Category     string    `toml:"category"`
	Weight       int       `toml:"weight"`
	RequiresAuth bool      `toml:"requiresAuth"`
	Updated      time.Time `toml:"updated"`
}

// Catalog is the static content of the site plus its correction table.
type Catalog struct {
	Pages       []CatalogEntry      `toml:"page"`
	Features    []CatalogEntry      `toml:"feature"`
	Corrections []search.Correction `toml:"correction"`
}

// ParseCatalog decodes a TOML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &c, nil
}

// LoadCatalog reads a catalog file. An empty path returns the embedded default.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// Collectors returns one collector for the pages and one for the features.
func (c *Catalog) Collectors() []Collector {
	return []Collector{
		NewStatic("pages", entryDocuments(c.Pages, search.KindPage)),
		NewStatic("features", entryDocuments(c.Features, search.KindFeature)),
	}
}

// CorrectionTable returns the catalog's corrections, or the built-in table
// when the catalog defines none.
func (c *Catalog) CorrectionTable() []search.Correction {
	if len(c.Corrections) == 0 {
		return search.DefaultCorrections()
	}
	return c.Corrections
}

func entryDocuments(entries []CatalogEntry, kind search.Kind) []search.Document {
	docs := make([]search.Document, 0, len(entries))
	for _, e := range entries {
		body := e.Description
		if len(e.Keywords) > 0 {
			body += " " + strings.Join(e.Keywords, " ")
		}
		docs = append(docs, search.Document{
			ID:           e.ID,
			Title:        e.Title,
			Body:         body,
			URL:          e.URL,
			Kind:         kind,
			Category:     e.Category,
			Weight:       e.Weight,
			RequiresAuth: e.RequiresAuth,
			LastUpdated:  e.Updated,
		})
	}
	return docs
}
