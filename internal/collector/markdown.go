package collector

import (
	"context"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bull/bge-search/internal/markdown"
	"github.com/bull/bge-search/internal/metadata"
	"github.com/bull/bge-search/internal/search"
)

// DefaultMarkdownCategory is used when neither front matter nor the file's
// directory names a category.
const DefaultMarkdownCategory = "documentación"

// docNamespace seeds the deterministic IDs of markdown documents.
var docNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bge-search/markdown"))

// Summarizer writes a description for pages that lack one.
type Summarizer interface {
	GenerateMetadata(ctx context.Context, title, content string) (*metadata.DocumentMetadata, error)
}

// MarkdownOption configures the markdown based collectors.
type MarkdownOption func(*pageMapper)

// WithSummarizer enables generated descriptions.
func WithSummarizer(s Summarizer) MarkdownOption {
	return func(m *pageMapper) { m.summarizer = s }
}

// WithMarkdownLogger sets the logger.
func WithMarkdownLogger(l *slog.Logger) MarkdownOption {
	return func(m *pageMapper) { m.logger = l }
}

// pageMapper turns one markdown file into a page document and one document
// per H1/H2 section.
type pageMapper struct {
	parser     *markdown.Parser
	summarizer Summarizer
	logger     *slog.Logger
}

func newPageMapper(opts []MarkdownOption) *pageMapper {
	m := &pageMapper{parser: markdown.NewParser(), logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// documents maps the file at relPath. source namespaces the IDs so equal
// paths in different collectors do not collide. Drafts produce nothing.
func (m *pageMapper) documents(ctx context.Context, source, relPath, pageURL string, content []byte) ([]search.Document, error) {
	page, err := m.parser.Parse(content)
	if err != nil {
		return nil, err
	}
	fm := page.FrontMatter
	if fm.Draft {
		return nil, nil
	}

	title := page.Title
	if title == "" {
		title = titleFromPath(relPath)
	}
	category := fm.Category
	if category == "" {
		category = categoryFromPath(relPath)
	}

	base := search.Document{
		Kind:         search.KindPage,
		Category:     category,
		Weight:       fm.Weight,
		RequiresAuth: fm.RequiresAuth,
		LastUpdated:  fm.Updated(),
	}

	parts := []string{fm.Description, page.Intro}
	for _, s := range page.Sections {
		parts = append(parts, s.Title, s.Text)
	}
	body := joinNonEmpty(parts)

	if fm.Description == "" && m.summarizer != nil {
		meta, err := m.summarizer.GenerateMetadata(ctx, title, body)
		if err != nil {
			m.logger.Warn("summary generation failed", "path", relPath, "error", err)
		} else {
			body = joinNonEmpty([]string{meta.Text(), body})
		}
	}

	pageDoc := base
	pageDoc.ID = docID(source, relPath, "")
	pageDoc.Title = title
	pageDoc.Body = body
	pageDoc.URL = pageURL
	docs := []search.Document{pageDoc}

	for _, s := range page.Sections {
		if s.Title == title && s.Level == 1 {
			// The H1 restates the page title; the page document covers it.
			continue
		}
		doc := base
		doc.ID = docID(source, relPath, s.Anchor)
		doc.Title = s.Title
		doc.Body = s.Text
		doc.URL = pageURL + "#" + s.Anchor
		docs = append(docs, doc)
	}
	return docs, nil
}

func docID(source, relPath, anchor string) string {
	return uuid.NewSHA1(docNamespace, []byte(source+"\x00"+relPath+"#"+anchor)).String()
}

func titleFromPath(relPath string) string {
	name := strings.TrimSuffix(path.Base(relPath), path.Ext(relPath))
	if name == "index" || name == "_index" {
		if dir := path.Base(path.Dir(relPath)); dir != "." && dir != "/" {
			name = dir
		}
	}
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	if name == "" {
		return relPath
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

func categoryFromPath(relPath string) string {
	dir := path.Dir(relPath)
	if dir == "." || dir == "/" {
		return DefaultMarkdownCategory
	}
	first, _, _ := strings.Cut(dir, "/")
	return first
}

// pageURL joins baseURL with the file path minus its extension. index files
// map to their directory.
func pageURL(baseURL, relPath string) string {
	p := strings.TrimSuffix(relPath, path.Ext(relPath))
	switch path.Base(p) {
	case "index", "_index":
		p = path.Dir(p)
		if p == "." {
			p = ""
		}
	}
	return strings.TrimRight(baseURL, "/") + "/" + p
}

func joinNonEmpty(parts []string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// MarkdownDir indexes every .md file of a file system.
type MarkdownDir struct {
	name    string
	fsys    fs.FS
	baseURL string
	mapper  *pageMapper
}

// NewMarkdownDir creates a collector over fsys. Page URLs are rooted at baseURL.
func NewMarkdownDir(name string, fsys fs.FS, baseURL string, opts ...MarkdownOption) *MarkdownDir {
	return &MarkdownDir{name: name, fsys: fsys, baseURL: baseURL, mapper: newPageMapper(opts)}
}

func (d *MarkdownDir) Name() string { return d.name }

// FetchDocuments walks the file system in lexical order. Files that fail to
// parse are logged and skipped.
func (d *MarkdownDir) FetchDocuments(ctx context.Context) ([]search.Document, error) {
	var docs []search.Document
	err := fs.WalkDir(d.fsys, ".", func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || path.Ext(p) != ".md" {
			return nil
		}

		content, err := fs.ReadFile(d.fsys, p)
		if err != nil {
			return err
		}
		fileDocs, err := d.mapper.documents(ctx, d.name, p, pageURL(d.baseURL, p), content)
		if err != nil {
			d.mapper.logger.Warn("skipping markdown file", "collector", d.name, "path", p, "error", err)
			return nil
		}
		docs = append(docs, fileDocs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}
