// Package markdown turns markdown pages into titled, plain-text sections
// suitable for indexing.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Section is the content under one H1 or H2 heading, up to the next H1 or H2.
type Section struct {
	Index      int    // Position in document (0, 1, 2...)
	Level      int    // Heading level (1 or 2)
	Title      string // Heading text
	Anchor     string // Auto-generated heading ID
	HeaderPath string // Hierarchy: "# Doc Title > ## Section Name"
	Text       string // Plain text of the section body, whitespace collapsed
}

// Page is a parsed markdown document.
type Page struct {
	FrontMatter FrontMatter
	Title       string    // Front matter title, else the first H1
	Intro       string    // Plain text before the first H1/H2
	Sections    []Section // H1/H2 sections in document order
}

// Parser splits markdown documents at header boundaries while preserving context.
type Parser struct {
	md goldmark.Markdown
}

// NewParser creates a new markdown parser configured with auto heading IDs.
func NewParser() *Parser {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Parser{md: md}
}

// Parse reads optional YAML front matter and splits the body into sections.
func (p *Parser) Parse(source []byte) (*Page, error) {
	fm, body, err := SplitFrontMatter(source)
	if err != nil {
		return nil, err
	}

	doc := p.md.Parser().Parse(text.NewReader(body))

	// Extract TOC with hierarchy
	tree, err := toc.Inspect(doc, body,
		toc.MinDepth(1),   // Include H1
		toc.MaxDepth(2),   // Split at H1 and H2 only
		toc.Compact(true), // Remove empty items
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	page := &Page{FrontMatter: fm, Title: fm.Title}

	var sections []Section
	p.extractSections(doc, body, tree.Items, nil, &sections)
	page.Sections = sections

	firstHeading := len(body)
	if first := findNextHeaderBoundary(doc, nil, 2); first != nil {
		firstHeading = lineStart(body, first.Lines().At(0).Start)
	}
	page.Intro = plainText(doc, body, 0, firstHeading)

	if page.Title == "" {
		for _, s := range sections {
			if s.Level == 1 {
				page.Title = s.Title
				break
			}
		}
	}
	return page, nil
}

// extractSections recursively walks TOC items to extract content with header paths.
func (p *Parser) extractSections(doc ast.Node, source []byte, items toc.Items, ancestors []string, sections *[]Section) {
	for _, item := range items {
		title := string(item.Title)
		currentPath := append(append([]string{}, ancestors...), title)

		// Find the header node in AST
		headerNode := findHeaderByID(doc, string(item.ID))
		if headerNode == nil || headerNode.Lines().Len() == 0 {
			continue
		}
		heading := headerNode.(*ast.Heading)

		// Body starts on the line after the heading and stops at the next H1/H2.
		start := lineEnd(source, heading.Lines().At(0).Stop)
		end := len(source)
		if next := findNextHeaderBoundary(doc, headerNode, 2); next != nil {
			end = lineStart(source, next.Lines().At(0).Start)
		}

		*sections = append(*sections, Section{
			Index:      len(*sections),
			Level:      heading.Level,
			Title:      title,
			Anchor:     string(item.ID),
			HeaderPath: formatHeaderPath(currentPath),
			Text:       plainText(doc, source, start, end),
		})

		// Process children (H2 under H1)
		if len(item.Items) > 0 {
			p.extractSections(doc, source, item.Items, currentPath, sections)
		}
	}
}

// formatHeaderPath builds a header hierarchy string.
// Example: ["Installation", "Prerequisites"] -> "# Installation > ## Prerequisites"
func formatHeaderPath(path []string) string {
	if len(path) == 0 {
		return ""
	}

	var parts []string
	for i, segment := range path {
		prefix := strings.Repeat("#", i+1)
		parts = append(parts, fmt.Sprintf("%s %s", prefix, segment))
	}

	return strings.Join(parts, " > ")
}

// findHeaderByID locates a heading node by its auto-generated ID.
func findHeaderByID(node ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			headingID, ok := n.AttributeString("id")
			if ok {
				if b, isBytes := headingID.([]byte); isBytes && string(b) == id {
					found = n
					return ast.WalkStop, nil
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// findNextHeaderBoundary finds the first heading at or above maxLevel after
// current. A nil current searches from the start of the document.
func findNextHeaderBoundary(root ast.Node, current ast.Node, maxLevel int) ast.Node {
	var next ast.Node
	foundCurrent := current == nil

	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		if !foundCurrent {
			if n == current {
				foundCurrent = true
			}
			return ast.WalkContinue, nil
		}
		if n.(*ast.Heading).Level <= maxLevel && n.Lines().Len() > 0 {
			next = n
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return next
}

// plainText collects the text of every inline and code node whose source
// starts within [from, to), collapsing whitespace.
func plainText(root ast.Node, source []byte, from, to int) string {
	var buf bytes.Buffer
	inRange := func(seg text.Segment) bool {
		return seg.Start >= from && seg.Start < to
	}

	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				buf.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			if inRange(node.Segment) {
				buf.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte(' ')
				}
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				if seg := lines.At(i); inRange(seg) {
					buf.Write(seg.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(buf.String()), " ")
}

// lineStart returns the offset of the start of the line containing pos.
func lineStart(source []byte, pos int) int {
	if i := bytes.LastIndexByte(source[:pos], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

// lineEnd returns the offset just past the newline ending the line
// containing pos.
func lineEnd(source []byte, pos int) int {
	if i := bytes.IndexByte(source[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(source)
}
