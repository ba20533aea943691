package search

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const ellipsis = "..."

// Span is a half-open byte range [Start, End) within a snippet's Text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Snippet is a short excerpt of a document body with the positions of the
// matched substrings. Rendering the highlights is left to the caller.
type Snippet struct {
	Text       string `json:"text"`
	Highlights []Span `json:"highlights,omitempty"`
}

// MakeSnippet extracts an excerpt of body around the first occurrence of
// query, keeping contextRunes runes on each side. When the query does not
// occur, the first maxLength runes of body are used instead. Matching ignores
// case and diacritics. Occurrences of query and of every term inside the
// excerpt are reported as highlights.
func MakeSnippet(body, query string, terms []string, contextRunes, maxLength int) Snippet {
	src := []rune(norm.NFC.String(body))
	text := foldText(src)
	needle := foldText([]rune(norm.NFC.String(strings.TrimSpace(query)))).runes

	start, end := 0, len(src)
	if idx := indexRunes(text.runes, needle, 0); idx >= 0 {
		start = max(0, text.pos[idx]-contextRunes)
		end = min(len(src), text.srcEnd(idx+len(needle))+contextRunes)
	} else if len(src) > maxLength {
		end = maxLength
	}

	var prefix, suffix string
	if start > 0 {
		prefix = ellipsis
	}
	if end < len(src) {
		suffix = ellipsis
	}

	spans := text.spans(needle, start, end)
	for _, t := range terms {
		spans = append(spans, text.spans(foldText([]rune(t)).runes, start, end)...)
	}
	spans = mergeSpans(spans)

	// Translate rune spans of src into byte offsets in the text.
	offsets := make([]int, end-start+1)
	for i, r := range src[start:end] {
		offsets[i+1] = offsets[i] + utf8.RuneLen(r)
	}
	highlights := make([]Span, 0, len(spans))
	for _, sp := range spans {
		highlights = append(highlights, Span{
			Start: len(prefix) + offsets[sp.Start-start],
			End:   len(prefix) + offsets[sp.End-start],
		})
	}
	if len(highlights) == 0 {
		highlights = nil
	}

	return Snippet{
		Text:       prefix + string(src[start:end]) + suffix,
		Highlights: highlights,
	}
}

// foldedText is a rune slice folded for matching, with combining marks
// dropped. pos[i] is the index in the source of folded rune i.
type foldedText struct {
	runes []rune
	pos   []int
	n     int // source length
}

func foldText(src []rune) foldedText {
	ft := foldedText{
		runes: make([]rune, 0, len(src)),
		pos:   make([]int, 0, len(src)),
		n:     len(src),
	}
	for i, r := range src {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		ft.runes = append(ft.runes, foldRune(r))
		ft.pos = append(ft.pos, i)
	}
	return ft
}

// srcEnd maps the exclusive folded end j to the source, so marks trailing
// the last matched rune stay inside the span.
func (ft foldedText) srcEnd(j int) int {
	if j < len(ft.pos) {
		return ft.pos[j]
	}
	return ft.n
}

// spans returns the source spans of needle lying within [from, to).
func (ft foldedText) spans(needle []rune, from, to int) []Span {
	var out []Span
	for _, sp := range findSpans(ft.runes, needle) {
		s, e := ft.pos[sp.Start], ft.srcEnd(sp.End)
		if s >= from && e <= to {
			out = append(out, Span{Start: s, End: e})
		}
	}
	return out
}

// indexRunes returns the index of the first occurrence of needle in hay at
// or after from, or -1.
func indexRunes(hay, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(hay); i++ {
		if slices.Equal(hay[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

// findSpans returns the rune spans of every non-overlapping occurrence of
// needle in hay.
func findSpans(hay, needle []rune) []Span {
	var spans []Span
	for i := indexRunes(hay, needle, 0); i >= 0; i = indexRunes(hay, needle, i+len(needle)) {
		spans = append(spans, Span{Start: i, End: i + len(needle)})
	}
	return spans
}

func mergeSpans(spans []Span) []Span {
	if len(spans) < 2 {
		return spans
	}
	slices.SortFunc(spans, func(a, b Span) int { return a.Start - b.Start })
	merged := []Span{spans[0]}
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.Start <= last.End {
			last.End = max(last.End, sp.End)
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}
