package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinTokenLength is the shortest token the tokenizer keeps, in runes.
const MinTokenLength = 2

// Fold lowercases text and strips diacritics, so "Educación" folds to "educacion".
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}

// Tokenize normalizes text and splits it into searchable terms.
// Punctuation is treated as a separator and tokens shorter than
// MinTokenLength runes are dropped.
func Tokenize(text string) []string {
	folded := Fold(text)
	if strings.TrimSpace(folded) == "" {
		return nil
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, folded)

	fields := strings.Fields(cleaned)
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= MinTokenLength {
			tokens = append(tokens, f)
		}
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// foldRune folds a single rune the same way Fold does, keeping a one to one
// rune mapping so offsets survive.
func foldRune(r rune) rune {
	if r < unicode.MaxASCII {
		return unicode.ToLower(r)
	}
	for _, d := range norm.NFD.String(string(r)) {
		if !unicode.Is(unicode.Mn, d) {
			return unicode.ToLower(d)
		}
	}
	return unicode.ToLower(r)
}

func uniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
