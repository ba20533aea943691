package search

import (
	"strings"
	"time"
)

// Relevance weights.
const (
	titlePhraseBonus  = 100
	exactTokenBonus   = 10
	partialTokenBonus = 5
	titleTokenBonus   = 15
	textTokenBonus    = 3
	coverageBonus     = 5
	staleDecay        = 0.9
)

// scored is the outcome of scoring one entry against a query.
type scored struct {
	score   float64
	matched []string
}

// score computes the heuristic relevance of e for a query. phrase is the
// folded, trimmed query; terms are its de-duplicated tokens.
func score(e *entry, phrase string, terms []string, now time.Time) scored {
	var s scored

	if phrase != "" && strings.Contains(e.title, phrase) {
		s.score += titlePhraseBonus
	}

	covered := 0
	for _, t := range terms {
		var points float64
		hit := false

		if _, ok := e.tokenSet[t]; ok {
			points += exactTokenBonus
			hit = true
		}
		for _, dt := range e.doc.Tokens {
			if dt != t && strings.Contains(dt, t) {
				points += partialTokenBonus
				hit = true
			}
		}
		if strings.Contains(e.title, t) {
			points += titleTokenBonus
		}
		if strings.Contains(e.searchable, t) {
			points += textTokenBonus
		}

		if hit {
			covered++
		}
		if points > 0 {
			s.matched = append(s.matched, t)
		}
		s.score += points
	}

	if covered > 1 {
		s.score += float64(coverageBonus * covered)
	}

	if !e.doc.LastUpdated.IsZero() && now.Sub(e.doc.LastUpdated) > StaleAfter {
		s.score *= staleDecay
	}
	return s
}
