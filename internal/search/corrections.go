package search

import "strings"

// Correction maps a canonical term to the misspellings that should suggest it.
type Correction struct {
	Term         string   `toml:"term" json:"term"`
	Misspellings []string `toml:"misspellings" json:"misspellings"`
}

// DefaultCorrections returns the built-in "did you mean" table.
func DefaultCorrections() []Correction {
	return []Correction{
		{Term: "calificaciones", Misspellings: []string{"calificasiones", "kalificaciones", "califcaciones", "calificacion"}},
		{Term: "inscripción", Misspellings: []string{"inscripcion", "incripcion", "inscrpcion", "inscricion"}},
		{Term: "becas", Misspellings: []string{"veca", "beka", "vecas", "bekas"}},
		{Term: "horario", Misspellings: []string{"orario", "horaio", "horarios de clase"}},
		{Term: "pagos", Misspellings: []string{"pajos", "pagoz", "colegiatura"}},
		{Term: "calendario", Misspellings: []string{"calendaro", "calenadrio", "kalendario"}},
		{Term: "constancia", Misspellings: []string{"constansia", "costancia", "konstancia"}},
		{Term: "docentes", Misspellings: []string{"dosentes", "docente", "maestros"}},
	}
}

// DidYouMean returns up to three canonical terms whose misspellings occur
// in query. It is a fixed lookup table, not an edit-distance search.
func (e *Engine) DidYouMean(query string) []string {
	q := Fold(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var out []string
	for _, c := range e.corrections {
		if Fold(c.Term) == q {
			continue
		}
		for _, m := range c.Misspellings {
			fm := Fold(m)
			if fm != "" && strings.Contains(q, fm) {
				out = append(out, c.Term)
				break
			}
		}
		if len(out) == maxDidYouMean {
			break
		}
	}
	return out
}
