package search

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggest_TitlesThenHistory(t *testing.T) {
	e := newTestEngine(t,
		Document{ID: "1", Title: "Becas"},
		Document{ID: "2", Title: "Pagos"},
		Document{ID: "3", Title: "Becas de excelencia"},
	)
	e.History().Record("becas deportivas", 0)
	e.History().Record("Becas", 1)

	got := e.Suggest("bec")
	assert.Equal(t, []string{"Becas", "Becas de excelencia", "becas deportivas"}, got)
}

func TestSuggest_IgnoresDiacritics(t *testing.T) {
	e := newTestEngine(t, Document{ID: "1", Title: "Inscripción"})
	assert.Equal(t, []string{"Inscripción"}, e.Suggest("inscripcion"))
}

func TestSuggest_Capped(t *testing.T) {
	var docs []Document
	for i := range 12 {
		docs = append(docs, Document{ID: fmt.Sprint(i), Title: fmt.Sprintf("Aviso %d", i)})
	}
	e := newTestEngine(t, docs...)

	got := e.Suggest("aviso")
	assert.Len(t, got, MaxSuggestions)
	assert.Equal(t, "Aviso 0", got[0])
}

func TestSuggest_EmptyPartial(t *testing.T) {
	e := newTestEngine(t, Document{ID: "1", Title: "Becas"})
	assert.Empty(t, e.Suggest(""))
	assert.Empty(t, e.Suggest("   "))
}

func TestDidYouMean(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, []string{"inscripción"}, e.DidYouMean("incripcion"))
	assert.Equal(t, []string{"calificaciones"}, e.DidYouMean("ver mis Calificasiones"))
	assert.Empty(t, e.DidYouMean("inscripción"))
	assert.Empty(t, e.DidYouMean("biblioteca"))
	assert.Empty(t, e.DidYouMean(""))
}

func TestDidYouMean_CappedAtThree(t *testing.T) {
	e := NewEngine(WithCorrections([]Correction{
		{Term: "uno", Misspellings: []string{"xx"}},
		{Term: "dos", Misspellings: []string{"xx"}},
		{Term: "tres", Misspellings: []string{"xx"}},
		{Term: "cuatro", Misspellings: []string{"xx"}},
	}))
	assert.Equal(t, []string{"uno", "dos", "tres"}, e.DidYouMean("xxx"))
}

func TestMakeSnippet_Window(t *testing.T) {
	body := strings.Repeat("a", 80) + "BECAS" + strings.Repeat("b", 80)

	sn := MakeSnippet(body, "becas", []string{"becas"}, 10, 150)
	assert.Equal(t, "..."+strings.Repeat("a", 10)+"BECAS"+strings.Repeat("b", 10)+"...", sn.Text)
	require.Len(t, sn.Highlights, 1)
	assert.Equal(t, "BECAS", sn.Text[sn.Highlights[0].Start:sn.Highlights[0].End])
}

func TestMakeSnippet_NoTruncationAtEdges(t *testing.T) {
	sn := MakeSnippet("Becas disponibles", "becas", nil, 50, 150)
	assert.Equal(t, "Becas disponibles", sn.Text)
	assert.Equal(t, []Span{{Start: 0, End: 5}}, sn.Highlights)
}

func TestMakeSnippet_FallbackToPrefix(t *testing.T) {
	body := strings.Repeat("x", 200)
	sn := MakeSnippet(body, "becas", nil, 50, 150)
	assert.Equal(t, strings.Repeat("x", 150)+"...", sn.Text)
	assert.Nil(t, sn.Highlights)

	short := MakeSnippet("texto corto", "becas", nil, 50, 150)
	assert.Equal(t, "texto corto", short.Text)
}

func TestMakeSnippet_DiacriticsAndMultibyteOffsets(t *testing.T) {
	body := "Información sobre la inscripción académica"
	sn := MakeSnippet(body, "inscripcion", []string{"inscripcion", "academica"}, 50, 150)

	assert.Equal(t, body, sn.Text)
	require.Len(t, sn.Highlights, 2)
	assert.Equal(t, "inscripción", sn.Text[sn.Highlights[0].Start:sn.Highlights[0].End])
	assert.Equal(t, "académica", sn.Text[sn.Highlights[1].Start:sn.Highlights[1].End])
}

func TestMakeSnippet_MergesOverlaps(t *testing.T) {
	sn := MakeSnippet("pagos de colegiatura", "pagos de", []string{"pagos"}, 50, 150)
	assert.Equal(t, []Span{{Start: 0, End: 8}}, sn.Highlights)
}

func TestMakeSnippet_DecomposedBody(t *testing.T) {
	body := strings.Repeat("relleno ", 10) + "La educacio\u0301n media superior"
	sn := MakeSnippet(body, "educacion", []string{"educacion"}, 5, 20)

	assert.True(t, strings.HasPrefix(sn.Text, "..."))
	require.Len(t, sn.Highlights, 1)
	// The excerpt is recomposed, so the match reads as one rune per letter.
	assert.Equal(t, "educaci\u00f3n", sn.Text[sn.Highlights[0].Start:sn.Highlights[0].End])
}

func TestMakeSnippet_StandaloneCombiningMark(t *testing.T) {
	// U+0301 has no precomposed form with "x", so it survives NFC.
	body := "dato x\u0301 final"
	sn := MakeSnippet(body, "x final", nil, 50, 150)

	assert.Equal(t, body, sn.Text)
	require.Len(t, sn.Highlights, 1)
	assert.Equal(t, "x\u0301 final", sn.Text[sn.Highlights[0].Start:sn.Highlights[0].End])
}
