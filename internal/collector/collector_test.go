package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/bull/bge-search/internal/github"
	"github.com/bull/bge-search/internal/metadata"
	"github.com/bull/bge-search/internal/search"
)

func TestStatic_ReturnsCopy(t *testing.T) {
	s := NewStatic("pages", []search.Document{{ID: "a", Title: "A"}})
	docs, err := s.FetchDocuments(context.Background())
	require.NoError(t, err)
	docs[0].Title = "changed"

	again, err := s.FetchDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", again[0].Title)
	assert.Equal(t, "pages", s.Name())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.FetchDocuments(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFailure_Unwraps(t *testing.T) {
	err := error(&Failure{Collector: "api", Err: context.DeadlineExceeded})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "collector api: context deadline exceeded", err.Error())

	var f *Failure
	require.ErrorAs(t, fmt.Errorf("build: %w", err), &f)
	assert.Equal(t, "api", f.Collector)
}

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	assert.Len(t, c.Pages, 10)
	assert.Len(t, c.Features, 5)
	assert.Len(t, c.CorrectionTable(), 8)

	collectors := c.Collectors()
	require.Len(t, collectors, 2)
	assert.Equal(t, "pages", collectors[0].Name())

	pages, err := collectors[0].FetchDocuments(context.Background())
	require.NoError(t, err)
	var grades search.Document
	for _, d := range pages {
		assert.Equal(t, search.KindPage, d.Kind)
		assert.NotEmpty(t, d.ID)
		if d.ID == "calificaciones" {
			grades = d
		}
	}
	assert.True(t, grades.RequiresAuth)
	assert.Equal(t, 10, grades.Weight)
	assert.Contains(t, grades.Body, "boleta")

	features, err := collectors[1].FetchDocuments(context.Background())
	require.NoError(t, err)
	for _, d := range features {
		assert.Equal(t, search.KindFeature, d.Kind)
	}
}

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(`
[[page]]
id = "x"
title = "X"
updated = 2026-01-10T08:00:00Z
`))
	require.NoError(t, err)
	require.Len(t, c.Pages, 1)
	assert.Equal(t, time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC), c.Pages[0].Updated.UTC())
	assert.Equal(t, search.DefaultCorrections(), c.CorrectionTable(), "empty table falls back to built-in")

	_, err = ParseCatalog([]byte(`[[page]`))
	assert.Error(t, err)

	_, err = LoadCatalog("/nonexistent/catalog.toml")
	assert.Error(t, err)
}

func newTestAPI(url string) *API {
	return NewAPI(url,
		WithRateLimit(rate.Inf, 1),
		WithBackOff(func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
		}),
	)
}

const categoriesJSON = `{"categories": [
	{"id": "avisos", "name": "Avisos", "items": [
		{"id": "1", "title": "Suspensión de clases", "description": "No habrá clases el lunes", "url": "/avisos/1", "updatedAt": "2026-02-20T10:00:00Z", "weight": 3},
		{"id": "", "title": "Sin id"}
	]},
	{"id": "tareas", "name": "Tareas", "requiresAuth": true, "items": [
		{"id": "7", "title": "Ensayo de historia", "updatedAt": "2026-02-01"}
	]}
]}`

func TestAPI_MapsCategories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, CategoriesPath, r.URL.Path)
		fmt.Fprint(w, categoriesJSON)
	}))
	defer srv.Close()

	docs, err := newTestAPI(srv.URL + "/").FetchDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "dynamic:avisos:1", docs[0].ID)
	assert.Equal(t, search.KindDynamic, docs[0].Kind)
	assert.Equal(t, "Avisos", docs[0].Category)
	assert.Equal(t, "No habrá clases el lunes", docs[0].Body)
	assert.Equal(t, time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC), docs[0].LastUpdated)
	assert.False(t, docs[0].RequiresAuth)

	assert.Empty(t, docs[1].ID, "items without id are left for the builder to skip")

	assert.True(t, docs[2].RequiresAuth, "category auth applies to its items")
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), docs[2].LastUpdated)
}

func TestAPI_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, categoriesJSON)
	}))
	defer srv.Close()

	docs, err := newTestAPI(srv.URL).FetchDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 3)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAPI_PermanentFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestAPI(srv.URL).FetchDocuments(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.Equal(t, int32(1), calls.Load(), "4xx is not retried")

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"categories": [`)
	}))
	defer bad.Close()
	_, err = newTestAPI(bad.URL).FetchDocuments(context.Background())
	assert.ErrorContains(t, err, "decode categories")
}

func TestAPI_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestAPI(srv.URL).FetchDocuments(context.Background())
	assert.True(t, IsStatus(err, http.StatusTooManyRequests))
	assert.Equal(t, int32(4), calls.Load())
}

type stubSummarizer struct {
	calls int
	err   error
}

func (s *stubSummarizer) GenerateMetadata(ctx context.Context, title, content string) (*metadata.DocumentMetadata, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &metadata.DocumentMetadata{Summary: "Resumen de " + title, Keywords: []string{"clave"}}, nil
}

var docsFS = fstest.MapFS{
	"index.md": {Data: []byte("---\ntitle: Guía del alumno\ndescription: Normas generales\n---\nBienvenida.\n\n## Reglamento\n\nUso del uniforme.\n")},
	"logo.png": {Data: []byte{0x89, 'P', 'N', 'G'}},
	"tramites/becas.md": {Data: []byte("# Becas\n\nIntro becas.\n\n## Requisitos\n\nPromedio de 8.\n")},
	"tramites/borrador.md": {Data: []byte("---\ndraft: true\n---\n# Borrador\n")},
	"tramites/roto.md":     {Data: []byte("---\ntitle: sin cierre\n")},
}

func TestMarkdownDir(t *testing.T) {
	summarizer := &stubSummarizer{}
	c := NewMarkdownDir("docs", docsFS, "https://bge.example.mx/ayuda/", WithSummarizer(summarizer))

	docs, err := c.FetchDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 4)

	guide := docs[0]
	assert.Equal(t, "Guía del alumno", guide.Title)
	assert.Equal(t, "https://bge.example.mx/ayuda/", guide.URL)
	assert.Equal(t, DefaultMarkdownCategory, guide.Category)
	assert.Equal(t, "Normas generales Bienvenida. Reglamento Uso del uniforme.", guide.Body)

	assert.Equal(t, "Reglamento", docs[1].Title)
	assert.Equal(t, "https://bge.example.mx/ayuda/#reglamento", docs[1].URL)

	becas := docs[2]
	assert.Equal(t, "Becas", becas.Title)
	assert.Equal(t, "tramites", becas.Category)
	assert.Equal(t, "https://bge.example.mx/ayuda/tramites/becas", becas.URL)
	assert.Equal(t, "Resumen de Becas clave Becas Intro becas. Requisitos Promedio de 8.", becas.Body)
	assert.Equal(t, 1, summarizer.calls, "only pages without a description are summarized")

	assert.Equal(t, "Requisitos", docs[3].Title)
	assert.Equal(t, "Promedio de 8.", docs[3].Body)

	// IDs are stable across runs and distinct per section
	again, err := NewMarkdownDir("docs", docsFS, "https://bge.example.mx/ayuda").FetchDocuments(context.Background())
	require.NoError(t, err)
	for i := range docs {
		assert.Equal(t, docs[i].ID, again[i].ID)
	}
	assert.NotEqual(t, docs[2].ID, docs[3].ID)
}

func TestMarkdownDir_SummaryFailureKeepsPage(t *testing.T) {
	fsys := fstest.MapFS{"becas.md": {Data: []byte("# Becas\n\nTexto.\n")}}
	docs, err := NewMarkdownDir("docs", fsys, "", WithSummarizer(&stubSummarizer{err: errors.New("quota")})).
		FetchDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Becas Texto.", docs[0].Body)
	assert.Equal(t, "/becas", docs[0].URL)
}

func TestTitleFromPath(t *testing.T) {
	assert.Equal(t, "Reglamento escolar", titleFromPath("normas/reglamento-escolar.md"))
	assert.Equal(t, "Tramites", titleFromPath("tramites/_index.md"))
	assert.Equal(t, "Énfasis", titleFromPath("énfasis.md"))
}

type fakeFetcher struct {
	sha       string
	files     map[string]string
	listCalls int
}

func (f *fakeFetcher) Source() string { return "bge/portal/docs" }

func (f *fakeFetcher) ListDocs(ctx context.Context) ([]string, error) {
	f.listCalls++
	return []string{"becas.md", "falta.md"}, nil
}

func (f *fakeFetcher) FetchDoc(ctx context.Context, p string) (*github.FetchedDoc, error) {
	content, ok := f.files[p]
	if !ok {
		return nil, fmt.Errorf("failed to get content of %s: 404", p)
	}
	return &github.FetchedDoc{Path: p, Content: content, URL: "https://github.com/bge/portal/blob/main/docs/" + p}, nil
}

func (f *fakeFetcher) GetLatestCommitSHA(ctx context.Context) (string, error) {
	return f.sha, nil
}

func TestGitHubDocs_CachesPerCommit(t *testing.T) {
	fetcher := &fakeFetcher{sha: "c1", files: map[string]string{"becas.md": "# Becas\n\nConvocatoria.\n"}}
	c := NewGitHubDocs(fetcher)

	docs, err := c.FetchDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1, "missing files are skipped")
	assert.Equal(t, "https://github.com/bge/portal/blob/main/docs/becas.md", docs[0].URL)

	_, err = c.FetchDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.listCalls, "unchanged commit reuses documents")

	fetcher.sha = "c2"
	_, err = c.FetchDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.listCalls)
}
