package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/bull/bge-search/internal/search"
)

// CategoriesPath is the endpoint serving dynamic content.
const CategoriesPath = "/api/search/categories"

const (
	defaultAPITimeout    = 10 * time.Second
	defaultAPIRate       = 2.0 // requests per second
	defaultAPIBurst      = 1
	defaultAPIMaxElapsed = 30 * time.Second
)

// apiResponse is the JSON shape returned by CategoriesPath.
type apiResponse struct {
	Categories []apiCategory `json:"categories"`
}

type apiCategory struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	RequiresAuth bool      `json:"requiresAuth"`
	Items        []apiItem `json:"items"`
}

type apiItem struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	URL          string `json:"url"`
	UpdatedAt    string `json:"updatedAt"`
	Weight       int    `json:"weight"`
	RequiresAuth bool   `json:"requiresAuth"`
}

// API fetches dynamic categories and their items from the site backend.
type API struct {
	baseURL    string
	client     *http.Client
	limiter    *rate.Limiter
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

// APIOption configures an API collector.
type APIOption func(*API)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) APIOption {
	return func(a *API) { a.client = c }
}

// WithRateLimit sets the request pacing.
func WithRateLimit(r rate.Limit, burst int) APIOption {
	return func(a *API) { a.limiter = rate.NewLimiter(r, burst) }
}

// WithBackOff sets the retry policy factory. One policy is created per fetch.
func WithBackOff(f func() backoff.BackOff) APIOption {
	return func(a *API) { a.newBackOff = f }
}

// WithAPILogger sets the logger.
func WithAPILogger(l *slog.Logger) APIOption {
	return func(a *API) { a.logger = l }
}

// NewAPI creates a collector for the categories endpoint under baseURL.
func NewAPI(baseURL string, opts ...APIOption) *API {
	a := &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultAPITimeout},
		limiter: rate.NewLimiter(rate.Limit(defaultAPIRate), defaultAPIBurst),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			b.MaxElapsedTime = defaultAPIMaxElapsed
			return b
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *API) Name() string { return "api" }

// FetchDocuments retrieves all categories and maps every item to a dynamic
// document. Network errors, 429 and 5xx responses are retried.
func (a *API) FetchDocuments(ctx context.Context) ([]search.Document, error) {
	var resp *apiResponse
	attempt := 0

	operation := func() error {
		attempt++
		r, err := a.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			a.logger.Warn("category fetch failed", "attempt", attempt, "error", err)
			return err
		}
		resp = r
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(a.newBackOff(), ctx)); err != nil {
		return nil, err
	}

	return mapCategories(resp), nil
}

// statusError is a non-2xx response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func (a *API) fetch(ctx context.Context) (*apiResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+CategoriesPath, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	res, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		io.Copy(io.Discard, res.Body)
		serr := &statusError{code: res.StatusCode}
		if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
			return nil, serr
		}
		return nil, backoff.Permanent(serr)
	}

	var out apiResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode categories: %w", err))
	}
	return &out, nil
}

// IsStatus reports whether err is an HTTP status failure with the given code.
func IsStatus(err error, code int) bool {
	var serr *statusError
	return errors.As(err, &serr) && serr.code == code
}

func mapCategories(resp *apiResponse) []search.Document {
	var docs []search.Document
	for _, cat := range resp.Categories {
		category := cat.Name
		if category == "" {
			category = cat.ID
		}
		for _, item := range cat.Items {
			var id string
			if strings.TrimSpace(item.ID) != "" {
				id = "dynamic:" + cat.ID + ":" + item.ID
			}
			docs = append(docs, search.Document{
				ID:           id,
				Title:        item.Title,
				Body:         item.Description,
				URL:          item.URL,
				Kind:         search.KindDynamic,
				Category:     category,
				Weight:       item.Weight,
				RequiresAuth: cat.RequiresAuth || item.RequiresAuth,
				LastUpdated:  parseTimestamp(item.UpdatedAt),
			})
		}
	}
	return docs
}

// parseTimestamp accepts RFC 3339 timestamps and plain dates. Anything else
// is treated as absent.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
