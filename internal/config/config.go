// Package config reads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds every setting of the search service and CLI.
type Config struct {
	Port       string
	ServerMode bool
	LogLevel   slog.Level

	// Content sources
	CatalogPath   string // empty uses the embedded catalog
	ContentAPIURL string // base URL of the categories API, empty disables it
	DocsDir       string // local markdown directory, empty disables it
	DocsBaseURL   string
	GitHubOwner   string
	GitHubRepo    string
	GitHubPath    string
	GitHubRef     string
	GitHubToken   string
	OpenAIAPIKey  string // enables generated summaries for markdown pages

	// History persistence
	HistoryBackend string
	HistoryPath    string
	QdrantHost     string
	QdrantPort     int

	SearchLimit     int
	ReindexInterval time.Duration
}

// Load reads the configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		ServerMode:      getEnv("SERVER_MODE", "false") == "true",
		CatalogPath:     os.Getenv("CATALOG_PATH"),
		ContentAPIURL:   os.Getenv("CONTENT_API_URL"),
		DocsDir:         os.Getenv("DOCS_DIR"),
		DocsBaseURL:     getEnv("DOCS_BASE_URL", "/ayuda"),
		GitHubOwner:     os.Getenv("GITHUB_DOCS_OWNER"),
		GitHubRepo:      os.Getenv("GITHUB_DOCS_REPO"),
		GitHubPath:      getEnv("GITHUB_DOCS_PATH", "docs"),
		GitHubRef:       getEnv("GITHUB_DOCS_REF", "main"),
		GitHubToken:     os.Getenv("GITHUB_TOKEN"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		HistoryBackend:  strings.ToLower(getEnv("HISTORY_BACKEND", "none")),
		HistoryPath:     os.Getenv("HISTORY_PATH"),
		QdrantHost:      getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:      getEnvInt("QDRANT_PORT", 6334),
		SearchLimit:     getEnvInt("SEARCH_LIMIT", 10),
		ReindexInterval: getEnvDuration("REINDEX_INTERVAL", 15*time.Minute),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if cfg.HistoryPath == "" {
		switch cfg.HistoryBackend {
		case "file":
			cfg.HistoryPath = "search-history.json"
		case "sqlite":
			cfg.HistoryPath = "search-history.db"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GitHubEnabled reports whether a GitHub docs repository is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubOwner != "" && c.GitHubRepo != ""
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	if (c.GitHubOwner == "") != (c.GitHubRepo == "") {
		errs = append(errs, errors.New("GITHUB_DOCS_OWNER and GITHUB_DOCS_REPO must be set together"))
	}
	if c.SearchLimit <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_LIMIT must be positive, got %d", c.SearchLimit))
	}
	if c.QdrantPort <= 0 || c.QdrantPort > 65535 {
		errs = append(errs, fmt.Errorf("QDRANT_PORT out of range: %d", c.QdrantPort))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s", "1h"). "0" disables periodic work.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if v == "0" {
			return 0
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
