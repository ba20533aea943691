package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/bge-search/internal/search"
)

// Version is reported to MCP clients.
const Version = "v0.3.0"

// Server wraps the MCP server with dependencies.
type Server struct {
	server  *mcp.Server
	engine  *search.Engine
	builder Rebuilder
}

// Config holds server dependencies.
type Config struct {
	Engine *search.Engine
	// Builder enables the reindex tool and build details in the status.
	Builder Rebuilder
	// DefaultLimit applies when search_docs is called without max_results.
	DefaultLimit int
	// Now overrides the clock used for staleness warnings.
	Now func() time.Time
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "bge-search",
		Version: Version,
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_docs",
		Description: "Search the Bachillerato General Estatal site: pages, features and dynamic content. Supports category and kind filters. Returns ranked results, corrections when nothing matches, and suggestions for too-short queries.",
	}, makeSearchHandler(cfg.Engine, cfg.DefaultLimit))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "suggest",
		Description: "Autocomplete a partially typed query from document titles and past searches.",
	}, makeSuggestHandler(cfg.Engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the current status of the search index including document counts, available filters, most frequent queries, the last rebuild and a staleness indicator.",
	}, makeStatusHandler(cfg.Engine, cfg.Builder, now))

	if cfg.Builder != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "reindex",
			Description: "Rebuild the search index from all content sources. A newer request cancels one still in progress.",
		}, makeReindexHandler(cfg.Builder))
	}

	return &Server{
		server:  server,
		engine:  cfg.Engine,
		builder: cfg.Builder,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
