package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HTTPHandlerOptions configures the HTTP transport behavior.
type HTTPHandlerOptions struct {
	// Stateless disables session management. Search tools never call back
	// into the client, so stateless mode is safe behind a load balancer.
	Stateless bool
}

// NewHTTPHandler creates an HTTP handler for the MCP server using Streamable HTTP transport.
func NewHTTPHandler(server *Server, opts *HTTPHandlerOptions) http.Handler {
	if opts == nil {
		opts = &HTTPHandlerOptions{}
	}

	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server.MCPServer()
	}, &mcp.StreamableHTTPOptions{Stateless: opts.Stateless})
}

// MuxOptions lists the optional endpoints of NewMux.
type MuxOptions struct {
	HTTP    *HTTPHandlerOptions
	History HealthChecker // nil when history is kept in memory
	Metrics http.Handler  // served at /metrics when set
}

// NewMux mounts the MCP endpoint, health check, metrics and landing page.
//
//	/mcp      Streamable HTTP
//	/health   JSON health report
//	/metrics  Prometheus exposition
//	/         landing page
func NewMux(server *Server, opts MuxOptions) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/mcp", NewHTTPHandler(server, opts.HTTP))
	mux.HandleFunc("/health", NewHealthHandler(server.engine, opts.History))
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}
	mux.HandleFunc("/", NewLandingHandler())
	return mux
}
