// Package main provides the MCP server entry point for the BGE site search.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bull/bge-search/internal/app"
	"github.com/bull/bge-search/internal/config"
	mcpserver "github.com/bull/bge-search/internal/mcp"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	a, err := app.New(ctx, cfg, app.NewLogger(cfg.LogLevel))
	if err != nil {
		log.Fatalf("failed to initialize search: %v", err)
	}
	defer a.Close()

	// Initial build, then periodic rebuilds until shutdown
	go func() {
		if err := a.Builder.Run(ctx, cfg.ReindexInterval); err != nil && ctx.Err() == nil {
			log.Printf("reindex loop stopped: %v", err)
		}
	}()

	// Create MCP server
	server := mcpserver.NewServer(&mcpserver.Config{
		Engine:       a.Engine,
		Builder:      a.Builder,
		DefaultLimit: cfg.SearchLimit,
	})

	opts := mcpserver.MuxOptions{Metrics: a.Metrics.Handler()}
	if checker, ok := a.HistoryStore().(mcpserver.HealthChecker); ok {
		opts.History = checker
	}
	mux := mcpserver.NewMux(server, opts)

	addr := "0.0.0.0:" + cfg.Port
	httpServer := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	if cfg.ServerMode {
		// HTTP mode: serve MCP over HTTP for remote clients
		log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health, metrics at /metrics)", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
		return
	}

	// Stdio mode: run MCP server over stdin/stdout for local clients
	// Also start HTTP health endpoint in background for local testing
	go func() {
		log.Printf("Starting health server on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Health server error: %v", err)
		}
	}()

	log.Println("Starting BGE Search MCP Server (stdio mode)...")
	if err := server.Run(ctx); err != nil {
		log.Printf("server error: %v", err)
		a.Close()
		os.Exit(1)
	}
}
