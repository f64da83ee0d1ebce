package main

import (
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/multi-strategy-rag/internal/adapters/mcp"
	"github.com/kirillkom/multi-strategy-rag/internal/bootstrap"
	"github.com/kirillkom/multi-strategy-rag/internal/config"
	"github.com/kirillkom/multi-strategy-rag/internal/observability/logging"
)

const serverVersion = "0.1.0"

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	rt, err := bootstrap.NewRetrieval(cfg, nil)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	s := mcpadapter.NewServer(cfg.MCPServerName, serverVersion, mcpadapter.Deps{
		Retriever:       rt.Retriever,
		QueryUC:         rt.QueryUC,
		RouterUC:        rt.RouterUC,
		DefaultStrategy: cfg.RAGDefaultStrategy,
	})

	logger.Info("mcp_server_started", "name", cfg.MCPServerName, "transport", "stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
