// Package mcp exposes the orchestrator as MCP tools over stdio.
//
// This implementation uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and calls the orchestrator directly.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/geminid/internal/codegen"
	"github.com/fyrsmithlabs/geminid/internal/orchestrator"
)

// Server exposes ask-gemini, parallel-ask, create-code, and batch-status
// as MCP tools.
type Server struct {
	mcp     *mcp.Server
	orc     *orchestrator.Orchestrator
	codegen *codegen.Service
	logger  *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "gemini-orchestrator")
	Name string

	// Version is the server version (default: "1.0.0")
	Version string

	// Logger for structured logging
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "gemini-orchestrator",
		Version: "1.0.0",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates a new MCP server over the given orchestrator.
func NewServer(cfg *Config, orc *orchestrator.Orchestrator, cg *codegen.Service) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if orc == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cg == nil {
		return nil, fmt.Errorf("codegen service is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:     mcpServer,
		orc:     orc,
		codegen: cg,
		logger:  cfg.Logger,
	}

	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
