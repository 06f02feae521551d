// Geminid is an MCP server that orchestrates Gemini prompt execution.
//
// It exposes the tools ask-gemini, parallel-ask, create-code, and
// batch-status over the stdio transport.
//
// Configuration is loaded from environment variables with an optional YAML
// file. See internal/config for details.
//
// Usage:
//
//	# Start the server (stdio transport; wire into an MCP client)
//	GEMINI_API_KEY=... geminid
//
//	# Configure via environment
//	GEMINI_MODEL=gemini-2.5-pro GEMINI_MAX_CONCURRENT=5 geminid
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/geminid/internal/codegen"
	"github.com/fyrsmithlabs/geminid/internal/config"
	"github.com/fyrsmithlabs/geminid/internal/gemini"
	"github.com/fyrsmithlabs/geminid/internal/logging"
	"github.com/fyrsmithlabs/geminid/internal/mcp"
	"github.com/fyrsmithlabs/geminid/internal/orchestrator"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  geminid           Start the MCP server on stdio\n")
			fmt.Fprintf(os.Stderr, "  geminid version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printVersion() {
	fmt.Printf("geminid by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires configuration, logger, client, orchestrator, and MCP server,
// then blocks until the context is cancelled or the transport closes.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	logger.Info("starting geminid",
		zap.String("version", version),
		zap.String("provider", cfg.Gemini.Provider),
		zap.String("model", cfg.Gemini.Model),
		zap.String("fallback_model", cfg.Gemini.FallbackModel),
		zap.Int("max_concurrent", cfg.Gemini.MaxConcurrent))

	gen, err := gemini.NewGenerator(gemini.Config{
		APIKey:            cfg.Gemini.APIKey,
		BaseURL:           cfg.Gemini.BaseURL,
		Provider:          cfg.Gemini.Provider,
		TimeoutSeconds:    cfg.Gemini.TimeoutSeconds,
		RequestsPerSecond: cfg.Gemini.RequestsPerSecond,
		Burst:             cfg.Gemini.Burst,
	})
	if err != nil {
		return fmt.Errorf("failed to create gemini client: %w", err)
	}

	executor := gemini.NewExecutor(gen,
		gemini.WithFallbackModel(cfg.Gemini.FallbackModel),
		gemini.WithTimeout(time.Duration(cfg.Gemini.TimeoutSeconds)*time.Second),
		gemini.WithLogger(logger.Named("executor")))

	orc := orchestrator.New(executor,
		orchestrator.WithMaxConcurrent(cfg.Gemini.MaxConcurrent),
		orchestrator.WithDefaultModel(cfg.Gemini.Model),
		orchestrator.WithLogger(logger.Named("orchestrator")))

	cg := codegen.NewService(orc, logger.Named("codegen"))

	server, err := mcp.NewServer(&mcp.Config{
		Name:    "gemini-orchestrator",
		Version: version,
		Logger:  logger.Named("mcp"),
	}, orc, cg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	logger.Info("gemini MCP orchestrator initialized")

	return server.Run(ctx)
}
