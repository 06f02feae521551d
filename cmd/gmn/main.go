// Package main implements the gmn CLI for running Gemini prompts through
// the orchestrator without an MCP client.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/geminid/internal/codegen"
	"github.com/fyrsmithlabs/geminid/internal/config"
	"github.com/fyrsmithlabs/geminid/internal/gemini"
	"github.com/fyrsmithlabs/geminid/internal/logging"
	"github.com/fyrsmithlabs/geminid/internal/orchestrator"
)

var (
	// modelFlag overrides the configured default model
	modelFlag string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gmn",
	Short: "CLI for Gemini prompt orchestration",
	Long: `gmn runs prompts against Gemini through the same orchestrator the
geminid MCP server uses: single prompts, parallel batches, and code
generation with quota fallback between model tiers.

GEMINI_API_KEY must be set in the environment.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "Gemini model to use (default from config)")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(parallelCmd)
	rootCmd.AddCommand(createCodeCmd)
}

// cliApp bundles the pieces a command needs.
type cliApp struct {
	orc     *orchestrator.Orchestrator
	codegen *codegen.Service
	logger  *zap.Logger
}

// newApp loads config and wires the orchestrator stack for one invocation.
func newApp() (*cliApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// The CLI keeps quiet unless something goes wrong.
	logCfg := cfg.Log
	if logCfg.Level == "info" {
		logCfg.Level = "warn"
	}
	logCfg.Format = "console"

	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	gen, err := gemini.NewGenerator(gemini.Config{
		APIKey:            cfg.Gemini.APIKey,
		BaseURL:           cfg.Gemini.BaseURL,
		Provider:          cfg.Gemini.Provider,
		TimeoutSeconds:    cfg.Gemini.TimeoutSeconds,
		RequestsPerSecond: cfg.Gemini.RequestsPerSecond,
		Burst:             cfg.Gemini.Burst,
	})
	if err != nil {
		return nil, err
	}

	executor := gemini.NewExecutor(gen,
		gemini.WithFallbackModel(cfg.Gemini.FallbackModel),
		gemini.WithTimeout(time.Duration(cfg.Gemini.TimeoutSeconds)*time.Second),
		gemini.WithLogger(logger))

	orc := orchestrator.New(executor,
		orchestrator.WithMaxConcurrent(cfg.Gemini.MaxConcurrent),
		orchestrator.WithDefaultModel(cfg.Gemini.Model),
		orchestrator.WithLogger(logger))

	return &cliApp{
		orc:     orc,
		codegen: codegen.NewService(orc, logger),
		logger:  logger,
	}, nil
}
