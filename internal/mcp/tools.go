package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/geminid/internal/codegen"
	"github.com/fyrsmithlabs/geminid/internal/orchestrator"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	s.registerAskTool()
	s.registerParallelAskTool()
	s.registerCreateCodeTool()
	s.registerBatchStatusTool()
}

// ===== ASK-GEMINI =====

type askInput struct {
	Prompt  string            `json:"prompt" jsonschema:"required,The prompt to send to Gemini"`
	Model   string            `json:"model,omitempty" jsonschema:"Gemini model to use (default: gemini-2.5-pro)"`
	Context map[string]string `json:"context,omitempty" jsonschema:"Additional context for the prompt"`
}

type askOutput struct {
	Result string `json:"result" jsonschema:"The model's response text"`
}

func (s *Server) registerAskTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ask-gemini",
		Description: "Execute a single Gemini prompt",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args askInput) (*mcp.CallToolResult, askOutput, error) {
		s.logger.Info("tool called",
			zap.String("tool", "ask-gemini"),
			zap.String("model", args.Model))

		if args.Prompt == "" {
			return nil, askOutput{}, fmt.Errorf("prompt is required")
		}

		result, err := s.orc.QuickAsk(ctx, args.Prompt, args.Model, args.Context)
		if err != nil {
			return nil, askOutput{}, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: result},
			},
		}, askOutput{Result: result}, nil
	})
}

// ===== PARALLEL-ASK =====

type parallelAskInput struct {
	Prompts []string          `json:"prompts" jsonschema:"required,List of prompts to execute in parallel"`
	Model   string            `json:"model,omitempty" jsonschema:"Gemini model to use (default: gemini-2.5-pro)"`
	Context map[string]string `json:"context,omitempty" jsonschema:"Shared context for all prompts"`
}

type parallelAskOutput struct {
	Results []string `json:"results" jsonschema:"Response texts in submission order"`
	Count   int      `json:"count" jsonschema:"Number of results"`
}

func (s *Server) registerParallelAskTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "parallel-ask",
		Description: "Execute multiple prompts in parallel",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args parallelAskInput) (*mcp.CallToolResult, parallelAskOutput, error) {
		s.logger.Info("tool called",
			zap.String("tool", "parallel-ask"),
			zap.Int("prompts", len(args.Prompts)))

		if len(args.Prompts) == 0 {
			return nil, parallelAskOutput{}, fmt.Errorf("prompts are required")
		}

		results, err := s.orc.ParallelAsk(ctx, args.Prompts, args.Model, args.Context)
		if err != nil {
			return nil, parallelAskOutput{}, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: formatParallelResults(results)},
			},
		}, parallelAskOutput{Results: results, Count: len(results)}, nil
	})
}

// formatParallelResults labels each result and joins them with separators.
func formatParallelResults(results []string) string {
	formatted := make([]string, 0, len(results))
	for i, result := range results {
		formatted = append(formatted, fmt.Sprintf("**Result %d:**\n%s", i+1, result))
	}
	return strings.Join(formatted, "\n\n---\n\n")
}

// ===== CREATE-CODE =====

type createCodeInput struct {
	TaskDescription string   `json:"task_description" jsonschema:"required,Description of what code to generate"`
	FilePath        string   `json:"file_path" jsonschema:"required,Path where the file should be created"`
	ContextFiles    []string `json:"context_files,omitempty" jsonschema:"Existing files to use as context"`
	Language        string   `json:"language,omitempty" jsonschema:"Programming language (default: python)"`
	Model           string   `json:"model,omitempty" jsonschema:"Gemini model to use"`
}

type createCodeOutput struct {
	Path    string `json:"path" jsonschema:"Path the file was written to"`
	Bytes   int    `json:"bytes" jsonschema:"Size of the written file"`
	Preview string `json:"preview" jsonschema:"First 200 characters of the generated code"`
}

func (s *Server) registerCreateCodeTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "create-code",
		Description: "Generate code files using Gemini with file context",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args createCodeInput) (*mcp.CallToolResult, createCodeOutput, error) {
		s.logger.Info("tool called",
			zap.String("tool", "create-code"),
			zap.String("path", args.FilePath),
			zap.String("language", args.Language))

		result, err := s.codegen.Generate(ctx, codegen.Request{
			Description:  args.TaskDescription,
			FilePath:     args.FilePath,
			Language:     args.Language,
			Model:        args.Model,
			ContextFiles: args.ContextFiles,
		})
		if err != nil {
			return nil, createCodeOutput{}, err
		}

		text := fmt.Sprintf("Code generated and saved to %s\n\nFile size: %d bytes\nContent preview:\n%s",
			result.Path, result.Bytes, result.Preview)

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, createCodeOutput{Path: result.Path, Bytes: result.Bytes, Preview: result.Preview}, nil
	})
}

// ===== BATCH-STATUS =====

type batchStatusInput struct {
	BatchID string `json:"batch_id" jsonschema:"required,ID of the batch to check"`
}

type batchStatusOutput struct {
	Status    string  `json:"status" jsonschema:"active or completed"`
	BatchID   string  `json:"batch_id" jsonschema:"Batch identifier"`
	Total     int     `json:"total_tasks" jsonschema:"Number of tasks in the batch"`
	Parallel  bool    `json:"parallel,omitempty" jsonschema:"Whether the batch executes in parallel"`
	Completed int     `json:"completed_tasks,omitempty" jsonschema:"Completed task count"`
	Failed    int     `json:"failed_tasks,omitempty" jsonschema:"Failed task count"`
	TotalTime float64 `json:"total_time,omitempty" jsonschema:"Total execution time in seconds"`
}

func (s *Server) registerBatchStatusTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "batch-status",
		Description: "Get status of a task batch",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args batchStatusInput) (*mcp.CallToolResult, batchStatusOutput, error) {
		s.logger.Info("tool called",
			zap.String("tool", "batch-status"),
			zap.String("batch_id", args.BatchID))

		status, err := s.orc.Status(args.BatchID)
		if err != nil {
			if errors.Is(err, orchestrator.ErrBatchNotFound) {
				return &mcp.CallToolResult{
					Content: []mcp.Content{
						&mcp.TextContent{Text: fmt.Sprintf("Batch %s not found", args.BatchID)},
					},
				}, batchStatusOutput{BatchID: args.BatchID}, nil
			}
			return nil, batchStatusOutput{}, err
		}

		out := batchStatusOutput{
			Status:    string(status.State),
			BatchID:   status.BatchID,
			Total:     status.Total,
			Parallel:  status.Parallel,
			Completed: status.Completed,
			Failed:    status.Failed,
			TotalTime: status.Duration.Seconds(),
		}

		pretty, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, batchStatusOutput{}, fmt.Errorf("failed to encode status: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Batch Status:\n```json\n%s\n```", pretty)},
			},
		}, out, nil
	})
}
