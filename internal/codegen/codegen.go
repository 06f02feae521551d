// Package codegen turns a task description into a generated source file.
//
// It assembles the code-only prompt contract, optionally inlines existing
// files as context, asks the orchestrator for a completion, and writes the
// raw response to the target path.
package codegen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/geminid/internal/orchestrator"
)

// DefaultLanguage is assumed when the caller names none.
const DefaultLanguage = "python"

// Request describes one code-generation job.
type Request struct {
	Description  string
	FilePath     string
	Language     string
	Model        string
	ContextFiles []string
}

// Result reports where generated code landed.
type Result struct {
	Path    string
	Bytes   int
	Preview string
}

// Service generates code files through the orchestrator.
type Service struct {
	orc    *orchestrator.Orchestrator
	logger *zap.Logger
}

// NewService creates a code-generation service.
func NewService(orc *orchestrator.Orchestrator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{orc: orc, logger: logger}
}

// ReadContextFiles inlines existing files as fenced sections for the prompt.
// A file that cannot be read becomes an inline note rather than a failure,
// so one bad path does not sink the whole generation.
func ReadContextFiles(paths []string, language string) string {
	if len(paths) == 0 {
		return ""
	}
	sections := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			sections = append(sections, fmt.Sprintf("File: %s (Error reading: %v)", p, err))
			continue
		}
		sections = append(sections, fmt.Sprintf("File: %s\n```%s\n%s\n```", p, language, data))
	}
	return strings.Join(sections, "\n\n")
}

// BuildPrompt assembles the code-only generation prompt.
func BuildPrompt(description, filePath, language, existingFiles string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate ONLY the complete %s code for: %s\n\n", language, description)
	fmt.Fprintf(&b, "Target file path: %s\n\n", filePath)
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "1. Create production-ready, well-structured code.\n")
	fmt.Fprintf(&b, "2. Include proper imports and dependencies.\n")
	fmt.Fprintf(&b, "3. Add comprehensive docstrings and comments.\n")
	fmt.Fprintf(&b, "4. Follow %s best practices and conventions.\n", language)
	fmt.Fprintf(&b, "5. Ensure the code is complete and functional.\n\n")
	if existingFiles != "" {
		fmt.Fprintf(&b, "Context from existing files:\n%s\n\n", existingFiles)
	}
	fmt.Fprintf(&b, "Your response MUST contain ONLY the code, enclosed in a markdown code block (```%s\n...\n```). ", language)
	b.WriteString("DO NOT include any conversational text, explanations, or other markdown outside of the code block.\n")
	return b.String()
}

// Generate runs a code-generation request end to end: prompt assembly,
// remote generation, and writing the raw response to req.FilePath, creating
// parent directories as needed.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Description == "" {
		return nil, fmt.Errorf("task description is required")
	}
	if req.FilePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	language := req.Language
	if language == "" {
		language = DefaultLanguage
	}

	existing := ReadContextFiles(req.ContextFiles, language)
	prompt := BuildPrompt(req.Description, req.FilePath, language, existing)

	taskCtx := map[string]string{
		"language":    language,
		"target_file": req.FilePath,
	}
	if existing != "" {
		taskCtx["existing_files"] = existing
	}

	s.logger.Info("generating code",
		zap.String("path", req.FilePath),
		zap.String("language", language),
		zap.Int("context_files", len(req.ContextFiles)))

	text, err := s.orc.QuickAsk(ctx, prompt, req.Model, taskCtx)
	if err != nil {
		return nil, fmt.Errorf("code generation failed: %w", err)
	}

	if dir := filepath.Dir(req.FilePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(req.FilePath, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("failed to save to %s: %w", req.FilePath, err)
	}

	preview := text
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}

	s.logger.Info("code written",
		zap.String("path", req.FilePath),
		zap.Int("bytes", len(text)))

	return &Result{
		Path:    req.FilePath,
		Bytes:   len(text),
		Preview: preview,
	}, nil
}
