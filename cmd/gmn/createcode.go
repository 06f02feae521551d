package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/geminid/internal/codegen"
)

var languageFlag string

var createCodeCmd = &cobra.Command{
	Use:   "create-code <description> <file_path>",
	Short: "Generate a code file and save it",
	Long: `Generate code for a description and write the raw response to the
given path, creating parent directories as needed.

Examples:
  gmn create-code "fibonacci with memoization" out/fib.py
  gmn create-code --language go "LRU cache" internal/cache/lru.go`,
	Args: cobra.ExactArgs(2),
	RunE: runCreateCode,
}

func init() {
	createCodeCmd.Flags().StringVar(&languageFlag, "language", "python", "Programming language")
}

func runCreateCode(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	result, err := app.codegen.Generate(cmd.Context(), codegen.Request{
		Description: args[0],
		FilePath:    args[1],
		Language:    languageFlag,
		Model:       modelFlag,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Code generated and saved to: %s\n", result.Path)
	fmt.Printf("File size: %d bytes\n", result.Bytes)
	return nil
}
