package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var parallelCmd = &cobra.Command{
	Use:   "parallel <prompts...>",
	Short: "Execute multiple prompts in parallel",
	Long: `Execute several prompts concurrently, bounded by the configured
concurrency window, and print each result in submission order.

Examples:
  gmn parallel "Summarize foo" "Summarize bar" "Summarize baz"
  gmn parallel --model gemini-2.5-flash "Q1" "Q2"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParallel,
}

func runParallel(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	results, err := app.orc.ParallelAsk(cmd.Context(), args, modelFlag, nil)
	if err != nil {
		return err
	}

	for i, result := range results {
		fmt.Printf("Result %d: %s\n", i+1, result)
		fmt.Println(strings.Repeat("-", 40))
	}
	return nil
}
