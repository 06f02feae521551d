package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Execute a single prompt",
	Long: `Execute a single prompt against Gemini and print the response.

Examples:
  gmn ask "Explain CRDTs in two sentences"
  gmn ask --model gemini-2.5-flash "What is 2+2?"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	result, err := app.orc.QuickAsk(cmd.Context(), args[0], modelFlag, nil)
	if err != nil {
		return err
	}

	fmt.Println(result)
	return nil
}
