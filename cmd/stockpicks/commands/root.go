package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockpicks",
	Short: "Stock analysis pipeline: fetch, score, rank, deliver",
	Long: `Stockpicks CLI

Fan-out stock analysis pipeline. Fetches fundamentals for an equity
universe, scores them with an LLM oracle, ranks the results, and emails
the top picks as a CSV report.

Usage:
  go run ./cmd/stockpicks [command]

Examples:
  go run ./cmd/stockpicks analyze --test-mode
  go run ./cmd/stockpicks api
  go run ./cmd/stockpicks worker --concurrency 4
  go run ./cmd/stockpicks finalize`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
