package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sudhan/stockpicks/internal/universe"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a stock analysis pass",
	Long: `Runs one analysis pass over the equity universe.

Small universes run in-process end to end and email the report before
returning. Large universes fan out as chunk jobs; run workers and
finalize to collect them.

Examples:
  go run ./cmd/stockpicks analyze                      # full S&P 500 universe
  go run ./cmd/stockpicks analyze --test-mode          # built-in 5 stock sample
  go run ./cmd/stockpicks analyze --symbols AAPL,MSFT
  go run ./cmd/stockpicks analyze --input universe.json`,
	RunE: runAnalyze,
}

var (
	analyzeTestMode bool
	analyzeSymbols  string
	analyzeInput    string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&analyzeTestMode, "test-mode", false, "analyze the built-in test sample")
	analyzeCmd.Flags().StringVar(&analyzeSymbols, "symbols", "", "comma-separated symbols to analyze (implies test mode)")
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "JSON file with a universe descriptor")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := a.migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	desc, err := buildDescriptor()
	if err != nil {
		return err
	}

	report, err := a.orch.Run(ctx, desc)
	if err != nil {
		return fmt.Errorf("analysis run: %w", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	return nil
}

// buildDescriptor assembles the universe descriptor from the flags
func buildDescriptor() (universe.Descriptor, error) {
	var desc universe.Descriptor

	if analyzeInput != "" {
		data, err := os.ReadFile(analyzeInput)
		if err != nil {
			return desc, fmt.Errorf("read input file: %w", err)
		}
		if err := json.Unmarshal(data, &desc); err != nil {
			return desc, fmt.Errorf("parse input file: %w", err)
		}
		return desc, nil
	}

	if analyzeSymbols != "" {
		desc.TestMode = true
		for _, s := range strings.Split(analyzeSymbols, ",") {
			if s = strings.TrimSpace(s); s != "" {
				desc.TestSymbols = append(desc.TestSymbols, strings.ToUpper(s))
			}
		}
		return desc, nil
	}

	desc.TestMode = analyzeTestMode
	return desc, nil
}
