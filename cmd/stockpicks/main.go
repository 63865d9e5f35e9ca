package main

import (
	"os"

	"github.com/sudhan/stockpicks/cmd/stockpicks/commands"
)

// main is the entry point for the stockpicks CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/stockpicks [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
