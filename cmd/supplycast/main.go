package main

import (
	"os"

	"github.com/wonny/supplycast/cmd/supplycast/commands"
)

// main is the entry point for the supplycast CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/supplycast [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
