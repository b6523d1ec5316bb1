package main

import (
	"os"

	"github.com/wonny/instflow/cmd/instflow/commands"
)

// main is the entry point for the instflow CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/instflow [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
