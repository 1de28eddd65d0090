package main

// ============================================================================
// Responsibilities:
// 1. CLI entry point
// 2. Build and execute the command tree
// 3. Print top-level errors with their hints and recover from panics
// ============================================================================

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"

	"github.com/ChuLiYu/questboard/internal/cli"
	"github.com/ChuLiYu/questboard/internal/errors"
)

// Injected at build time:
//
//	go build -ldflags "-X main.commit=$(git rev-parse --short HEAD)"
var (
	commit = "unknown"
	date   = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", r)
			os.Exit(2)
		}
	}()

	rootCmd := cli.BuildCLI()
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", cli.Version, commit, date)

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.WithWriter(os.Stderr).Println(err.Error())
		if hint := errors.FlattenHints(err); hint != "" {
			pterm.Info.WithWriter(os.Stderr).Println(hint)
		}
		os.Exit(1)
	}
}
