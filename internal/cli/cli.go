// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/plotweave/plotweave/internal/logger"
)

const (
	appName    = "plotweave"
	appVersion = "0.1.0-alpha"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetCLILogger()
		log = &l
	})
	return log
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ExitOnError)
}

// Execute runs the CLI application
func Execute() error {
	if len(os.Args) < 2 {
		return printUsage()
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "init":
		return initCommand(args)
	case "validate":
		return validateCommand(args)
	case "lint":
		return lintCommand(args)
	case "fix":
		return fixCommand(args)
	case "coverage":
		return coverageCommand(args)
	case "diff":
		return diffCommand(args)
	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)
		return nil
	case "help", "-h", "--help":
		return printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		return printUsage()
	}
}

func printUsage() error {
	fmt.Printf(`%s - versioned story graph toolkit

Usage:
  %s <command> [arguments]

Commands:
  init <file>              Write a fresh story document seeded with the beat template
  validate <file>          Check a story document against the graph invariants
  lint <file>              Run the rule set and report violations and fixes
  fix <file>               Apply every available fix and write the result back
  coverage <file>          Report tier coverage and open gaps
  diff <before> <after>    Compare two story documents
  version                  Print version information
  help                     Show this help message

Examples:
  %s init story.json
  %s lint story.json
  %s lint --rules scene-order,beat-integrity story.json
  %s fix --out fixed.json story.json
  %s diff draft1.json draft2.json

`, appName, appName, appName, appName, appName, appName, appName)
	return nil
}
