// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/plotweave/plotweave/internal/rules"
)

type lintOptions struct {
	rules      string
	jsonOutput bool
}

func lintCommand(args []string) error {
	opts := &lintOptions{}
	fs := newFlagSet("lint")
	fs.StringVar(&opts.rules, "rules", "", "Comma-separated rule ids to run (default: all)")
	fs.BoolVar(&opts.jsonOutput, "json", false, "Emit the full lint result as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: %s lint [--rules a,b] [--json] <file>", appName)
	}

	g, err := loadDocument(fs.Arg(0))
	if err != nil {
		return err
	}

	engine := rules.NewEngine(rules.DefaultRegistry(), rules.Options{})
	var only []string
	if opts.rules != "" {
		only = strings.Split(opts.rules, ",")
	}
	result := engine.Lint(g, rules.FullScope(), only...)

	if opts.jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	if len(result.Violations) == 0 {
		fmt.Println("No violations.")
		return nil
	}

	fixable := map[string]bool{}
	for _, f := range result.Fixes {
		fixable[f.ViolationID] = true
	}
	for _, v := range result.Violations {
		marker := " "
		if fixable[v.ID] {
			marker = "*"
		}
		target := v.NodeID
		if target == "" {
			target = "-"
		}
		fmt.Printf("%s [%s] %-22s %-24s %s\n", marker, v.Severity, v.RuleID, target, v.Message)
	}
	fmt.Printf("\n%d error(s), %d warning(s); * = fix available\n", result.ErrorCount, result.WarningCount)

	if result.HasBlockingErrors {
		os.Exit(1)
	}
	return nil
}

type fixOptions struct {
	out string
}

func fixCommand(args []string) error {
	opts := &fixOptions{}
	fs := newFlagSet("fix")
	fs.StringVar(&opts.out, "out", "", "Output path (default: overwrite the input)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: %s fix [--out file] <file>", appName)
	}
	path := fs.Arg(0)
	if opts.out == "" {
		opts.out = path
	}

	g, err := loadDocument(path)
	if err != nil {
		return err
	}

	engine := rules.NewEngine(rules.DefaultRegistry(), rules.Options{})
	result := engine.Lint(g, rules.FullScope())
	if len(result.Fixes) == 0 {
		fmt.Println("Nothing to fix.")
		return nil
	}

	fixed, outcome := engine.ApplyAllFixes(g, result.Fixes)
	for _, id := range outcome.AppliedIDs {
		getLog().Info().Str("fix_id", id).Msg("Fix applied")
	}
	for _, s := range outcome.Skipped {
		getLog().Debug().Str("fix_id", s.FixID).Str("reason", s.Reason).Msg("Fix skipped")
	}

	if len(outcome.AppliedIDs) == 0 {
		fmt.Println("No fixes applied.")
		return nil
	}
	if err := saveDocument(opts.out, fixed); err != nil {
		return err
	}
	fmt.Printf("Applied %d fix(es), skipped %d; wrote %s\n", len(outcome.AppliedIDs), len(outcome.Skipped), opts.out)
	return nil
}
