// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/plotweave/plotweave/internal/coverage"
	"github.com/plotweave/plotweave/internal/rules"
)

type coverageOptions struct {
	jsonOutput bool
	gapsOnly   bool
}

func coverageCommand(args []string) error {
	opts := &coverageOptions{}
	fs := newFlagSet("coverage")
	fs.BoolVar(&opts.jsonOutput, "json", false, "Emit the full coverage result as JSON")
	fs.BoolVar(&opts.gapsOnly, "gaps", false, "List gaps only, skip the tier summary")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: %s coverage [--json] [--gaps] <file>", appName)
	}

	g, err := loadDocument(fs.Arg(0))
	if err != nil {
		return err
	}

	engine := rules.NewEngine(rules.DefaultRegistry(), rules.Options{})
	result := coverage.Compute(g, engine)

	if opts.jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	if !opts.gapsOnly {
		for _, s := range result.Summary {
			fmt.Printf("%-12s %3d%%  (%d/%d)\n", s.Label, s.Percent, s.Covered, s.Total)
		}
		fmt.Println()
	}

	if len(result.Gaps) == 0 {
		fmt.Println("No open gaps.")
		return nil
	}
	for _, gap := range result.Gaps {
		fmt.Printf("[%s/%s] %s: %s\n", gap.Tier, gap.Type, gap.Title, gap.Description)
	}
	fmt.Printf("\n%d open gap(s)\n", len(result.Gaps))
	return nil
}
