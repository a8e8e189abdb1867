// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/plotweave/plotweave/internal/diff"
)

type diffOptions struct {
	jsonOutput bool
	summary    bool // Show summary counts only, no change detail
}

// diffCommand handles the diff subcommand
func diffCommand(args []string) error {
	opts := &diffOptions{}
	fs := newFlagSet("diff")
	fs.BoolVar(&opts.jsonOutput, "json", false, "Emit the full diff as JSON")
	fs.BoolVar(&opts.summary, "summary", false, "Show summary only, no change detail")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: %s diff [--json] [--summary] <before> <after>", appName)
	}

	before, err := loadDocument(fs.Arg(0))
	if err != nil {
		return err
	}
	after, err := loadDocument(fs.Arg(1))
	if err != nil {
		return err
	}

	d := diff.Compute(before, after)

	if opts.jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(d)
	}

	if !d.Summary.HasChanges {
		fmt.Println("No changes.")
		return nil
	}

	fmt.Printf("%d node(s) added, %d removed, %d modified; %d edge(s) added, %d removed\n",
		d.Summary.NodesAdded, d.Summary.NodesRemoved, d.Summary.NodesModified,
		d.Summary.EdgesAdded, d.Summary.EdgesRemoved)

	if opts.summary {
		return nil
	}
	fmt.Println()

	for _, id := range d.Nodes.Added {
		fmt.Printf("+ node %s\n", id)
	}
	for _, id := range d.Nodes.Removed {
		fmt.Printf("- node %s\n", id)
	}
	for _, change := range d.Nodes.Modified {
		for _, fc := range change.Changes {
			fmt.Printf("~ node %s %s: %v -> %v\n", change.ID, fc.Field, fc.Old, fc.New)
		}
	}
	for _, e := range d.Edges.Added {
		fmt.Printf("+ edge %s\n", e.Key().String())
	}
	for _, e := range d.Edges.Removed {
		fmt.Printf("- edge %s\n", e.Key().String())
	}
	return nil
}
