// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/plotweave/plotweave/internal/story"
)

// loadDocument reads a story document from disk and decodes it into a
// graph snapshot.
func loadDocument(path string) (*story.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	g, err := story.DecodeGraph(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return g, nil
}

// saveDocument writes a graph snapshot to disk as a story document.
func saveDocument(path string, g *story.Graph) error {
	data, err := story.EncodeGraph(g)
	if err != nil {
		return fmt.Errorf("failed to encode story: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

type initOptions struct {
	force bool
}

func initCommand(args []string) error {
	opts := &initOptions{}
	fs := newFlagSet("init")
	fs.BoolVar(&opts.force, "force", false, "Overwrite an existing file")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: %s init [--force] <file>", appName)
	}
	path := fs.Arg(0)

	if !opts.force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if err := saveDocument(path, story.NewSeededGraph()); err != nil {
		return err
	}
	getLog().Info().Str("path", path).Msg("Seeded story document written")
	fmt.Printf("Wrote %s with the %d-beat template.\n", path, len(story.BeatCatalog()))
	return nil
}
