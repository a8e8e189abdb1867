// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/plotweave/plotweave/internal/validate"
)

type validateOptions struct {
	jsonOutput bool
	minDescLen int
}

func validateCommand(args []string) error {
	opts := &validateOptions{}
	fs := newFlagSet("validate")
	fs.BoolVar(&opts.jsonOutput, "json", false, "Emit validation errors as JSON")
	fs.IntVar(&opts.minDescLen, "min-description-len", 0, "Minimum description length (0: default)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: %s validate [--json] <file>", appName)
	}

	g, err := loadDocument(fs.Arg(0))
	if err != nil {
		return err
	}

	validator := validate.New(validate.Options{MinDescriptionLen: opts.minDescLen})
	errs := validator.Graph(g)

	if opts.jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"valid":  len(errs) == 0,
			"errors": errs,
		})
	}

	if len(errs) == 0 {
		fmt.Println("Valid.")
		return nil
	}
	for _, e := range errs {
		target := e.NodeID
		if target == "" {
			target = "-"
		}
		fmt.Printf("[%s] %-24s %s\n", e.Code, target, e.Message)
	}
	fmt.Printf("\n%d error(s)\n", len(errs))
	os.Exit(1)
	return nil
}
