// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package rules

import (
	"fmt"

	"github.com/plotweave/plotweave/internal/story"
)

// Skip reasons surfaced per fix id. These are results, not errors: a
// stale fix is the system working as intended.
const (
	SkipReasonStale        = "skipped: stale"
	SkipReasonRuleNotFound = "skipped: rule not found"
	SkipReasonRuleFailed   = "skipped: rule failed"
	SkipReasonDependency   = "dependency was skipped"
	SkipReasonCycle        = "dependency cycle"
)

// FixOutcome reports what happened to one fix.
type FixOutcome struct {
	FixID   string `json:"fix_id"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// ApplyFix re-checks and applies one fix. The originating rule is
// re-evaluated against the current graph first; the patch lands only if
// the target violation still exists. A fix is never blindly replayed.
//
// On a skip the returned graph is the input graph.
func (e *Engine) ApplyFix(g *story.Graph, fix Fix) (*story.Graph, FixOutcome) {
	rule, ok := e.registry.Get(fix.RuleID)
	if !ok {
		return g, FixOutcome{FixID: fix.ID, Reason: SkipReasonRuleNotFound}
	}

	current, panicked := e.evaluate(rule, g, FullScope())
	if panicked {
		return g, FixOutcome{FixID: fix.ID, Reason: SkipReasonRuleFailed}
	}
	stillPresent := false
	for _, v := range current {
		if v.ID == fix.ViolationID {
			stillPresent = true
			break
		}
	}
	if !stillPresent {
		return g, FixOutcome{FixID: fix.ID, Reason: SkipReasonStale}
	}

	next, err := story.Apply(g, fix.Patch)
	if err != nil {
		getLog().Warn().
			Str("fix_id", fix.ID).
			Str("rule_id", fix.RuleID).
			Err(err).
			Msg("Fix patch failed to apply")
		return g, FixOutcome{FixID: fix.ID, Reason: fmt.Sprintf("skipped: patch failed: %v", err)}
	}
	getLog().Info().
		Str("fix_id", fix.ID).
		Str("rule_id", fix.RuleID).
		Str("violation_id", fix.ViolationID).
		Msg("Fix applied")
	return next, FixOutcome{FixID: fix.ID, Applied: true}
}

// ApplyAllResult reports the outcome of a batch application.
type ApplyAllResult struct {
	AppliedIDs []string     `json:"applied_ids"`
	Skipped    []FixOutcome `json:"skipped"`
}

// ApplyAllFixes applies a batch of fixes in dependency order against a
// running snapshot. Dependencies are visited depth-first before their
// dependents; a fix whose dependency was skipped is itself skipped with
// SkipReasonDependency, so a dependent never lands on a precondition that
// never did.
func (e *Engine) ApplyAllFixes(g *story.Graph, fixes []Fix) (*story.Graph, ApplyAllResult) {
	byID := make(map[string]Fix, len(fixes))
	for _, f := range fixes {
		byID[f.ID] = f
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(fixes))
	ordered := make([]Fix, 0, len(fixes))
	cyclic := make(map[string]bool)

	var visit func(f Fix) bool
	visit = func(f Fix) bool {
		switch state[f.ID] {
		case done:
			return !cyclic[f.ID]
		case visiting:
			cyclic[f.ID] = true
			return false
		}
		state[f.ID] = visiting
		ok := true
		for _, depID := range f.DependsOn {
			dep, inBatch := byID[depID]
			if !inBatch {
				// Dependencies outside the batch are assumed settled.
				continue
			}
			if !visit(dep) {
				ok = false
			}
		}
		state[f.ID] = done
		if !ok {
			cyclic[f.ID] = true
			return false
		}
		ordered = append(ordered, f)
		return true
	}
	for _, f := range fixes {
		visit(f)
	}

	result := ApplyAllResult{AppliedIDs: []string{}, Skipped: []FixOutcome{}}
	current := g
	skipped := make(map[string]bool)

	for id := range cyclic {
		skipped[id] = true
		result.Skipped = append(result.Skipped, FixOutcome{FixID: id, Reason: SkipReasonCycle})
	}

	for _, f := range ordered {
		depSkipped := false
		for _, depID := range f.DependsOn {
			if skipped[depID] {
				depSkipped = true
				break
			}
		}
		if depSkipped {
			skipped[f.ID] = true
			result.Skipped = append(result.Skipped, FixOutcome{FixID: f.ID, Reason: SkipReasonDependency})
			continue
		}

		next, outcome := e.ApplyFix(current, f)
		if !outcome.Applied {
			skipped[f.ID] = true
			result.Skipped = append(result.Skipped, outcome)
			continue
		}
		current = next
		result.AppliedIDs = append(result.AppliedIDs, f.ID)
	}
	return current, result
}
