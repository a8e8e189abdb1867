// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package rules

import (
	"sort"
	"time"

	"github.com/plotweave/plotweave/internal/story"
)

// LintResult is the outcome of one lint pass.
type LintResult struct {
	Violations        []Violation `json:"violations"`
	Fixes             []Fix       `json:"fixes"`
	ErrorCount        int         `json:"error_count"`
	WarningCount      int         `json:"warning_count"`
	HasBlockingErrors bool        `json:"has_blocking_errors"`
	ScopeTruncated    bool        `json:"scope_truncated,omitempty"`
	LastCheckedAt     time.Time   `json:"last_checked_at"`
}

// Options tunes the engine.
type Options struct {
	// ScopeExpansionLimit caps touched-scope neighborhood expansion.
	// Zero means DefaultScopeExpansionLimit.
	ScopeExpansionLimit int
}

// Engine runs a registry's rules over graph snapshots. It holds no graph
// state of its own and is safe to share across passes.
type Engine struct {
	registry   *Registry
	scopeLimit int
	now        func() time.Time
}

// NewEngine creates an engine over the given registry.
func NewEngine(reg *Registry, opts Options) *Engine {
	limit := opts.ScopeExpansionLimit
	if limit <= 0 {
		limit = DefaultScopeExpansionLimit
	}
	return &Engine{registry: reg, scopeLimit: limit, now: time.Now}
}

// Lint evaluates rules over the graph and proposes fixes for what they
// find. A nil scope means a full pass. When only is non-empty, just the
// named rules run. A rule that panics is logged and skipped; the pass
// always completes.
func (e *Engine) Lint(g *story.Graph, scope *Scope, only ...string) *LintResult {
	if scope == nil {
		scope = FullScope()
	}
	if scope.Mode == ScopeTouched {
		scope = e.expandScope(g, scope)
	}

	result := &LintResult{
		Violations:     []Violation{},
		Fixes:          []Fix{},
		ScopeTruncated: scope.Truncated,
		LastCheckedAt:  e.now().UTC(),
	}

	for _, rule := range e.selectRules(only) {
		violations, panicked := e.evaluate(rule, g, scope)
		if panicked {
			continue
		}
		result.Violations = append(result.Violations, violations...)
	}

	for _, v := range result.Violations {
		if v.Severity == SeverityHard {
			result.ErrorCount++
		} else {
			result.WarningCount++
		}
	}
	result.HasBlockingErrors = result.ErrorCount > 0
	result.Fixes = e.GenerateFixes(g, result.Violations)
	return result
}

// GenerateFixes asks each violation's rule for a fix, when the rule offers
// one. A fix generator that fails is logged and skipped for that
// violation only.
func (e *Engine) GenerateFixes(g *story.Graph, violations []Violation) []Fix {
	fixes := []Fix{}
	for _, v := range violations {
		rule, ok := e.registry.Get(v.RuleID)
		if !ok {
			continue
		}
		suggester, ok := rule.(FixSuggester)
		if !ok {
			continue
		}
		fix, err := e.suggest(suggester, g, v)
		if err != nil {
			getLog().Warn().
				Str("rule_id", v.RuleID).
				Str("violation_id", v.ID).
				Err(err).
				Msg("Fix generator failed; skipping violation")
			continue
		}
		if fix != nil {
			fixes = append(fixes, *fix)
		}
	}
	return fixes
}

// evaluate runs one rule with panic isolation.
func (e *Engine) evaluate(rule Rule, g *story.Graph, scope *Scope) (violations []Violation, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			getLog().Error().
				Str("rule_id", rule.ID()).
				Interface("panic", r).
				Msg("Rule panicked; skipping")
		}
	}()
	return rule.Evaluate(g, scope), false
}

// suggest runs one fix generator with panic isolation.
func (e *Engine) suggest(s FixSuggester, g *story.Graph, v Violation) (fix *Fix, err error) {
	defer func() {
		if r := recover(); r != nil {
			fix = nil
			err = panicError(r)
		}
	}()
	return s.SuggestFix(g, v)
}

func (e *Engine) selectRules(only []string) []Rule {
	if len(only) == 0 {
		return e.registry.Rules()
	}
	out := make([]Rule, 0, len(only))
	for _, id := range only {
		if rule, ok := e.registry.Get(id); ok {
			out = append(out, rule)
		}
	}
	return out
}

// expandScope grows a touched scope into its bounded neighborhood. The
// budget counts every node admitted and every incident edge walked; when
// it runs out the scope is marked truncated and expansion stops.
func (e *Engine) expandScope(g *story.Graph, s *Scope) *Scope {
	out := &Scope{
		Mode:           ScopeTouched,
		TouchedNodeIDs: s.TouchedNodeIDs,
		TouchedEdgeIDs: s.TouchedEdgeIDs,
		expanded:       make(map[string]struct{}),
	}
	budget := e.scopeLimit

	admit := func(id string) bool {
		if id == "" {
			return true
		}
		if _, ok := out.expanded[id]; ok {
			return true
		}
		if budget <= 0 {
			out.Truncated = true
			return false
		}
		budget--
		out.expanded[id] = struct{}{}
		return true
	}

	for _, id := range s.TouchedNodeIDs {
		if !admit(id) {
			break
		}
	}
	touchedEdges := make(map[string]struct{}, len(s.TouchedEdgeIDs))
	for _, id := range s.TouchedEdgeIDs {
		touchedEdges[id] = struct{}{}
	}

	frontier := append([]string(nil), s.TouchedNodeIDs...)
	for _, edge := range g.Edges {
		if out.Truncated {
			break
		}
		_, touched := touchedEdges[edge.ID]
		incident := s.Covers(edge.From) || s.Covers(edge.To)
		if !touched && !incident {
			continue
		}
		if budget <= 0 {
			out.Truncated = true
			break
		}
		budget-- // the edge itself counts against the guardrail
		if !admit(edge.From) || !admit(edge.To) {
			break
		}
		frontier = append(frontier, edge.From, edge.To)
	}

	// Enclosing structural containers: a scene pulls in the story beats it
	// satisfies, a story beat pulls in its canonical beat.
	for _, id := range frontier {
		if out.Truncated {
			break
		}
		n, ok := g.Nodes[id]
		if !ok {
			continue
		}
		switch t := n.(type) {
		case story.Scene:
			for _, edge := range g.EdgesFrom(id) {
				if edge.Type == story.EdgeSatisfies && !admit(edge.To) {
					break
				}
			}
		case story.StoryBeat:
			if !admit(t.BeatID) {
				break
			}
		}
	}

	out.ExpandedNodeIDs = make([]string, 0, len(out.expanded))
	for id := range out.expanded {
		out.ExpandedNodeIDs = append(out.ExpandedNodeIDs, id)
	}
	sort.Strings(out.ExpandedNodeIDs)
	return out
}
