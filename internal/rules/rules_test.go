// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package rules

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plotweave/plotweave/internal/story"
)

type stubRule struct {
	id       string
	severity Severity
	eval     func(g *story.Graph, scope *Scope) []Violation
}

func (s stubRule) ID() string         { return s.id }
func (s stubRule) Severity() Severity { return s.severity }
func (s stubRule) Category() string   { return "test" }
func (s stubRule) Evaluate(g *story.Graph, scope *Scope) []Violation {
	return s.eval(g, scope)
}

func violationIDs(vs []Violation) []string {
	return lo.Map(vs, func(v Violation, _ int) string { return v.ID })
}

func fixFor(t *testing.T, result *LintResult, ruleID string) Fix {
	t.Helper()
	for _, f := range result.Fixes {
		if f.RuleID == ruleID {
			return f
		}
	}
	t.Fatalf("no fix proposed by rule %s", ruleID)
	return Fix{}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubRule{id: "a", severity: SeveritySoft}))
	require.NoError(t, reg.Register(stubRule{id: "b", severity: SeverityHard}))

	err := reg.Register(stubRule{id: "a", severity: SeverityHard})
	assert.ErrorIs(t, err, ErrDuplicateRule)

	assert.Error(t, reg.Register(stubRule{}))

	ids := lo.Map(reg.Rules(), func(r Rule, _ int) string { return r.ID() })
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, 2, reg.Len())
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, 9, reg.Len())
	_, ok := reg.Get("beat-integrity")
	assert.True(t, ok)
}

func TestLintSeededGraphIsClean(t *testing.T) {
	engine := NewEngine(DefaultRegistry(), Options{})
	result := engine.Lint(story.NewSeededGraph(), nil)

	assert.Empty(t, result.Violations)
	assert.Empty(t, result.Fixes)
	assert.False(t, result.HasBlockingErrors)
	assert.False(t, result.LastCheckedAt.IsZero())
}

func TestLintIsDeterministic(t *testing.T) {
	g := story.NewSeededGraph()
	delete(g.Nodes, "beat_Midpoint")
	g.Nodes["conf_1"] = story.Conflict{ID: "conf_1", Name: "Betrayal", Nature: "interpersonal", Intensity: 9}
	g.Nodes["theme_1"] = story.Theme{ID: "theme_1", Name: "Trust", Statement: "Trust must be earned."}

	engine := NewEngine(DefaultRegistry(), Options{})
	first := engine.Lint(g, nil)
	second := engine.Lint(g, nil)

	require.NotEmpty(t, first.Violations)
	assert.Equal(t, violationIDs(first.Violations), violationIDs(second.Violations))
}

func TestRulePanicIsIsolated(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubRule{
		id:       "exploder",
		severity: SeverityHard,
		eval:     func(*story.Graph, *Scope) []Violation { panic("boom") },
	}))
	require.NoError(t, reg.Register(conflictIntensityRule{}))

	g := story.NewGraph()
	g.Nodes["conf_1"] = story.Conflict{ID: "conf_1", Name: "Duel", Nature: "external", Intensity: 7}

	result := NewEngine(reg, Options{}).Lint(g, nil)

	require.Len(t, result.Violations, 1)
	assert.Equal(t, "conflict-intensity", result.Violations[0].RuleID)
}

func TestFixGeneratorPanicSkipsViolationOnly(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(panickyFixRule{}))
	require.NoError(t, reg.Register(conflictIntensityRule{}))

	g := story.NewGraph()
	g.Nodes["conf_1"] = story.Conflict{ID: "conf_1", Name: "Duel", Nature: "external", Intensity: 7}

	result := NewEngine(reg, Options{}).Lint(g, nil)

	require.Len(t, result.Violations, 2)
	require.Len(t, result.Fixes, 1)
	assert.Equal(t, "conflict-intensity", result.Fixes[0].RuleID)
}

type panickyFixRule struct{}

func (panickyFixRule) ID() string         { return "panicky-fixer" }
func (panickyFixRule) Severity() Severity { return SeveritySoft }
func (panickyFixRule) Category() string   { return "test" }
func (r panickyFixRule) Evaluate(g *story.Graph, scope *Scope) []Violation {
	return []Violation{NewViolation(r, "conf_1", "", "", "always fires")}
}
func (panickyFixRule) SuggestFix(*story.Graph, Violation) (*Fix, error) {
	panic("fixer boom")
}

func TestRulePanicDuringRecheckSkipsWithRuleFailed(t *testing.T) {
	calls := 0
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubRule{
		id:       "flaky",
		severity: SeveritySoft,
		eval: func(g *story.Graph, scope *Scope) []Violation {
			calls++
			if calls > 1 {
				panic("flaky boom")
			}
			return []Violation{NewViolation(stubRule{id: "flaky"}, "conf_1", "", "", "fires once")}
		},
	}))

	g := story.NewGraph()
	g.Nodes["conf_1"] = story.Conflict{ID: "conf_1", Name: "Duel", Nature: "external", Intensity: 3}

	engine := NewEngine(reg, Options{})
	result := engine.Lint(g, nil)
	require.Len(t, result.Violations, 1)

	fix := Fix{
		ID:          "fix_flaky",
		ViolationID: result.Violations[0].ID,
		RuleID:      "flaky",
		Patch:       &story.Patch{},
	}
	same, outcome := engine.ApplyFix(g, fix)
	assert.Same(t, g, same)
	assert.False(t, outcome.Applied)
	assert.Equal(t, SkipReasonRuleFailed, outcome.Reason)
}

func TestBeatIntegrityRestoreFix(t *testing.T) {
	g := story.NewSeededGraph()
	delete(g.Nodes, "beat_Catalyst")

	engine := NewEngine(DefaultRegistry(), Options{})
	result := engine.Lint(g, nil)

	require.Len(t, result.Violations, 1)
	v := result.Violations[0]
	assert.Equal(t, "beat-integrity", v.RuleID)
	assert.Equal(t, SeverityHard, v.Severity)
	assert.Equal(t, "beat_Catalyst", v.NodeID)
	assert.True(t, result.HasBlockingErrors)

	fix := fixFor(t, result, "beat-integrity")
	fixed, outcome := engine.ApplyFix(g, fix)
	assert.True(t, outcome.Applied)

	restored, ok := fixed.GetNode("beat_Catalyst")
	require.True(t, ok)
	assert.Equal(t, story.KindBeat, restored.Kind())
	assert.Empty(t, engine.Lint(fixed, nil).Violations)
}

func TestInventedBeatHasNoFix(t *testing.T) {
	g := story.NewSeededGraph()
	g.Nodes["beat_SecretTwist"] = story.Beat{ID: "beat_SecretTwist", Slug: "SecretTwist", Name: "Secret Twist", Act: 2, Position: 16}

	result := NewEngine(DefaultRegistry(), Options{}).Lint(g, nil)

	require.Len(t, result.Violations, 1)
	assert.Equal(t, "beat-integrity", result.Violations[0].RuleID)
	assert.Equal(t, "beat_SecretTwist", result.Violations[0].NodeID)
	assert.Empty(t, result.Fixes)
}

func TestApplySameFixTwiceIsStale(t *testing.T) {
	g := story.NewSeededGraph()
	delete(g.Nodes, "beat_Finale")

	engine := NewEngine(DefaultRegistry(), Options{})
	fix := fixFor(t, engine.Lint(g, nil), "beat-integrity")

	fixed, first := engine.ApplyFix(g, fix)
	require.True(t, first.Applied)

	again, second := engine.ApplyFix(fixed, fix)
	assert.False(t, second.Applied)
	assert.Equal(t, SkipReasonStale, second.Reason)
	assert.Same(t, fixed, again)
}

func TestDanglingEdgeFixAndInverse(t *testing.T) {
	g := story.NewSeededGraph()
	g.Nodes["scene_1"] = story.Scene{ID: "scene_1", Title: "Ambush", Summary: "The ambush.", Order: 1}
	g.Edges = append(g.Edges, story.Edge{
		ID: "e1", Type: story.EdgeSatisfies, From: "scene_1", To: "sb_gone", Status: story.EdgeActive,
	})

	engine := NewEngine(DefaultRegistry(), Options{})
	result := engine.Lint(g, nil, "dangling-edge")
	require.Len(t, result.Violations, 1)

	fix := fixFor(t, result, "dangling-edge")
	require.NotNil(t, fix.InversePatch)

	fixed, outcome := engine.ApplyFix(g, fix)
	require.True(t, outcome.Applied)
	assert.Empty(t, fixed.Edges)

	reverted, err := story.Apply(fixed, fix.InversePatch)
	require.NoError(t, err)
	require.Len(t, reverted.Edges, 1)
	assert.Equal(t, "sb_gone", reverted.Edges[0].To)
}

func TestDuplicateEdgeCollapse(t *testing.T) {
	g := story.NewSeededGraph()
	g.Nodes["char_1"] = story.Character{ID: "char_1", Name: "Mara", Role: "protagonist"}
	g.Nodes["scene_1"] = story.Scene{ID: "scene_1", Title: "Ambush"}
	g.Edges = append(g.Edges,
		story.Edge{ID: "e1", Type: story.EdgeAppearsIn, From: "char_1", To: "scene_1", Status: story.EdgeActive},
		story.Edge{ID: "e2", Type: story.EdgeAppearsIn, From: "char_1", To: "scene_1", Status: story.EdgeActive},
	)

	engine := NewEngine(DefaultRegistry(), Options{})
	result := engine.Lint(g, nil, "duplicate-edge")
	require.Len(t, result.Violations, 1)
	assert.Equal(t, SeveritySoft, result.Violations[0].Severity)

	fixed, outcome := engine.ApplyFix(g, fixFor(t, result, "duplicate-edge"))
	require.True(t, outcome.Applied)
	require.Len(t, fixed.Edges, 1)
	assert.Equal(t, "e1", fixed.Edges[0].ID)
	assert.Empty(t, engine.Lint(fixed, nil, "duplicate-edge").Violations)
}

func TestStoryBeatAlignmentEdgeFix(t *testing.T) {
	g := story.NewSeededGraph()
	g.Nodes["sb_1"] = story.StoryBeat{ID: "sb_1", Title: "The spark", BeatID: "beat_Catalyst", Order: 1}

	engine := NewEngine(DefaultRegistry(), Options{})
	result := engine.Lint(g, nil, "storybeat-alignment")

	require.Len(t, result.Violations, 1)
	fix := fixFor(t, result, "storybeat-alignment")

	fixed, outcome := engine.ApplyFix(g, fix)
	require.True(t, outcome.Applied)
	assert.True(t, fixed.HasEdge(story.EdgeKey{Type: story.EdgeAlignsTo, From: "sb_1", To: "beat_Catalyst"}))
	assert.Empty(t, engine.Lint(fixed, nil, "storybeat-alignment").Violations)
}

func TestUnalignedStoryBeatIsNotFixable(t *testing.T) {
	g := story.NewSeededGraph()
	g.Nodes["sb_1"] = story.StoryBeat{ID: "sb_1", Title: "Drift", Order: 1}

	result := NewEngine(DefaultRegistry(), Options{}).Lint(g, nil, "storybeat-alignment")

	require.Len(t, result.Violations, 1)
	assert.Equal(t, "beat_id", result.Violations[0].Field)
	assert.Empty(t, result.Fixes)
}

func TestSceneOrderRenumberBatch(t *testing.T) {
	g := story.NewGraph()
	g.Nodes["scene_a"] = story.Scene{ID: "scene_a", Title: "First", Order: 1}
	g.Nodes["scene_b"] = story.Scene{ID: "scene_b", Title: "Also first", Order: 1}
	g.Nodes["scene_c"] = story.Scene{ID: "scene_c", Title: "Third", Order: 3}

	engine := NewEngine(DefaultRegistry(), Options{})
	result := engine.Lint(g, nil, "scene-order")
	require.Len(t, result.Violations, 2)
	require.Len(t, result.Fixes, 2)

	// Both violations carry the same renumbering. Applying the first makes
	// the second stale.
	fixed, batch := engine.ApplyAllFixes(g, result.Fixes)
	assert.Len(t, batch.AppliedIDs, 1)
	require.Len(t, batch.Skipped, 1)
	assert.Equal(t, SkipReasonStale, batch.Skipped[0].Reason)

	orders := lo.Map(fixed.NodesByKind(story.KindScene), func(n story.Node, _ int) int {
		return n.(story.Scene).Order
	})
	assert.ElementsMatch(t, []int{1, 2, 3}, orders)
	assert.Empty(t, engine.Lint(fixed, nil, "scene-order").Violations)
}

func TestConflictIntensityClamp(t *testing.T) {
	g := story.NewGraph()
	g.Nodes["conf_1"] = story.Conflict{ID: "conf_1", Name: "Siege", Nature: "external", Intensity: 11}

	engine := NewEngine(DefaultRegistry(), Options{})
	result := engine.Lint(g, nil, "conflict-intensity")
	require.Len(t, result.Violations, 1)

	fixed, outcome := engine.ApplyFix(g, fixFor(t, result, "conflict-intensity"))
	require.True(t, outcome.Applied)

	n, ok := fixed.GetNode("conf_1")
	require.True(t, ok)
	assert.Equal(t, 5, n.(story.Conflict).Intensity)

	relint := engine.Lint(fixed, nil, "conflict-intensity")
	for _, v := range relint.Violations {
		assert.NotEqual(t, result.Violations[0].ID, v.ID, "fixed violation must not resurface")
	}
	assert.Empty(t, relint.Violations)
}

func TestArcOwnerDeleteFixAndInverse(t *testing.T) {
	g := story.NewGraph()
	g.Nodes["arc_1"] = story.CharacterArc{ID: "arc_1", CharacterID: "char_gone", ArcType: "positive", Summary: "Rise."}
	g.Edges = append(g.Edges, story.Edge{
		ID: "e1", Type: story.EdgeArcOf, From: "arc_1", To: "char_gone", Status: story.EdgeActive,
	})

	engine := NewEngine(DefaultRegistry(), Options{})
	result := engine.Lint(g, nil, "arc-owner")
	require.Len(t, result.Violations, 1)

	fix := fixFor(t, result, "arc-owner")
	fixed, outcome := engine.ApplyFix(g, fix)
	require.True(t, outcome.Applied)
	_, ok := fixed.GetNode("arc_1")
	assert.False(t, ok)
	assert.Empty(t, fixed.Edges)

	reverted, err := story.Apply(fixed, fix.InversePatch)
	require.NoError(t, err)
	_, ok = reverted.GetNode("arc_1")
	assert.True(t, ok)
	assert.Len(t, reverted.Edges, 1)
}

func TestFloatingThemeAndOrphanSceneAreAdvisory(t *testing.T) {
	g := story.NewGraph()
	g.Nodes["theme_1"] = story.Theme{ID: "theme_1", Name: "Trust", Statement: "Trust must be earned."}
	g.Nodes["scene_1"] = story.Scene{ID: "scene_1", Title: "Ambush", Order: 1}

	result := NewEngine(DefaultRegistry(), Options{}).Lint(g, nil, "floating-theme", "orphan-scene")

	require.Len(t, result.Violations, 2)
	for _, v := range result.Violations {
		assert.Equal(t, SeveritySoft, v.Severity)
	}
	assert.Equal(t, 2, result.WarningCount)
	assert.False(t, result.HasBlockingErrors)
}

func TestDependencyShortCircuit(t *testing.T) {
	g := story.NewSeededGraph()
	delete(g.Nodes, "beat_Debate")

	engine := NewEngine(DefaultRegistry(), Options{})
	good := fixFor(t, engine.Lint(g, nil), "beat-integrity")

	stale := Fix{
		ID:          "fix-stale",
		ViolationID: "never-existed",
		RuleID:      "beat-integrity",
		Patch:       &story.Patch{ID: "p-stale"},
	}
	dependent := good
	dependent.DependsOn = []string{stale.ID}

	fixed, result := engine.ApplyAllFixes(g, []Fix{dependent, stale})

	assert.Empty(t, result.AppliedIDs)
	require.Len(t, result.Skipped, 2)
	reasons := lo.SliceToMap(result.Skipped, func(o FixOutcome) (string, string) { return o.FixID, o.Reason })
	assert.Equal(t, SkipReasonStale, reasons[stale.ID])
	assert.Equal(t, SkipReasonDependency, reasons[dependent.ID])

	_, ok := fixed.GetNode("beat_Debate")
	assert.False(t, ok)
}

func TestDependencyCycleSkipsBoth(t *testing.T) {
	g := story.NewSeededGraph()
	a := Fix{ID: "fix-a", RuleID: "beat-integrity", DependsOn: []string{"fix-b"}, Patch: &story.Patch{ID: "pa"}}
	b := Fix{ID: "fix-b", RuleID: "beat-integrity", DependsOn: []string{"fix-a"}, Patch: &story.Patch{ID: "pb"}}

	_, result := NewEngine(DefaultRegistry(), Options{}).ApplyAllFixes(g, []Fix{a, b})

	assert.Empty(t, result.AppliedIDs)
	require.Len(t, result.Skipped, 2)
	for _, o := range result.Skipped {
		assert.Equal(t, SkipReasonCycle, o.Reason)
	}
}

func TestTouchedScopeLimitsFindings(t *testing.T) {
	g := story.NewGraph()
	g.Nodes["conf_1"] = story.Conflict{ID: "conf_1", Name: "Siege", Nature: "external", Intensity: 11}
	g.Nodes["char_1"] = story.Character{ID: "char_1", Name: "Mara", Role: "protagonist"}

	engine := NewEngine(DefaultRegistry(), Options{})

	touched := engine.Lint(g, TouchedScope([]string{"char_1"}, nil), "conflict-intensity")
	assert.Empty(t, touched.Violations)

	full := engine.Lint(g, nil, "conflict-intensity")
	assert.Len(t, full.Violations, 1)
}

func TestTouchedScopeExpandsAlongEdges(t *testing.T) {
	g := story.NewGraph()
	g.Nodes["conf_1"] = story.Conflict{ID: "conf_1", Name: "Siege", Nature: "external", Intensity: 11}
	g.Nodes["char_1"] = story.Character{ID: "char_1", Name: "Mara", Role: "protagonist"}
	g.Edges = append(g.Edges, story.Edge{
		ID: "e1", Type: story.EdgeInvolves, From: "conf_1", To: "char_1", Status: story.EdgeActive,
	})

	engine := NewEngine(DefaultRegistry(), Options{})
	result := engine.Lint(g, TouchedScope([]string{"char_1"}, nil), "conflict-intensity")

	require.Len(t, result.Violations, 1)
	assert.Equal(t, "conf_1", result.Violations[0].NodeID)
	assert.False(t, result.ScopeTruncated)
}

func TestScopeExpansionTruncates(t *testing.T) {
	g := story.NewGraph()
	g.Nodes["char_1"] = story.Character{ID: "char_1", Name: "Mara", Role: "protagonist"}
	for _, id := range []string{"scene_1", "scene_2", "scene_3"} {
		g.Nodes[id] = story.Scene{ID: id, Title: id}
		g.Edges = append(g.Edges, story.Edge{
			ID: "e_" + id, Type: story.EdgeAppearsIn, From: "char_1", To: id, Status: story.EdgeActive,
		})
	}

	engine := NewEngine(DefaultRegistry(), Options{ScopeExpansionLimit: 2})
	result := engine.Lint(g, TouchedScope([]string{"char_1"}, nil))

	assert.True(t, result.ScopeTruncated)
}
