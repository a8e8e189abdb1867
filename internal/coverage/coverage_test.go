// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package coverage

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plotweave/plotweave/internal/rules"
	"github.com/plotweave/plotweave/internal/story"
)

func newEngine() *rules.Engine {
	return rules.NewEngine(rules.DefaultRegistry(), rules.Options{})
}

func gapsByGroup(result *Result, groupKey string) []Gap {
	return lo.Filter(result.Gaps, func(g Gap, _ int) bool { return g.GroupKey == groupKey })
}

func tierSummary(t *testing.T, result *Result, tier Tier) TierSummary {
	t.Helper()
	for _, s := range result.Summary {
		if s.Tier == tier {
			return s
		}
	}
	t.Fatalf("no summary for tier %s", tier)
	return TierSummary{}
}

func TestSeededGraphReportsEveryBeatUnrealized(t *testing.T) {
	result := Compute(story.NewSeededGraph(), newEngine())

	unrealized := gapsByGroup(result, "beat-unrealized")
	assert.Len(t, unrealized, story.CanonicalBeatCount)
	for _, g := range unrealized {
		assert.Equal(t, GapNarrative, g.Type)
		assert.Equal(t, TierStructure, g.Tier)
		assert.Equal(t, "Beat Unrealized", g.Title)
		assert.Equal(t, GapOpen, g.Status)
	}

	structure := tierSummary(t, result, TierStructure)
	assert.Equal(t, 0, structure.Covered)
	assert.Equal(t, story.CanonicalBeatCount, structure.Total)
	assert.Equal(t, 0, structure.Percent)
}

func TestRealizedBeatClearsItsGap(t *testing.T) {
	g := story.NewSeededGraph()
	g.Nodes["sb_1"] = story.StoryBeat{ID: "sb_1", Title: "The inciting spark", BeatID: "beat_Catalyst", Order: 1}
	g.Nodes["scene_1"] = story.Scene{ID: "scene_1", Title: "Ambush", Summary: "The spark lands.", Order: 1}
	g.Edges = append(g.Edges,
		story.Edge{ID: "e1", Type: story.EdgeAlignsTo, From: "sb_1", To: "beat_Catalyst", Status: story.EdgeActive},
		story.Edge{ID: "e2", Type: story.EdgeSatisfies, From: "scene_1", To: "sb_1", Status: story.EdgeActive},
	)

	result := Compute(g, newEngine())

	unrealized := gapsByGroup(result, "beat-unrealized")
	assert.Len(t, unrealized, story.CanonicalBeatCount-1)
	catalystStillOpen := lo.SomeBy(unrealized, func(gap Gap) bool {
		return lo.Contains(gap.ScopeRefs, "beat_Catalyst")
	})
	assert.False(t, catalystStillOpen)

	structure := tierSummary(t, result, TierStructure)
	assert.Equal(t, 1, structure.Covered)
	assert.Equal(t, 7, structure.Percent)
}

func TestComputeIsDeterministic(t *testing.T) {
	g := story.NewSeededGraph()
	g.Nodes["char_1"] = story.Character{ID: "char_1", Name: "Mara", Role: "protagonist"}
	g.Nodes["conf_1"] = story.Conflict{ID: "conf_1", Name: "Siege", Nature: "external", Intensity: 9}

	engine := newEngine()
	first := Compute(g, engine)
	second := Compute(g, engine)

	assert.Equal(t, first.Summary, second.Summary)
	require.Equal(t, len(first.Gaps), len(second.Gaps))
	for i := range first.Gaps {
		assert.Equal(t, first.Gaps[i].ID, second.Gaps[i].ID)
	}
}

func TestPremiseGapsAndSummary(t *testing.T) {
	g := story.NewSeededGraph()
	result := Compute(g, newEngine())

	assert.Len(t, gapsByGroup(result, "no-protagonist"), 1)
	assert.Len(t, gapsByGroup(result, "no-conflict"), 1)
	assert.Len(t, gapsByGroup(result, "no-theme"), 1)
	assert.Equal(t, 0, tierSummary(t, result, TierPremise).Percent)

	// Story-wide gaps reference no nodes, so they carry no scope refs at
	// all rather than a single empty string.
	assert.Empty(t, gapsByGroup(result, "no-protagonist")[0].ScopeRefs)

	g.Nodes["char_1"] = story.Character{ID: "char_1", Name: "Mara", Description: "A wary smuggler.", Role: "protagonist"}
	g.Nodes["conf_1"] = story.Conflict{ID: "conf_1", Name: "Siege", Nature: "external", Intensity: 3}
	g.Nodes["theme_1"] = story.Theme{ID: "theme_1", Name: "Trust", Statement: "Trust must be earned."}
	g.Edges = append(g.Edges, story.Edge{
		ID: "e1", Type: story.EdgeExpresses, From: "scene_x", To: "theme_1", Status: story.EdgeActive,
	})

	result = Compute(g, newEngine())
	assert.Empty(t, gapsByGroup(result, "no-protagonist"))
	assert.Empty(t, gapsByGroup(result, "no-conflict"))
	assert.Empty(t, gapsByGroup(result, "no-theme"))
	assert.Equal(t, 100, tierSummary(t, result, TierPremise).Percent)
}

func TestStructuralGapsAdoptRuleTier(t *testing.T) {
	g := story.NewSeededGraph()
	delete(g.Nodes, "beat_Midpoint")

	result := Compute(g, newEngine())

	structural := lo.Filter(result.Gaps, func(gap Gap, _ int) bool { return gap.Type == GapStructural })
	require.NotEmpty(t, structural)
	integrity := lo.Filter(structural, func(gap Gap, _ int) bool { return gap.GroupKey == "beat-integrity" })
	require.Len(t, integrity, 1)
	assert.Equal(t, TierStructure, integrity[0].Tier)
	assert.Equal(t, rules.SeverityHard, integrity[0].Severity)
	assert.Equal(t, "rule:beat-integrity", integrity[0].Source)
}

func TestPhaseGatedHeuristics(t *testing.T) {
	g := story.NewSeededGraph()
	g.Nodes["sb_1"] = story.StoryBeat{ID: "sb_1", Title: "The spark", BeatID: "beat_Catalyst", Order: 1}
	g.Edges = append(g.Edges, story.Edge{
		ID: "e1", Type: story.EdgeAlignsTo, From: "sb_1", To: "beat_Catalyst", Status: story.EdgeActive,
	})

	// Outline phase: an unsatisfied story beat is not yet a gap.
	assert.Equal(t, PhaseOutline, StoryPhase(g))
	result := Compute(g, newEngine())
	assert.Empty(t, gapsByGroup(result, "storybeat-unsatisfied"))

	// First scene moves the story into drafting and activates the check.
	g.Nodes["scene_1"] = story.Scene{ID: "scene_1", Title: "Ambush", Order: 1}
	assert.Equal(t, PhaseDrafting, StoryPhase(g))
	result = Compute(g, newEngine())
	assert.Len(t, gapsByGroup(result, "storybeat-unsatisfied"), 1)
	assert.Len(t, gapsByGroup(result, "scene-unwritten"), 1)
}

func TestRecurringCharacterWithoutDescription(t *testing.T) {
	g := story.NewSeededGraph()
	g.Nodes["char_1"] = story.Character{ID: "char_1", Name: "Mara", Role: "protagonist"}
	g.Nodes["scene_1"] = story.Scene{ID: "scene_1", Title: "Ambush", Summary: "s", Order: 1}
	g.Nodes["scene_2"] = story.Scene{ID: "scene_2", Title: "Escape", Summary: "s", Order: 2}
	g.Edges = append(g.Edges,
		story.Edge{ID: "e1", Type: story.EdgeAppearsIn, From: "char_1", To: "scene_1", Status: story.EdgeActive},
		story.Edge{ID: "e2", Type: story.EdgeAppearsIn, From: "char_1", To: "scene_2", Status: story.EdgeActive},
	)

	result := Compute(g, newEngine())
	require.Len(t, gapsByGroup(result, "character-undescribed"), 1)
	gap := gapsByGroup(result, "character-undescribed")[0]
	assert.Equal(t, TierFoundations, gap.Tier)
	assert.Equal(t, []string{"char_1"}, gap.ScopeRefs)
	assert.Equal(t, PhaseDrafting, gap.Phase)
}

func TestGapsAreRankedByTier(t *testing.T) {
	g := story.NewSeededGraph()
	g.Nodes["scene_1"] = story.Scene{ID: "scene_1", Title: "Ambush", Order: 1}

	result := Compute(g, newEngine())

	require.NotEmpty(t, result.Gaps)
	last := -1
	for _, gap := range result.Gaps {
		rank := tierRank[gap.Tier]
		assert.GreaterOrEqual(t, rank, last)
		last = rank
	}
}

func TestSummaryAlwaysReportsFiveTiers(t *testing.T) {
	result := Compute(story.NewGraph(), newEngine())

	require.Len(t, result.Summary, 5)
	tiers := lo.Map(result.Summary, func(s TierSummary, _ int) Tier { return s.Tier })
	assert.Equal(t, Tiers, tiers)
}
